package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/models"
)

// BootstrapUserName names the superuser created from BOOTSTRAP_API_KEY.
const BootstrapUserName = "bootstrap"

// EnsureBootstrapUser makes sure apiKey belongs to a superuser, creating one
// when the key is unknown. An empty key is a no-op.
func EnsureBootstrapUser(ctx context.Context, users domain.UserStore, apiKey string, log *logrus.Logger) (*models.User, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // nothing to bootstrap.
	}

	u, err := users.GetUserByAPIKey(ctx, apiKey)
	switch {
	case err == nil:
		if u.Privilege != models.PrivilegeSuperuser {
			log.WithField("user_id", u.ID).Warn("bootstrap API key belongs to a non-superuser")
		}

		return u, nil
	case !errors.Is(err, models.ErrUserNotFound):
		return nil, fmt.Errorf("looking up bootstrap user: %w", err)
	}

	u, err = users.CreateUser(ctx, BootstrapUserName, models.PrivilegeSuperuser, apiKey)
	if err != nil {
		return nil, fmt.Errorf("creating bootstrap user: %w", err)
	}

	log.WithField("user_id", u.ID).Info("bootstrap superuser created")

	return u, nil
}
