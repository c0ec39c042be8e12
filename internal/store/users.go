package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/models"
)

var _ domain.UserStore = (*UserStore)(nil)

// UserStore handles API users.
type UserStore struct {
	Base
}

// NewUserStore creates a UserStore.
func NewUserStore(base Base) *UserStore {
	return &UserStore{Base: base}
}

func hashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}

// GetUserByAPIKey looks up a user by API key hash.
func (s *UserStore) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var u models.User

	err := s.Pool.QueryRow(ctx,
		"SELECT id::text, name, privilege, created_at FROM users WHERE api_key_hash = $1",
		hashAPIKey(apiKey),
	).Scan(&u.ID, &u.Name, &u.Privilege, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}

		return nil, fmt.Errorf("looking up user by API key: %w", err)
	}

	return &u, nil
}

// CreateUser registers a user under apiKey.
func (s *UserStore) CreateUser(ctx context.Context, name string, privilege models.Privilege, apiKey string) (*models.User, error) {
	if !privilege.Valid() {
		return nil, fmt.Errorf("%w: unknown privilege %q", models.ErrValidation, privilege)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	u := models.User{Name: name, Privilege: privilege}

	err := s.Pool.QueryRow(ctx, `
		INSERT INTO users (name, api_key_hash, privilege) VALUES ($1, $2, $3)
		RETURNING id::text, created_at`,
		name, hashAPIKey(apiKey), privilege,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if pgCode(err) == codeUniqueViolation {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("creating user: %w", err)
	}

	return &u, nil
}
