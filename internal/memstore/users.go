package memstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/mediate-project/mediate/internal/models"
)

func hashKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// GetUserByAPIKey returns the user owning apiKey.
func (s *Store) GetUserByAPIKey(_ context.Context, apiKey string) (*models.User, error) {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	u, ok := s.users[hashKey(apiKey)]
	if !ok {
		return nil, models.ErrUserNotFound
	}

	cp := *u

	return &cp, nil
}

// CreateUser registers a user under apiKey.
func (s *Store) CreateUser(_ context.Context, name string, privilege models.Privilege, apiKey string) (*models.User, error) {
	if !privilege.Valid() {
		return nil, fmt.Errorf("%w: unknown privilege %q", models.ErrValidation, privilege)
	}

	s.usersMu.Lock()
	defer s.usersMu.Unlock()

	h := hashKey(apiKey)
	if _, exists := s.users[h]; exists {
		return nil, models.ErrDuplicateKey
	}

	u := &models.User{
		ID:        uuid.NewString(),
		Name:      name,
		Privilege: privilege,
		CreatedAt: s.now().UTC(),
	}
	s.users[h] = u

	cp := *u

	return &cp, nil
}
