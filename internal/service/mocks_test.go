package service

import (
	"context"
	"sync"

	"github.com/mediate-project/mediate/internal/models"
)

// mockSink records published events.
type mockSink struct {
	mu     sync.Mutex
	events []models.ModerationEvent
}

func (m *mockSink) Publish(_ context.Context, evt models.ModerationEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
}

func (m *mockSink) getEvents() []models.ModerationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ModerationEvent, len(m.events))
	copy(out, m.events)

	return out
}

// mockUserStore records calls and returns configured responses.
type mockUserStore struct {
	mu    sync.Mutex
	calls []string

	getUserByAPIKey func(ctx context.Context, apiKey string) (*models.User, error)
	createUser      func(ctx context.Context, name string, privilege models.Privilege, apiKey string) (*models.User, error)
}

func (m *mockUserStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockUserStore) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	m.record("GetUserByAPIKey")
	return m.getUserByAPIKey(ctx, apiKey)
}

func (m *mockUserStore) CreateUser(ctx context.Context, name string, privilege models.Privilege, apiKey string) (*models.User, error) {
	m.record("CreateUser")
	return m.createUser(ctx, name, privilege, apiKey)
}
