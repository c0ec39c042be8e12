package api_test

import (
	"context"
	"sync"

	"github.com/mediate-project/mediate/internal/models"
)

// mockModeration implements api.ModerationService for testing. Unset
// functions panic, so each test wires only what it expects to be called.
type mockModeration struct {
	mu    sync.Mutex
	calls []string

	submitCreateFn func(ctx context.Context, actor models.Actor, e models.Entity, opts models.SubmitOptions) (*models.SubmitResult, error)
	submitUpdateFn func(ctx context.Context, actor models.Actor, t models.EntityType, id string, e models.Entity, opts models.SubmitOptions) (*models.SubmitResult, error)
	submitDeleteFn func(ctx context.Context, actor models.Actor, t models.EntityType, id string, opts models.SubmitOptions) (*models.SubmitResult, error)
	resolveFn      func(ctx context.Context, moderator models.Actor, recordID string, decision models.ModerationState, reason string) (*models.ModerationRecord, error)
	diffFn         func(ctx context.Context, recordID string) (*models.RecordDiff, error)
	getFn          func(ctx context.Context, recordID string) (*models.ModerationRecord, error)
	listFn         func(ctx context.Context, opts models.ModerationQueryOpts) ([]models.ModerationRecord, bool, error)
	statsFn        func(ctx context.Context) (*models.ModerationStats, error)
}

func (m *mockModeration) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockModeration) SubmitCreate(ctx context.Context, actor models.Actor, e models.Entity, opts models.SubmitOptions) (*models.SubmitResult, error) {
	m.record("SubmitCreate")
	return m.submitCreateFn(ctx, actor, e, opts)
}

func (m *mockModeration) SubmitUpdate(ctx context.Context, actor models.Actor, t models.EntityType, id string, e models.Entity, opts models.SubmitOptions) (*models.SubmitResult, error) {
	m.record("SubmitUpdate")
	return m.submitUpdateFn(ctx, actor, t, id, e, opts)
}

func (m *mockModeration) SubmitDelete(ctx context.Context, actor models.Actor, t models.EntityType, id string, opts models.SubmitOptions) (*models.SubmitResult, error) {
	m.record("SubmitDelete")
	return m.submitDeleteFn(ctx, actor, t, id, opts)
}

func (m *mockModeration) Resolve(ctx context.Context, moderator models.Actor, recordID string, decision models.ModerationState, reason string) (*models.ModerationRecord, error) {
	m.record("Resolve")
	return m.resolveFn(ctx, moderator, recordID, decision, reason)
}

func (m *mockModeration) Diff(ctx context.Context, recordID string) (*models.RecordDiff, error) {
	m.record("Diff")
	return m.diffFn(ctx, recordID)
}

func (m *mockModeration) IsUnderModeration(context.Context, models.EntityType, string) (bool, error) {
	m.record("IsUnderModeration")
	return false, nil
}

func (m *mockModeration) PendingTargets(context.Context, models.EntityType, []string) (map[string]string, error) {
	m.record("PendingTargets")
	return map[string]string{}, nil
}

func (m *mockModeration) Get(ctx context.Context, recordID string) (*models.ModerationRecord, error) {
	m.record("Get")
	return m.getFn(ctx, recordID)
}

func (m *mockModeration) List(ctx context.Context, opts models.ModerationQueryOpts) ([]models.ModerationRecord, bool, error) {
	m.record("List")
	return m.listFn(ctx, opts)
}

func (m *mockModeration) Stats(ctx context.Context) (*models.ModerationStats, error) {
	m.record("Stats")
	return m.statsFn(ctx)
}

func (m *mockModeration) called() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.calls))
	copy(out, m.calls)

	return out
}

// mockCatalogue implements api.CatalogueService for testing.
type mockCatalogue struct {
	getFn  func(ctx context.Context, t models.EntityType, id string) (*models.EntityView, error)
	listFn func(ctx context.Context, t models.EntityType, limit, offset int) ([]models.EntityView, bool, error)
}

func (m *mockCatalogue) GetEntity(ctx context.Context, t models.EntityType, id string) (*models.EntityView, error) {
	return m.getFn(ctx, t, id)
}

func (m *mockCatalogue) ListEntities(ctx context.Context, t models.EntityType, limit, offset int) ([]models.EntityView, bool, error) {
	return m.listFn(ctx, t, limit, offset)
}
