package moderation_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/memstore"
	"github.com/mediate-project/mediate/internal/models"
	"github.com/mediate-project/mediate/internal/moderation"
	"github.com/mediate-project/mediate/internal/schema"
)

var (
	editor    = models.Actor{UserID: "11111111-1111-1111-1111-111111111111", Privilege: models.PrivilegeEditor}
	moderator = models.Actor{UserID: "22222222-2222-2222-2222-222222222222", Privilege: models.PrivilegeModerator}
	superuser = models.Actor{UserID: "33333333-3333-3333-3333-333333333333", Privilege: models.PrivilegeSuperuser}
)

func ptr[T any](v T) *T { return &v }

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.ErrorLevel)

	return l
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ModerationEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt models.ModerationEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}

	return out
}

type fixture struct {
	store  *memstore.Store
	runner domain.TxRunner
	engine *moderation.Engine
	events *recordingPublisher
	codec  *schema.Codec
}

type fixtureOption func(*fixture)

func withRunner(wrap func(domain.TxRunner) domain.TxRunner) fixtureOption {
	return func(f *fixture) { f.runner = wrap(f.store) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	codec := schema.NewCodec(schema.Default())
	policies, err := moderation.DefaultPolicies(codec.Registry())
	require.NoError(t, err)

	f := &fixture{
		store:  memstore.New(codec),
		events: &recordingPublisher{},
		codec:  codec,
	}
	f.runner = f.store

	for _, o := range opts {
		o(f)
	}

	clock := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	f.engine = moderation.New(f.runner, codec, policies, testLogger(),
		moderation.WithPublisher(f.events),
		moderation.WithClock(func() time.Time { return clock }),
	)

	return f
}

// seed stores ent directly, bypassing the gate.
func (f *fixture) seed(t *testing.T, ent models.Entity) string {
	t.Helper()

	var id string
	require.NoError(t, f.store.InTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		var err error
		id, err = tx.Entities().Create(ctx, ent)
		return err
	}))

	return id
}

// insertRecord stores rec directly, bypassing the gate's checks.
func (f *fixture) insertRecord(t *testing.T, rec *models.ModerationRecord) {
	t.Helper()

	require.NoError(t, f.store.InTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		return tx.Records().Insert(ctx, rec)
	}))
}

func (f *fixture) entity(t *testing.T, typ models.EntityType, id string) (models.Entity, error) {
	t.Helper()

	var ent models.Entity
	err := f.store.InReadTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		var err error
		ent, err = tx.Entities().Get(ctx, typ, id)
		return err
	})

	return ent, err
}

func (f *fixture) record(t *testing.T, id string) *models.ModerationRecord {
	t.Helper()

	rec, err := f.engine.Get(context.Background(), id)
	require.NoError(t, err)

	return rec
}

func (f *fixture) pendingFor(t *testing.T, typ models.EntityType, id string) []models.ModerationRecord {
	t.Helper()

	recs, _, err := f.engine.List(context.Background(), models.ModerationQueryOpts{
		State: models.StatePending, TargetType: typ, TargetID: id, Limit: 100,
	})
	require.NoError(t, err)

	return recs
}

var errInjected = errors.New("injected store failure")

// faultyRunner wraps a TxRunner so that entity writes fail.
type faultyRunner struct {
	inner domain.TxRunner
}

func (r faultyRunner) InTx(ctx context.Context, fn domain.TxFunc) error {
	return r.inner.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		return fn(ctx, faultyTx{tx})
	})
}

func (r faultyRunner) InReadTx(ctx context.Context, fn domain.TxFunc) error {
	return r.inner.InReadTx(ctx, fn)
}

type faultyTx struct {
	domain.Tx
}

func (t faultyTx) Entities() domain.EntityStore { return faultyEntities{t.Tx.Entities()} }

type faultyEntities struct {
	domain.EntityStore
}

func (faultyEntities) Create(context.Context, models.Entity) (string, error) { return "", errInjected }
func (faultyEntities) Save(context.Context, models.Entity) error             { return errInjected }
func (faultyEntities) Delete(context.Context, models.EntityType, string) error {
	return errInjected
}
