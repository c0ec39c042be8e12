// Package memstore provides an in-memory transactional implementation of the
// domain storage interfaces. Writers are serialised and work on a copy of the
// state that replaces the live state only when the transaction succeeds, so a
// failing transaction leaves nothing behind.
package memstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/models"
	"github.com/mediate-project/mediate/internal/schema"
)

var (
	_ domain.TxRunner  = (*Store)(nil)
	_ domain.UserStore = (*Store)(nil)
)

type pendingKey struct {
	t  models.EntityType
	id string
}

// state is the data a transaction sees. Entities are kept as encoded
// snapshots and records are replaced rather than mutated, so copying the maps
// is enough to isolate a transaction.
type state struct {
	entities map[models.EntityType]map[string]json.RawMessage
	records  map[string]*models.ModerationRecord
	order    []string
	pending  map[pendingKey]string
}

func newState() *state {
	return &state{
		entities: make(map[models.EntityType]map[string]json.RawMessage),
		records:  make(map[string]*models.ModerationRecord),
		pending:  make(map[pendingKey]string),
	}
}

func (s *state) clone() *state {
	c := &state{
		entities: make(map[models.EntityType]map[string]json.RawMessage, len(s.entities)),
		records:  make(map[string]*models.ModerationRecord, len(s.records)),
		order:    make([]string, len(s.order)),
		pending:  make(map[pendingKey]string, len(s.pending)),
	}

	for t, rows := range s.entities {
		cp := make(map[string]json.RawMessage, len(rows))
		for id, snap := range rows {
			cp[id] = snap
		}
		c.entities[t] = cp
	}

	for id, rec := range s.records {
		c.records[id] = rec
	}

	copy(c.order, s.order)

	for k, v := range s.pending {
		c.pending[k] = v
	}

	return c
}

// Store is the in-memory backend.
type Store struct {
	mu    sync.RWMutex
	state *state
	codec *schema.Codec
	now   func() time.Time

	usersMu sync.RWMutex
	users   map[string]*models.User // keyed by API key hash
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store that snapshots entities with codec.
func New(codec *schema.Codec, opts ...Option) *Store {
	s := &Store{
		state: newState(),
		codec: codec,
		now:   time.Now,
		users: make(map[string]*models.User),
	}
	for _, o := range opts {
		o(s)
	}

	return s
}

// InTx runs fn against a private copy of the state and publishes the copy
// only if fn succeeds.
func (s *Store) InTx(ctx context.Context, fn domain.TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.state.clone()
	if err := fn(ctx, &memTx{store: s, st: work}); err != nil {
		return err
	}

	s.state = work

	return nil
}

// InReadTx runs fn against the live state. Writes fail with models.ErrReadOnly.
func (s *Store) InReadTx(ctx context.Context, fn domain.TxFunc) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(ctx, &memTx{store: s, st: s.state, readOnly: true})
}

type memTx struct {
	store    *Store
	st       *state
	readOnly bool
}

func (t *memTx) Entities() domain.EntityStore { return &entityStore{tx: t} }
func (t *memTx) Records() domain.RecordStore  { return &recordStore{tx: t} }
