package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/mediate-project/mediate/internal/models"
)

type entityStore struct {
	tx *memTx
}

func (s *entityStore) Get(_ context.Context, t models.EntityType, id string) (models.Entity, error) {
	snap, ok := s.tx.st.entities[t][id]
	if !ok {
		return nil, models.ErrEntityNotFound
	}

	return s.tx.store.codec.Decode(t, snap)
}

// Lock is Get; writers are already serialised.
func (s *entityStore) Lock(ctx context.Context, t models.EntityType, id string) (models.Entity, error) {
	return s.Get(ctx, t, id)
}

func (s *entityStore) Create(_ context.Context, e models.Entity) (string, error) {
	if s.tx.readOnly {
		return "", models.ErrReadOnly
	}

	if e.EntityID() == "" {
		e.SetEntityID(uuid.NewString())
	}

	rows := s.rows(e.EntityType())
	if _, exists := rows[e.EntityID()]; exists {
		return "", models.ErrDuplicateKey
	}

	if err := s.put(rows, e); err != nil {
		return "", err
	}

	return e.EntityID(), nil
}

func (s *entityStore) Save(_ context.Context, e models.Entity) error {
	if s.tx.readOnly {
		return models.ErrReadOnly
	}

	if e.EntityID() == "" {
		return fmt.Errorf("saving %s: missing identifier", e.EntityType())
	}

	return s.put(s.rows(e.EntityType()), e)
}

func (s *entityStore) Delete(_ context.Context, t models.EntityType, id string) error {
	if s.tx.readOnly {
		return models.ErrReadOnly
	}

	rows := s.tx.st.entities[t]
	if _, ok := rows[id]; !ok {
		return models.ErrEntityNotFound
	}

	delete(rows, id)

	return nil
}

func (s *entityStore) List(_ context.Context, t models.EntityType, limit, offset int) ([]models.Entity, bool, error) {
	rows := s.tx.st.entities[t]

	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if offset > len(ids) {
		offset = len(ids)
	}
	ids = ids[offset:]

	hasMore := limit > 0 && len(ids) > limit
	if hasMore {
		ids = ids[:limit]
	}

	out := make([]models.Entity, 0, len(ids))
	for _, id := range ids {
		e, err := s.tx.store.codec.Decode(t, rows[id])
		if err != nil {
			return nil, false, err
		}
		out = append(out, e)
	}

	return out, hasMore, nil
}

func (s *entityStore) rows(t models.EntityType) map[string]json.RawMessage {
	rows, ok := s.tx.st.entities[t]
	if !ok {
		rows = make(map[string]json.RawMessage)
		s.tx.st.entities[t] = rows
	}

	return rows
}

func (s *entityStore) put(rows map[string]json.RawMessage, e models.Entity) error {
	snap, err := s.tx.store.codec.Encode(e)
	if err != nil {
		return fmt.Errorf("storing %s: %w", e.EntityType(), err)
	}

	rows[e.EntityID()] = snap

	return nil
}
