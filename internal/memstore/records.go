package memstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mediate-project/mediate/internal/models"
)

const defaultListLimit = 50

type recordStore struct {
	tx *memTx
}

func (s *recordStore) Insert(_ context.Context, rec *models.ModerationRecord) error {
	if s.tx.readOnly {
		return models.ErrReadOnly
	}

	if rec.TargetID != nil {
		key := pendingKey{t: rec.TargetType, id: *rec.TargetID}
		if _, busy := s.tx.st.pending[key]; busy {
			return models.ErrAlreadyUnderModeration
		}
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	if _, exists := s.tx.st.records[rec.ID]; exists {
		return models.ErrDuplicateKey
	}

	if rec.State == "" {
		rec.State = models.StatePending
	}
	rec.CreatedAt = s.tx.store.now().UTC()

	stored := rec.Clone()
	s.tx.st.records[stored.ID] = stored
	s.tx.st.order = append(s.tx.st.order, stored.ID)
	s.index(stored)

	return nil
}

func (s *recordStore) Get(_ context.Context, id string) (*models.ModerationRecord, error) {
	rec, ok := s.tx.st.records[id]
	if !ok {
		return nil, models.ErrRecordNotFound
	}

	return rec.Clone(), nil
}

func (s *recordStore) GetForUpdate(ctx context.Context, id string) (*models.ModerationRecord, error) {
	return s.Get(ctx, id)
}

func (s *recordStore) Pending(_ context.Context, t models.EntityType, targetID string) (*models.ModerationRecord, error) {
	id, ok := s.tx.st.pending[pendingKey{t: t, id: targetID}]
	if !ok {
		return nil, nil //nolint:nilnil // nil record means the target is free.
	}

	return s.tx.st.records[id].Clone(), nil
}

func (s *recordStore) PendingTargets(_ context.Context, t models.EntityType, ids []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, id := range ids {
		if recID, ok := s.tx.st.pending[pendingKey{t: t, id: id}]; ok {
			out[id] = recID
		}
	}

	return out, nil
}

func (s *recordStore) Dependents(_ context.Context, masterID string) ([]*models.ModerationRecord, error) {
	var out []*models.ModerationRecord
	for _, id := range s.tx.st.order {
		rec := s.tx.st.records[id]
		if rec.IsPending() && rec.MasterID != nil && *rec.MasterID == masterID {
			out = append(out, rec.Clone())
		}
	}

	return out, nil
}

func (s *recordStore) Resolve(_ context.Context, rec *models.ModerationRecord) error {
	if s.tx.readOnly {
		return models.ErrReadOnly
	}

	if !rec.State.IsDecision() {
		return fmt.Errorf("resolving record %s: %w", rec.ID, models.ErrInvalidDecision)
	}

	cur, ok := s.tx.st.records[rec.ID]
	if !ok {
		return models.ErrRecordNotFound
	}

	if !cur.IsPending() {
		return models.ErrAlreadyResolved
	}

	s.unindex(cur)

	next := cur.Clone()
	next.State = rec.State
	next.TargetID = rec.TargetID
	next.ResolvedBy = rec.ResolvedBy
	next.Reason = rec.Reason
	if rec.ResolvedAt != nil {
		at := *rec.ResolvedAt
		next.ResolvedAt = &at
	}

	s.tx.st.records[next.ID] = next

	return nil
}

func (s *recordStore) List(_ context.Context, opts models.ModerationQueryOpts) ([]models.ModerationRecord, bool, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var (
		out     []models.ModerationRecord
		skipped int
		hasMore bool
	)

	for i := len(s.tx.st.order) - 1; i >= 0; i-- {
		rec := s.tx.st.records[s.tx.st.order[i]]
		if !matches(rec, opts) {
			continue
		}

		if skipped < opts.Offset {
			skipped++
			continue
		}

		if len(out) == limit {
			hasMore = true
			break
		}

		out = append(out, *rec.Clone())
	}

	if out == nil {
		out = []models.ModerationRecord{}
	}

	return out, hasMore, nil
}

func (s *recordStore) Stats(_ context.Context) (*models.ModerationStats, error) {
	stats := &models.ModerationStats{
		ByState:       make(map[models.ModerationState]int),
		PendingByType: make(map[models.EntityType]int),
	}

	for _, rec := range s.tx.st.records {
		stats.Total++
		stats.ByState[rec.State]++
		if rec.IsPending() {
			stats.PendingByType[rec.TargetType]++
		}
	}

	return stats, nil
}

func (s *recordStore) index(rec *models.ModerationRecord) {
	if rec.IsPending() && rec.TargetID != nil {
		s.tx.st.pending[pendingKey{t: rec.TargetType, id: *rec.TargetID}] = rec.ID
	}
}

func (s *recordStore) unindex(rec *models.ModerationRecord) {
	if rec.TargetID == nil {
		return
	}

	key := pendingKey{t: rec.TargetType, id: *rec.TargetID}
	if s.tx.st.pending[key] == rec.ID {
		delete(s.tx.st.pending, key)
	}
}

func matches(rec *models.ModerationRecord, opts models.ModerationQueryOpts) bool {
	switch {
	case opts.State != "" && rec.State != opts.State:
		return false
	case opts.Action != "" && rec.Action != opts.Action:
		return false
	case opts.TargetType != "" && rec.TargetType != opts.TargetType:
		return false
	case opts.TargetID != "" && (rec.TargetID == nil || *rec.TargetID != opts.TargetID):
		return false
	case opts.EditorID != "" && (rec.EditorID == nil || *rec.EditorID != opts.EditorID):
		return false
	case opts.ResolvedBy != "" && (rec.ResolvedBy == nil || *rec.ResolvedBy != opts.ResolvedBy):
		return false
	case opts.Since != nil && rec.CreatedAt.Before(*opts.Since):
		return false
	case opts.Until != nil && !rec.CreatedAt.Before(*opts.Until):
		return false
	}

	return true
}
