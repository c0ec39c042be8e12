package moderation

import (
	"context"
	"fmt"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/metrics"
	"github.com/mediate-project/mediate/internal/models"
)

const defaultListLimit = 50

// IsUnderModeration reports whether the entity has a pending record.
func (e *Engine) IsUnderModeration(ctx context.Context, t models.EntityType, id string) (bool, error) {
	rec, err := e.PendingRecord(ctx, t, id)
	if err != nil {
		return false, err
	}

	return rec != nil, nil
}

// PendingRecord returns the entity's pending record, or nil when there is none.
func (e *Engine) PendingRecord(ctx context.Context, t models.EntityType, id string) (*models.ModerationRecord, error) {
	var rec *models.ModerationRecord

	err := e.tx.InReadTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		rec, err = tx.Records().Pending(ctx, t, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("checking pending review of %s %s: %w", t, id, err)
	}

	return rec, nil
}

// PendingTargets maps each of ids with a pending record to that record's ID.
func (e *Engine) PendingTargets(ctx context.Context, t models.EntityType, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	var out map[string]string

	err := e.tx.InReadTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		out, err = tx.Records().PendingTargets(ctx, t, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("checking pending reviews of %s: %w", t, err)
	}

	return out, nil
}

// Get returns a moderation record.
func (e *Engine) Get(ctx context.Context, recordID string) (*models.ModerationRecord, error) {
	var rec *models.ModerationRecord

	err := e.tx.InReadTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		rec, err = tx.Records().Get(ctx, recordID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("getting record %s: %w", recordID, err)
	}

	return rec, nil
}

// List returns records matching opts, newest first.
func (e *Engine) List(ctx context.Context, opts models.ModerationQueryOpts) ([]models.ModerationRecord, bool, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}

	var (
		out     []models.ModerationRecord
		hasMore bool
	)

	err := e.tx.InReadTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		out, hasMore, err = tx.Records().List(ctx, opts)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("listing moderation records: %w", err)
	}

	return out, hasMore, nil
}

// Stats summarises the queue and refreshes the pending gauge.
func (e *Engine) Stats(ctx context.Context) (*models.ModerationStats, error) {
	var stats *models.ModerationStats

	err := e.tx.InReadTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		var err error
		stats, err = tx.Records().Stats(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("moderation stats: %w", err)
	}

	for _, t := range e.reg.Types() {
		metrics.ModerationPending.WithLabelValues(string(t)).Set(float64(stats.PendingByType[t]))
	}

	return stats, nil
}
