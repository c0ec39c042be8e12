package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/metrics"
	"github.com/mediate-project/mediate/internal/models"
)

// SubmitCreate creates ent directly when the actor is exempt, and queues a
// CREATE record otherwise.
func (e *Engine) SubmitCreate(
	ctx context.Context, actor models.Actor, ent models.Entity, opts models.SubmitOptions,
) (*models.SubmitResult, error) {
	if ent == nil {
		return nil, fmt.Errorf("%w: missing entity", models.ErrValidation)
	}

	t := ent.EntityType()
	if _, err := e.reg.Lookup(t); err != nil {
		return nil, err
	}

	if !e.policies.Requires(t, models.ActionCreate, actor) {
		err := e.tx.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
			if _, err := tx.Entities().Create(ctx, ent); err != nil {
				return fmt.Errorf("creating %s: %w", t, err)
			}
			return nil
		})

		return e.applied(t, models.ActionCreate, ent, actor, err)
	}

	snap, err := e.codec.Encode(ent)
	if err != nil {
		return nil, err
	}

	rec := &models.ModerationRecord{
		EditorID:   actor.Ref(),
		Action:     models.ActionCreate,
		TargetType: t,
		Payload:    snap,
	}

	err = e.tx.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		return e.enqueue(ctx, tx, rec, opts)
	})

	return e.submitted(ctx, rec, err)
}

// SubmitUpdate replaces entity id of type t with ent. The target is locked and
// checked for a pending record in the same transaction that applies or queues
// the change.
func (e *Engine) SubmitUpdate(
	ctx context.Context, actor models.Actor, t models.EntityType, id string, ent models.Entity, opts models.SubmitOptions,
) (*models.SubmitResult, error) {
	if ent == nil {
		return nil, fmt.Errorf("%w: missing entity", models.ErrValidation)
	}

	if ent.EntityType() != t {
		return nil, fmt.Errorf("%w: got %s, want %s", models.ErrEntityTypeMismatch, ent.EntityType(), t)
	}

	ent.SetEntityID(id)
	direct := !e.policies.Requires(t, models.ActionUpdate, actor)

	rec := &models.ModerationRecord{
		EditorID:   actor.Ref(),
		Action:     models.ActionUpdate,
		TargetType: t,
		TargetID:   &id,
	}

	if !direct {
		snap, err := e.codec.Encode(ent)
		if err != nil {
			return nil, err
		}
		rec.Payload = snap
	}

	err := e.tx.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if err := e.claimTarget(ctx, tx, t, id); err != nil {
			return err
		}

		if direct {
			if err := tx.Entities().Save(ctx, ent); err != nil {
				return fmt.Errorf("saving %s %s: %w", t, id, err)
			}
			return nil
		}

		return e.enqueue(ctx, tx, rec, opts)
	})

	if direct {
		return e.applied(t, models.ActionUpdate, ent, actor, err)
	}

	return e.submitted(ctx, rec, err)
}

// SubmitDelete removes entity id of type t, directly or through review.
func (e *Engine) SubmitDelete(
	ctx context.Context, actor models.Actor, t models.EntityType, id string, opts models.SubmitOptions,
) (*models.SubmitResult, error) {
	if _, err := e.reg.Lookup(t); err != nil {
		return nil, err
	}

	direct := !e.policies.Requires(t, models.ActionDelete, actor)
	rec := &models.ModerationRecord{
		EditorID:   actor.Ref(),
		Action:     models.ActionDelete,
		TargetType: t,
		TargetID:   &id,
	}

	err := e.tx.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if err := e.claimTarget(ctx, tx, t, id); err != nil {
			return err
		}

		if direct {
			if err := tx.Entities().Delete(ctx, t, id); err != nil {
				return fmt.Errorf("deleting %s %s: %w", t, id, err)
			}
			return nil
		}

		return e.enqueue(ctx, tx, rec, opts)
	})

	if direct {
		return e.applied(t, models.ActionDelete, nil, actor, err)
	}

	return e.submitted(ctx, rec, err)
}

// claimTarget locks the target row and fails if it is missing or already has
// a pending record.
func (e *Engine) claimTarget(ctx context.Context, tx domain.Tx, t models.EntityType, id string) error {
	if _, err := tx.Entities().Lock(ctx, t, id); err != nil {
		return fmt.Errorf("locking %s %s: %w", t, id, err)
	}

	pending, err := tx.Records().Pending(ctx, t, id)
	if err != nil {
		return fmt.Errorf("checking pending review of %s %s: %w", t, id, err)
	}

	if pending != nil {
		return fmt.Errorf("%s %s (record %s): %w", t, id, pending.ID, models.ErrAlreadyUnderModeration)
	}

	return nil
}

func (e *Engine) enqueue(ctx context.Context, tx domain.Tx, rec *models.ModerationRecord, opts models.SubmitOptions) error {
	if opts.MasterID != "" {
		master, err := tx.Records().Get(ctx, opts.MasterID)
		switch {
		case errors.Is(err, models.ErrRecordNotFound):
			return fmt.Errorf("%w: %s not found", models.ErrInvalidMaster, opts.MasterID)
		case err != nil:
			return fmt.Errorf("loading master record %s: %w", opts.MasterID, err)
		case !master.IsPending():
			return fmt.Errorf("%w: %s is %s", models.ErrInvalidMaster, opts.MasterID, master.State)
		}

		masterID := opts.MasterID
		rec.MasterID = &masterID
	}

	rec.State = models.StatePending
	if err := tx.Records().Insert(ctx, rec); err != nil {
		return fmt.Errorf("queueing %s of %s: %w", rec.Action, rec.TargetType, err)
	}

	return nil
}

func (e *Engine) applied(
	t models.EntityType, action models.ModerationAction, ent models.Entity, actor models.Actor, err error,
) (*models.SubmitResult, error) {
	if err != nil {
		e.countFailure(t, action, err)
		return nil, err
	}

	metrics.ModerationSubmissions.WithLabelValues(string(t), string(action), string(models.OutcomeApplied)).Inc()

	fields := logrus.Fields{"target_type": t, "action": action, "actor": actor.UserID}
	if ent != nil {
		fields["target_id"] = ent.EntityID()
	}
	e.log.WithFields(fields).Debug("change applied without review")

	return models.NewSubmitResult(models.OutcomeApplied, ent, nil), nil
}

func (e *Engine) submitted(ctx context.Context, rec *models.ModerationRecord, err error) (*models.SubmitResult, error) {
	if err != nil {
		e.countFailure(rec.TargetType, rec.Action, err)
		return nil, err
	}

	metrics.ModerationSubmissions.WithLabelValues(
		string(rec.TargetType), string(rec.Action), string(models.OutcomeSubmitted),
	).Inc()
	e.log.WithFields(recordFields(rec)).Info("change submitted for review")
	e.publish(ctx, models.EventSubmitted, rec)

	return models.NewSubmitResult(models.OutcomeSubmitted, nil, rec.Clone()), nil
}

func (e *Engine) countFailure(t models.EntityType, action models.ModerationAction, err error) {
	if errors.Is(err, models.ErrAlreadyUnderModeration) {
		metrics.ModerationSubmissions.WithLabelValues(
			string(t), string(action), string(models.OutcomeUnderModeration),
		).Inc()
	}
}
