package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/metrics"
	"github.com/mediate-project/mediate/internal/models"
)

// Resolve approves or rejects a pending record. Approval applies the proposed
// change to the entity store in the same transaction that records the
// decision; if either fails, the record stays pending. The decision cascades
// to pending records that name this record as their master.
func (e *Engine) Resolve(
	ctx context.Context, moderator models.Actor, recordID string, decision models.ModerationState, reason string,
) (*models.ModerationRecord, error) {
	if !moderator.CanModerate() {
		return nil, models.ErrNotModerator
	}

	if !decision.IsDecision() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidDecision, decision)
	}

	var resolved []*models.ModerationRecord

	err := e.tx.InTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		resolved = resolved[:0]

		rec, err := tx.Records().GetForUpdate(ctx, recordID)
		if err != nil {
			return fmt.Errorf("loading record %s: %w", recordID, err)
		}

		if !rec.IsPending() {
			return fmt.Errorf("record %s is %s: %w", rec.ID, rec.State, models.ErrAlreadyResolved)
		}

		if rec.MasterID != nil {
			master, err := tx.Records().Get(ctx, *rec.MasterID)
			switch {
			case errors.Is(err, models.ErrRecordNotFound):
			case err != nil:
				return fmt.Errorf("loading master record %s: %w", *rec.MasterID, err)
			case master.IsPending():
				return fmt.Errorf("record %s waits on %s: %w", rec.ID, master.ID, models.ErrMasterPending)
			}
		}

		return e.resolveTree(ctx, tx, rec, moderator, decision, reason, &resolved)
	})
	if err != nil {
		e.log.WithError(err).WithField("record_id", recordID).Warn("moderation resolve failed")
		return nil, err
	}

	for _, rec := range resolved {
		metrics.ModerationResolutions.WithLabelValues(
			string(rec.TargetType), string(rec.Action), string(rec.State),
		).Inc()

		fields := recordFields(rec)
		fields["resolved_by"] = moderator.UserID
		e.log.WithFields(fields).Info("moderation record resolved")

		e.publish(ctx, models.ResolutionEventType(rec.State), rec)
	}

	return resolved[0].Clone(), nil
}

// resolveTree resolves rec and then, depth first in creation order, every
// pending record that depends on it.
func (e *Engine) resolveTree(
	ctx context.Context, tx domain.Tx, rec *models.ModerationRecord, moderator models.Actor,
	decision models.ModerationState, reason string, out *[]*models.ModerationRecord,
) error {
	if err := e.resolveOne(ctx, tx, rec, moderator, decision, reason); err != nil {
		return err
	}
	*out = append(*out, rec)

	deps, err := tx.Records().Dependents(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("listing dependents of %s: %w", rec.ID, err)
	}

	for _, dep := range deps {
		if err := e.resolveTree(ctx, tx, dep, moderator, decision, reason, out); err != nil {
			return fmt.Errorf("cascading to %s: %w", dep.ID, err)
		}
	}

	return nil
}

func (e *Engine) resolveOne(
	ctx context.Context, tx domain.Tx, rec *models.ModerationRecord, moderator models.Actor,
	decision models.ModerationState, reason string,
) error {
	if decision == models.StateApproved {
		if err := e.apply(ctx, tx, rec); err != nil {
			return err
		}
	}

	now := e.now().UTC()
	rec.State = decision
	rec.ResolvedAt = &now
	rec.ResolvedBy = moderator.Ref()
	rec.Reason = reason

	if err := tx.Records().Resolve(ctx, rec); err != nil {
		return fmt.Errorf("recording decision on %s: %w", rec.ID, err)
	}

	return nil
}

// apply performs the mutation a record proposes.
func (e *Engine) apply(ctx context.Context, tx domain.Tx, rec *models.ModerationRecord) error {
	if err := e.checkConsistent(rec); err != nil {
		return err
	}

	switch rec.Action {
	case models.ActionCreate:
		ent, err := e.codec.Decode(rec.TargetType, rec.Payload)
		if err != nil {
			return err
		}

		ent.SetEntityID("")

		id, err := tx.Entities().Create(ctx, ent)
		if err != nil {
			return storeFailure("create", err)
		}

		rec.TargetID = &id

	case models.ActionUpdate:
		ent, err := e.codec.Decode(rec.TargetType, rec.Payload)
		if err != nil {
			return err
		}

		ent.SetEntityID(*rec.TargetID)

		if err := tx.Entities().Save(ctx, ent); err != nil {
			return storeFailure("update", err)
		}

	case models.ActionDelete:
		if _, err := tx.Entities().Get(ctx, rec.TargetType, *rec.TargetID); err != nil {
			return storeFailure("delete", err)
		}

		if err := tx.Entities().Delete(ctx, rec.TargetType, *rec.TargetID); err != nil {
			return storeFailure("delete", err)
		}
	}

	return nil
}

// checkConsistent verifies that the record's action, target and payload can
// be applied together.
func (e *Engine) checkConsistent(rec *models.ModerationRecord) error {
	if _, err := e.reg.Lookup(rec.TargetType); err != nil {
		return fmt.Errorf("%w: record %s: %w", models.ErrInconsistentModerationRecord, rec.ID, err)
	}

	hasTarget := rec.TargetID != nil && *rec.TargetID != ""
	hasPayload := len(rec.Payload) > 0 && string(rec.Payload) != "null"

	var problem string

	switch rec.Action {
	case models.ActionCreate:
		switch {
		case hasTarget:
			problem = "create record already has a target"
		case !hasPayload:
			problem = "create record has no payload"
		}
	case models.ActionUpdate:
		switch {
		case !hasTarget:
			problem = "update record has no target"
		case !hasPayload:
			problem = "update record has no payload"
		}
	case models.ActionDelete:
		switch {
		case !hasTarget:
			problem = "delete record has no target"
		case hasPayload:
			problem = "delete record carries a payload"
		}
	default:
		problem = fmt.Sprintf("unknown action %q", rec.Action)
	}

	if problem != "" {
		return fmt.Errorf("%w: record %s: %s", models.ErrInconsistentModerationRecord, rec.ID, problem)
	}

	return nil
}
