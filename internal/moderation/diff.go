package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/models"
	"github.com/mediate-project/mediate/internal/schema"
)

// Diff compares a record's proposal with the live entity, field by field in
// schema order. CREATE records have no original side and DELETE records no
// proposed side. A live entity that no longer exists counts as absent.
func (e *Engine) Diff(ctx context.Context, recordID string) (*models.RecordDiff, error) {
	var out *models.RecordDiff

	err := e.tx.InReadTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		rec, err := tx.Records().Get(ctx, recordID)
		if err != nil {
			return fmt.Errorf("loading record %s: %w", recordID, err)
		}

		s, err := e.reg.Lookup(rec.TargetType)
		if err != nil {
			return fmt.Errorf("%w: record %s: %w", models.ErrInconsistentModerationRecord, rec.ID, err)
		}

		var original, proposed models.Entity

		switch rec.Action {
		case models.ActionCreate:
			if proposed, err = e.codec.Decode(rec.TargetType, rec.Payload); err != nil {
				return err
			}
		case models.ActionUpdate:
			if proposed, err = e.codec.Decode(rec.TargetType, rec.Payload); err != nil {
				return err
			}
			if original, err = live(ctx, tx, rec); err != nil {
				return err
			}
		case models.ActionDelete:
			if original, err = live(ctx, tx, rec); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: record %s: unknown action %q", models.ErrInconsistentModerationRecord, rec.ID, rec.Action)
		}

		out = &models.RecordDiff{
			RecordID:   rec.ID,
			Action:     rec.Action,
			TargetType: rec.TargetType,
			TargetID:   rec.TargetID,
			State:      rec.State,
			Fields:     computeDiff(s, original, proposed),
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func live(ctx context.Context, tx domain.Tx, rec *models.ModerationRecord) (models.Entity, error) {
	if rec.TargetID == nil {
		return nil, nil
	}

	ent, err := tx.Entities().Get(ctx, rec.TargetType, *rec.TargetID)
	if errors.Is(err, models.ErrEntityNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s %s: %w", rec.TargetType, *rec.TargetID, err)
	}

	return ent, nil
}

// computeDiff builds one FieldDiff per schema field. Either side may be nil.
func computeDiff(s *schema.Schema, original, proposed models.Entity) []models.FieldDiff {
	out := make([]models.FieldDiff, 0, len(s.Fields))

	for _, f := range s.Fields {
		d := models.FieldDiff{Field: f.Name}

		if original != nil {
			d.Original = &models.DiffValue{Value: f.Get(original)}
		}
		if proposed != nil {
			d.Proposed = &models.DiffValue{Value: f.Get(proposed)}
		}

		switch {
		case original != nil && proposed != nil:
			d.Changed = !f.Equal(original, proposed)
		default:
			d.Changed = original != nil || proposed != nil
		}

		out = append(out, d)
	}

	return out
}
