package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/memstore"
	"github.com/mediate-project/mediate/internal/models"
	"github.com/mediate-project/mediate/internal/schema"
)

func seedCatalogue(t *testing.T) (*memstore.Store, []string) {
	t.Helper()

	st := memstore.New(schema.NewCodec(schema.Default()))

	var ids []string
	err := st.InTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		for _, name := range []string{"Antwerp", "Bruges", "Ghent"} {
			id, err := tx.Entities().Create(ctx, &models.Place{ID: name, Name: name})
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}

		return tx.Records().Insert(ctx, &models.ModerationRecord{
			ID: "rec-1", Action: models.ActionDelete, TargetType: models.EntityPlace, TargetID: &ids[1],
		})
	})
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}

	return st, ids
}

func TestCatalogueService_GetEntity(t *testing.T) {
	st, ids := seedCatalogue(t)
	svc := NewCatalogueService(st, testLogger())
	ctx := context.Background()

	view, err := svc.GetEntity(ctx, models.EntityPlace, ids[1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !view.UnderModeration || view.PendingRecordID != "rec-1" {
		t.Errorf("expected badge for %s, got %+v", ids[1], view)
	}

	view, err = svc.GetEntity(ctx, models.EntityPlace, ids[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.UnderModeration {
		t.Errorf("unexpected badge for %s", ids[0])
	}
	if view.Entity.(*models.Place).Name != "Antwerp" {
		t.Errorf("unexpected entity %+v", view.Entity)
	}

	if _, err := svc.GetEntity(ctx, models.EntityPlace, "nowhere"); !errors.Is(err, models.ErrEntityNotFound) {
		t.Errorf("expected ErrEntityNotFound, got %v", err)
	}
}

func TestCatalogueService_ListEntities(t *testing.T) {
	st, _ := seedCatalogue(t)
	svc := NewCatalogueService(st, testLogger())

	views, hasMore, err := svc.ListEntities(context.Background(), models.EntityPlace, 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !hasMore || len(views) != 2 {
		t.Fatalf("expected 2 views with more, got %d (more=%v)", len(views), hasMore)
	}

	badges := map[string]bool{}
	for _, v := range views {
		badges[v.Entity.EntityID()] = v.UnderModeration
	}
	if badges["Antwerp"] || !badges["Bruges"] {
		t.Errorf("unexpected badges: %v", badges)
	}

	views, _, err = svc.ListEntities(context.Background(), models.EntityPerson, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 0 {
		t.Errorf("expected no persons, got %d", len(views))
	}
}
