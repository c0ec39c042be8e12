// Package service provides business logic between API handlers and data stores.
package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/models"
)

// Compile-time check: *CatalogueService must satisfy domain.CatalogueService.
var _ domain.CatalogueService = (*CatalogueService)(nil)

// CatalogueService reads catalogue entities and marks those awaiting review.
// Entity and badge are read in the same transaction.
type CatalogueService struct {
	tx  domain.TxRunner
	log *logrus.Logger
}

// NewCatalogueService creates a CatalogueService.
func NewCatalogueService(tx domain.TxRunner, log *logrus.Logger) *CatalogueService {
	return &CatalogueService{tx: tx, log: log}
}

// GetEntity returns one entity with its moderation badge.
func (s *CatalogueService) GetEntity(ctx context.Context, t models.EntityType, id string) (*models.EntityView, error) {
	var view *models.EntityView

	err := s.tx.InReadTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		e, err := tx.Entities().Get(ctx, t, id)
		if err != nil {
			return err
		}

		pending, err := tx.Records().Pending(ctx, t, id)
		if err != nil {
			return fmt.Errorf("checking pending review: %w", err)
		}

		view = &models.EntityView{Type: t, Entity: e}
		if pending != nil {
			view.UnderModeration = true
			view.PendingRecordID = pending.ID
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return view, nil
}

// ListEntities returns a page of entities of type t with badges.
func (s *CatalogueService) ListEntities(
	ctx context.Context, t models.EntityType, limit, offset int,
) ([]models.EntityView, bool, error) {
	var (
		out     []models.EntityView
		hasMore bool
	)

	err := s.tx.InReadTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		entities, more, err := tx.Entities().List(ctx, t, limit, offset)
		if err != nil {
			return err
		}
		hasMore = more

		ids := make([]string, len(entities))
		for i, e := range entities {
			ids[i] = e.EntityID()
		}

		pending := map[string]string{}
		if len(ids) > 0 {
			if pending, err = tx.Records().PendingTargets(ctx, t, ids); err != nil {
				return fmt.Errorf("checking pending reviews: %w", err)
			}
		}

		out = make([]models.EntityView, len(entities))
		for i, e := range entities {
			recID, under := pending[e.EntityID()]
			out[i] = models.EntityView{Type: t, Entity: e, UnderModeration: under, PendingRecordID: recID}
		}

		return nil
	})
	if err != nil {
		return nil, false, err
	}

	s.log.WithFields(logrus.Fields{
		"type":   t,
		"count":  len(out),
		"offset": offset,
	}).Debug("catalogue.list")

	return out, hasMore, nil
}
