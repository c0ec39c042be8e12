package api

import (
	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/models"
)

// ModerationService is the engine surface used by the handlers.
type ModerationService = domain.ModerationService

// CatalogueService serves badge-decorated entity reads.
type CatalogueService = domain.CatalogueService

// EntityFactory returns empty entities to decode request bodies into.
type EntityFactory interface {
	New(t models.EntityType) (models.Entity, error)
}
