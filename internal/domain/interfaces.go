// Package domain defines the storage boundary the moderation engine consumes
// and the canonical service interfaces shared by the API layer. Consumers
// should depend on these interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/mediate-project/mediate/internal/models"
)

// EntityStore reads and writes catalogue entities inside a transaction.
type EntityStore interface {
	// Get returns the entity or models.ErrEntityNotFound.
	Get(ctx context.Context, t models.EntityType, id string) (models.Entity, error)
	// Lock is Get plus a row lock held until the transaction ends.
	Lock(ctx context.Context, t models.EntityType, id string) (models.Entity, error)
	// Create inserts e, assigning an identifier when e has none, and returns it.
	Create(ctx context.Context, e models.Entity) (string, error)
	// Save upserts e by its identifier.
	Save(ctx context.Context, e models.Entity) error
	// Delete removes the entity or returns models.ErrEntityNotFound.
	Delete(ctx context.Context, t models.EntityType, id string) error
	List(ctx context.Context, t models.EntityType, limit, offset int) ([]models.Entity, bool, error)
}

// RecordStore persists moderation records inside a transaction.
type RecordStore interface {
	// Insert stores a new record, filling ID and CreatedAt. A second pending
	// record for the same target fails with models.ErrAlreadyUnderModeration.
	Insert(ctx context.Context, rec *models.ModerationRecord) error
	Get(ctx context.Context, id string) (*models.ModerationRecord, error)
	GetForUpdate(ctx context.Context, id string) (*models.ModerationRecord, error)
	// Pending returns the pending record for a target, or nil when there is none.
	Pending(ctx context.Context, t models.EntityType, targetID string) (*models.ModerationRecord, error)
	// PendingTargets maps each of ids that has a pending record to that record's ID.
	PendingTargets(ctx context.Context, t models.EntityType, ids []string) (map[string]string, error)
	// Dependents lists pending records whose master is masterID, oldest first.
	Dependents(ctx context.Context, masterID string) ([]*models.ModerationRecord, error)
	// Resolve persists a record's terminal state, resolution fields and target.
	// It fails with models.ErrAlreadyResolved if the stored record is no longer pending.
	Resolve(ctx context.Context, rec *models.ModerationRecord) error
	List(ctx context.Context, opts models.ModerationQueryOpts) ([]models.ModerationRecord, bool, error)
	Stats(ctx context.Context) (*models.ModerationStats, error)
}

// Tx is a unit of work spanning entities and moderation records.
type Tx interface {
	Entities() EntityStore
	Records() RecordStore
}

// TxFunc is the body of a transaction.
type TxFunc func(ctx context.Context, tx Tx) error

// TxRunner runs functions inside transactions. InTx commits when fn returns
// nil and rolls back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn TxFunc) error
	InReadTx(ctx context.Context, fn TxFunc) error
}

// UserStore manages API users.
type UserStore interface {
	GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error)
	CreateUser(ctx context.Context, name string, privilege models.Privilege, apiKey string) (*models.User, error)
}

// EventPublisher receives moderation events after their transaction commits.
type EventPublisher interface {
	Publish(ctx context.Context, evt models.ModerationEvent)
}

// ModerationService is the moderation engine as seen by presentation layers.
type ModerationService interface {
	SubmitCreate(ctx context.Context, actor models.Actor, e models.Entity, opts models.SubmitOptions) (*models.SubmitResult, error)
	SubmitUpdate(ctx context.Context, actor models.Actor, t models.EntityType, id string, e models.Entity, opts models.SubmitOptions) (*models.SubmitResult, error)
	SubmitDelete(ctx context.Context, actor models.Actor, t models.EntityType, id string, opts models.SubmitOptions) (*models.SubmitResult, error)
	Resolve(ctx context.Context, moderator models.Actor, recordID string, decision models.ModerationState, reason string) (*models.ModerationRecord, error)
	Diff(ctx context.Context, recordID string) (*models.RecordDiff, error)
	IsUnderModeration(ctx context.Context, t models.EntityType, id string) (bool, error)
	PendingTargets(ctx context.Context, t models.EntityType, ids []string) (map[string]string, error)
	Get(ctx context.Context, recordID string) (*models.ModerationRecord, error)
	List(ctx context.Context, opts models.ModerationQueryOpts) ([]models.ModerationRecord, bool, error)
	Stats(ctx context.Context) (*models.ModerationStats, error)
}

// CatalogueService serves entity reads decorated with moderation badges.
type CatalogueService interface {
	GetEntity(ctx context.Context, t models.EntityType, id string) (*models.EntityView, error)
	ListEntities(ctx context.Context, t models.EntityType, limit, offset int) ([]models.EntityView, bool, error)
}
