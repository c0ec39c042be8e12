// Package moderation implements the review workflow for catalogue edits: the
// gate that decides whether a change is applied or queued, the resolver that
// approves or rejects queued changes, and the read-side diff and queries.
//
// Every gate and resolver call runs in a single transaction of the configured
// domain.TxRunner. Events are published only after that transaction commits.
package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/models"
	"github.com/mediate-project/mediate/internal/schema"
)

var _ domain.ModerationService = (*Engine)(nil)

// Engine is the moderation engine.
type Engine struct {
	tx        domain.TxRunner
	codec     *schema.Codec
	reg       *schema.Registry
	policies  *Policies
	publisher domain.EventPublisher
	log       *logrus.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithPublisher sets the receiver of moderation events.
func WithPublisher(p domain.EventPublisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithClock overrides the clock used for resolution timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine.
func New(tx domain.TxRunner, codec *schema.Codec, policies *Policies, log *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		tx:        tx,
		codec:     codec,
		reg:       codec.Registry(),
		policies:  policies,
		publisher: nopPublisher{},
		log:       log,
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}

	return e
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.ModerationEvent) {}

func (e *Engine) publish(ctx context.Context, typ string, rec *models.ModerationRecord) {
	e.publisher.Publish(ctx, models.ModerationEvent{Type: typ, Record: rec.Summary()})
}

// storeFailure wraps an entity store error raised while applying a record.
func storeFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrStoreFailure, op, err)
}

func recordFields(rec *models.ModerationRecord) logrus.Fields {
	f := logrus.Fields{
		"record_id":   rec.ID,
		"action":      rec.Action,
		"target_type": rec.TargetType,
		"state":       rec.State,
	}
	if rec.TargetID != nil {
		f["target_id"] = *rec.TargetID
	}
	if rec.MasterID != nil {
		f["master_id"] = *rec.MasterID
	}

	return f
}
