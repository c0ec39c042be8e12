package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/models"
)

// EventChannel is the NOTIFY channel carrying moderation events.
const EventChannel = "moderation_events"

var _ domain.EventPublisher = (*EventNotifier)(nil)

// EventNotifier publishes moderation events with pg_notify so that every
// server attached to the database can forward them to its clients.
type EventNotifier struct {
	Base
}

// NewEventNotifier creates an EventNotifier.
func NewEventNotifier(base Base) *EventNotifier {
	return &EventNotifier{Base: base}
}

// maxNotifyPayload is PostgreSQL's NOTIFY limit; payloads must be shorter.
const maxNotifyPayload = 8000

// notifyPayload encodes evt for NOTIFY. The record goes without its snapshot
// payload, and a reason that still does not fit is shortened until it does.
func notifyPayload(evt models.ModerationEvent) ([]byte, error) {
	if evt.Record != nil {
		evt.Record = evt.Record.Summary()
	}

	payload, err := json.Marshal(evt)
	for err == nil && len(payload) >= maxNotifyPayload && evt.Record != nil && evt.Record.Reason != "" {
		reason := []rune(evt.Record.Reason)
		evt.Record.Reason = string(reason[:len(reason)/2])
		payload, err = json.Marshal(evt)
	}

	if err == nil && len(payload) >= maxNotifyPayload {
		return nil, fmt.Errorf("moderation event is %d bytes, NOTIFY allows %d", len(payload), maxNotifyPayload-1)
	}

	return payload, err
}

// Publish sends evt on EventChannel (best-effort, post-commit).
func (n *EventNotifier) Publish(ctx context.Context, evt models.ModerationEvent) {
	payload, err := notifyPayload(evt)
	if err != nil {
		n.Log.WithError(err).WithField("type", evt.Type).Warn("failed to encode moderation event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if _, err := n.Pool.Exec(ctx, "SELECT pg_notify($1, $2)", EventChannel, string(payload)); err != nil {
		n.Log.WithError(err).WithField("type", evt.Type).Warn("failed to send moderation notification")
	}
}
