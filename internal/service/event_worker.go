package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/metrics"
	"github.com/mediate-project/mediate/internal/models"
)

var _ domain.EventPublisher = (*EventWorker)(nil)

// EventWorker decouples the moderation engine from event delivery: Publish
// only enqueues, and a single goroutine hands events to the sinks in order.
type EventWorker struct {
	sinks []domain.EventPublisher
	log   *logrus.Logger
	jobs  chan models.ModerationEvent
}

// NewEventWorker creates an EventWorker with the given queue capacity.
func NewEventWorker(log *logrus.Logger, queueSize int, sinks ...domain.EventPublisher) *EventWorker {
	if queueSize <= 0 {
		queueSize = 1000
	}

	return &EventWorker{
		sinks: sinks,
		log:   log,
		jobs:  make(chan models.ModerationEvent, queueSize),
	}
}

// Publish enqueues evt. Non-blocking; drops the event if the queue is full.
func (w *EventWorker) Publish(_ context.Context, evt models.ModerationEvent) {
	select {
	case w.jobs <- evt:
		metrics.EventQueueDepth.Set(float64(len(w.jobs)))
	default:
		w.log.WithField("type", evt.Type).Warn("event queue full, dropping event")
	}
}

// Run delivers events until the context is cancelled, then drains remaining events.
func (w *EventWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case evt := <-w.jobs:
			w.deliver(evt)
		}
	}
}

func (w *EventWorker) drain() {
	for {
		select {
		case evt := <-w.jobs:
			w.deliver(evt)
		default:
			return
		}
	}
}

func (w *EventWorker) deliver(evt models.ModerationEvent) {
	metrics.EventQueueDepth.Set(float64(len(w.jobs)))

	for _, s := range w.sinks {
		s.Publish(context.Background(), evt)
	}
}
