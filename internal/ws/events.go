package ws

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// Event is one moderation event as sent to reviewers.
type Event struct {
	Type       string          `json:"type"`
	ID         uint64          `json:"id"`
	EntityType string          `json:"entity_type,omitempty"`
	Data       json.RawMessage `json:"data"`
	Time       time.Time       `json:"time"`
}

// Client message types.
const (
	msgSubscribe = "subscribe"
	msgReset     = "reset"
)

// SubscribeMsg asks for replay of events after LastEventID and optionally
// narrows the stream to the listed entity types. It may be sent again at any
// time to change the filter.
type SubscribeMsg struct {
	Type        string   `json:"type"`
	LastEventID uint64   `json:"last_event_id"`
	EntityTypes []string `json:"entity_types,omitempty"`
}

// ResetMsg tells the client its replay position fell out of the buffer and it
// must reload the moderation queue.
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// EventSequence hands out monotonic event IDs.
type EventSequence struct {
	counter atomic.Uint64
}

// NewEventSequence creates a new EventSequence.
func NewEventSequence() *EventSequence {
	return &EventSequence{}
}

// Next returns the next sequence number.
func (es *EventSequence) Next() uint64 {
	return es.counter.Add(1)
}

// entityTypeOf pulls target_type out of a serialized moderation record.
func entityTypeOf(data json.RawMessage) string {
	var rec struct {
		TargetType string `json:"target_type"`
	}
	if len(data) == 0 || json.Unmarshal(data, &rec) != nil {
		return ""
	}

	return rec.TargetType
}
