package models

import (
	"encoding/json"
	"time"
)

// ModerationAction is the mutation a ModerationRecord proposes.
type ModerationAction string

// Moderation actions.
const (
	ActionCreate ModerationAction = "create"
	ActionUpdate ModerationAction = "update"
	ActionDelete ModerationAction = "delete"
)

// Valid reports whether a is a known action.
func (a ModerationAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}

	return false
}

// ModerationState is the lifecycle state of a ModerationRecord.
type ModerationState string

// Moderation states. A record starts pending and moves once to approved or rejected.
const (
	StatePending  ModerationState = "pending"
	StateApproved ModerationState = "approved"
	StateRejected ModerationState = "rejected"
)

// Valid reports whether s is a known state.
func (s ModerationState) Valid() bool {
	switch s {
	case StatePending, StateApproved, StateRejected:
		return true
	}

	return false
}

// IsDecision reports whether s is a state a moderator may resolve to.
func (s ModerationState) IsDecision() bool {
	return s == StateApproved || s == StateRejected
}

// ModerationRecord is a proposed change to a catalogue entity awaiting or
// having received a moderator's decision. Records are never deleted.
type ModerationRecord struct {
	ID         string           `json:"id"`
	EditorID   *string          `json:"editor_id,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	Action     ModerationAction `json:"action"`
	TargetType EntityType       `json:"target_type"`
	TargetID   *string          `json:"target_id,omitempty"`
	Payload    json.RawMessage  `json:"payload,omitempty"`
	MasterID   *string          `json:"master_id,omitempty"`
	State      ModerationState  `json:"state"`
	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
	ResolvedBy *string          `json:"resolved_by,omitempty"`
	Reason     string           `json:"reason,omitempty"`
}

// IsPending reports whether the record still awaits a decision.
func (r *ModerationRecord) IsPending() bool {
	return r.State == StatePending
}

// Clone returns a deep copy of r.
func (r *ModerationRecord) Clone() *ModerationRecord {
	c := *r
	c.EditorID = cloneString(r.EditorID)
	c.TargetID = cloneString(r.TargetID)
	c.MasterID = cloneString(r.MasterID)
	c.ResolvedBy = cloneString(r.ResolvedBy)

	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		c.ResolvedAt = &t
	}

	if r.Payload != nil {
		c.Payload = append(json.RawMessage(nil), r.Payload...)
	}

	return &c
}

// Summary returns a copy of r without its payload, small enough for change
// notifications.
func (r *ModerationRecord) Summary() *ModerationRecord {
	c := r.Clone()
	c.Payload = nil

	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}

	v := *s

	return &v
}

// ModerationQueryOpts holds filters for listing moderation records.
type ModerationQueryOpts struct {
	EditorID   string
	ResolvedBy string
	State      ModerationState
	Action     ModerationAction
	TargetType EntityType
	TargetID   string
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

// ModerationStats summarises the moderation queue.
type ModerationStats struct {
	Total         int                     `json:"total"`
	ByState       map[ModerationState]int `json:"by_state"`
	PendingByType map[EntityType]int      `json:"pending_by_type"`
}

// SubmitOptions carries optional parameters for gate submissions.
type SubmitOptions struct {
	// MasterID links the new record to a pending record it depends on.
	MasterID string
}

// Moderation event types published after a commit.
const (
	EventSubmitted = "moderation.submitted"
	EventApproved  = "moderation.approved"
	EventRejected  = "moderation.rejected"
)

// ModerationEvent notifies listeners that a record was created or resolved.
type ModerationEvent struct {
	Type   string            `json:"type"`
	Record *ModerationRecord `json:"record"`
}

// ResolutionEventType maps a terminal state to its event type.
func ResolutionEventType(s ModerationState) string {
	if s == StateApproved {
		return EventApproved
	}

	return EventRejected
}
