package client

import (
	"encoding/json"
	"time"
)

// Entity types known to the catalogue.
const (
	EntityPerson     = "person"
	EntityPlace      = "place"
	EntityCollection = "collection"
	EntityCatalogue  = "catalogue"
)

// Moderation states.
const (
	StatePending  = "pending"
	StateApproved = "approved"
	StateRejected = "rejected"
)

// Submission outcomes.
const (
	OutcomeApplied   = "applied"
	OutcomeSubmitted = "submitted"
)

// HealthResponse is the liveness check response.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Storage       string  `json:"storage"`
	Database      string  `json:"database"`
	SchemaVersion int     `json:"schema_version"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ModerationRecord is a proposed change and its review state.
type ModerationRecord struct {
	ID         string          `json:"id"`
	EditorID   *string         `json:"editor_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	Action     string          `json:"action"`
	TargetType string          `json:"target_type"`
	TargetID   *string         `json:"target_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	MasterID   *string         `json:"master_id,omitempty"`
	State      string          `json:"state"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy *string         `json:"resolved_by,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// ModerationListOptions filters the moderation queue.
type ModerationListOptions struct {
	Editor     string
	ResolvedBy string
	State      string
	Action     string
	TargetType string
	TargetID   string
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

// ModerationStats summarises the moderation queue.
type ModerationStats struct {
	Total         int            `json:"total"`
	ByState       map[string]int `json:"by_state"`
	PendingByType map[string]int `json:"pending_by_type"`
}

// DiffValue is one side of a field comparison.
type DiffValue struct {
	Value any `json:"value"`
}

// FieldDiff compares one field. A nil side is absent.
type FieldDiff struct {
	Field    string     `json:"field"`
	Original *DiffValue `json:"original"`
	Proposed *DiffValue `json:"proposed"`
	Changed  bool       `json:"changed"`
}

// RecordDiff is the review view of a moderation record.
type RecordDiff struct {
	RecordID   string      `json:"record_id"`
	Action     string      `json:"action"`
	TargetType string      `json:"target_type"`
	TargetID   *string     `json:"target_id,omitempty"`
	State      string      `json:"state"`
	Fields     []FieldDiff `json:"fields"`
}

// EntityView is an entity with its pending-review badge. Entity holds the
// type-specific JSON document.
type EntityView struct {
	Type            string          `json:"type"`
	Entity          json.RawMessage `json:"entity"`
	UnderModeration bool            `json:"under_moderation"`
	PendingRecordID string          `json:"pending_record_id,omitempty"`
}

// SubmitResult is returned by entity writes.
type SubmitResult struct {
	Outcome string            `json:"outcome"`
	Notice  string            `json:"notice"`
	Entity  json.RawMessage   `json:"entity,omitempty"`
	Record  *ModerationRecord `json:"record,omitempty"`
}

// Submitted reports whether the change is waiting for review.
func (r *SubmitResult) Submitted() bool { return r.Outcome == OutcomeSubmitted }

// SubmitOptions carries optional submission parameters.
type SubmitOptions struct {
	// MasterID attaches the submission to a pending master record.
	MasterID string
}

// ResolveRequest is a moderator decision.
type ResolveRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}
