// Package models defines data types for the MEDIATE catalogue and its
// moderation workflow.
package models

// EntityType tags a moderated entity kind. It is stored as the target_type
// of a ModerationRecord and selects the schema used to snapshot and diff it.
type EntityType string

// Entity types known to the catalogue.
const (
	EntityPerson     EntityType = "person"
	EntityPlace      EntityType = "place"
	EntityCollection EntityType = "collection"
	EntityCatalogue  EntityType = "catalogue"
)

// String implements fmt.Stringer.
func (t EntityType) String() string { return string(t) }

// Entity is a catalogue object with a stable identifier.
type Entity interface {
	EntityType() EntityType
	EntityID() string
	SetEntityID(id string)
}

// EntityView is an entity as shown to readers, carrying the pending-review
// badge for entities that have an open moderation record.
type EntityView struct {
	Type            EntityType `json:"type"`
	Entity          Entity     `json:"entity"`
	UnderModeration bool       `json:"under_moderation"`
	PendingRecordID string     `json:"pending_record_id,omitempty"`
}
