package models

// DiffValue holds one side of a field comparison. A nil *DiffValue means the
// side is absent, which is distinct from a present null value.
type DiffValue struct {
	Value any `json:"value"`
}

// FieldDiff compares one field of the live entity with the proposed snapshot.
type FieldDiff struct {
	Field    string     `json:"field"`
	Original *DiffValue `json:"original"`
	Proposed *DiffValue `json:"proposed"`
	Changed  bool       `json:"changed"`
}

// RecordDiff is the review view of a moderation record, with fields in schema order.
type RecordDiff struct {
	RecordID   string           `json:"record_id"`
	Action     ModerationAction `json:"action"`
	TargetType EntityType       `json:"target_type"`
	TargetID   *string          `json:"target_id,omitempty"`
	State      ModerationState  `json:"state"`
	Fields     []FieldDiff      `json:"fields"`
}

// Field returns the comparison for name.
func (d *RecordDiff) Field(name string) (FieldDiff, bool) {
	for _, f := range d.Fields {
		if f.Field == name {
			return f, true
		}
	}

	return FieldDiff{}, false
}

// ChangedFields lists the names of fields marked changed.
func (d *RecordDiff) ChangedFields() []string {
	var out []string
	for _, f := range d.Fields {
		if f.Changed {
			out = append(out, f.Field)
		}
	}

	return out
}
