package schema

import (
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/mediate-project/mediate/internal/models"
)

// snapshotJSON encodes snapshots. Decoding refuses unknown fields so that a
// payload written under a drifted schema fails loudly instead of silently
// losing data.
var snapshotJSON = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	DisallowUnknownFields:  true,
}.Froze()

// envelope is the stored snapshot layout.
type envelope struct {
	Type    models.EntityType `json:"type"`
	Version int               `json:"version"`
	Fields  json.RawMessage   `json:"fields"`
}

// Codec serialises entities into versioned snapshots and back.
type Codec struct {
	reg *Registry
}

// NewCodec creates a Codec backed by reg.
func NewCodec(reg *Registry) *Codec {
	return &Codec{reg: reg}
}

// Registry returns the registry the codec resolves types against.
func (c *Codec) Registry() *Registry {
	return c.reg
}

// Encode snapshots e, including its identifier.
func (c *Codec) Encode(e models.Entity) (json.RawMessage, error) {
	if e == nil {
		return nil, fmt.Errorf("encoding snapshot: nil entity")
	}

	s, err := c.reg.Lookup(e.EntityType())
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	fields, err := snapshotJSON.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding %s snapshot fields: %w", s.Type, err)
	}

	data, err := snapshotJSON.Marshal(envelope{Type: s.Type, Version: s.Version, Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("encoding %s snapshot: %w", s.Type, err)
	}

	return data, nil
}

// Decode reconstructs an entity of type t from snap. Every failure wraps
// models.ErrSnapshotDecode.
func (c *Codec) Decode(t models.EntityType, snap json.RawMessage) (models.Entity, error) {
	s, err := c.reg.Lookup(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrSnapshotDecode, err)
	}

	if len(snap) == 0 {
		return nil, fmt.Errorf("%w: empty snapshot", models.ErrSnapshotDecode)
	}

	var env envelope
	if err := snapshotJSON.Unmarshal(snap, &env); err != nil {
		return nil, fmt.Errorf("%w: reading envelope: %w", models.ErrSnapshotDecode, err)
	}

	if env.Type != s.Type {
		return nil, fmt.Errorf("%w: snapshot holds %q, want %q", models.ErrSnapshotDecode, env.Type, s.Type)
	}

	if env.Version != s.Version {
		return nil, fmt.Errorf("%w: %s snapshot version %d, schema version %d",
			models.ErrSnapshotDecode, s.Type, env.Version, s.Version)
	}

	e := s.New()
	if err := snapshotJSON.Unmarshal(env.Fields, e); err != nil {
		return nil, fmt.Errorf("%w: reading %s fields: %w", models.ErrSnapshotDecode, s.Type, err)
	}

	return e, nil
}
