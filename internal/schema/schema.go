// Package schema describes each moderated entity type explicitly: its field
// list with per-field equality, and how to construct an empty instance. The
// snapshot codec and the moderation diff are both driven by these descriptors.
package schema

import (
	"fmt"

	"github.com/mediate-project/mediate/internal/models"
)

// Field describes one non-identifier field of an entity type.
type Field struct {
	Name  string
	Get   func(models.Entity) any
	Equal func(a, b models.Entity) bool
}

// Schema describes an entity type.
type Schema struct {
	Type    models.EntityType
	Version int
	Fields  []Field
	New     func() models.Entity
}

// Field returns the descriptor named name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return Field{}, false
}

// value builds a descriptor for a comparable field.
func value[E models.Entity, V comparable](name string, get func(E) V) Field {
	return Field{
		Name: name,
		Get:  func(e models.Entity) any { return get(e.(E)) },
		Equal: func(a, b models.Entity) bool {
			return get(a.(E)) == get(b.(E))
		},
	}
}

// optional builds a descriptor for a nullable field. Two nulls are equal; a
// null never equals a set value.
func optional[E models.Entity, V comparable](name string, get func(E) *V) Field {
	return Field{
		Name: name,
		Get: func(e models.Entity) any {
			if v := get(e.(E)); v != nil {
				return *v
			}

			return nil
		},
		Equal: func(a, b models.Entity) bool {
			va, vb := get(a.(E)), get(b.(E))
			if va == nil || vb == nil {
				return va == nil && vb == nil
			}

			return *va == *vb
		},
	}
}

// Registry maps entity type tags to their schemas. It is built once at start
// up and read concurrently afterwards.
type Registry struct {
	schemas map[models.EntityType]*Schema
	order   []models.EntityType
}

// NewRegistry creates a registry from the given schemas.
func NewRegistry(schemas ...*Schema) *Registry {
	r := &Registry{schemas: make(map[models.EntityType]*Schema, len(schemas))}
	for _, s := range schemas {
		if _, dup := r.schemas[s.Type]; !dup {
			r.order = append(r.order, s.Type)
		}
		r.schemas[s.Type] = s
	}

	return r
}

// Default returns a registry holding the catalogue's built-in entity types.
func Default() *Registry {
	return NewRegistry(PersonSchema(), PlaceSchema(), CollectionSchema(), CatalogueSchema())
}

// Lookup returns the schema for t.
func (r *Registry) Lookup(t models.EntityType) (*Schema, error) {
	s, ok := r.schemas[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEntityType, t)
	}

	return s, nil
}

// New returns an empty entity of type t.
func (r *Registry) New(t models.EntityType) (models.Entity, error) {
	s, err := r.Lookup(t)
	if err != nil {
		return nil, err
	}

	return s.New(), nil
}

// Types lists registered entity types in registration order.
func (r *Registry) Types() []models.EntityType {
	out := make([]models.EntityType, len(r.order))
	copy(out, r.order)

	return out
}
