package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediate-project/mediate/internal/models"
	"github.com/mediate-project/mediate/internal/schema"
)

func TestRegistry_Lookup(t *testing.T) {
	reg := schema.Default()

	assert.Equal(t,
		[]models.EntityType{models.EntityPerson, models.EntityPlace, models.EntityCollection, models.EntityCatalogue},
		reg.Types())

	for _, typ := range reg.Types() {
		s, err := reg.Lookup(typ)
		require.NoError(t, err)
		assert.Equal(t, typ, s.New().EntityType())
	}

	_, err := reg.Lookup("lot")
	assert.ErrorIs(t, err, models.ErrUnknownEntityType)
}

func TestSchema_FieldsExcludeIdentifier(t *testing.T) {
	for _, typ := range schema.Default().Types() {
		s, err := schema.Default().Lookup(typ)
		require.NoError(t, err)

		_, hasID := s.Field("id")
		assert.False(t, hasID, "%s schema lists its identifier", typ)
	}
}

func TestField_OptionalEquality(t *testing.T) {
	s := schema.PlaceSchema()
	lat, ok := s.Field("latitude")
	require.True(t, ok)

	a := &models.Place{Latitude: ptr(52.1)}
	b := &models.Place{Latitude: ptr(52.1)}
	none := &models.Place{}

	assert.True(t, lat.Equal(a, b), "equal values behind distinct pointers")
	assert.False(t, lat.Equal(a, none))
	assert.True(t, lat.Equal(none, &models.Place{}))
	assert.Nil(t, lat.Get(none))
	assert.Equal(t, 52.1, lat.Get(a))
}
