package store

import (
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mediate-project/mediate/internal/models"
)

// entityTable maps an entity type onto its table. columns excludes id; values
// and dest follow the same order. refs names the uuid reference columns.
type entityTable struct {
	name      string
	columns   []string
	refs      map[string]bool
	newEntity func() models.Entity
	values    func(models.Entity) []any
	dest      func(models.Entity) []any
}

var entityTables = map[models.EntityType]*entityTable{
	models.EntityPerson: {
		name: "persons",
		columns: []string{
			"short_name", "surname", "first_names", "sex", "date_of_birth",
			"date_of_death", "city_of_birth_id", "viaf_id", "notes",
		},
		refs:      map[string]bool{"city_of_birth_id": true},
		newEntity: func() models.Entity { return &models.Person{} },
		values: func(e models.Entity) []any {
			p := e.(*models.Person)
			return []any{p.ShortName, p.Surname, p.FirstNames, p.Sex, p.DateOfBirth,
				p.DateOfDeath, p.CityOfBirthID, p.ViafID, p.Notes}
		},
		dest: func(e models.Entity) []any {
			p := e.(*models.Person)
			return []any{&p.ShortName, &p.Surname, &p.FirstNames, &p.Sex, &p.DateOfBirth,
				&p.DateOfDeath, &p.CityOfBirthID, &p.ViafID, &p.Notes}
		},
	},
	models.EntityPlace: {
		name:      "places",
		columns:   []string{"name", "country", "latitude", "longitude", "geonames_id"},
		newEntity: func() models.Entity { return &models.Place{} },
		values: func(e models.Entity) []any {
			p := e.(*models.Place)
			return []any{p.Name, p.Country, p.Latitude, p.Longitude, p.GeonamesID}
		},
		dest: func(e models.Entity) []any {
			p := e.(*models.Place)
			return []any{&p.Name, &p.Country, &p.Latitude, &p.Longitude, &p.GeonamesID}
		},
	},
	models.EntityCollection: {
		name:      "collections",
		columns:   []string{"short_title", "full_title", "year_of_sale", "place_id", "notes"},
		refs:      map[string]bool{"place_id": true},
		newEntity: func() models.Entity { return &models.Collection{} },
		values: func(e models.Entity) []any {
			c := e.(*models.Collection)
			return []any{c.ShortTitle, c.FullTitle, c.YearOfSale, c.PlaceID, c.Notes}
		},
		dest: func(e models.Entity) []any {
			c := e.(*models.Collection)
			return []any{&c.ShortTitle, &c.FullTitle, &c.YearOfSale, &c.PlaceID, &c.Notes}
		},
	},
	models.EntityCatalogue: {
		name: "catalogues",
		columns: []string{
			"short_title", "full_title", "collection_id", "year_of_publication", "preface", "notes",
		},
		refs:      map[string]bool{"collection_id": true},
		newEntity: func() models.Entity { return &models.Catalogue{} },
		values: func(e models.Entity) []any {
			c := e.(*models.Catalogue)
			return []any{c.ShortTitle, c.FullTitle, c.CollectionID, c.YearOfPublication, c.Preface, c.Notes}
		},
		dest: func(e models.Entity) []any {
			c := e.(*models.Catalogue)
			return []any{&c.ShortTitle, &c.FullTitle, &c.CollectionID, &c.YearOfPublication, &c.Preface, &c.Notes}
		},
	},
}

func (t *entityTable) ident() string {
	return pgx.Identifier{t.name}.Sanitize()
}

// selectList renders "id::text, col, ..." with uuid columns cast to text.
func (t *entityTable) selectList() string {
	cols := make([]string, 0, len(t.columns)+1)
	cols = append(cols, "id::text")

	for _, c := range t.columns {
		if t.refs[c] {
			cols = append(cols, pgx.Identifier{c}.Sanitize()+"::text")
			continue
		}
		cols = append(cols, pgx.Identifier{c}.Sanitize())
	}

	return strings.Join(cols, ", ")
}

func (t *entityTable) columnList() string {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
	}

	return strings.Join(cols, ", ")
}

// scan reads one row produced by selectList.
func (t *entityTable) scan(row pgx.Row) (models.Entity, error) {
	e := t.newEntity()

	var id string
	dest := append([]any{&id}, t.dest(e)...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	e.SetEntityID(id)

	return e, nil
}
