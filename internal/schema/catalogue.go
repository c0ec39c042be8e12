package schema

import "github.com/mediate-project/mediate/internal/models"

// Bump a schema's Version whenever its fields change shape; snapshots taken
// under another version are refused at decode time.

// PersonSchema describes models.Person.
func PersonSchema() *Schema {
	return &Schema{
		Type:    models.EntityPerson,
		Version: 1,
		New:     func() models.Entity { return &models.Person{} },
		Fields: []Field{
			value("short_name", func(p *models.Person) string { return p.ShortName }),
			value("surname", func(p *models.Person) string { return p.Surname }),
			value("first_names", func(p *models.Person) string { return p.FirstNames }),
			value("sex", func(p *models.Person) string { return p.Sex }),
			value("date_of_birth", func(p *models.Person) string { return p.DateOfBirth }),
			value("date_of_death", func(p *models.Person) string { return p.DateOfDeath }),
			optional("city_of_birth_id", func(p *models.Person) *string { return p.CityOfBirthID }),
			value("viaf_id", func(p *models.Person) string { return p.ViafID }),
			value("notes", func(p *models.Person) string { return p.Notes }),
		},
	}
}

// PlaceSchema describes models.Place.
func PlaceSchema() *Schema {
	return &Schema{
		Type:    models.EntityPlace,
		Version: 1,
		New:     func() models.Entity { return &models.Place{} },
		Fields: []Field{
			value("name", func(p *models.Place) string { return p.Name }),
			value("country", func(p *models.Place) string { return p.Country }),
			optional("latitude", func(p *models.Place) *float64 { return p.Latitude }),
			optional("longitude", func(p *models.Place) *float64 { return p.Longitude }),
			value("geonames_id", func(p *models.Place) string { return p.GeonamesID }),
		},
	}
}

// CollectionSchema describes models.Collection.
func CollectionSchema() *Schema {
	return &Schema{
		Type:    models.EntityCollection,
		Version: 1,
		New:     func() models.Entity { return &models.Collection{} },
		Fields: []Field{
			value("short_title", func(c *models.Collection) string { return c.ShortTitle }),
			value("full_title", func(c *models.Collection) string { return c.FullTitle }),
			optional("year_of_sale", func(c *models.Collection) *int { return c.YearOfSale }),
			optional("place_id", func(c *models.Collection) *string { return c.PlaceID }),
			value("notes", func(c *models.Collection) string { return c.Notes }),
		},
	}
}

// CatalogueSchema describes models.Catalogue.
func CatalogueSchema() *Schema {
	return &Schema{
		Type:    models.EntityCatalogue,
		Version: 1,
		New:     func() models.Entity { return &models.Catalogue{} },
		Fields: []Field{
			value("short_title", func(c *models.Catalogue) string { return c.ShortTitle }),
			value("full_title", func(c *models.Catalogue) string { return c.FullTitle }),
			optional("collection_id", func(c *models.Catalogue) *string { return c.CollectionID }),
			optional("year_of_publication", func(c *models.Catalogue) *int { return c.YearOfPublication }),
			value("preface", func(c *models.Catalogue) string { return c.Preface }),
			value("notes", func(c *models.Catalogue) string { return c.Notes }),
		},
	}
}
