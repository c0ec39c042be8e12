package models

// Person is an owner, auctioneer, author or other individual named in a catalogue.
// Dates are free text because historical sources often give only a year or a range.
type Person struct {
	ID            string  `json:"id"`
	ShortName     string  `json:"short_name" validate:"required,max=255"`
	Surname       string  `json:"surname" validate:"max=255"`
	FirstNames    string  `json:"first_names" validate:"max=255"`
	Sex           string  `json:"sex" validate:"omitempty,oneof=male female unknown"`
	DateOfBirth   string  `json:"date_of_birth" validate:"max=64"`
	DateOfDeath   string  `json:"date_of_death" validate:"max=64"`
	CityOfBirthID *string `json:"city_of_birth_id,omitempty" validate:"omitempty,uuid"`
	ViafID        string  `json:"viaf_id" validate:"max=64"`
	Notes         string  `json:"notes" validate:"max=10000"`
}

func (p *Person) EntityType() EntityType { return EntityPerson }
func (p *Person) EntityID() string { return p.ID }
func (p *Person) SetEntityID(id string) { p.ID = id }

// Place is a city or other location referenced by persons and collections.
type Place struct {
	ID         string   `json:"id"`
	Name       string   `json:"name" validate:"required,max=255"`
	Country    string   `json:"country" validate:"max=128"`
	Latitude   *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude  *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	GeonamesID string   `json:"geonames_id" validate:"max=32"`
}

func (p *Place) EntityType() EntityType { return EntityPlace }
func (p *Place) EntityID() string { return p.ID }
func (p *Place) SetEntityID(id string) { p.ID = id }

// Collection is a library or stock offered for sale, described by one or more catalogues.
type Collection struct {
	ID         string  `json:"id"`
	ShortTitle string  `json:"short_title" validate:"required,max=255"`
	FullTitle  string  `json:"full_title" validate:"max=4000"`
	YearOfSale *int    `json:"year_of_sale,omitempty" validate:"omitempty,min=1400,max=2100"`
	PlaceID    *string `json:"place_id,omitempty" validate:"omitempty,uuid"`
	Notes      string  `json:"notes" validate:"max=10000"`
}

func (c *Collection) EntityType() EntityType { return EntityCollection }
func (c *Collection) EntityID() string { return c.ID }
func (c *Collection) SetEntityID(id string) { c.ID = id }

// Catalogue is a printed sale or auction catalogue.
type Catalogue struct {
	ID                string  `json:"id"`
	ShortTitle        string  `json:"short_title" validate:"required,max=255"`
	FullTitle         string  `json:"full_title" validate:"max=4000"`
	CollectionID      *string `json:"collection_id,omitempty" validate:"omitempty,uuid"`
	YearOfPublication *int    `json:"year_of_publication,omitempty" validate:"omitempty,min=1400,max=2100"`
	Preface           string  `json:"preface" validate:"max=20000"`
	Notes             string  `json:"notes" validate:"max=10000"`
}

func (c *Catalogue) EntityType() EntityType { return EntityCatalogue }
func (c *Catalogue) EntityID() string { return c.ID }
func (c *Catalogue) SetEntityID(id string) { c.ID = id }
