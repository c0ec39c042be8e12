package models

import "time"

// Privilege is a user's standing in the moderation workflow.
type Privilege string

// Privilege levels, lowest first.
const (
	PrivilegeEditor    Privilege = "editor"
	PrivilegeModerator Privilege = "moderator"
	PrivilegeSuperuser Privilege = "superuser"
)

func (p Privilege) rank() int {
	switch p {
	case PrivilegeEditor:
		return 1
	case PrivilegeModerator:
		return 2
	case PrivilegeSuperuser:
		return 3
	}

	return 0
}

// Valid reports whether p is a known privilege.
func (p Privilege) Valid() bool { return p.rank() > 0 }

// AtLeast reports whether p ranks at or above q.
func (p Privilege) AtLeast(q Privilege) bool {
	return p.Valid() && p.rank() >= q.rank()
}

// User is an account identified by an API key.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Privilege Privilege `json:"privilege"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor returns the acting identity for u.
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Privilege: u.Privilege}
}

// Actor is the identity on whose behalf the engine acts. It is always passed
// explicitly rather than read from request state.
type Actor struct {
	UserID    string
	Privilege Privilege
}

// CanModerate reports whether the actor may resolve moderation records.
func (a Actor) CanModerate() bool {
	return a.Privilege.AtLeast(PrivilegeModerator)
}

// Ref returns a pointer to the actor's user ID, or nil for anonymous actors.
func (a Actor) Ref() *string {
	if a.UserID == "" {
		return nil
	}

	id := a.UserID

	return &id
}
