package core

import (
	"github.com/google/uuid"

	"github.com/lacinoire/spring-data-couchbase/docmapper"
)

// User is a sample entity with identifier and version fields under the
// mapping layer's control.
type User struct {
	ID      string                      `json:"id"`
	Version docmapper.VersionTokenInt64 `json:"version"`
	Email   string                      `json:"email"`
	Name    string                      `json:"name"`
	Age     int                         `json:"age"`
}

// NewUser creates a User with a generated identifier and a zero version token.
func NewUser(email string, name string, age int) *User {
	return &User{
		ID:    uuid.New().String(),
		Email: email,
		Name:  name,
		Age:   age,
	}
}

// UserDescriptor builds the entity descriptor the mapping layer needs to read
// and write the User's designated fields.
func UserDescriptor() docmapper.EntityDescriptor[*User] {
	return docmapper.EntityDescriptor[*User]{
		TypeName: "User",
		New:      func() *User { return &User{} },

		IDField: "id",
		GetID:   func(u *User) string { return u.ID },
		SetID:   func(u *User, id string) { u.ID = id },

		VersionField: "version",
		GetVersion:   func(u *User) docmapper.VersionTokenInt64 { return u.Version },
		SetVersion:   func(u *User, token docmapper.VersionTokenInt64) { u.Version = token },
	}
}
