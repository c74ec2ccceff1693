package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered identity. PasswordHash holds a bcrypt hash and is
// never serialised.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	IsStaff      bool
	CreatedAt    time.Time
}

// Caller is the identity issuing a request: anonymous, an authenticated
// subject, or staff. The zero value is anonymous.
// It is passed explicitly into every service call.
type Caller struct {
	ID    uuid.UUID
	Staff bool
}

// Anonymous returns the caller used when no credentials were presented.
func Anonymous() Caller {
	return Caller{}
}

// Authenticated returns a caller for the given subject.
func Authenticated(id uuid.UUID, staff bool) Caller {
	return Caller{ID: id, Staff: staff}
}

// IsAnonymous reports whether no subject is attached.
func (c Caller) IsAnonymous() bool {
	return c.ID == uuid.Nil
}

// IsStaff reports whether the caller is an authenticated administrator.
func (c Caller) IsStaff() bool {
	return !c.IsAnonymous() && c.Staff
}

// TokenPair is an issued access token plus the refresh token that renews it.
type TokenPair struct {
	Access  string
	Refresh string
}

// Registration is the payload of a sign-up request.
type Registration struct {
	Username  string
	Email     string
	Password  string
	Password2 string
}
