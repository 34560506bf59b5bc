package domain

import "time"

// UserID uniquely identifies a user within the system. It is assigned by the
// storage layer when the user is created and never changes afterwards.
type UserID int64

// AccountID uniquely identifies an account row.
type AccountID int64

// Account is the value object attached to every user. Number must be unique
// across all users.
type Account struct {
	// ID is assigned by the storage layer.
	ID AccountID
	// Number is the externally visible account identifier.
	Number string
	// Agency is the optional branch the account belongs to.
	Agency string
}

// User is the main entity exposed by the API.
type User struct {
	// ID is the server-generated identifier of the user.
	ID UserID
	// Name is an optional display name.
	Name string
	// Account holds the user's account. Its Number is unique across users.
	Account Account

	// CreatedAt is the time when the user was stored.
	CreatedAt time.Time
}
