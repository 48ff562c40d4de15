// Package identity holds user records and the stores that look them up.
//
// A [Record] carries the password hash and bookkeeping timestamps; a [User]
// is the sanitized projection that is safe to embed in tokens and return
// to clients. [Record.Sanitize] is the only conversion between the two.
package identity

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a username is already taken.
	ErrDuplicate = errors.New("username already exists")
	// ErrUnavailable wraps user store backend failures.
	ErrUnavailable = errors.New("user store unavailable")
)

// User is the public view of an account.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
}

// Record is a stored account including its credential material.
type Record struct {
	User
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Sanitize strips credential material and bookkeeping fields.
func (r *Record) Sanitize() User {
	if r == nil {
		return User{}
	}
	return r.User
}
