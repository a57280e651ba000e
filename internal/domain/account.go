package domain

import (
	"errors"
	"time"
)

var (
	// ErrAccountNotFound is returned by account stores when no row matches.
	ErrAccountNotFound = errors.New("account not found")
	// ErrEmailTaken is returned when an account with the same email exists.
	ErrEmailTaken = errors.New("email already registered")
)

// Account is the persisted marketplace account.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	IsSeller     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
