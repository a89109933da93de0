package model

import (
	"time"

	"notes-credit-ledger/internal/domain"
)

// User is the owning account for subscriptions, notes and transactions.
type User struct {
	ID        string
	FullName  string
	Phone     string
	CreatedAt time.Time
}

// NewUser constructs and validates a User.
func NewUser(id, fullName, phone string) (*User, error) {
	if id == "" || phone == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{ID: id, FullName: fullName, Phone: phone, CreatedAt: time.Now().UTC()}, nil
}
