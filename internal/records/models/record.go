package models

import (
	"strings"

	"userdir/pkg/domain"
	dErrors "userdir/pkg/domain-errors"
)

// Record is the managed user entity.
//
// Invariants:
//   - ID is assigned by the store on first save and never changes
//   - Email is non-empty and unique among live records (enforced by the
//     service and backed by the store); it is not mutable after creation
//   - BirthDate is set, and the holder met the minimum age when it was written
type Record struct {
	ID          domain.RecordID `json:"id"`
	Email       string          `json:"email"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	BirthDate   domain.Date     `json:"birthDate"`
	Address     string          `json:"address,omitempty"`
	PhoneNumber string          `json:"phoneNumber,omitempty"`
}

// NewRecord is the input to record creation.
type NewRecord struct {
	Email       string
	FirstName   string
	LastName    string
	BirthDate   domain.Date
	Address     string
	PhoneNumber string
}

// Build constructs an unsaved Record. Age and email rules are the
// service's concern; Build only checks that mandatory fields are set.
func (n NewRecord) Build() (*Record, error) {
	email := strings.TrimSpace(n.Email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if n.BirthDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "birth date cannot be empty")
	}
	return &Record{
		Email:       email,
		FirstName:   n.FirstName,
		LastName:    n.LastName,
		BirthDate:   n.BirthDate,
		Address:     n.Address,
		PhoneNumber: n.PhoneNumber,
	}, nil
}

// Replacement carries every mutable field for a full update.
type Replacement struct {
	FirstName   string
	LastName    string
	BirthDate   domain.Date
	Address     string
	PhoneNumber string
}

// Replace returns a copy of r with every mutable field overwritten.
// The caller validates the new birth date first.
func (r Record) Replace(repl Replacement) Record {
	r.FirstName = repl.FirstName
	r.LastName = repl.LastName
	r.BirthDate = repl.BirthDate
	r.Address = repl.Address
	r.PhoneNumber = repl.PhoneNumber
	return r
}
