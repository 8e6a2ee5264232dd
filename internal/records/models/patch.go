package models

import (
	"userdir/pkg/domain"
	dErrors "userdir/pkg/domain-errors"
)

// Patch carries the fields of a partial update. A field that is not
// present leaves the stored value alone. Address and PhoneNumber may be
// present and null, which clears them.
type Patch struct {
	FirstName   domain.Optional[string]
	LastName    domain.Optional[string]
	BirthDate   domain.Optional[domain.Date]
	Address     domain.Optional[string]
	PhoneNumber domain.Optional[string]
}

// IsEmpty reports whether no field is present.
func (p Patch) IsEmpty() bool {
	return !p.FirstName.Present() && !p.LastName.Present() && !p.BirthDate.Present() &&
		!p.Address.Present() && !p.PhoneNumber.Present()
}

// Merge applies p to a copy of r. A present birth date is passed to
// checkAge before any field is applied; if either the check fails or a
// mandatory field is present but null, r is returned unchanged together
// with the error.
func (r Record) Merge(p Patch, checkAge func(domain.Date) error) (Record, error) {
	if p.FirstName.IsNull() || p.LastName.IsNull() || p.BirthDate.IsNull() {
		return r, dErrors.New(dErrors.CodeInvariantViolation, "firstName, lastName and birthDate cannot be cleared")
	}
	if birth, ok := p.BirthDate.Get(); ok {
		if err := checkAge(birth); err != nil {
			return r, err
		}
	}

	merged := r
	if v, ok := p.FirstName.Get(); ok {
		merged.FirstName = v
	}
	if v, ok := p.LastName.Get(); ok {
		merged.LastName = v
	}
	if v, ok := p.BirthDate.Get(); ok {
		merged.BirthDate = v
	}
	if p.Address.Present() {
		merged.Address = p.Address.Value()
	}
	if p.PhoneNumber.Present() {
		merged.PhoneNumber = p.PhoneNumber.Value()
	}
	return merged, nil
}
