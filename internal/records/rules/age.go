package rules

import (
	"fmt"

	"userdir/pkg/domain"
	dErrors "userdir/pkg/domain-errors"
)

// AgeError reports a birth date whose holder is younger than the minimum age.
type AgeError struct {
	Age     int
	Minimum int
}

func (e *AgeError) Error() string {
	return fmt.Sprintf("age %d is below the minimum of %d years", e.Age, e.Minimum)
}

// AgeInYears returns the number of full years elapsed between birth and
// today. An anniversary that has not been reached yet this year does not
// count, so someone born on Feb 29 turns a year older on Mar 1 in non-leap
// years.
func AgeInYears(birth, today domain.Date) int {
	years := today.Year() - birth.Year()
	if today.Month() < birth.Month() ||
		(today.Month() == birth.Month() && today.Day() < birth.Day()) {
		years--
	}
	return years
}

// ValidateAge rejects a birth date whose holder is younger than minimumAge
// on today. A zero birth date passes: partial updates that leave the birth
// date alone have nothing to check.
func ValidateAge(birth domain.Date, minimumAge int, today domain.Date) error {
	if birth.IsZero() {
		return nil
	}
	age := AgeInYears(birth, today)
	if age < minimumAge {
		return dErrors.Wrap(&AgeError{Age: age, Minimum: minimumAge}, dErrors.CodeAgeRestricted,
			fmt.Sprintf("minimum age is %d years, registration is not allowed", minimumAge))
	}
	return nil
}
