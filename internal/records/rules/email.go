package rules

import (
	"context"
	"fmt"
	"regexp"

	dErrors "userdir/pkg/domain-errors"
)

// EmailErrorKind distinguishes the two ways an email can be rejected.
type EmailErrorKind int

const (
	EmailDuplicate EmailErrorKind = iota + 1
	EmailMalformed
)

func (k EmailErrorKind) String() string {
	switch k {
	case EmailDuplicate:
		return "duplicate"
	case EmailMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// EmailError reports a rejected email address.
type EmailError struct {
	Email string
	Kind  EmailErrorKind
}

func (e *EmailError) Error() string {
	return fmt.Sprintf("email %q is %s", e.Email, e.Kind)
}

// emailPattern is the OWASP validation regex for email addresses.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_+&*-]+(?:\.[a-zA-Z0-9_+&*-]+)*@(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,7}$`)

// ExistsFunc reports whether an email is already held by a live record.
type ExistsFunc func(ctx context.Context, email string) (bool, error)

// ValidateEmail checks uniqueness first and format second. An address that
// is already stored reports as a duplicate even if it would fail the format
// check.
func ValidateEmail(ctx context.Context, email string, exists ExistsFunc) error {
	taken, err := exists(ctx, email)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email uniqueness")
	}
	if taken {
		return dErrors.Wrap(&EmailError{Email: email, Kind: EmailDuplicate}, dErrors.CodeEmailTaken,
			fmt.Sprintf("the email address %s already exists", email))
	}
	if !IsEmailWellFormed(email) {
		return dErrors.Wrap(&EmailError{Email: email, Kind: EmailMalformed}, dErrors.CodeInvalidEmail,
			fmt.Sprintf("invalid email address format: %s", email))
	}
	return nil
}

// IsEmailWellFormed reports whether email matches the accepted pattern.
func IsEmailWellFormed(email string) bool {
	return emailPattern.MatchString(email)
}
