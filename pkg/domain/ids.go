package domain

import (
	"strconv"

	dErrors "userdir/pkg/domain-errors"
)

// RecordID identifies a stored user record. IDs are assigned by the store,
// start at 1 and are never reused.
type RecordID int64

// maxRecordIDLength bounds the decimal form of an int64.
const maxRecordIDLength = 19

// ParseRecordID parses a decimal record id taken from a trust boundary
// (path parameter, query). Only ASCII digits are accepted and the value
// must be positive.
func ParseRecordID(s string) (RecordID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "record id is required")
	}
	if len(s) > maxRecordIDLength {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "record id is too long")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, dErrors.New(dErrors.CodeInvalidInput, "record id must be numeric")
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "record id is out of range")
	}
	if n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "record id must be positive")
	}
	return RecordID(n), nil
}

func (id RecordID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// IsZero reports whether the id has not been assigned yet.
func (id RecordID) IsZero() bool {
	return id == 0
}
