package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "userdir/pkg/domain-errors"
)

// TestParseRecordID_Invariants validates the parsing invariant:
// "IDs must be positive decimal integers that fit in int64"
func TestParseRecordID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseRecordID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects zero", func(t *testing.T) {
		_, err := ParseRecordID("0")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts positive id", func(t *testing.T) {
		id, err := ParseRecordID("42")
		require.NoError(t, err)
		assert.Equal(t, RecordID(42), id)
		assert.Equal(t, "42", id.String())
	})
}

// TestParseRecordID_TrustBoundary validates inputs that arrive from path parameters.
func TestParseRecordID_TrustBoundary(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "1; DROP TABLE records;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "12\x00", true},
		{"Oversized input", strings.Repeat("9", 1000), true},
		{"Overflows int64", "9223372036854775808", true},
		{"Explicit plus sign", "+12", true},
		{"Negative", "-12", true},
		{"Whitespace", " 12 ", true},
		{"Hex", "0x1f", true},

		{"Max int64", "9223372036854775807", false},
		{"Leading zeros", "007", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecordID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}
