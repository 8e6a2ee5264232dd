package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	t.Run("parses strict layout", func(t *testing.T) {
		d, err := ParseDate("2000-02-29")
		require.NoError(t, err)
		assert.Equal(t, 2000, d.Year())
		assert.Equal(t, time.February, d.Month())
		assert.Equal(t, 29, d.Day())
	})

	t.Run("rejects impossible and unpadded dates", func(t *testing.T) {
		for _, s := range []string{"2020-13-40", "2021-02-29", "2020-2-3", "20-01-01", "2020/01/01", "0001-01-01"} {
			_, err := ParseDate(s)
			assert.Error(t, err, s)
		}
	})

	t.Run("earliest non-zero date parses", func(t *testing.T) {
		d, err := ParseDate("0001-01-02")
		require.NoError(t, err)
		assert.False(t, d.IsZero())
	})

	t.Run("drops time of day", func(t *testing.T) {
		at := time.Date(2024, time.March, 5, 23, 59, 0, 0, time.UTC)
		assert.True(t, DateOf(at).Equal(NewDate(2024, time.March, 5)))
	})

	t.Run("json uses wire layout and null for zero", func(t *testing.T) {
		body, err := json.Marshal(struct {
			A Date `json:"a"`
			B Date `json:"b"`
		}{A: MustParseDate("1999-12-31")})
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":"1999-12-31","b":null}`, string(body))
	})

	t.Run("json rejects malformed value", func(t *testing.T) {
		var d Date
		err := json.Unmarshal([]byte(`"31-12-1999"`), &d)
		require.Error(t, err)
		assert.Contains(t, err.Error(), DatePattern)
	})
}
