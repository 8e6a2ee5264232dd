package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userdir/internal/records/models"
	"userdir/pkg/domain"
)

func TestEventEncoding(t *testing.T) {
	at := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)

	t.Run("created event embeds the record", func(t *testing.T) {
		e := Event{
			Type:       RecordCreated,
			RecordID:   12,
			OccurredAt: at,
			RequestID:  "req-1",
			Record: &models.Record{
				ID:        12,
				Email:     "a@b.cd",
				BirthDate: domain.NewDate(1990, time.January, 2),
			},
		}
		body, err := e.Encode()
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(body, &decoded))
		assert.Equal(t, "record.created", decoded["type"])
		assert.EqualValues(t, 12, decoded["record_id"])
		assert.Equal(t, "req-1", decoded["request_id"])
		record := decoded["record"].(map[string]any)
		assert.Equal(t, "1990-01-02", record["birthDate"])
	})

	t.Run("deleted event omits record", func(t *testing.T) {
		body, err := Event{Type: RecordDeleted, RecordID: 3, OccurredAt: at}.Encode()
		require.NoError(t, err)
		assert.NotContains(t, string(body), `"record":`)
	})

	t.Run("key is the record id", func(t *testing.T) {
		assert.Equal(t, []byte("42"), Event{RecordID: 42}.Key())
	})
}

func TestNewKafkaPublisher_RequiresConfig(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "user-records")
	assert.Error(t, err)

	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)
}
