// Package events publishes record lifecycle events to Kafka.
package events

import (
	"encoding/json"
	"time"

	"userdir/internal/records/models"
	"userdir/pkg/domain"
)

// Type names a lifecycle transition.
type Type string

const (
	RecordCreated  Type = "record.created"
	RecordReplaced Type = "record.replaced"
	RecordPatched  Type = "record.patched"
	RecordDeleted  Type = "record.deleted"
)

// Event is published after the unit of work that produced it commits.
// Record is nil for deletions.
type Event struct {
	Type       Type            `json:"type"`
	RecordID   domain.RecordID `json:"record_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	RequestID  string          `json:"request_id,omitempty"`
	Record     *models.Record  `json:"record,omitempty"`
}

// Key partitions events so every event of one record lands in order on
// the same partition.
func (e Event) Key() []byte {
	return []byte(e.RecordID.String())
}

// Encode returns the wire form of e.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
