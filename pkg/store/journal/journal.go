// Package journal records host file notifications (new file available,
// writes) and their acknowledgements, so file-type handlers can pair a
// FileAck with the offer it answers.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates no record matched.
var ErrNotFound = errors.New("journal record not found")

// Event is what produced a record.
type Event string

const (
	EventNewFileAvailable Event = "new_file_available"
	EventWrite            Event = "write"
	EventAck              Event = "ack"
)

// Record is one journal entry.
type Record struct {
	ID        uuid.UUID  `json:"id"`
	FileType  uint16     `json:"file_type"`
	Handle    uint32     `json:"handle"`
	Length    uint64     `json:"length"`
	Event     Event      `json:"event"`
	Acked     bool       `json:"acked"`
	AckStatus uint8      `json:"ack_status"`
	CreatedAt time.Time  `json:"created_at"`
	AckedAt   *time.Time `json:"acked_at,omitempty"`
}

// Journal stores Records.
type Journal interface {
	// Append stores r, assigning ID and CreatedAt when zero, and returns the
	// stored record.
	Append(ctx context.Context, r Record) (Record, error)

	// Acknowledge marks the most recent unacknowledged record of
	// (fileType, handle) as acknowledged with status. When nothing is
	// pending, an EventAck record is appended instead.
	Acknowledge(ctx context.Context, fileType uint16, handle uint32, status uint8) (Record, error)

	// Get returns the record with id or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (Record, error)

	// List returns the records of (fileType, handle), oldest first.
	List(ctx context.Context, fileType uint16, handle uint32) ([]Record, error)

	Close() error
}

// Prepare fills in ID and CreatedAt. Shared by implementations.
func Prepare(r Record, now time.Time) Record {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now.UTC()
	}
	return r
}

// MarkAcked returns r acknowledged with status at now.
func MarkAcked(r Record, status uint8, now time.Time) Record {
	at := now.UTC()
	r.Acked = true
	r.AckStatus = status
	r.AckedAt = &at
	return r
}
