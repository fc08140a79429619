package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable wraps every storage failure that is not a duplicate identity.
	// Callers should treat it as retryable.
	ErrUnavailable = errors.New("storage unavailable")
	// ErrSchemaMissing is returned by Ready when the messages table does not exist.
	ErrSchemaMissing = errors.New("messages table does not exist")
)

// TableName is the single persisted table.
const TableName = "messages"

// TopSendersLimit bounds Stats.MessagesPerSender.
const TopSendersLimit = 10

// Message represents a persisted inbound message.
type Message struct {
	ID          string
	FromAddress string
	ToAddress   string
	Timestamp   string  // caller supplied, ISO-8601 UTC with Z
	Text        *string // nil when the sender omitted it
	CreatedAt   time.Time
}

// InsertResult is the outcome of an idempotent insert.
type InsertResult int

const (
	// InsertCreated means a new record was written.
	InsertCreated InsertResult = iota
	// InsertDuplicate means a record with the same ID already existed; nothing changed.
	InsertDuplicate
)

func (r InsertResult) String() string {
	switch r {
	case InsertCreated:
		return "created"
	case InsertDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Filter narrows a Scan. Empty fields are ignored; set fields are ANDed.
type Filter struct {
	FromAddress string
	Since       string // ISO-8601 UTC with Z, inclusive lower bound
	TextQuery   string // case-insensitive substring of Text
}

// SenderCount is one row of the per-sender breakdown.
type SenderCount struct {
	FromAddress string
	Count       int64
}

// Stats is an aggregate snapshot over the whole table.
type Stats struct {
	TotalMessages       int64
	SendersCount        int64
	MessagesPerSender   []SenderCount
	FirstMessageTS      *string
	LastMessageTS       *string
	RecipientsCount     int64
	MessagesWithText    int64
	MessagesWithoutText int64
}

// MessageStore handles message persistence.
type MessageStore interface {
	// Insert adds msg unless a record with msg.ID exists. Uniqueness is enforced
	// by the storage engine, so concurrent inserts of one ID yield exactly one
	// InsertCreated.
	Insert(ctx context.Context, msg Message) (InsertResult, error)

	// Scan returns one page ordered by (timestamp, message_id) ascending and the
	// number of records matching the filter regardless of limit and offset.
	Scan(ctx context.Context, filter Filter, limit, offset int) ([]Message, int64, error)

	// Aggregate computes Stats against a single snapshot.
	Aggregate(ctx context.Context) (Stats, error)
}

// Store aggregates message storage with the facts readiness needs.
type Store interface {
	MessageStore

	// Ping checks the database is reachable.
	Ping(ctx context.Context) error

	// Ready checks the database is reachable and the schema is present.
	Ready(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
