package store

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// keyLayout is fixed width so byte order equals chronological order.
const keyLayout = "2006-01-02T15:04:05.000000000Z"

// ErrTimestampFormat is returned for values that are not ISO-8601 UTC instants ending in Z.
var ErrTimestampFormat = errors.New("timestamp must be an ISO-8601 UTC instant ending in Z")

// ParseTimestamp parses an ISO-8601 UTC instant with an explicit Z offset.
// Numeric offsets, even +00:00, are rejected.
func ParseTimestamp(s string) (time.Time, error) {
	if !strings.HasSuffix(s, "Z") {
		return time.Time{}, ErrTimestampFormat
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrTimestampFormat, err)
	}
	return t.UTC(), nil
}

// TimestampKey returns the sortable form of ts used for ordering and range filters.
func TimestampKey(ts string) (string, error) {
	t, err := ParseTimestamp(ts)
	if err != nil {
		return "", err
	}
	return t.Format(keyLayout), nil
}

// FormatCreatedAt renders a store clock reading the way created_at is persisted.
func FormatCreatedAt(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z")
}
