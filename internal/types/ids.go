package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestID identifies one pipeline invocation in logs.
type RequestID string

// NewRequestID returns a fresh UUIDv7 id.
func NewRequestID() RequestID {
	return RequestID(uuid.Must(uuid.NewV7()).String())
}

// ParseRequestID validates a caller-supplied request id. Any UUID is
// accepted; only UUIDv7 ids carry an issue time.
func ParseRequestID(s string) (RequestID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid request id %q: %w", s, err)
	}
	return RequestID(u.String()), nil
}

// RequestIDTime extracts the timestamp embedded in a UUIDv7 id. Other
// UUID versions and invalid ids give the zero time.
func RequestIDTime(id RequestID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil || u.Version() != 7 {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
