package types

import (
	"time"

	"github.com/google/uuid"
)

// EventID identifies one ingested event. UUIDv7 time-ordering keeps
// sequential IDs clustered in B-tree indexes.
type EventID string

// AlertID identifies one triggered alert.
type AlertID string

// PolicyID identifies an alert policy. Policies are configuration owned by
// the storage layer, so IDs arrive as opaque strings.
type PolicyID string

// ProviderID identifies a configured notification provider.
type ProviderID string

// NewEventID generates a UUIDv7 event identifier.
// Panics on clock regression (uuid.Must); acceptable for ID generation.
func NewEventID() EventID {
	return EventID(uuid.Must(uuid.NewV7()).String())
}

// NewAlertID generates a UUIDv7 alert identifier.
func NewAlertID() AlertID {
	return AlertID(uuid.Must(uuid.NewV7()).String())
}

// ParseAlertID validates and converts a string to AlertID.
func ParseAlertID(s string) (AlertID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", err
	}
	return AlertID(s), nil
}

// AlertIDTime extracts the timestamp embedded in a UUIDv7 alert ID.
// Returns zero time for invalid UUIDs; caller should check IsZero().
func AlertIDTime(id AlertID) time.Time {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return time.Time{}
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec)
}
