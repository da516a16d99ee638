package model

import "github.com/oklog/ulid/v2"

// NewEventID generates a new ULID string for a published status update.
// Task IDs are not ULIDs; they come from the registry's monotonic counter.
func NewEventID() string {
	return ulid.Make().String()
}
