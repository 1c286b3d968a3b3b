package models

import "github.com/google/uuid"

// NewID returns a time-ordered UUIDv7 string. Sorting by ID therefore follows
// insertion order, which list queries use as a tie-breaker on equal timestamps.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func ensureID(id *string) {
	if *id == "" {
		*id = NewID()
	}
}
