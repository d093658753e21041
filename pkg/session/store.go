package session

import (
	"context"
	"time"
)

// Store defines the interface for session persistence.
// Implementations handle storage-specific operations like
// database queries or cache lookups, and must be safe for concurrent use.
type Store interface {
	// Get retrieves a session by its ID. The returned session's ExpiresAt
	// reflects the record's current expiry, including touches.
	// Returns ErrNotFound if the session doesn't exist.
	// Returns ErrExpired if the session has expired but was not purged yet.
	Get(ctx context.Context, id string) (*Session, error)

	// Save creates or replaces the session record. The record expires
	// after ttl.
	Save(ctx context.Context, s *Session, ttl time.Duration) error

	// Delete removes a session by its ID. Deleting a missing session
	// is not an error.
	Delete(ctx context.Context, id string) error

	// Touch moves the record's expiry without rewriting its payload.
	// Returns ErrNotFound if the session doesn't exist.
	Touch(ctx context.Context, id string, expiresAt time.Time) error
}

// Cleaner is implemented by stores that cannot expire records on their own
// and need a periodic sweep.
type Cleaner interface {
	// DeleteExpired removes expired records and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}

// UserIndex is implemented by stores that can find sessions by user.
// Useful for "logout from all devices" functionality.
type UserIndex interface {
	// DeleteByUserID removes all sessions for a user and returns how many
	// were removed.
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}
