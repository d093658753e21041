package session

import (
	"errors"
	"maps"
	"time"
)

// Session represents a user session with metadata and arbitrary values.
//
// Values survive a store round trip as JSON, so numbers read back from an
// external store are float64.
type Session struct {
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`

	UserID    *string        `json:"user_id,omitempty"` // nil = anonymous session
	Values    map[string]any `json:"values,omitempty"`
	ID        string         `json:"id"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`

	dirty     bool // tracks if session needs saving
	isNew     bool // not yet persisted under the current ID
	destroyed bool
	removed   bool // store record and cookie already cleared
}

// New creates a new session with the given ID.
// A new session is not dirty: it is persisted only once it is modified,
// unless the manager is configured to save uninitialized sessions.
func New(id string, expiresAt time.Time) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Values:       make(map[string]any),
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    expiresAt,
		isNew:        true,
	}
}

// IsAuthenticated returns true if the session has an associated user.
func (s *Session) IsAuthenticated() bool {
	return s.UserID != nil && *s.UserID != ""
}

// Authenticate binds the session to a user.
// Callers should regenerate the session ID right after login.
func (s *Session) Authenticate(userID string) {
	s.UserID = &userID
	s.dirty = true
}

// Logout detaches the user and drops all values but keeps the session.
func (s *Session) Logout() {
	s.UserID = nil
	clear(s.Values)
	s.dirty = true
}

// Destroy marks the session for removal.
// The record and the cookie are cleared when the session is committed.
func (s *Session) Destroy() {
	s.destroyed = true
}

// IsDestroyed reports whether Destroy was called.
func (s *Session) IsDestroyed() bool {
	return s.destroyed
}

// SetValue stores a value in the session.
// Marks the session as dirty for automatic saving.
func (s *Session) SetValue(key string, val any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = val
	s.dirty = true
}

// GetValue retrieves a value from the session.
func (s *Session) GetValue(key string) (any, bool) {
	if s.Values == nil {
		return nil, false
	}
	val, ok := s.Values[key]
	return val, ok
}

// DeleteValue removes a value from the session.
// Marks the session as dirty only if the key existed.
func (s *Session) DeleteValue(key string) {
	if s.Values == nil {
		return
	}
	if _, exists := s.Values[key]; exists {
		delete(s.Values, key)
		s.dirty = true
	}
}

// IsDirty returns true if the session has unsaved changes.
func (s *Session) IsDirty() bool {
	return s.dirty
}

// MarkDirty marks the session as needing to be saved.
func (s *Session) MarkDirty() {
	s.dirty = true
}

// IsNew returns true if the session has not been persisted under its ID yet.
func (s *Session) IsNew() bool {
	return s.isNew
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.expiredAt(time.Now())
}

func (s *Session) expiredAt(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Clone returns a copy of the session data that shares no mutable state
// with s. Change tracking is not copied: the clone reads as a persisted,
// unmodified session. Stores that keep sessions in process use it to
// isolate callers.
func (s *Session) Clone() *Session {
	c := &Session{
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.LastActiveAt,
		ExpiresAt:    s.ExpiresAt,
		Values:       maps.Clone(s.Values),
		ID:           s.ID,
		IP:           s.IP,
		UserAgent:    s.UserAgent,
	}
	if s.UserID != nil {
		uid := *s.UserID
		c.UserID = &uid
	}
	return c
}

// markSaved resets change tracking after a successful commit.
func (s *Session) markSaved() {
	s.dirty = false
	s.isNew = false
}

// Value is a typed helper to retrieve session values with type safety.
// Returns an error if the key doesn't exist or type assertion fails.
func Value[T any](s *Session, key string) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrNotFound
	}

	val, ok := s.GetValue(key)
	if !ok {
		return zero, ErrNotFound
	}

	typed, ok := val.(T)
	if !ok {
		return zero, errors.New("session: type mismatch for key: " + key)
	}

	return typed, nil
}

// ValueOr is a typed helper that returns a default value if the key
// doesn't exist or type assertion fails.
func ValueOr[T any](s *Session, key string, defaultVal T) T {
	val, err := Value[T](s, key)
	if err != nil {
		return defaultVal
	}
	return val
}
