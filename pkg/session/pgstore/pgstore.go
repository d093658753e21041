package pgstore

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the goose migrations that create the sessions table,
// rooted at the migrations directory. Pass it to db.Migrate.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		panic(err) // the embedded directory always exists
	}
	return sub
}

const (
	selectSession = `
SELECT id, user_id, data, ip, user_agent, expires_at, created_at, last_active_at
FROM sessions WHERE id = $1`

	upsertSession = `
INSERT INTO sessions (id, user_id, data, ip, user_agent, expires_at, created_at, last_active_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
    user_id = EXCLUDED.user_id,
    data = EXCLUDED.data,
    ip = EXCLUDED.ip,
    user_agent = EXCLUDED.user_agent,
    expires_at = EXCLUDED.expires_at,
    last_active_at = EXCLUDED.last_active_at`

	deleteSession  = `DELETE FROM sessions WHERE id = $1`
	touchSession   = `UPDATE sessions SET expires_at = $2 WHERE id = $1 AND expires_at > $3`
	deleteExpired  = `DELETE FROM sessions WHERE expires_at <= $1`
	deleteByUserID = `DELETE FROM sessions WHERE user_id = $1`
)

// Store keeps sessions in the sessions table. PostgreSQL has no native
// expiry, so the kit schedules DeleteExpired.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Option configures the PostgreSQL store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a PostgreSQL-backed session store.
// The pool should come from db.Connect and the schema from db.Migrate.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get loads a session.
// Returns session.ErrExpired for rows the sweeper has not removed yet.
func (s *Store) Get(ctx context.Context, id string) (*session.Session, error) {
	var (
		sess session.Session
		data []byte
	)
	err := s.pool.QueryRow(ctx, selectSession, id).Scan(
		&sess.ID, &sess.UserID, &data, &sess.IP, &sess.UserAgent,
		&sess.ExpiresAt, &sess.CreatedAt, &sess.LastActiveAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}

	if !sess.ExpiresAt.After(s.now()) {
		return nil, session.ErrExpired
	}

	if err := json.Unmarshal(data, &sess.Values); err != nil {
		return nil, fmt.Errorf("pgstore: decode session: %w", err)
	}

	return &sess, nil
}

// Save upserts the session row.
func (s *Store) Save(ctx context.Context, sess *session.Session, ttl time.Duration) error {
	values := sess.Values
	if values == nil {
		values = map[string]any{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("pgstore: encode session: %w", err)
	}

	var userID *string
	if sess.IsAuthenticated() {
		userID = sess.UserID
	}

	_, err = s.pool.Exec(ctx, upsertSession,
		sess.ID, userID, data, sess.IP, sess.UserAgent,
		s.now().Add(ttl), sess.CreatedAt, sess.LastActiveAt,
	)
	return err
}

// Delete removes a session. Missing rows are ignored.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, deleteSession, id)
	return err
}

// Touch moves the expiry of a live session.
func (s *Store) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	tag, err := s.pool.Exec(ctx, touchSession, id, expiresAt, s.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

// DeleteExpired removes rows whose expiry has passed.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, deleteExpired, s.now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteByUserID removes every session bound to userID.
func (s *Store) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, deleteByUserID, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var (
	_ session.Store     = (*Store)(nil)
	_ session.Cleaner   = (*Store)(nil)
	_ session.UserIndex = (*Store)(nil)
)
