package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dmitrymomot/sessionkit/pkg/config"
	"github.com/dmitrymomot/sessionkit/pkg/cookie"
)

// idBytes is the entropy of a session ID before encoding.
const idBytes = 32

// Manager handles the session lifecycle: it reads the signed ID from the
// cookie, loads and persists records through a Store and writes the cookie
// back according to the descriptor.
type Manager struct {
	store             Store
	cookies           *cookie.Manager
	logger            *slog.Logger
	now               func() time.Time
	name              string
	lifetime          time.Duration
	hasLifetime       bool
	storeTTL          time.Duration
	touchInterval     time.Duration
	rolling           bool
	saveUninitialized bool
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger for session events.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager creates a Manager for a validated descriptor.
func NewManager(store Store, cfg config.Config, opts ...ManagerOption) *Manager {
	lifetime, hasLifetime := cfg.Cookie.Lifetime()

	m := &Manager{
		store: store,
		cookies: cookie.New(
			cookie.WithSecrets(cfg.Secret, cfg.PreviousSecrets...),
			cookie.WithPath(cfg.Cookie.Path),
			cookie.WithDomain(cfg.Cookie.Domain),
			cookie.WithSecure(cfg.Cookie.Secure),
			cookie.WithHTTPOnly(cfg.Cookie.HTTPOnly),
			cookie.WithSameSite(cookie.ParseSameSite(cfg.Cookie.SameSite)),
		),
		logger:            slog.New(slog.DiscardHandler),
		now:               time.Now,
		name:              cfg.Name,
		lifetime:          lifetime,
		hasLifetime:       hasLifetime,
		storeTTL:          cfg.StoreTTL(),
		touchInterval:     cfg.TouchInterval,
		rolling:           cfg.Rolling,
		saveUninitialized: cfg.SaveUninitialized,
	}
	if m.name == "" {
		m.name = config.DefaultCookieName
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Store returns the underlying session store.
func (m *Manager) Store() Store {
	return m.store
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.name
}

// Load returns the session referenced by the request cookie.
// A missing, tampered or unknown cookie yields a fresh session; only store
// failures are returned as errors.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	id, err := m.cookies.GetSigned(r, m.name)
	switch {
	case err == nil:
	case errors.Is(err, cookie.ErrNotFound):
		return m.create(r)
	default:
		m.logger.DebugContext(ctx, "session cookie rejected", slog.String("error", err.Error()))
		return m.create(r)
	}

	if !ValidID(id) {
		m.logger.DebugContext(ctx, "malformed session id")
		return m.create(r)
	}

	s, err := m.store.Get(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrExpired):
		return m.create(r)
	default:
		return nil, fmt.Errorf("load session: %w", err)
	}

	if s.expiredAt(m.now()) {
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.WarnContext(ctx, "failed to delete expired session", slog.String("error", err.Error()))
		}
		return m.create(r)
	}

	// Whatever the store handed back, a loaded session is persisted and clean.
	s.markSaved()
	return s, nil
}

// Save persists the session and writes the cookie as needed. It must be
// called before the response headers are sent; Middleware does that.
//
// Cookie lifetime follows the descriptor: an unset maxAge produces a cookie
// without Max-Age and the record lives for the store TTL, maxAge 0 produces
// an already expired cookie and nothing is persisted, a positive maxAge
// bounds both the cookie and the record.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s == nil || s.removed {
		return nil
	}

	if s.destroyed {
		return m.remove(ctx, w, s)
	}

	if s.isNew && !s.dirty && !m.saveUninitialized {
		return nil
	}

	now := m.now()
	ttl := m.ttl()

	if ttl <= 0 {
		s.markSaved()
		return m.writeCookie(w, s)
	}

	if s.isNew || s.dirty {
		s.LastActiveAt = now
		s.ExpiresAt = now.Add(ttl)
		if err := m.store.Save(ctx, s, ttl); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		s.markSaved()
		return m.writeCookie(w, s)
	}

	if m.touchDue(s, now, ttl) {
		expiresAt := now.Add(ttl)
		if err := m.store.Touch(ctx, s.ID, expiresAt); err != nil {
			return fmt.Errorf("touch session: %w", err)
		}
		s.ExpiresAt = expiresAt
	}

	if m.rolling {
		return m.writeCookie(w, s)
	}

	return nil
}

// Regenerate gives the session a new ID and drops the record stored under
// the old one. Call it on login to prevent session fixation.
func (m *Manager) Regenerate(ctx context.Context, s *Session) error {
	id, err := NewID()
	if err != nil {
		return err
	}

	if !s.isNew {
		if err := m.store.Delete(ctx, s.ID); err != nil {
			return fmt.Errorf("regenerate session: %w", err)
		}
	}

	s.ID = id
	s.isNew = true
	s.dirty = true
	return nil
}

// Destroy removes the session record and expires the cookie right away.
// A later Save of the same session is a no-op.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	s.Destroy()
	return m.remove(ctx, w, s)
}

// DestroyUser removes every session of a user.
// Returns ErrNotSupported if the store keeps no user index.
func (m *Manager) DestroyUser(ctx context.Context, userID string) (int64, error) {
	idx, ok := m.store.(UserIndex)
	if !ok {
		return 0, ErrNotSupported
	}
	return idx.DeleteByUserID(ctx, userID)
}

func (m *Manager) remove(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if !s.isNew {
		if err := m.store.Delete(ctx, s.ID); err != nil {
			return fmt.Errorf("destroy session: %w", err)
		}
	}
	m.cookies.Delete(w, m.name)
	s.removed = true
	return nil
}

func (m *Manager) create(r *http.Request) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	s := New(id, m.now().Add(m.ttl()))
	s.IP = clientIP(r)
	s.UserAgent = r.UserAgent()
	return s, nil
}

// ttl is how long the record should live after a save or touch.
func (m *Manager) ttl() time.Duration {
	if m.hasLifetime {
		return m.lifetime
	}
	return m.storeTTL
}

// touchDue reports whether the expiry was last moved more than
// touchInterval ago.
func (m *Manager) touchDue(s *Session, now time.Time, ttl time.Duration) bool {
	if m.touchInterval <= 0 {
		return true
	}
	lastExtended := s.ExpiresAt.Add(-ttl)
	return now.Sub(lastExtended) >= m.touchInterval
}

func (m *Manager) writeCookie(w http.ResponseWriter, s *Session) error {
	return m.cookies.SetSigned(w, m.name, s.ID, m.cookieMaxAge())
}

// cookieMaxAge converts the lifetime to net/http semantics.
func (m *Manager) cookieMaxAge() int {
	switch {
	case !m.hasLifetime:
		return 0
	case m.lifetime <= 0:
		return -1
	case m.lifetime < time.Second:
		return 1
	default:
		return int(m.lifetime / time.Second)
	}
}

// NewID returns a random URL-safe session ID.
func NewID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidID reports whether id has the shape produced by NewID.
func ValidID(id string) bool {
	if len(id) != base64.RawURLEncoding.EncodedLen(idBytes) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil
}

// clientIP returns the host part of RemoteAddr. Proxy headers are the job
// of an upstream middleware such as chi's RealIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
