package session_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/config"
	"github.com/dmitrymomot/sessionkit/pkg/cookie"
	"github.com/dmitrymomot/sessionkit/pkg/session"
	"github.com/dmitrymomot/sessionkit/pkg/session/memstore"
)

const testSecret = "57e1b4c5e0660b778000b900a26a8393"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	cfg   config.Config
	clock *clock
	store *memstore.Store
	mgr   *session.Manager
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Secret = testSecret
	if mutate != nil {
		mutate(&cfg)
	}
	require.NoError(t, cfg.Validate())

	c := newClock()
	store := memstore.New(memstore.WithCleanupInterval(0), memstore.WithClock(c.Now))
	t.Cleanup(func() { _ = store.Close() })

	return &fixture{
		cfg:   cfg,
		clock: c,
		store: store,
		mgr:   session.NewManager(store, cfg, session.WithClock(c.Now)),
	}
}

// do runs one request through the middleware carrying the given cookies.
func (f *fixture) do(t *testing.T, h http.HandlerFunc, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.mgr.Middleware(h).ServeHTTP(w, r)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == config.DefaultCookieName {
			return c
		}
	}
	t.Fatalf("no session cookie in %v", w.Header().Values("Set-Cookie"))
	return nil
}

func mustSession(t *testing.T, r *http.Request) *session.Session {
	t.Helper()

	s, err := session.FromContext(r.Context())
	require.NoError(t, err)
	return s
}

func increment(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := mustSession(t, r)
		n := session.ValueOr(s, "n", float64(0)) + 1
		s.SetValue("n", n)
		fmt.Fprintf(w, "%.0f", n)
	}
}

func noop(http.ResponseWriter, *http.Request) {}

func TestMiddleware_Uninitialized(t *testing.T) {
	t.Parallel()

	t.Run("not saved by default", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, nil)
		w := f.do(t, noop)

		require.Empty(t, w.Header().Values("Set-Cookie"))
		require.Zero(t, f.store.Len())
	})

	t.Run("saved when configured", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, func(c *config.Config) { c.SaveUninitialized = true })
		w := f.do(t, noop)

		sessionCookie(t, w)
		require.Equal(t, 1, f.store.Len())
	})
}

func TestMiddleware_BrowserSessionCookie(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)

	w := f.do(t, increment(t))
	require.Equal(t, "1", w.Body.String())

	c := sessionCookie(t, w)
	require.Zero(t, c.MaxAge)
	require.NotContains(t, w.Header().Get("Set-Cookie"), "Max-Age")
	require.Equal(t, "/", c.Path)
	require.True(t, c.HttpOnly)
	require.False(t, c.Secure)
	require.Equal(t, http.SameSiteLaxMode, c.SameSite)

	w = f.do(t, increment(t), c)
	require.Equal(t, "2", w.Body.String())

	// The record outlives the browser session only for the store TTL.
	f.clock.Advance(f.cfg.StoreTTL() + time.Second)
	w = f.do(t, increment(t), c)
	require.Equal(t, "1", w.Body.String())
}

func TestMiddleware_ZeroMaxAge(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *config.Config) {
		zero := int64(0)
		c.Cookie.MaxAge = &zero
	})

	w := f.do(t, increment(t))
	require.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
	require.Zero(t, f.store.Len(), "nothing is persisted for an expired cookie")
}

func TestMiddleware_PositiveMaxAge(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *config.Config) {
		minute := int64(60_000)
		c.Cookie.MaxAge = &minute
		c.TouchInterval = time.Hour
	})

	w := f.do(t, increment(t))
	c := sessionCookie(t, w)
	require.Equal(t, 60, c.MaxAge)

	f.clock.Advance(30 * time.Second)
	w = f.do(t, increment(t), c)
	require.Equal(t, "2", w.Body.String())

	f.clock.Advance(61 * time.Second)
	w = f.do(t, increment(t), c)
	require.Equal(t, "1", w.Body.String(), "record expires with the cookie")
}

func TestMiddleware_TamperedCookie(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	c := sessionCookie(t, f.do(t, increment(t)))

	forged := *c
	forged.Value = strings.Replace(c.Value, ".", "x.", 1)
	w := f.do(t, increment(t), &forged)
	require.Equal(t, "1", w.Body.String())
	require.NotEqual(t, c.Value, sessionCookie(t, w).Value)

	other := cookie.New(cookie.WithSecrets("another-secret"))
	raw, err := other.Sign("not-even-an-id")
	require.NoError(t, err)
	w = f.do(t, increment(t), &http.Cookie{Name: config.DefaultCookieName, Value: raw})
	require.Equal(t, "1", w.Body.String())
}

func TestMiddleware_SecretRotation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *config.Config) { c.Secret = "old-secret" })
	c := sessionCookie(t, f.do(t, increment(t)))

	rotated := f.cfg
	rotated.Secret = testSecret
	rotated.PreviousSecrets = []string{"old-secret"}
	f.mgr = session.NewManager(f.store, rotated, session.WithClock(f.clock.Now))

	w := f.do(t, increment(t), c)
	require.Equal(t, "2", w.Body.String())
}

func TestMiddleware_Touch(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	c := sessionCookie(t, f.do(t, increment(t)))
	id, err := cookie.New(cookie.WithSecrets(testSecret)).Verify(c.Value)
	require.NoError(t, err)

	stored, err := f.store.Get(ctx, id)
	require.NoError(t, err)
	firstExpiry := stored.ExpiresAt

	f.clock.Advance(10 * time.Minute)
	w := f.do(t, noop, c)
	require.Empty(t, w.Header().Values("Set-Cookie"), "touch does not resend the cookie")

	stored, err = f.store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, firstExpiry.Add(10*time.Minute), stored.ExpiresAt)

	f.clock.Advance(time.Minute)
	f.do(t, noop, c)

	stored, err = f.store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, firstExpiry.Add(10*time.Minute), stored.ExpiresAt, "touch is throttled")
}

func TestMiddleware_Rolling(t *testing.T) {
	t.Parallel()

	f := newFixture(t, func(c *config.Config) { c.Rolling = true })
	c := sessionCookie(t, f.do(t, increment(t)))

	w := f.do(t, noop, c)
	require.Equal(t, c.Value, sessionCookie(t, w).Value)
}

func TestManager_Regenerate(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	c := sessionCookie(t, f.do(t, increment(t)))

	w := f.do(t, func(w http.ResponseWriter, r *http.Request) {
		s := mustSession(t, r)
		s.Authenticate("user-1")
		require.NoError(t, f.mgr.Regenerate(r.Context(), s))
	}, c)

	fresh := sessionCookie(t, w)
	require.NotEqual(t, c.Value, fresh.Value)
	require.Equal(t, 1, f.store.Len(), "old record is removed")

	w = f.do(t, func(w http.ResponseWriter, r *http.Request) {
		s := mustSession(t, r)
		require.True(t, s.IsAuthenticated())
		require.Equal(t, float64(1), s.Values["n"])
	}, fresh)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, increment(t), c)
	require.Equal(t, "1", w.Body.String(), "the old id is dead")
}

func TestManager_LoadedSessionIsClean(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	c := sessionCookie(t, f.do(t, increment(t)))

	f.do(t, func(w http.ResponseWriter, r *http.Request) {
		s := mustSession(t, r)
		require.False(t, s.IsNew(), "loaded session is persisted")
		require.False(t, s.IsDirty(), "loaded session has no pending changes")
	}, c)
}

func TestManager_Destroy(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	c := sessionCookie(t, f.do(t, increment(t)))

	w := f.do(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, f.mgr.Destroy(r.Context(), w, mustSession(t, r)))
		w.WriteHeader(http.StatusNoContent)
	}, c)

	require.Len(t, w.Header().Values("Set-Cookie"), 1)
	require.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
	require.Zero(t, f.store.Len())

	w = f.do(t, increment(t), c)
	require.Equal(t, "1", w.Body.String(), "a replayed cookie starts over")
	require.NotEqual(t, c.Value, sessionCookie(t, w).Value)

	c2 := sessionCookie(t, f.do(t, increment(t)))
	w = f.do(t, func(w http.ResponseWriter, r *http.Request) {
		mustSession(t, r).Destroy()
	}, c2)
	require.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
	require.Zero(t, f.store.Len())
}

func TestManager_DestroyUser(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	login := func(w http.ResponseWriter, r *http.Request) {
		mustSession(t, r).Authenticate("user-1")
	}
	f.do(t, login)
	f.do(t, login)
	f.do(t, increment(t))
	require.Equal(t, 3, f.store.Len())

	n, err := f.mgr.DestroyUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.Equal(t, 1, f.store.Len())
}

type failingStore struct{ session.Store }

func (failingStore) Get(context.Context, string) (*session.Session, error) {
	return nil, errors.New("connection refused")
}

func TestMiddleware_StoreFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	c := sessionCookie(t, f.do(t, increment(t)))

	mgr := session.NewManager(failingStore{}, f.cfg)
	called := false
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	mgr.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })).ServeHTTP(w, r)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.False(t, called)

	_, err := mgr.DestroyUser(context.Background(), "u")
	require.ErrorIs(t, err, session.ErrNotSupported)
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	_, err := session.FromContext(context.Background())
	require.ErrorIs(t, err, session.ErrNoSession)

	s := session.New("id", time.Now())
	got, err := session.FromContext(session.NewContext(context.Background(), s))
	require.NoError(t, err)
	require.Same(t, s, got)
}

func TestManager_RecordsClient(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	r.Header.Set("User-Agent", "test-agent")

	s, err := f.mgr.Load(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, "192.0.2.1", s.IP)
	require.Equal(t, "test-agent", s.UserAgent)
	require.True(t, s.IsNew())
}
