package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit"
	"github.com/dmitrymomot/sessionkit/pkg/config"
)

type client struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T) *client {
	t.Helper()

	cfg := config.Default()
	cfg.Secret = "2b7e151628aed2a6abf7158809cf4f3c"

	kit, err := sessionkit.New(context.Background(), cfg, sessionkit.WithoutCleanup())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kit.Close(context.Background()) })

	return &client{
		t:       t,
		h:       newRouter(kit, slog.New(slog.DiscardHandler)),
		cookies: map[string]*http.Cookie{},
	}
}

func (c *client) do(method, path string, form url.Values) (*httptest.ResponseRecorder, map[string]any) {
	c.t.Helper()

	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	r := httptest.NewRequest(method, path, body)
	if form != nil {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, ck := range c.cookies {
		r.AddCookie(ck)
	}

	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, r)

	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}

	var out map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestVisits(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	for i := 1; i <= 3; i++ {
		w, out := c.do(http.MethodGet, "/", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.EqualValues(t, i, out["visits"])
	}
}

func TestLoginLogout(t *testing.T) {
	t.Parallel()

	c := newClient(t)

	w, _ := c.do(http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	c.do(http.MethodGet, "/", nil)
	before := c.cookies[config.DefaultCookieName].Value

	w, out := c.do(http.MethodPost, "/login", url.Values{"user": {"alice"}})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", out["user_id"])
	require.NotEqual(t, before, c.cookies[config.DefaultCookieName].Value, "login rotates the session ID")

	w, out = c.do(http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "alice", out["user_id"])
	require.EqualValues(t, 1, out["visits"])

	w, _ = c.do(http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotContains(t, c.cookies, config.DefaultCookieName)

	w, _ = c.do(http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginGeneratesUserID(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	_, out := c.do(http.MethodPost, "/login", url.Values{})
	require.Len(t, out["user_id"], 36)
}

func TestLogoutAll(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	c.do(http.MethodPost, "/login", url.Values{"user": {"bob"}})

	w, out := c.do(http.MethodPost, "/logout/all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, out["sessions"])

	w, _ = c.do(http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	c := newClient(t)
	w, _ := c.do(http.MethodGet, "/health/live", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, out := c.do(http.MethodGet, "/health/ready?format=json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "healthy", out["status"])
}
