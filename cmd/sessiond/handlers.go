package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dmitrymomot/sessionkit"
	"github.com/dmitrymomot/sessionkit/pkg/health"
	"github.com/dmitrymomot/sessionkit/pkg/session"
)

const visitsKey = "visits"

type handlers struct {
	manager *session.Manager
	logger  *slog.Logger
}

func newRouter(kit *sessionkit.Kit, log *slog.Logger) http.Handler {
	h := &handlers{manager: kit.Manager(), logger: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(kit.Checks(), health.WithLogger(log)))

	r.Group(func(r chi.Router) {
		r.Use(kit.Middleware)

		r.Get("/", h.visits)
		r.Get("/me", h.me)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Post("/logout/all", h.logoutAll)
	})

	return r
}

// visits counts requests made with the same session.
func (h *handlers) visits(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	n := session.ValueOr(s, visitsKey, float64(0)) + 1
	s.SetValue(visitsKey, n)

	writeJSON(w, http.StatusOK, map[string]any{visitsKey: int(n)})
}

func (h *handlers) me(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if !s.IsAuthenticated() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    *s.UserID,
		"created_at": s.CreatedAt,
		"expires_at": s.ExpiresAt,
		"visits":     int(session.ValueOr(s, visitsKey, float64(0))),
	})
}

// login binds the session to the user named by the "user" form field, or to
// a fresh ID when none is given, and rotates the session ID.
func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	userID := strings.TrimSpace(r.FormValue("user"))
	if userID == "" {
		userID = uuid.NewString()
	}

	if err := h.manager.Regenerate(r.Context(), s); err != nil {
		h.fail(w, r, "regenerate session", err)
		return
	}
	s.Authenticate(userID)

	h.logger.InfoContext(r.Context(), "user logged in", slog.String("user_id", userID))
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID})
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := h.manager.Destroy(r.Context(), w, s); err != nil {
		h.fail(w, r, "destroy session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// logoutAll ends every session of the current user.
func (h *handlers) logoutAll(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if !s.IsAuthenticated() {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
		return
	}

	n, err := h.manager.DestroyUser(r.Context(), *s.UserID)
	if errors.Is(err, session.ErrNotSupported) {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		h.fail(w, r, "destroy user sessions", err)
		return
	}
	if err := h.manager.Destroy(r.Context(), w, s); err != nil {
		h.fail(w, r, "destroy session", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"sessions": n})
}

func (h *handlers) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := session.FromContext(r.Context())
	if err != nil {
		h.fail(w, r, "session from context", err)
		return nil, false
	}
	return s, true
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), op+" failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": http.StatusText(http.StatusInternalServerError)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
