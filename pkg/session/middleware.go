package session

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by Middleware.
// Returns ErrNoSession if the context carries none.
func FromContext(ctx context.Context) (*Session, error) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	if !ok || s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

// Middleware loads the session for every request, exposes it through the
// request context and commits it just before the response is written.
// Store failures while loading answer 500 without calling next.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		s, err := m.Load(ctx, r)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to load session", slog.String("error", err.Error()))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		rw := newResponseWriter(w, func() {
			if err := m.Save(ctx, w, s); err != nil {
				m.logger.ErrorContext(ctx, "failed to save session",
					slog.String("error", err.Error()),
				)
			}
		})

		next.ServeHTTP(rw, r.WithContext(NewContext(ctx, s)))

		// Handlers that write nothing still get their session committed.
		rw.commit()
	})
}
