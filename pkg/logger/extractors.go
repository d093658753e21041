package logger

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/sessionkit/pkg/session"
)

// sessionIDPrefix is how much of a session ID reaches the logs. Enough to
// correlate lines, too little to replay the cookie.
const sessionIDPrefix = 8

// SessionExtractor adds a shortened session ID as "session".
func SessionExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		s, err := session.FromContext(ctx)
		if err != nil || s.ID == "" {
			return slog.Attr{}, false
		}
		id := s.ID
		if len(id) > sessionIDPrefix {
			id = id[:sessionIDPrefix]
		}
		return slog.String("session", id), true
	}
}

// UserIDExtractor adds the authenticated user's ID as "user_id".
func UserIDExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		s, err := session.FromContext(ctx)
		if err != nil || !s.IsAuthenticated() {
			return slog.Attr{}, false
		}
		return slog.String("user_id", *s.UserID), true
	}
}

// StringExtractor adapts a context getter, such as chi's
// middleware.GetReqID, into an extractor for key.
func StringExtractor(key string, get func(context.Context) string) ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		v := get(ctx)
		if v == "" {
			return slog.Attr{}, false
		}
		return slog.String(key, v), true
	}
}
