package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponseWriter_CommitsOnce(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	calls := 0
	w := newResponseWriter(rec, func() {
		calls++
		rec.Header().Set("X-Committed", "yes")
	})

	w.WriteHeader(http.StatusCreated)
	_, err := w.Write([]byte("body"))
	require.NoError(t, err)
	w.Flush()
	w.commit()

	require.Equal(t, 1, calls)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "yes", rec.Header().Get("X-Committed"))
	require.True(t, rec.Flushed)
}

func TestResponseWriter_Unwrap(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	w := newResponseWriter(rec, nil)
	require.Same(t, rec, w.Unwrap())

	_, _, err := w.Hijack()
	require.ErrorIs(t, err, http.ErrNotSupported)

	require.NoError(t, http.NewResponseController(w).Flush())
}
