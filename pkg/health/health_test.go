package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/health"
)

func ok(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func slow(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestLivenessHandler(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	health.LivenessHandler()(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "OK", w.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		health.ReadinessHandler(health.Checks{"store": ok})(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "OK", w.Body.String())
	})

	t.Run("unhealthy json", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/?format=json", nil)
		health.ReadinessHandler(health.Checks{"store": ok, "redis": failing})(w, r)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp health.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, health.StatusUnhealthy, resp.Status)
		require.Equal(t, health.StatusHealthy, resp.Checks["store"].Status)
		require.Equal(t, "connection refused", resp.Checks["redis"].Error)
	})

	t.Run("accept header", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Accept", "application/json")
		health.ReadinessHandler(nil)(w, r)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	require.NoError(t, health.Run(context.Background(), nil))
	require.NoError(t, health.Run(context.Background(), health.Checks{"a": ok}))

	err := health.Run(context.Background(), health.Checks{"a": ok, "b": failing})
	require.ErrorIs(t, err, health.ErrCheckFailed)
	require.Contains(t, err.Error(), "b: connection refused")

	start := time.Now()
	err = health.Run(context.Background(), health.Checks{"slow": slow}, health.WithTimeout(20*time.Millisecond))
	require.ErrorIs(t, err, health.ErrCheckFailed)
	require.Contains(t, err.Error(), health.ErrCheckTimeout.Error())
	require.Less(t, time.Since(start), time.Second)
}

func TestChecks_Merge(t *testing.T) {
	t.Parallel()

	var nilChecks health.Checks
	merged := nilChecks.Merge(health.Checks{"a": ok}, health.Checks{"b": ok, "a": failing})
	require.Len(t, merged, 2)
	require.Error(t, merged["a"](context.Background()))
}
