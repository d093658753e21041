package redis

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/config"
)

func TestOpen_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("empty URL returns ErrEmptyConnectionURL", func(t *testing.T) {
		t.Parallel()

		client, err := Open(ctx, "")
		require.Error(t, err)
		require.Nil(t, client)
		require.True(t, errors.Is(err, ErrEmptyConnectionURL))
	})

	t.Run("invalid scheme returns ErrFailedToParseURL", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			name string
			url  string
		}{
			{
				name: "http scheme",
				url:  "http://localhost:6379",
			},
			{
				name: "https scheme",
				url:  "https://localhost:6379",
			},
			{
				name: "no scheme",
				url:  "localhost:6379",
			},
			{
				name: "postgresql scheme",
				url:  "postgresql://localhost:6379",
			},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				client, err := Open(ctx, tc.url)
				require.Error(t, err)
				require.Nil(t, client)
				require.True(t, errors.Is(err, ErrFailedToParseURL))
			})
		}
	})

	t.Run("malformed URL returns ErrFailedToParseURL", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			name string
			url  string
		}{
			{
				name: "invalid port",
				url:  "redis://localhost:notaport",
			},
			{
				name: "invalid database",
				url:  "redis://localhost:6379/notanumber",
			},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				client, err := Open(ctx, tc.url)
				require.Error(t, err)
				require.Nil(t, client)
				require.True(t, errors.Is(err, ErrFailedToParseURL))
			})
		}
	})
}

func TestOpen_Miniredis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := Open(ctx, "redis://"+mr.Addr()+"/0", WithRetry(1, 0))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, Healthcheck(client)(ctx))

	mr.Close()
	require.ErrorIs(t, Healthcheck(client)(ctx), ErrHealthcheckFailed)
}

func TestOpenConfig(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	mr.RequireAuth("hunter2")
	ctx := context.Background()

	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	cfg := config.Default().Redis
	cfg.Host = host
	cfg.Port = portNum
	cfg.Password = "hunter2"
	cfg.RetryAttempts = 1

	client, err := OpenConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestOpen_RetriesThenFails(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	start := time.Now()
	_, err := Open(context.Background(), "redis://"+addr, WithRetry(2, 20*time.Millisecond), WithDialTimeout(100*time.Millisecond))
	require.ErrorIs(t, err, ErrConnectionFailed)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond, "waits between attempts")
}

func TestOpen_ContextCancelledDuringRetry(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := Open(ctx, "redis://"+addr, WithRetry(5, 10*time.Second), WithDialTimeout(50*time.Millisecond))
	require.ErrorIs(t, err, ErrConnectionFailed)
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Healthcheck(nil)(context.Background()), ErrHealthcheckFailed)
}

func TestShutdown(t *testing.T) {
	t.Parallel()

	closeErr := errors.New("close error")
	for _, want := range []error{nil, closeErr} {
		c := &closer{err: want}
		err := Shutdown(c)(context.Background())
		require.Equal(t, want, err)
		require.True(t, c.closed)
	}
}

func TestWait(t *testing.T) {
	t.Parallel()

	t.Run("returns after the duration", func(t *testing.T) {
		t.Parallel()

		start := time.Now()
		require.NoError(t, wait(context.Background(), 30*time.Millisecond))
		require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	})

	t.Run("returns early on cancel", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)

		start := time.Now()
		require.ErrorIs(t, wait(ctx, 10*time.Second), context.Canceled)
		require.Less(t, time.Since(start), time.Second)
	})
}

func TestOptions(t *testing.T) {
	t.Parallel()

	def := defaultOptions()
	require.Equal(t, 10, def.poolSize)
	require.Equal(t, 2, def.minIdleConns)
	require.Equal(t, 3, def.retryAttempts)
	require.Equal(t, 5*time.Second, def.retryInterval)

	tests := []struct {
		name  string
		opt   Option
		check func(*testing.T, *options)
	}{
		{"pool size", WithPoolSize(25), func(t *testing.T, o *options) { require.Equal(t, 25, o.poolSize) }},
		{"pool size ignores zero", WithPoolSize(0), func(t *testing.T, o *options) { require.Equal(t, 10, o.poolSize) }},
		{"min idle", WithMinIdleConns(8), func(t *testing.T, o *options) { require.Equal(t, 8, o.minIdleConns) }},
		{"max idle time", WithMaxIdleTime(time.Minute), func(t *testing.T, o *options) { require.Equal(t, time.Minute, o.maxIdleTime) }},
		{"max active time", WithMaxActiveTime(time.Hour), func(t *testing.T, o *options) { require.Equal(t, time.Hour, o.maxActiveTime) }},
		{"retry", WithRetry(7, time.Second), func(t *testing.T, o *options) {
			require.Equal(t, 7, o.retryAttempts)
			require.Equal(t, time.Second, o.retryInterval)
		}},
		{"read timeout", WithReadTimeout(time.Second), func(t *testing.T, o *options) { require.Equal(t, time.Second, o.readTimeout) }},
		{"write timeout", WithWriteTimeout(time.Second), func(t *testing.T, o *options) { require.Equal(t, time.Second, o.writeTimeout) }},
		{"dial timeout", WithDialTimeout(time.Second), func(t *testing.T, o *options) { require.Equal(t, time.Second, o.dialTimeout) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			o := defaultOptions()
			tc.opt(o)
			tc.check(t, o)
		})
	}
}

type closer struct {
	closed bool
	err    error
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

var _ io.Closer = (*closer)(nil)
