//go:build integration

package mongostore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionkit/pkg/config"
	"github.com/dmitrymomot/sessionkit/pkg/mongo"
	"github.com/dmitrymomot/sessionkit/pkg/session"
	"github.com/dmitrymomot/sessionkit/pkg/session/mongostore"
)

func setup(t *testing.T, opts ...mongostore.Option) *mongostore.Store {
	t.Helper()

	url := os.Getenv("MONGO_TEST_URL")
	if url == "" {
		url = "mongodb://localhost:27017/sessionkit_test"
	}

	cfg := config.Default().Mongo
	cfg.URL = url
	cfg.Collection = "sessions_" + t.Name()
	cfg.RetryAttempts = 1

	ctx := context.Background()
	coll, err := mongo.Collection(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = coll.Drop(context.Background())
		_ = coll.Database().Client().Disconnect(context.Background())
	})

	store := mongostore.New(coll, opts...)
	require.NoError(t, store.EnsureIndexes(ctx))
	require.NoError(t, store.EnsureIndexes(ctx), "index creation is idempotent")
	return store
}

func TestStore_Lifecycle(t *testing.T) {
	for _, stringify := range []bool{true, false} {
		store := setup(t, mongostore.WithStringify(stringify))
		ctx := context.Background()

		id, err := session.NewID()
		require.NoError(t, err)
		sess := session.New(id, time.Time{})
		sess.SetValue("k", "v")
		sess.Authenticate("user-1")
		require.NoError(t, store.Save(ctx, sess, time.Hour))

		got, err := store.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "v", got.Values["k"])

		require.NoError(t, store.Touch(ctx, id, time.Now().Add(2*time.Hour)))
		got, err = store.Get(ctx, id)
		require.NoError(t, err)
		require.WithinDuration(t, time.Now().Add(2*time.Hour), got.ExpiresAt, time.Minute)

		n, err := store.DeleteByUserID(ctx, "user-1")
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		_, err = store.Get(ctx, id)
		require.ErrorIs(t, err, session.ErrNotFound)
		require.ErrorIs(t, store.Touch(ctx, id, time.Now().Add(time.Hour)), session.ErrNotFound)
		require.NoError(t, store.Delete(ctx, id))
	}
}

func TestStore_Expired(t *testing.T) {
	store := setup(t)
	ctx := context.Background()

	id, err := session.NewID()
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, session.New(id, time.Time{}), -time.Second))

	_, err = store.Get(ctx, id)
	require.ErrorIs(t, err, session.ErrExpired)

	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
