package credstore_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/josh-kwaku/grey-bank-client/internal/credstore"
	"github.com/josh-kwaku/grey-bank-client/internal/testutil"
)

func exerciseStore(t *testing.T, store credstore.Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, credstore.KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store must be empty")

	require.NoError(t, store.Set(ctx, credstore.KeyAccessToken, "t1"))
	require.NoError(t, store.Set(ctx, credstore.KeyRefreshToken, "r1"))

	v, ok, err := store.Get(ctx, credstore.KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t1", v)

	require.NoError(t, store.Set(ctx, credstore.KeyAccessToken, "t2"))
	v, _, err = store.Get(ctx, credstore.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "t2", v)

	require.NoError(t, store.Delete(ctx, credstore.KeyAccessToken))
	_, ok, err = store.Get(ctx, credstore.KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err = store.Get(ctx, credstore.KeyRefreshToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "r1", v)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx), "clear must be idempotent")
	for _, k := range credstore.Keys {
		_, ok, err := store.Get(ctx, k)
		require.NoError(t, err)
		assert.False(t, ok, "key %s should be cleared", k)
	}

	err = store.Set(ctx, "session_cookie", "x")
	require.ErrorIs(t, err, credstore.ErrUnknownKey)
	_, _, err = store.Get(ctx, "session_cookie")
	require.ErrorIs(t, err, credstore.ErrUnknownKey)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, credstore.NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	exerciseStore(t, credstore.NewFileStore(path))
}

func TestFileStore_SurvivesReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")

	require.NoError(t, credstore.NewFileStore(path).Set(ctx, credstore.KeyAccessToken, "t1"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	v, ok, err := credstore.NewFileStore(path).Get(ctx, credstore.KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t1", v)
}

func TestFileStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.json")
	// separate stores share no mutex, like two CLI processes
	stores := []*credstore.FileStore{credstore.NewFileStore(path), credstore.NewFileStore(path)}

	var g errgroup.Group
	for i := range 20 {
		store := stores[i%len(stores)]
		token := fmt.Sprintf("t%d", i)
		g.Go(func() error {
			return store.Set(ctx, credstore.KeyAccessToken, token)
		})
	}
	require.NoError(t, g.Wait())

	v, ok, err := credstore.NewFileStore(path).Get(ctx, credstore.KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Regexp(t, `^t\d+$`, v)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "credentials.json", entries[0].Name())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, _, err := credstore.NewFileStore(path).Get(context.Background(), credstore.KeyAccessToken)
	require.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := credstore.NewRedisStore(client, "device-1")
	exerciseStore(t, store)

	require.NoError(t, store.Set(context.Background(), credstore.KeyAccessToken, "t9"))
	got, err := mr.Get("device-1:access_token")
	require.NoError(t, err)
	assert.Equal(t, "t9", got)
}

func TestPostgresStore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	store := credstore.NewPostgresStore(db, "device-1")
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx))
	exerciseStore(t, store)

	other := credstore.NewPostgresStore(db, "device-2")
	require.NoError(t, store.Set(ctx, credstore.KeyAccessToken, "mine"))
	_, ok, err := other.Get(ctx, credstore.KeyAccessToken)
	require.NoError(t, err)
	assert.False(t, ok, "namespaces must not leak into each other")

	require.NoError(t, other.Clear(ctx))
	v, ok, err := store.Get(ctx, credstore.KeyAccessToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "mine", v)
}
