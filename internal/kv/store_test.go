package kv

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore checks the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "bookings")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "bookings", []byte(`[{"id":"GR-1"}]`)))
	got, err := s.Get(ctx, "bookings")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"GR-1"}]`, string(got))

	require.NoError(t, s.Set(ctx, "bookings", []byte(`[]`)))
	got, err = s.Get(ctx, "bookings")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, s.Remove(ctx, "bookings"))
	_, err = s.Get(ctx, "bookings")
	assert.ErrorIs(t, err, ErrNotFound)

	// Removing twice is fine.
	assert.NoError(t, s.Remove(ctx, "bookings"))
	assert.NoError(t, s.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	value := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteStore(t *testing.T) {
	logger := zerolog.New(io.Discard)
	path := filepath.Join(t.TempDir(), "data", "resort.db")

	s, err := NewSQLiteStore(path, &logger)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, path, s.Path())
	exerciseStore(t, s)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	path := filepath.Join(t.TempDir(), "resort.db")

	s, err := NewSQLiteStore(path, &logger)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "rooms", []byte(`[{"id":1}]`)))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path, &logger)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "rooms")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(got))
}

func TestSQLiteStore_BackupTo(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	dir := t.TempDir()

	s, err := NewSQLiteStore(filepath.Join(dir, "resort.db"), &logger)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Set(ctx, "bookings", []byte(`[]`)))

	dest := filepath.Join(dir, "backup.db")
	require.NoError(t, s.BackupTo(ctx, dest))

	copied, err := NewSQLiteStore(dest, &logger)
	require.NoError(t, err)
	defer copied.Close()

	got, err := copied.Get(ctx, "bookings")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := NewRedisStore(client, "")
	defer s.Close()

	exerciseStore(t, s)
}

func TestRedisStore_UsesPrefix(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	s := NewRedisStore(client, "test:")
	defer s.Close()

	require.NoError(t, s.Set(ctx, "rooms", []byte(`[]`)))
	v, err := mr.Get("test:rooms")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)
}

func TestRedisStore_ServerDown(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	s := NewRedisStore(client, "")
	defer s.Close()

	mr.Close()

	_, err := s.Get(ctx, "rooms")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
