package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jamerly/chatbox/pkg/chatbox"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := chatbox.SessionStorageKey

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, key, "sess-1"))
	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "sess-1", v)

	require.NoError(t, s.Set(ctx, key, "sess-2"))
	v, _, err = s.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "sess-2", v)

	require.NoError(t, s.Set(ctx, "other", "x"))
	require.NoError(t, s.Delete(ctx, key))
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err = s.Get(ctx, "other")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", v)

	require.NoError(t, s.Delete(ctx, "missing"))
	require.Error(t, s.Set(ctx, " ", "x"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	s, err := NewFileStore(path)
	require.NoError(t, err)
	exerciseStore(t, s)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "other: x")

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	v, ok, err := reopened.Get(context.Background(), "other")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "x", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))
	s, err := NewFileStore(path)
	require.NoError(t, err)
	_, _, err = s.Get(context.Background(), "k")
	require.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	dsn, err := SQLiteDSNForFile(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("CHATBOX_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHATBOX_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	s, err := DialRedisStore(ctx, addr, "chatbox-test:"+uuid.NewString()+":", time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	exerciseStore(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Config{Backend: "FILE", FilePath: filepath.Join(t.TempDir(), "s.yaml")})
	require.NoError(t, err)
	require.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, Config{Backend: BackendSQLite, SQLitePath: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Backend: BackendRedis})
	require.Error(t, err)

	_, err = Open(ctx, Config{Backend: "etcd"})
	require.Error(t, err)
}
