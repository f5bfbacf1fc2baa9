package store

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s := Open(filepath.Join(t.TempDir(), "store.toml"))
	t.Cleanup(s.Close)
	return s
}

func TestGetMissingFile(t *testing.T) {
	s := openTemp(t)
	assert.Equal(t, "", s.Get("api_key"))
}

func TestSetThenGet(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Set("api_key", "sk-test"))
	assert.Equal(t, "sk-test", s.Get("api_key"))

	// A fresh store over the same file reads it from disk.
	other := Open(s.Path())
	defer other.Close()
	assert.Equal(t, "sk-test", other.Get("api_key"))
}

func TestSetInvalidatesCachedMiss(t *testing.T) {
	s := openTemp(t)

	assert.Equal(t, "", s.Get("debug"))
	require.NoError(t, s.Set("debug", "true"))
	assert.Equal(t, "true", s.Get("debug"))
}

func TestDelete(t *testing.T) {
	s := openTemp(t)

	require.NoError(t, s.Set("api_key", "sk-test"))
	require.NoError(t, s.Set("debug", "true"))
	require.NoError(t, s.Delete("api_key"))

	assert.Equal(t, "", s.Get("api_key"))
	assert.Equal(t, "true", s.Get("debug"))

	require.NoError(t, s.Delete("never-set"))
}

func TestFileIsPrivate(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Set("api_key", "sk-test"))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestExternalEditVisibleAfterExpiry(t *testing.T) {
	c := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](time.Millisecond),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go c.Start()
	s := &Store{path: filepath.Join(t.TempDir(), "store.toml"), cache: c}
	defer s.Close()

	assert.Equal(t, "", s.Get("debug"))

	require.NoError(t, os.WriteFile(s.Path(), []byte("debug = \"true\"\n"), 0o600))
	time.Sleep(10 * time.Millisecond)

	assert.Equal(t, "true", s.Get("debug"))
}

func TestGetCorruptFile(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("not = [valid"), 0o600))

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	assert.Equal(t, "", s.Get("api_key"))
	assert.Contains(t, logs.String(), "read store")
	assert.Contains(t, logs.String(), s.Path())
	assert.Error(t, s.Set("api_key", "x"))
}
