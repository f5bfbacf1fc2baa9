// Package store persists small string values (the API key, the debug flag)
// in a TOML file under the inkling config directory.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jellydator/ttlcache/v3"
)

// readTTL bounds how stale a cached read can be. Writes made through the
// same Store invalidate immediately; edits from other processes show up
// after at most readTTL.
const readTTL = 2 * time.Second

// Store is a file-backed key/value store. Reads are served from a short-lived
// cache so the debug flag can be consulted on every request without touching
// the disk each time.
type Store struct {
	path  string
	cache *ttlcache.Cache[string, string]

	mu sync.Mutex // serializes file writes
}

// Open returns a Store backed by the TOML file at path. The file is created
// on the first Set.
func Open(path string) *Store {
	c := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](readTTL),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go c.Start()
	return &Store{path: path, cache: c}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Close stops the cache expiration loop.
func (s *Store) Close() {
	s.cache.Stop()
}

// Get returns the value stored under key, or "" when it is absent or the
// file cannot be read.
func (s *Store) Get(key string) string {
	if item := s.cache.Get(key); item != nil {
		return item.Value()
	}

	values, err := s.load()
	if err != nil {
		slog.Warn("read store", "path", s.path, "error", err)
		return ""
	}
	for k, v := range values {
		s.cache.Set(k, v, ttlcache.DefaultTTL)
	}
	// Cache misses too, so an unset key stays cheap to poll.
	v := values[key]
	s.cache.Set(key, v, ttlcache.DefaultTTL)
	return v
}

// Set stores value under key and rewrites the file.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	if err := s.write(values); err != nil {
		return err
	}
	s.cache.Set(key, value, ttlcache.DefaultTTL)
	return nil
}

// Delete removes key and rewrites the file. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		s.cache.Delete(key)
		return nil
	}
	delete(values, key)
	if err := s.write(values); err != nil {
		return err
	}
	s.cache.Delete(key)
	return nil
}

func (s *Store) load() (map[string]string, error) {
	values := make(map[string]string)
	if _, err := toml.DecodeFile(s.path, &values); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return values, nil
		}
		return nil, fmt.Errorf("read store %s: %w", s.path, err)
	}
	return values, nil
}

// write replaces the file atomically. The store may hold an API key, so it
// is created 0600.
func (s *Store) write(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".store-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := toml.NewEncoder(tmp).Encode(values); err != nil {
		tmp.Close()
		return fmt.Errorf("encode store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
