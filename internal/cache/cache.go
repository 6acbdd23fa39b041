// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache persists search result sets on disk so repeated queries are
// idempotent and skip redundant network calls. One JSON file per cache key;
// entries live until an explicit clear (no TTL).
package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/deep-research/pkg/types"
)

const entryExt = ".json"

// Cache is a durable key-value store for SearchResultSets. Writes are atomic
// per key (temp file + rename), so concurrent backend fetches within one
// aggregator call never observe partial entries.
type Cache struct {
	dir string
}

// New resolves and creates the cache root directory.
func New(cfg types.CacheConfig) (*Cache, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "cache"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string { return c.dir }

// Key derives the deterministic cache key for a query against a backend.
// The fingerprint covers the backend identifier and every normalized query
// field, so the same text against different backends never collides.
func Key(q types.SearchQuery, backend types.BackendID) string {
	n := q.Normalized()
	canonical := strings.Join([]string{
		string(backend),
		n.Text,
		fmt.Sprintf("exact=%t", n.ExactPhrase),
		"filter=" + n.FilterField,
		fmt.Sprintf("max=%d", n.MaxResults),
	}, "|")
	return fmt.Sprintf("%x", sha256.Sum256([]byte(canonical)))[:32]
}

// Get loads the entry for key. It returns false on a missing entry, and also
// on an unreadable or corrupt file: a cache-read fault degrades to a forced
// miss rather than aborting the caller.
func (c *Cache) Get(key string) (types.CacheEntry, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return types.CacheEntry{}, false
	}
	var entry types.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return types.CacheEntry{}, false
	}
	return entry, true
}

// Put stores payload under key. The entry is written to a temp file and
// renamed into place, so a cancelled or crashed write never leaves a partial
// entry. Writing an existing key overwrites it.
func (c *Cache) Put(key string, payload types.SearchResultSet) error {
	entry := types.CacheEntry{
		Key:       key,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing cache temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("storing cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry and returns how many were deleted. A missing
// cache directory is not an error; Clear reports zero removals.
func (c *Cache) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache directory %s: %w", c.dir, err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), entryExt) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("removing cache entry %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// Len counts the stored entries.
func (c *Cache) Len() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading cache directory %s: %w", c.dir, err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), entryExt) {
			n++
		}
	}
	return n, nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+entryExt)
}
