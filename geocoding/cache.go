// Copyright 2026 The CollegeLinks Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"crypto/md5" // #nosec G501 - cache key derivation, not security
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// cacheTTL is how long a cached result stays valid. Expiry is lazy: stale
// entries are ignored on read, never deleted.
const cacheTTL = 30 * 24 * time.Hour

type cacheEntry struct {
	Result    *Result   `json:"result"`
	Timestamp time.Time `json:"timestamp"`
}

// Cache is a persistent store of resolved results keyed by a hash of the
// case-folded address. Every write rewrites the backing file before
// returning. The cache is an optimization, never a correctness dependency:
// a corrupt or missing file degrades to an empty cache.
type Cache struct {
	mu      sync.Mutex
	path    string
	entries map[string]cacheEntry
}

// NewCache loads the cache from path, creating parent directories as
// needed. Load failures are logged and degrade to an empty cache.
func NewCache(path string) *Cache {
	c := &Cache{
		path:    path,
		entries: make(map[string]cacheEntry),
	}

	data, err := os.ReadFile(path) // #nosec G304 - path is provided by the operator
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Error loading geocoding cache from %s: %v", path, err)
		}

		return c
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		log.Printf("Corrupt geocoding cache at %s, starting empty: %v", path, err)
		c.entries = make(map[string]cacheEntry)
	}

	return c
}

// cacheKey hashes the case-folded address into a stable key.
func cacheKey(address string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(address)))) // #nosec G401

	return hex.EncodeToString(sum[:])
}

// Get returns the cached result for the address, or false when no entry
// exists or the entry is older than the TTL. Callers receive a copy.
func (c *Cache) Get(address string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cacheKey(address)]
	if !ok {
		return nil, false
	}

	if time.Since(entry.Timestamp) >= cacheTTL {
		return nil, false
	}

	return entry.Result.clone(), true
}

// Put stores the result under the address, stamping it with the current
// time and persisting the whole store before returning. Prior entries for
// the same key are overwritten.
func (c *Cache) Put(address string, result *Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(address)] = cacheEntry{
		Result:    result.clone(),
		Timestamp: time.Now(),
	}

	return c.persist()
}

// Len returns the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// persist writes the store to a temporary file and renames it into place,
// so a crash mid-write can lose at most the in-flight entry.
func (c *Cache) persist() error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating cache directory: %w", err)
		}
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing cache: %w", err)
	}

	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}

	return nil
}

// clone deep-copies a result so cached values stay immutable after write.
func (r *Result) clone() *Result {
	if r == nil {
		return nil
	}

	out := *r

	if r.Point != nil {
		p := *r.Point
		out.Point = &p
	}

	if r.Components != nil {
		out.Components = make([]Component, len(r.Components))
		copy(out.Components, r.Components)
	}

	return &out
}
