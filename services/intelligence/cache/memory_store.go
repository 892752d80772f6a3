// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"encoding/json"
	"path"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements Store on a process-local map.
//
// It backs tests and deployments that run without Redis. Semantics match
// RedisStore: values are JSON round-tripped, TTLs come from the policy
// table, expiry is checked lazily on access. The clock is injectable so
// expiry behavior is testable without sleeping.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time

	counters counters
}

type memoryEntry struct {
	payload   []byte
	category  Category
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an empty in-memory store on the real clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock creates a store whose notion of now comes from
// the given function. Tests advance a fake clock instead of sleeping
// through TTLs.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     now,
	}
}

func (s *MemoryStore) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

// Write stores value under key with the category's policy TTL.
func (s *MemoryStore) Write(_ context.Context, key Key, value any) bool {
	if !key.Valid() {
		return false
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return false
	}

	e := memoryEntry{payload: payload, category: key.Category}
	if ttl, _ := TTLFor(key.Category); ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[key.String()] = e
	s.mu.Unlock()

	s.counters.writes.Add(1)
	return true
}

// Read decodes the entry at key into dest.
func (s *MemoryStore) Read(_ context.Context, key Key, dest any) Lookup {
	s.mu.RLock()
	e, ok := s.entries[key.String()]
	s.mu.RUnlock()

	if !ok || s.expired(e) {
		if ok {
			s.mu.Lock()
			delete(s.entries, key.String())
			s.mu.Unlock()
		}
		s.counters.misses.Add(1)
		return Lookup{State: LookupMiss}
	}

	if err := json.Unmarshal(e.payload, dest); err != nil {
		s.counters.errors.Add(1)
		return Lookup{State: LookupMiss, Err: err}
	}
	s.counters.hits.Add(1)
	return Lookup{State: LookupHit}
}

// Delete removes the entry at key.
func (s *MemoryStore) Delete(_ context.Context, key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key.String()]
	if !ok {
		return false
	}
	delete(s.entries, key.String())
	if s.expired(e) {
		return false
	}
	s.counters.deletes.Add(1)
	return true
}

// Increment adds delta to the integer at key, creating it if absent.
func (s *MemoryStore) Increment(_ context.Context, key Key, delta int64) int64 {
	if !key.Valid() {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if e, ok := s.entries[key.String()]; ok && !s.expired(e) {
		// Ignore decode failures; a non-numeric entry restarts at delta
		// the way Redis INCR would error but our fail-open contract
		// still needs a usable counter.
		_ = json.Unmarshal(e.payload, &current)
	}
	current += delta

	payload, _ := json.Marshal(current)
	e := memoryEntry{payload: payload, category: key.Category}
	if ttl, _ := TTLFor(key.Category); ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key.String()] = e
	return current
}

// Keys lists keys matching pattern, at most limit entries.
func (s *MemoryStore) Keys(_ context.Context, pattern string, limit int) []string {
	if limit <= 0 {
		limit = 100
	}
	if !strings.HasPrefix(pattern, Namespace+":") {
		pattern = Namespace + ":" + pattern
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k, e := range s.entries {
		if s.expired(e) {
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
			if len(keys) >= limit {
				break
			}
		}
	}
	return keys
}

// DeletePattern removes every live entry matching pattern.
func (s *MemoryStore) DeletePattern(_ context.Context, pattern string) int64 {
	if !strings.HasPrefix(pattern, Namespace+":") {
		pattern = Namespace + ":" + pattern
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for k, e := range s.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(s.entries, k)
			if !s.expired(e) {
				removed++
			}
		}
	}
	s.counters.deletes.Add(removed)
	return removed
}

// Stats returns operation counters plus per-category key counts.
func (s *MemoryStore) Stats(_ context.Context) Stats {
	stats := s.counters.snapshot()
	stats.KeysByCategory = s.countByCategory()
	return stats
}

// Health reports the in-memory footprint. Always connected.
func (s *MemoryStore) Health(_ context.Context) Health {
	h := Health{
		Connected:      true,
		KeysByCategory: s.countByCategory(),
	}
	for _, n := range h.KeysByCategory {
		h.TotalKeys += n
	}
	return h
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) countByCategory() map[Category]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[Category]int64, len(ttlPolicy))
	for _, e := range s.entries {
		if s.expired(e) {
			continue
		}
		counts[e.category]++
	}
	return counts
}

var _ Store = (*MemoryStore)(nil)
