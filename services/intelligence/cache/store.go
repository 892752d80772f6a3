// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"sync/atomic"
	"time"
)

// =============================================================================
// Lookup Result
// =============================================================================

// LookupState classifies the outcome of a Read.
type LookupState int

const (
	// LookupHit means the entry existed and was decoded into dest.
	LookupHit LookupState = iota
	// LookupMiss means the backend answered and the entry is not there.
	LookupMiss
	// LookupUnavailable means the backend could not answer. Callers that
	// only care about presence treat this like a miss; callers reporting
	// health can tell the difference.
	LookupUnavailable
)

// Lookup is the outcome of a Read. Reads never surface errors to
// business logic; the store degrades an outage to LookupUnavailable and
// keeps the underlying error here for logging and health checks only.
type Lookup struct {
	State LookupState
	Err   error
}

// Found reports whether the read produced a value.
func (l Lookup) Found() bool { return l.State == LookupHit }

// =============================================================================
// Store Interface
// =============================================================================

// Store is the cache contract the rest of the service depends on.
//
// # Description
//
// Store abstracts the Redis-backed production cache and the in-memory
// implementation used in tests and degraded deployments. All operations
// are fail-open: a backend outage yields false, a miss-like Lookup, zero,
// or an empty slice, never an error. Values are JSON-encoded on write and
// decoded on read.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
//
// # Assumptions
//
//   - Key identifiers are already normalized (pkg/validation)
//   - TTLs come from the policy table; callers never choose durations
type Store interface {
	// Write stores value under key with the category's policy TTL.
	// Returns false if the key is invalid, encoding fails, or the
	// backend is unavailable after retries.
	Write(ctx context.Context, key Key, value any) bool

	// Read decodes the entry at key into dest. dest must be a pointer.
	// On anything other than LookupHit, dest is left untouched.
	Read(ctx context.Context, key Key, dest any) Lookup

	// Delete removes the entry at key. Returns true only if an entry
	// was actually removed.
	Delete(ctx context.Context, key Key) bool

	// Increment atomically adds delta to the integer at key, creating
	// it at delta if absent, and returns the new value. Returns 0 when
	// the backend is unavailable.
	Increment(ctx context.Context, key Key, delta int64) int64

	// Keys lists wire keys matching pattern, at most limit entries.
	// The pattern is matched inside the service namespace.
	Keys(ctx context.Context, pattern string, limit int) []string

	// DeletePattern removes every entry matching pattern and returns
	// the number removed.
	DeletePattern(ctx context.Context, pattern string) int64

	// Stats returns operation counters and per-category key counts.
	Stats(ctx context.Context) Stats

	// Health returns backend connectivity and capacity information.
	Health(ctx context.Context) Health

	// Close releases the backend connection pool.
	Close() error
}

// =============================================================================
// Stats and Health
// =============================================================================

// Stats reports cache effectiveness since process start.
type Stats struct {
	Hits           int64              `json:"hits"`
	Misses         int64              `json:"misses"`
	Writes         int64              `json:"writes"`
	Deletes        int64              `json:"deletes"`
	Errors         int64              `json:"errors"`
	HitRate        float64            `json:"hit_rate"`
	KeysByCategory map[Category]int64 `json:"keys_by_category,omitempty"`
}

// Health is a point-in-time backend snapshot.
type Health struct {
	Connected      bool               `json:"connected"`
	PingLatency    time.Duration      `json:"ping_latency_ns"`
	UsedMemory     string             `json:"used_memory,omitempty"`
	TotalKeys      int64              `json:"total_keys"`
	KeysByCategory map[Category]int64 `json:"keys_by_category,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// counters tracks op outcomes shared by both store implementations.
type counters struct {
	hits    atomic.Int64
	misses  atomic.Int64
	writes  atomic.Int64
	deletes atomic.Int64
	errors  atomic.Int64
}

func (c *counters) snapshot() Stats {
	s := Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Writes:  c.writes.Load(),
		Deletes: c.deletes.Load(),
		Errors:  c.errors.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}
