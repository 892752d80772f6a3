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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/observability"
)

// =============================================================================
// Configuration
// =============================================================================

// RedisConfig holds connection and retry settings for the Redis store.
//
// # Description
//
// Zero values get defaults from applyRedisDefaults. URL accepts the
// redis:// form; Password and DB override whatever the URL carries when
// set explicitly.
type RedisConfig struct {
	// URL is the redis:// connection string. Default: redis://localhost:6379
	URL string

	// Password overrides the URL password when non-empty.
	Password string

	// DB overrides the URL database index when non-zero.
	DB int

	// PoolSize is the connection pool size. Default: 10
	PoolSize int

	// ConnectAttempts is how many pings to try at startup. Default: 3
	ConnectAttempts int

	// ConnectBaseDelay is the first retry delay at startup, doubled on
	// each subsequent attempt. Default: 500ms
	ConnectBaseDelay time.Duration

	// OpAttempts is how many times each operation is tried. Default: 3
	OpAttempts int

	// OpBaseDelay is the first per-operation retry delay, doubled on
	// each subsequent attempt. Default: 100ms
	OpBaseDelay time.Duration

	// OpTimeout bounds each individual backend call. Default: 2s
	OpTimeout time.Duration
}

func applyRedisDefaults(cfg RedisConfig) RedisConfig {
	if cfg.URL == "" {
		cfg.URL = "redis://localhost:6379"
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10
	}
	if cfg.ConnectAttempts == 0 {
		cfg.ConnectAttempts = 3
	}
	if cfg.ConnectBaseDelay == 0 {
		cfg.ConnectBaseDelay = 500 * time.Millisecond
	}
	if cfg.OpAttempts == 0 {
		cfg.OpAttempts = 3
	}
	if cfg.OpBaseDelay == 0 {
		cfg.OpBaseDelay = 100 * time.Millisecond
	}
	if cfg.OpTimeout == 0 {
		cfg.OpTimeout = 2 * time.Second
	}
	return cfg
}

// =============================================================================
// Implementation
// =============================================================================

// RedisStore implements Store on a Redis connection pool.
//
// # Description
//
// Every operation runs through a bounded retry loop with doubling delays.
// Before the final attempt the client is rebuilt, which recovers from
// dropped pools and failovers that a plain retry would not. When all
// attempts fail the operation degrades to its fail-open zero result and
// the error is only logged and counted.
//
// # Thread Safety
//
// Safe for concurrent use. The client pointer is guarded by mu so a
// reconnect does not race in-flight operations picking up the client.
type RedisStore struct {
	cfg  RedisConfig
	opts *redis.Options

	mu     sync.RWMutex
	client *redis.Client

	counters counters
}

// NewRedisStore builds the store and verifies connectivity.
//
// # Description
//
// Parses the URL, builds the pool, and pings with bounded retries. A
// failed ping is not fatal: the store comes up degraded and operations
// keep retrying against the backend as they run. Only an unparseable
// URL returns an error.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	cfg = applyRedisDefaults(cfg)

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	opts.PoolSize = cfg.PoolSize

	s := &RedisStore{
		cfg:    cfg,
		opts:   opts,
		client: redis.NewClient(opts),
	}

	if err := s.connectWithRetry(context.Background()); err != nil {
		slog.Warn("Redis unreachable at startup, cache running degraded",
			"url", cfg.URL,
			"error", err)
	} else {
		slog.Info("Connected to Redis", "url", cfg.URL, "pool_size", cfg.PoolSize)
	}

	return s, nil
}

// connectWithRetry pings the backend with doubling delays.
func (s *RedisStore) connectWithRetry(ctx context.Context) error {
	delay := s.cfg.ConnectBaseDelay
	var err error
	for attempt := 1; attempt <= s.cfg.ConnectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
		err = s.getClient().Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return nil
		}
		if attempt < s.cfg.ConnectAttempts {
			slog.Warn("Redis ping failed, retrying",
				"attempt", attempt,
				"delay", delay.String(),
				"error", err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}
	return err
}

func (s *RedisStore) getClient() *redis.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// reconnect rebuilds the client from the saved options. Used before the
// last retry attempt so a wedged pool does not fail operations forever.
func (s *RedisStore) reconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.client.Close(); err != nil {
		slog.Debug("closing stale redis client", "error", err)
	}
	s.client = redis.NewClient(s.opts)
	slog.Info("Rebuilt Redis client after repeated failures")
}

// withRetry runs fn with bounded retries, doubling delays, and a client
// rebuild before the final attempt. redis.Nil is a definitive answer,
// not a failure, and is returned immediately.
func (s *RedisStore) withRetry(ctx context.Context, op string, fn func(ctx context.Context, c *redis.Client) error) error {
	delay := s.cfg.OpBaseDelay
	var err error
	for attempt := 1; attempt <= s.cfg.OpAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
		err = fn(opCtx, s.getClient())
		cancel()
		if err == nil || errors.Is(err, redis.Nil) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt < s.cfg.OpAttempts {
			if attempt == s.cfg.OpAttempts-1 {
				s.reconnect()
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return err
			}
			delay *= 2
		}
	}
	s.counters.errors.Add(1)
	observability.RecordCacheError(op)
	slog.Error("Redis operation failed after retries",
		"op", op,
		"attempts", s.cfg.OpAttempts,
		"error", err)
	return err
}

// =============================================================================
// Store Interface Methods
// =============================================================================

// Write stores value under key with the category's policy TTL.
func (s *RedisStore) Write(ctx context.Context, key Key, value any) bool {
	if !key.Valid() {
		slog.Warn("Refusing cache write for invalid key",
			"category", string(key.Category),
			"identifier", key.Identifier)
		return false
	}
	ttl, _ := TTLFor(key.Category)

	payload, err := json.Marshal(value)
	if err != nil {
		slog.Error("Failed to encode cache value", "key", key.String(), "error", err)
		return false
	}

	err = s.withRetry(ctx, "write", func(ctx context.Context, c *redis.Client) error {
		return c.Set(ctx, key.String(), payload, ttl).Err()
	})
	if err != nil {
		return false
	}
	s.counters.writes.Add(1)
	observability.RecordCacheOp("write", string(key.Category))
	return true
}

// Read decodes the entry at key into dest.
func (s *RedisStore) Read(ctx context.Context, key Key, dest any) Lookup {
	var raw string
	err := s.withRetry(ctx, "read", func(ctx context.Context, c *redis.Client) error {
		v, err := c.Get(ctx, key.String()).Result()
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if errors.Is(err, redis.Nil) {
		s.counters.misses.Add(1)
		observability.RecordCacheOp("miss", string(key.Category))
		return Lookup{State: LookupMiss}
	}
	if err != nil {
		return Lookup{State: LookupUnavailable, Err: err}
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		// A corrupt entry is worse than a miss: drop it so the next
		// write starts clean.
		slog.Warn("Dropping undecodable cache entry", "key", key.String(), "error", err)
		s.Delete(ctx, key)
		s.counters.errors.Add(1)
		return Lookup{State: LookupMiss, Err: err}
	}

	s.counters.hits.Add(1)
	observability.RecordCacheOp("hit", string(key.Category))
	return Lookup{State: LookupHit}
}

// Delete removes the entry at key.
func (s *RedisStore) Delete(ctx context.Context, key Key) bool {
	var removed int64
	err := s.withRetry(ctx, "delete", func(ctx context.Context, c *redis.Client) error {
		n, err := c.Unlink(ctx, key.String()).Result()
		if err != nil {
			return err
		}
		removed = n
		return nil
	})
	if err != nil || removed == 0 {
		return false
	}
	s.counters.deletes.Add(1)
	observability.RecordCacheOp("delete", string(key.Category))
	return true
}

// Increment atomically adds delta to the counter at key.
func (s *RedisStore) Increment(ctx context.Context, key Key, delta int64) int64 {
	if !key.Valid() {
		return 0
	}
	var value int64
	err := s.withRetry(ctx, "increment", func(ctx context.Context, c *redis.Client) error {
		n, err := c.IncrBy(ctx, key.String(), delta).Result()
		if err != nil {
			return err
		}
		value = n
		return nil
	})
	if err != nil {
		return 0
	}
	// Counters with a policy TTL refresh it on every bump so active
	// counters stay alive and idle ones age out.
	if ttl, _ := TTLFor(key.Category); ttl > 0 {
		_ = s.withRetry(ctx, "expire", func(ctx context.Context, c *redis.Client) error {
			return c.Expire(ctx, key.String(), ttl).Err()
		})
	}
	return value
}

// Keys lists wire keys matching pattern inside the namespace.
func (s *RedisStore) Keys(ctx context.Context, pattern string, limit int) []string {
	if limit <= 0 {
		limit = 100
	}
	if !strings.HasPrefix(pattern, Namespace+":") {
		pattern = Namespace + ":" + pattern
	}

	var keys []string
	err := s.withRetry(ctx, "keys", func(ctx context.Context, c *redis.Client) error {
		keys = keys[:0]
		iter := c.Scan(ctx, 0, pattern, int64(limit)).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
			if len(keys) >= limit {
				break
			}
		}
		return iter.Err()
	})
	if err != nil {
		return nil
	}
	return keys
}

// DeletePattern removes every entry matching pattern.
func (s *RedisStore) DeletePattern(ctx context.Context, pattern string) int64 {
	if !strings.HasPrefix(pattern, Namespace+":") {
		pattern = Namespace + ":" + pattern
	}

	var removed int64
	err := s.withRetry(ctx, "delete_pattern", func(ctx context.Context, c *redis.Client) error {
		iter := c.Scan(ctx, 0, pattern, 200).Iterator()
		batch := make([]string, 0, 200)
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == cap(batch) {
				n, err := c.Unlink(ctx, batch...).Result()
				if err != nil {
					return err
				}
				removed += n
				batch = batch[:0]
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
		if len(batch) > 0 {
			n, err := c.Unlink(ctx, batch...).Result()
			if err != nil {
				return err
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		return 0
	}
	s.counters.deletes.Add(removed)
	return removed
}

// Stats returns operation counters plus per-category key counts.
func (s *RedisStore) Stats(ctx context.Context) Stats {
	stats := s.counters.snapshot()
	stats.KeysByCategory = s.countByCategory(ctx)
	return stats
}

// Health pings the backend and reports memory and key footprint.
func (s *RedisStore) Health(ctx context.Context) Health {
	h := Health{KeysByCategory: map[Category]int64{}}

	pingCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()

	start := time.Now()
	if err := s.getClient().Ping(pingCtx).Err(); err != nil {
		h.Error = err.Error()
		return h
	}
	h.Connected = true
	h.PingLatency = time.Since(start)

	if info, err := s.getClient().Info(pingCtx, "memory").Result(); err == nil {
		h.UsedMemory = parseInfoField(info, "used_memory_human")
	}

	h.KeysByCategory = s.countByCategory(ctx)
	for _, n := range h.KeysByCategory {
		h.TotalKeys += n
	}
	return h
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.getClient().Close()
}

// countByCategory scans each category's pattern and counts matches.
func (s *RedisStore) countByCategory(ctx context.Context) map[Category]int64 {
	counts := make(map[Category]int64, len(ttlPolicy))
	for _, category := range Categories() {
		var n int64
		err := s.withRetry(ctx, "count", func(ctx context.Context, c *redis.Client) error {
			n = 0
			iter := c.Scan(ctx, 0, CategoryPattern(category), 500).Iterator()
			for iter.Next(ctx) {
				n++
			}
			return iter.Err()
		})
		if err != nil {
			continue
		}
		counts[category] = n
	}
	return counts
}

// parseInfoField pulls one field out of a Redis INFO block.
func parseInfoField(info, field string) string {
	for _, line := range strings.Split(info, "\r\n") {
		if v, ok := strings.CutPrefix(line, field+":"); ok {
			return v
		}
	}
	return ""
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Store = (*RedisStore)(nil)
