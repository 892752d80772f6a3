// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/cache"
)

// maxKeyListing caps how many keys a single listing request can return.
const maxKeyListing = 100

// HandleCacheEntry reads one cache entry by category and identifier.
// An optional "sub" query selects a sub-key. Misses return 404; a cache
// outage returns 503 so operators can tell the two apart.
func HandleCacheEntry(store cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := entryKey(c)
		if !ok {
			return
		}

		var value any
		lookup := store.Read(c.Request.Context(), key, &value)
		switch lookup.State {
		case cache.LookupHit:
			c.JSON(http.StatusOK, gin.H{"key": key.String(), "value": value})
		case cache.LookupMiss:
			c.JSON(http.StatusNotFound, gin.H{"error": "no such entry"})
		default:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache unavailable"})
		}
	}
}

// HandleCacheDelete removes one cache entry. Deleting an absent entry
// still reports success; delete is idempotent.
func HandleCacheDelete(store cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := entryKey(c)
		if !ok {
			return
		}

		slog.Info("Cache entry delete requested", "key", key.String())
		deleted := store.Delete(c.Request.Context(), key)
		c.JSON(http.StatusOK, gin.H{"status": "success", "key": key.String(), "deleted": deleted})
	}
}

// HandleCacheKeys lists keys matching a glob pattern inside the service
// namespace. The pattern is relative to the namespace prefix; listing is
// capped to keep SCAN traffic bounded.
func HandleCacheKeys(store cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		pattern := c.DefaultQuery("pattern", "*")

		limit := maxKeyListing
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			if parsed < limit {
				limit = parsed
			}
		}

		keys := store.Keys(c.Request.Context(), cache.Namespace+":"+pattern, limit)
		c.JSON(http.StatusOK, gin.H{
			"pattern": pattern,
			"count":   len(keys),
			"keys":    keys,
		})
	}
}

// HandleCacheStats reports hit/miss counters and per-category key counts.
func HandleCacheStats(store cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, store.Stats(c.Request.Context()))
	}
}

// HandleCacheHealth reports backend connectivity and memory usage.
// A disconnected backend is reported with 503 but still carries the
// health payload so dashboards can show the error.
func HandleCacheHealth(store cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		health := store.Health(c.Request.Context())
		status := http.StatusOK
		if !health.Connected {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, health)
	}
}

// entryKey builds and validates the cache key from path and query
// parameters, writing the error response itself on failure.
func entryKey(c *gin.Context) (cache.Key, bool) {
	key := cache.NewKey(cache.Category(c.Param("category")), c.Param("identifier"))
	if sub := c.Query("sub"); sub != "" {
		key = key.WithSub(sub)
	}
	if !key.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cache key: unknown category or malformed identifier"})
		return cache.Key{}, false
	}
	return key, true
}
