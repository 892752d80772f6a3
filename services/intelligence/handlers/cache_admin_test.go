// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/cache"
)

func cacheRouter(store cache.Store) *gin.Engine {
	router := gin.New()
	admin := router.Group("/v1/cache")
	admin.GET("/entry/:category/:identifier", HandleCacheEntry(store))
	admin.DELETE("/entry/:category/:identifier", HandleCacheDelete(store))
	admin.GET("/keys", HandleCacheKeys(store))
	admin.GET("/stats", HandleCacheStats(store))
	admin.GET("/health", HandleCacheHealth(store))
	return router
}

func TestCacheEntryReadHitAndMiss(t *testing.T) {
	store := cache.NewMemoryStore()
	store.Write(context.Background(), cache.NewKey(cache.CategoryMedicationInfo, "aspirin"), map[string]string{"brand": "Bayer"})
	router := cacheRouter(store)

	w := performRequest(router, http.MethodGet, "/v1/cache/entry/medication_info/aspirin", "")
	if w.Code != http.StatusOK {
		t.Fatalf("hit status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Key   string         `json:"key"`
		Value map[string]any `json:"value"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Key != "medinsight:medication_info:aspirin" {
		t.Errorf("key = %q", resp.Key)
	}
	if resp.Value["brand"] != "Bayer" {
		t.Errorf("value = %v", resp.Value)
	}

	w = performRequest(router, http.MethodGet, "/v1/cache/entry/medication_info/ibuprofen", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("miss status = %d, want 404", w.Code)
	}
}

func TestCacheEntryRejectsUnknownCategory(t *testing.T) {
	router := cacheRouter(cache.NewMemoryStore())

	w := performRequest(router, http.MethodGet, "/v1/cache/entry/not_a_category/aspirin", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCacheEntrySubKey(t *testing.T) {
	store := cache.NewMemoryStore()
	key := cache.NewKey(cache.CategorySessionState, "job-1").WithSub("progress")
	store.Write(context.Background(), key, 40)
	router := cacheRouter(store)

	w := performRequest(router, http.MethodGet, "/v1/cache/entry/session_state/job-1?sub=progress", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestCacheDeleteIsIdempotent(t *testing.T) {
	store := cache.NewMemoryStore()
	store.Write(context.Background(), cache.NewKey(cache.CategoryAISummary, "aspirin"), "s")
	router := cacheRouter(store)

	w := performRequest(router, http.MethodDelete, "/v1/cache/entry/ai_summary/aspirin", "")
	if w.Code != http.StatusOK {
		t.Fatalf("first delete status = %d", w.Code)
	}

	w = performRequest(router, http.MethodDelete, "/v1/cache/entry/ai_summary/aspirin", "")
	if w.Code != http.StatusOK {
		t.Errorf("second delete status = %d, want 200", w.Code)
	}
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Deleted {
		t.Error("second delete reported an entry removed")
	}
}

func TestCacheKeysListingCapped(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	store.Write(ctx, cache.NewKey(cache.CategoryAISummary, "a"), 1)
	store.Write(ctx, cache.NewKey(cache.CategoryAISummary, "b"), 1)
	store.Write(ctx, cache.NewKey(cache.CategoryMedicationInfo, "a"), 1)
	router := cacheRouter(store)

	w := performRequest(router, http.MethodGet, "/v1/cache/keys?pattern=ai_summary:*", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Count int      `json:"count"`
		Keys  []string `json:"keys"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2: %v", resp.Count, resp.Keys)
	}

	w = performRequest(router, http.MethodGet, "/v1/cache/keys?pattern=ai_summary:*&limit=1", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("limited count = %d, want 1", resp.Count)
	}

	w = performRequest(router, http.MethodGet, "/v1/cache/keys?limit=zero", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", w.Code)
	}
}

func TestCacheStatsEndpoint(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	store.Write(ctx, cache.NewKey(cache.CategoryAISummary, "a"), "s")
	var dest string
	store.Read(ctx, cache.NewKey(cache.CategoryAISummary, "a"), &dest)
	router := cacheRouter(store)

	w := performRequest(router, http.MethodGet, "/v1/cache/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var stats cache.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Writes != 1 || stats.Hits != 1 {
		t.Errorf("stats = %+v, want 1 write and 1 hit", stats)
	}
}

func TestCacheHealthEndpoint(t *testing.T) {
	router := cacheRouter(cache.NewMemoryStore())

	w := performRequest(router, http.MethodGet, "/v1/cache/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var health cache.Health
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !health.Connected {
		t.Error("memory store reported disconnected")
	}
}
