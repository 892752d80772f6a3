// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for TTL tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStoreWriteRead(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	key := NewKey(CategoryAnalysisResults, "aspirin")

	type payload struct {
		Summary string `json:"summary"`
	}

	if !s.Write(ctx, key, payload{Summary: "ok"}) {
		t.Fatal("Write() = false, want true")
	}

	var got payload
	lookup := s.Read(ctx, key, &got)
	if !lookup.Found() {
		t.Fatalf("Read() state = %v, want hit", lookup.State)
	}
	if got.Summary != "ok" {
		t.Errorf("Read() decoded %q, want %q", got.Summary, "ok")
	}
}

func TestMemoryStoreMissLeavesDestUntouched(t *testing.T) {
	s := NewMemoryStore()
	got := map[string]string{"sentinel": "untouched"}

	lookup := s.Read(context.Background(), NewKey(CategoryAISummary, "absent"), &got)
	if lookup.State != LookupMiss {
		t.Fatalf("Read() state = %v, want miss", lookup.State)
	}
	if got["sentinel"] != "untouched" {
		t.Error("Read() modified dest on a miss")
	}
}

func TestMemoryStoreWriteRefusesUnknownCategory(t *testing.T) {
	s := NewMemoryStore()
	if s.Write(context.Background(), NewKey(Category("scratch"), "x"), 1) {
		t.Error("Write() accepted a category outside the policy table")
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStoreWithClock(clock.Now)
	ctx := context.Background()
	key := NewKey(CategoryAnalysisProgress, "job-1")

	if !s.Write(ctx, key, map[string]int{"progress": 40}) {
		t.Fatal("Write() = false, want true")
	}

	var dest map[string]int
	if lookup := s.Read(ctx, key, &dest); !lookup.Found() {
		t.Fatal("entry should be live before its TTL")
	}

	// analysis_progress carries a 5 minute TTL
	clock.Advance(5*time.Minute + time.Second)

	if lookup := s.Read(ctx, key, &dest); lookup.State != LookupMiss {
		t.Errorf("Read() after TTL state = %v, want miss", lookup.State)
	}
}

func TestMemoryStoreCounterHasNoExpiry(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStoreWithClock(clock.Now)
	ctx := context.Background()
	key := NewKey(CategoryUsage, "api_calls")

	if got := s.Increment(ctx, key, 1); got != 1 {
		t.Fatalf("Increment() = %d, want 1", got)
	}

	clock.Advance(365 * 24 * time.Hour)

	if got := s.Increment(ctx, key, 2); got != 3 {
		t.Errorf("Increment() after a year = %d, want 3", got)
	}
}

func TestMemoryStoreIncrement(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	key := NewKey(CategoryErrors, "pubmed")

	if got := s.Increment(ctx, key, 1); got != 1 {
		t.Errorf("first Increment() = %d, want 1", got)
	}
	if got := s.Increment(ctx, key, 4); got != 5 {
		t.Errorf("second Increment() = %d, want 5", got)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	key := NewKey(CategorySessionState, "sess-1")

	s.Write(ctx, key, "state")
	if !s.Delete(ctx, key) {
		t.Error("Delete() = false for existing entry, want true")
	}
	if s.Delete(ctx, key) {
		t.Error("Delete() = true for absent entry, want false")
	}
}

func TestMemoryStoreKeysPattern(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Write(ctx, NewKey(CategoryMedicationInfo, "aspirin"), 1)
	s.Write(ctx, NewKey(CategoryMedicationInfo, "warfarin"), 1)
	s.Write(ctx, NewKey(CategoryAISummary, "aspirin"), 1)

	keys := s.Keys(ctx, CategoryPattern(CategoryMedicationInfo), 100)
	if len(keys) != 2 {
		t.Fatalf("Keys() returned %d entries, want 2: %v", len(keys), keys)
	}

	limited := s.Keys(ctx, NamespacePattern(), 1)
	if len(limited) != 1 {
		t.Errorf("Keys() with limit 1 returned %d entries", len(limited))
	}
}

func TestMemoryStoreDeletePattern(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Write(ctx, NewKey(CategoryFDAValidation, "aspirin"), 1)
	s.Write(ctx, NewKey(CategoryFDAValidation, "ibuprofen"), 1)
	s.Write(ctx, NewKey(CategoryAISummary, "aspirin"), 1)

	removed := s.DeletePattern(ctx, CategoryPattern(CategoryFDAValidation))
	if removed != 2 {
		t.Errorf("DeletePattern() removed %d, want 2", removed)
	}

	var dest int
	if lookup := s.Read(ctx, NewKey(CategoryAISummary, "aspirin"), &dest); !lookup.Found() {
		t.Error("DeletePattern() removed an entry outside its pattern")
	}
}

func TestMemoryStoreStats(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	key := NewKey(CategoryAnalysisResults, "aspirin")

	s.Write(ctx, key, "v")
	var dest string
	s.Read(ctx, key, &dest)                                     // hit
	s.Read(ctx, NewKey(CategoryAnalysisResults, "nope"), &dest) // miss

	stats := s.Stats(ctx)
	if stats.Hits != 1 || stats.Misses != 1 || stats.Writes != 1 {
		t.Errorf("Stats() = hits %d misses %d writes %d, want 1/1/1",
			stats.Hits, stats.Misses, stats.Writes)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("Stats() hit rate = %v, want 0.5", stats.HitRate)
	}
	if stats.KeysByCategory[CategoryAnalysisResults] != 1 {
		t.Errorf("Stats() category count = %d, want 1",
			stats.KeysByCategory[CategoryAnalysisResults])
	}
}

func TestMemoryStoreHealth(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.Write(ctx, NewKey(CategoryAISummary, "a"), 1)
	s.Write(ctx, NewKey(CategoryAISummary, "b"), 1)

	h := s.Health(ctx)
	if !h.Connected {
		t.Error("Health().Connected = false for in-memory store")
	}
	if h.TotalKeys != 2 {
		t.Errorf("Health().TotalKeys = %d, want 2", h.TotalKeys)
	}
}
