// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package intelligence

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestApplyConfigDefaults(t *testing.T) {
	cfg := applyConfigDefaults(Config{})

	if cfg.Port != 12220 {
		t.Errorf("Port = %d, want 12220", cfg.Port)
	}
	if cfg.ReasoningBackends != "openai,anthropic" {
		t.Errorf("ReasoningBackends = %q", cfg.ReasoningBackends)
	}
	if cfg.ResultFreshness != 6*time.Hour {
		t.Errorf("ResultFreshness = %v, want 6h", cfg.ResultFreshness)
	}
	if cfg.JobRetention != 24*time.Hour {
		t.Errorf("JobRetention = %v, want 24h", cfg.JobRetention)
	}
	if cfg.MaxConcurrentSources != 3 {
		t.Errorf("MaxConcurrentSources = %d, want 3", cfg.MaxConcurrentSources)
	}
}

func TestApplyConfigDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := applyConfigDefaults(Config{
		Port:            9999,
		ResultFreshness: time.Hour,
	})

	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want explicit 9999", cfg.Port)
	}
	if cfg.ResultFreshness != time.Hour {
		t.Errorf("ResultFreshness = %v, want explicit 1h", cfg.ResultFreshness)
	}
}

func TestNewServiceWithoutBackends(t *testing.T) {
	// No Redis, no API keys: the service must still come up on the
	// in-memory store with fallback-only analysis.
	svc, err := New(Config{GinMode: "test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestNewServiceRejectsUnknownBackend(t *testing.T) {
	if _, err := New(Config{GinMode: "test", ReasoningBackends: "oracle"}); err == nil {
		t.Error("unknown reasoning backend accepted")
	}
}
