// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyze

import (
	"context"
	"strings"
	"testing"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/cache"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
	"github.com/MedInsightAI/MedInsightHub/services/reasoning"
)

const interactionOutput = `{"severity": "major", "interactions": ["bleeding risk"], "guidance": "avoid combination"}`

func TestAnalyzeInteractionsRequiresTwoMedications(t *testing.T) {
	a := NewAnalyzer(staticReasoner(interactionOutput, "primary"), cache.NewMemoryStore())

	if _, err := a.AnalyzeInteractions(context.Background(), []string{"aspirin"}); err == nil {
		t.Error("accepted a single medication")
	}
	// Duplicates collapse to one
	if _, err := a.AnalyzeInteractions(context.Background(), []string{"aspirin", "Aspirin"}); err == nil {
		t.Error("accepted duplicates of one medication")
	}
}

func TestAnalyzeInteractionsMemoizesOrderIndependently(t *testing.T) {
	store := cache.NewMemoryStore()
	calls := 0
	reasoner := reasonerFunc(func(context.Context, string, reasoning.GenerationParams) (string, string, error) {
		calls++
		return interactionOutput, "primary", nil
	})
	a := NewAnalyzer(reasoner, store)

	first, err := a.AnalyzeInteractions(context.Background(), []string{"Warfarin", "aspirin"})
	if err != nil {
		t.Fatalf("first call error: %v", err)
	}
	second, err := a.AnalyzeInteractions(context.Background(), []string{"ASPIRIN", "warfarin "})
	if err != nil {
		t.Fatalf("second call error: %v", err)
	}

	if calls != 1 {
		t.Errorf("reasoner invoked %d times, want 1 (reordered request must hit cache)", calls)
	}
	if first.Severity != "major" || second.Severity != "major" {
		t.Errorf("severities = %q/%q, want major", first.Severity, second.Severity)
	}
	if strings.Join(first.Medications, ",") != "aspirin,warfarin" {
		t.Errorf("medications not canonical: %v", first.Medications)
	}
}

func TestAnalyzeInteractionsFallbackNotMemoized(t *testing.T) {
	store := cache.NewMemoryStore()
	calls := 0
	reasoner := reasonerFunc(func(context.Context, string, reasoning.GenerationParams) (string, string, error) {
		calls++
		if calls == 1 {
			return "", "", context.DeadlineExceeded
		}
		return interactionOutput, "primary", nil
	})
	a := NewAnalyzer(reasoner, store)

	first, err := a.AnalyzeInteractions(context.Background(), []string{"aspirin", "warfarin"})
	if err != nil {
		t.Fatalf("first call error: %v", err)
	}
	if !first.Fallback {
		t.Fatal("first call should have fallen back")
	}

	second, err := a.AnalyzeInteractions(context.Background(), []string{"aspirin", "warfarin"})
	if err != nil {
		t.Fatalf("second call error: %v", err)
	}
	if second.Fallback {
		t.Error("second call replayed the fallback; fallback reports must not be memoized")
	}
	if calls != 2 {
		t.Errorf("reasoner invoked %d times, want 2", calls)
	}
}

func TestAnalyzeInteractionsLongListUsesFingerprint(t *testing.T) {
	meds := []string{
		"acetylsalicylic_acid_extended_release", "warfarin_sodium_crystalline",
		"esomeprazole_magnesium_trihydrate", "rosuvastatin_calcium_tablets",
		"metformin_hydrochloride_extended", "lisinopril_dihydrate_oral",
	}
	if got := interactionIdentifier(meds); len(got) != 16 {
		t.Errorf("long list identifier = %q (len %d), want 16-char fingerprint", got, len(got))
	}

	short := interactionIdentifier([]string{"aspirin", "warfarin"})
	if short != "aspirin_warfarin" {
		t.Errorf("short list identifier = %q, want joined form", short)
	}
}

func TestAnalyzeHealthProfileCachesEquivalentRequests(t *testing.T) {
	store := cache.NewMemoryStore()
	calls := 0
	reasoner := reasonerFunc(func(context.Context, string, reasoning.GenerationParams) (string, string, error) {
		calls++
		return `{"risk_factors": ["age"], "recommendations": ["exercise"]}`, "primary", nil
	})
	a := NewAnalyzer(reasoner, store)

	reqA := datatypes.HealthProfileRequest{Age: 60, Medications: []string{"Aspirin", "warfarin"}}
	reqB := datatypes.HealthProfileRequest{Age: 60, Medications: []string{"warfarin", "aspirin"}}

	if _, err := a.AnalyzeHealthProfile(context.Background(), reqA); err != nil {
		t.Fatalf("first profile error: %v", err)
	}
	if _, err := a.AnalyzeHealthProfile(context.Background(), reqB); err != nil {
		t.Fatalf("second profile error: %v", err)
	}

	if calls != 1 {
		t.Errorf("reasoner invoked %d times, want 1 (equivalent profiles share a cache entry)", calls)
	}
}

func TestAnalyzeHealthProfileRejectsImplausibleAge(t *testing.T) {
	a := NewAnalyzer(staticReasoner("{}", "primary"), cache.NewMemoryStore())

	if _, err := a.AnalyzeHealthProfile(context.Background(), datatypes.HealthProfileRequest{Age: 0}); err == nil {
		t.Error("accepted age 0")
	}
	if _, err := a.AnalyzeHealthProfile(context.Background(), datatypes.HealthProfileRequest{Age: 200}); err == nil {
		t.Error("accepted age 200")
	}
}
