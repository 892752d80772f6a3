// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package analyze

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/cache"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
	"github.com/MedInsightAI/MedInsightHub/services/reasoning"
)

// reasonerFunc adapts a function to TierReasoner for tests.
type reasonerFunc func(ctx context.Context, prompt string, params reasoning.GenerationParams) (string, string, error)

func (f reasonerFunc) GenerateWithTier(ctx context.Context, prompt string, params reasoning.GenerationParams) (string, string, error) {
	return f(ctx, prompt, params)
}

func staticReasoner(text, tier string) reasonerFunc {
	return func(context.Context, string, reasoning.GenerationParams) (string, string, error) {
		return text, tier, nil
	}
}

func failingReasoner() reasonerFunc {
	return func(context.Context, string, reasoning.GenerationParams) (string, string, error) {
		return "", "", fmt.Errorf("all reasoning tiers failed")
	}
}

func testAggregate() datatypes.AggregatedSources {
	return datatypes.AggregatedSources{
		FDA: &datatypes.FDAInfo{BrandName: "Aspirin", Manufacturer: "Bayer"},
		PubMed: []datatypes.PubMedArticle{
			{PMID: "1", Title: "aspirin study"},
		},
	}
}

func TestAnalyzeDecodesModelOutput(t *testing.T) {
	out := `{"clinical_assessment": "well tolerated", "market_assessment": "mature",
		"swot": {"strengths": ["cheap"], "weaknesses": [], "opportunities": [], "threats": []},
		"confidence": 0.9}`
	a := NewAnalyzer(staticReasoner(out, "primary"), cache.NewMemoryStore())

	analysis := a.Analyze(context.Background(), "aspirin", testAggregate())

	if analysis.Fallback {
		t.Fatal("Analyze() used fallback despite healthy reasoner")
	}
	if analysis.ClinicalAssessment != "well tolerated" {
		t.Errorf("clinical assessment = %q", analysis.ClinicalAssessment)
	}
	if analysis.ModelTier != "primary" {
		t.Errorf("model tier = %q, want primary", analysis.ModelTier)
	}
	if analysis.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", analysis.Confidence)
	}
}

func TestAnalyzeFallsBackWhenReasoningFails(t *testing.T) {
	a := NewAnalyzer(failingReasoner(), cache.NewMemoryStore())

	analysis := a.Analyze(context.Background(), "aspirin", testAggregate())

	if !analysis.Fallback {
		t.Fatal("Analyze() should fall back when every tier fails")
	}
	if analysis.ModelTier != FallbackTier {
		t.Errorf("model tier = %q, want %q", analysis.ModelTier, FallbackTier)
	}
	if !strings.Contains(analysis.ClinicalAssessment, "Aspirin") && !strings.Contains(analysis.ClinicalAssessment, "aspirin") {
		t.Errorf("fallback assessment does not mention the subject: %q", analysis.ClinicalAssessment)
	}
}

func TestAnalyzeFallsBackOnUndecodableOutput(t *testing.T) {
	a := NewAnalyzer(staticReasoner("I'd rather write prose about aspirin.", "primary"), cache.NewMemoryStore())

	analysis := a.Analyze(context.Background(), "aspirin", testAggregate())

	if !analysis.Fallback {
		t.Error("Analyze() should fall back on undecodable output")
	}
}

func TestAnalyzeReducesConfidenceForDegradedSources(t *testing.T) {
	out := `{"clinical_assessment": "ok", "market_assessment": "ok",
		"swot": {"strengths": [], "weaknesses": [], "opportunities": [], "threats": []},
		"confidence": 1.0}`
	a := NewAnalyzer(staticReasoner(out, "primary"), cache.NewMemoryStore())

	agg := testAggregate()
	agg.Failed = []string{datatypes.SourceMarket, datatypes.SourceCompetitors}

	analysis := a.Analyze(context.Background(), "aspirin", agg)

	if analysis.Confidence >= 1.0 {
		t.Errorf("confidence = %v, want reduced below 1.0 for degraded sources", analysis.Confidence)
	}
}

func TestSummarizeCachesResult(t *testing.T) {
	store := cache.NewMemoryStore()
	calls := 0
	reasoner := reasonerFunc(func(context.Context, string, reasoning.GenerationParams) (string, string, error) {
		calls++
		return "A short executive summary.", "primary", nil
	})
	a := NewAnalyzer(reasoner, store)
	analysis := datatypes.StructuredAnalysis{ClinicalAssessment: "ok"}

	first := a.Summarize(context.Background(), "aspirin", analysis)
	second := a.Summarize(context.Background(), "aspirin", analysis)

	if first != second {
		t.Errorf("summaries differ: %q vs %q", first, second)
	}
	if calls != 1 {
		t.Errorf("reasoner invoked %d times, want 1 (second call cached)", calls)
	}
}

func TestSummarizeFallsBack(t *testing.T) {
	a := NewAnalyzer(failingReasoner(), cache.NewMemoryStore())

	summary := a.Summarize(context.Background(), "aspirin", datatypes.StructuredAnalysis{Confidence: 0.2})

	if summary == "" {
		t.Fatal("Summarize() returned empty summary")
	}
	if !strings.Contains(summary, "without model assistance") {
		t.Errorf("fallback summary is not labeled: %q", summary)
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("aspirin", "warfarin")
	b := Fingerprint("aspirin", "warfarin")
	c := Fingerprint("warfarin", "aspirin")

	if a != b {
		t.Error("Fingerprint() not deterministic")
	}
	if a == c {
		t.Error("Fingerprint() should depend on part order (callers canonicalize first)")
	}
	if len(a) != 16 {
		t.Errorf("Fingerprint() length = %d, want 16", len(a))
	}
}
