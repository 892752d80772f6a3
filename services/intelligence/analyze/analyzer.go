// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package analyze turns gathered source data into structured findings.
//
// The analyzer treats the reasoning capability as opaque and unreliable:
// every operation that invokes it has a deterministic, clearly labeled
// fallback, so analysis never fails outright. Expensive results (summaries,
// interaction reports, health assessments) are cached through the shared
// store under their policy categories.
package analyze

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/cache"
	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
	"github.com/MedInsightAI/MedInsightHub/services/reasoning"
)

// TierReasoner is the slice of the tiered reasoning client the analyzer
// needs. Tests inject fakes; production wires *reasoning.TieredClient.
type TierReasoner interface {
	GenerateWithTier(ctx context.Context, prompt string, params reasoning.GenerationParams) (text string, tier string, err error)
}

// Analyzer produces structured analyses, summaries, interaction reports,
// and health assessments.
type Analyzer struct {
	reasoner TierReasoner
	store    cache.Store
	now      func() time.Time
}

// NewAnalyzer wires an Analyzer. store may not be nil; degraded
// deployments pass the in-memory store. reasoner may be nil, in which
// case every operation produces its deterministic fallback.
func NewAnalyzer(reasoner TierReasoner, store cache.Store) *Analyzer {
	return &Analyzer{
		reasoner: reasoner,
		store:    store,
		now:      time.Now,
	}
}

var errNoReasoner = errors.New("no reasoning tiers configured")

// reason invokes the tiered reasoner, treating an unconfigured reasoner
// like an all-tiers failure so callers take their fallback path.
func (a *Analyzer) reason(ctx context.Context, prompt string, params reasoning.GenerationParams) (string, string, error) {
	if a.reasoner == nil {
		return "", "", errNoReasoner
	}
	return a.reasoner.GenerateWithTier(ctx, prompt, params)
}

const analysisPromptTemplate = `You are analyzing the pharmaceutical product %q.
Source data (JSON): %s

Respond with ONLY a JSON object, no prose, matching exactly:
{
  "clinical_assessment": "...",
  "market_assessment": "...",
  "swot": {"strengths": ["..."], "weaknesses": ["..."], "opportunities": ["..."], "threats": ["..."]},
  "trends": ["..."],
  "regulatory_updates": ["..."],
  "confidence": 0.0
}`

// Analyze produces the structured analysis for one gathering pass.
//
// Degraded source slots lower the reported confidence. When every
// reasoning tier fails or the output cannot be decoded, the deterministic
// fallback analysis is returned; Analyze never returns an error.
func (a *Analyzer) Analyze(ctx context.Context, subject string, agg datatypes.AggregatedSources) datatypes.StructuredAnalysis {
	sourceJSON, err := json.Marshal(agg)
	if err != nil {
		slog.Error("Failed to encode source data for analysis", "subject", subject, "error", err)
		return FallbackAnalysis(subject, agg)
	}

	prompt := fmt.Sprintf(analysisPromptTemplate, subject, sourceJSON)
	text, tier, err := a.reason(ctx, prompt, analysisParams())
	if err != nil {
		slog.Warn("Reasoning unavailable, using fallback analysis", "subject", subject, "error", err)
		return FallbackAnalysis(subject, agg)
	}

	var analysis datatypes.StructuredAnalysis
	if err := json.Unmarshal([]byte(extractJSON(text)), &analysis); err != nil {
		slog.Warn("Undecodable analysis output, using fallback",
			"subject", subject,
			"tier", tier,
			"error", err)
		return FallbackAnalysis(subject, agg)
	}

	analysis.ModelTier = tier
	if len(agg.Failed) > 0 && analysis.Confidence > 0 {
		// Each missing slot costs a share of confidence.
		analysis.Confidence *= 1 - float64(len(agg.Failed))*0.15
		if analysis.Confidence < 0.1 {
			analysis.Confidence = 0.1
		}
	}
	return analysis
}

const summaryPromptTemplate = `Write a concise executive summary (at most 200 words) of this
pharmaceutical intelligence analysis of %q. Plain text, no headings.

Analysis (JSON): %s`

// Summarize produces the executive summary for an analysis, consulting
// the summary cache first. Like Analyze it degrades to a deterministic
// summary rather than returning an error.
func (a *Analyzer) Summarize(ctx context.Context, subject string, analysis datatypes.StructuredAnalysis) string {
	key := cache.NewKey(cache.CategoryAISummary, subject)

	var cached string
	if a.store.Read(ctx, key, &cached).Found() && cached != "" {
		return cached
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return FallbackSummary(subject, analysis)
	}

	text, tier, err := a.reason(ctx, fmt.Sprintf(summaryPromptTemplate, subject, analysisJSON), summaryParams())
	if err != nil || strings.TrimSpace(text) == "" {
		slog.Warn("Summary generation failed, using fallback", "subject", subject, "error", err)
		return FallbackSummary(subject, analysis)
	}

	summary := strings.TrimSpace(text)
	slog.Debug("Generated executive summary", "subject", subject, "tier", tier)
	a.store.Write(ctx, key, summary)
	return summary
}

func analysisParams() reasoning.GenerationParams {
	temp := float32(0.3)
	maxTokens := 2048
	return reasoning.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens}
}

func summaryParams() reasoning.GenerationParams {
	temp := float32(0.4)
	maxTokens := 512
	return reasoning.GenerationParams{Temperature: &temp, MaxTokens: &maxTokens}
}

// Fingerprint returns a short stable hex digest of the given parts,
// used as a cache identifier when the natural identifier is too long or
// not key-safe.
func Fingerprint(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])[:16]
}

// extractJSON strips markdown fences and surrounding prose, returning
// the outermost JSON object in the text.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}
