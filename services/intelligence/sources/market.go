// Copyright (C) 2025 MedInsight AI (engineering@medinsight.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/datatypes"
	"github.com/MedInsightAI/MedInsightHub/services/reasoning"
)

// The market and competitor slots have no public API behind them, so
// they are synthesized by the reasoning capability. The prompts demand
// strict JSON; anything the model wraps around it is stripped before
// decoding. A response that still will not decode fails the slot the
// same way an HTTP 500 would fail the others.

const marketPromptTemplate = `Provide pharmaceutical market intelligence for the drug %q.
Respond with ONLY a JSON object, no prose, matching exactly:
{"market_size": "...", "growth_rate": "...", "key_segments": ["..."], "pricing_notes": "...", "patent_notes": "..."}`

const competitorsPromptTemplate = `List the main competing products for the drug %q.
Respond with ONLY a JSON array, no prose, of at most 5 objects matching exactly:
[{"name": "...", "company": "...", "market_share": "...", "positioning": "..."}]`

// NewMarketFetch builds the reasoning-backed market slot.
func NewMarketFetch(client reasoning.Client) MarketFetch {
	return func(ctx context.Context, subject string) (*datatypes.MarketData, error) {
		raw, err := client.Generate(ctx, fmt.Sprintf(marketPromptTemplate, subject), analystParams())
		if err != nil {
			return nil, fmt.Errorf("market intelligence generation: %w", err)
		}

		var market datatypes.MarketData
		if err := json.Unmarshal([]byte(extractJSON(raw)), &market); err != nil {
			return nil, fmt.Errorf("decode market intelligence: %w", err)
		}
		return &market, nil
	}
}

// NewCompetitorsFetch builds the reasoning-backed competitor slot.
func NewCompetitorsFetch(client reasoning.Client) CompetitorsFetch {
	return func(ctx context.Context, subject string) ([]datatypes.CompetitorProfile, error) {
		raw, err := client.Generate(ctx, fmt.Sprintf(competitorsPromptTemplate, subject), analystParams())
		if err != nil {
			return nil, fmt.Errorf("competitor landscape generation: %w", err)
		}

		var competitors []datatypes.CompetitorProfile
		if err := json.Unmarshal([]byte(extractJSON(raw)), &competitors); err != nil {
			return nil, fmt.Errorf("decode competitor landscape: %w", err)
		}
		if len(competitors) > 5 {
			competitors = competitors[:5]
		}
		return competitors, nil
	}
}

func analystParams() reasoning.GenerationParams {
	temp := float32(0.2)
	maxTokens := 1024
	return reasoning.GenerationParams{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	}
}

// extractJSON strips markdown fences and surrounding prose, returning
// the outermost JSON object or array in the text.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if after, ok := strings.CutPrefix(text, "```json"); ok {
		text = after
	} else if after, ok := strings.CutPrefix(text, "```"); ok {
		text = after
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	objStart := strings.IndexByte(text, '{')
	arrStart := strings.IndexByte(text, '[')
	start := objStart
	end := strings.LastIndexByte(text, '}')
	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		start = arrStart
		end = strings.LastIndexByte(text, ']')
	}
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}
