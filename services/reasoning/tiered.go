package reasoning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MedInsightAI/MedInsightHub/services/intelligence/observability"
)

// Tier pairs a backend with the name it reports in logs and metrics.
type Tier struct {
	Name   string
	Client Client
}

// TieredClient tries each configured backend in order and returns the
// first success. Order encodes preference: the strongest model first,
// cheaper ones after it. A tier failing is expected operation, not an
// error condition, so failures are logged at warn and the chain moves on.
type TieredClient struct {
	tiers []Tier
}

func NewTieredClient(tiers ...Tier) (*TieredClient, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tiered client needs at least one tier")
	}
	return &TieredClient{tiers: tiers}, nil
}

// Tiers returns the configured tier names in preference order.
func (t *TieredClient) Tiers() []string {
	names := make([]string, len(t.tiers))
	for i, tier := range t.tiers {
		names[i] = tier.Name
	}
	return names
}

// Generate implements the Client interface
func (t *TieredClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	text, _, err := t.GenerateWithTier(ctx, prompt, params)
	return text, err
}

// GenerateWithTier generates text and reports which tier produced it.
// The error is the last tier's error when every tier fails.
func (t *TieredClient) GenerateWithTier(ctx context.Context, prompt string, params GenerationParams) (string, string, error) {
	var lastErr error
	for _, tier := range t.tiers {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		text, err := tier.Client.Generate(ctx, prompt, params)
		if err == nil {
			observability.RecordReasoningCall(tier.Name, "success")
			return text, tier.Name, nil
		}
		observability.RecordReasoningCall(tier.Name, "error")
		slog.Warn("Reasoning tier failed, trying next",
			"tier", tier.Name,
			"error", err)
		lastErr = err
	}
	return "", "", fmt.Errorf("all reasoning tiers failed: %w", lastErr)
}

var _ Client = (*TieredClient)(nil)
