package reasoning

import (
	"context"
	"fmt"
	"testing"
)

// clientFunc adapts a function to the Client interface for tests.
type clientFunc func(ctx context.Context, prompt string, params GenerationParams) (string, error)

func (f clientFunc) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	return f(ctx, prompt, params)
}

func failing(name string) Tier {
	return Tier{Name: name, Client: clientFunc(func(context.Context, string, GenerationParams) (string, error) {
		return "", fmt.Errorf("%s unavailable", name)
	})}
}

func succeeding(name, text string) Tier {
	return Tier{Name: name, Client: clientFunc(func(context.Context, string, GenerationParams) (string, error) {
		return text, nil
	})}
}

func TestNewTieredClientRequiresTiers(t *testing.T) {
	if _, err := NewTieredClient(); err == nil {
		t.Error("NewTieredClient() accepted an empty tier list")
	}
}

func TestTieredClientFirstTierWins(t *testing.T) {
	tc, err := NewTieredClient(succeeding("primary", "from primary"), succeeding("secondary", "from secondary"))
	if err != nil {
		t.Fatalf("NewTieredClient() error: %v", err)
	}

	text, tier, err := tc.GenerateWithTier(context.Background(), "prompt", GenerationParams{})
	if err != nil {
		t.Fatalf("GenerateWithTier() error: %v", err)
	}
	if tier != "primary" || text != "from primary" {
		t.Errorf("got tier %q text %q, want primary tier", tier, text)
	}
}

func TestTieredClientFallsThrough(t *testing.T) {
	tc, err := NewTieredClient(failing("primary"), failing("secondary"), succeeding("micro", "from micro"))
	if err != nil {
		t.Fatalf("NewTieredClient() error: %v", err)
	}

	text, tier, err := tc.GenerateWithTier(context.Background(), "prompt", GenerationParams{})
	if err != nil {
		t.Fatalf("GenerateWithTier() error: %v", err)
	}
	if tier != "micro" || text != "from micro" {
		t.Errorf("got tier %q text %q, want micro tier", tier, text)
	}
}

func TestTieredClientAllTiersFail(t *testing.T) {
	tc, err := NewTieredClient(failing("primary"), failing("secondary"))
	if err != nil {
		t.Fatalf("NewTieredClient() error: %v", err)
	}

	if _, _, err := tc.GenerateWithTier(context.Background(), "prompt", GenerationParams{}); err == nil {
		t.Error("GenerateWithTier() = nil error when every tier failed")
	}
}

func TestTieredClientHonorsContextCancellation(t *testing.T) {
	called := false
	tier := Tier{Name: "primary", Client: clientFunc(func(context.Context, string, GenerationParams) (string, error) {
		called = true
		return "text", nil
	})}
	tc, err := NewTieredClient(tier)
	if err != nil {
		t.Fatalf("NewTieredClient() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := tc.GenerateWithTier(ctx, "prompt", GenerationParams{}); err == nil {
		t.Error("GenerateWithTier() ignored a cancelled context")
	}
	if called {
		t.Error("tier was invoked after context cancellation")
	}
}
