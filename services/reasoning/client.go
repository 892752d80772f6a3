package reasoning

import "context"

type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client defines the standard interface for any reasoning backend.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}
