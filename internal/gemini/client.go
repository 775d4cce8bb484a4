package gemini

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

const (
	// DefaultLiveModel is the realtime audio model used for voice sessions.
	DefaultLiveModel = "gemini-2.0-flash-live-001"
	// DefaultEmbedModel produces the vectors behind the knowledge index.
	DefaultEmbedModel = "text-embedding-004"
)

type Config struct {
	APIKey     string
	LiveModel  string
	EmbedModel string
}

func NewClient(ctx context.Context, cfg Config) (*genai.Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
}
