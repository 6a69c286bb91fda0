package provider

import (
	"context"
	"errors"
	"time"

	"github.com/mohammad-safakhou/daybrief/config"
	openai_provider "github.com/mohammad-safakhou/daybrief/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
	Gemini    Client = "gemini"
)

// Provider is the external synthesis collaborator: it consumes the rendered
// briefing sections and produces the final report text.
type Provider interface {
	SynthesizeBriefing(ctx context.Context, date time.Time, sections string) (string, error)
}

// NewProvider creates a new LLM client based on the provided configuration
func NewProvider(client Client, cfg config.LLMConfig) (Provider, error) {
	switch client {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("LLM API key not set")
		}
		return openai_provider.NewClient(cfg), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	case Gemini:
		return nil, errors.New("gemini client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
