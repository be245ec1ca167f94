package llm

import (
	"context"

	"github.com/mingunkim123/ledger-agent/internal/config"
	"github.com/pkg/errors"
)

const (
	groqBaseURL = "https://api.groq.com/openai/v1"
	grokBaseURL = "https://api.x.ai/v1"
)

// Gateway is a single chat-completion backend.
type Gateway interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// Client dispatches requests to the configured provider. A request may
// name a different provider to override the default per call.
type Client struct {
	defaultProvider string
	cfg             *config.Config
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		defaultProvider: cfg.LLMProvider,
		cfg:             cfg,
	}
}

func (c *Client) Complete(ctx context.Context, req Request) (*Completion, error) {
	provider := req.Provider
	if provider == "" {
		provider = c.defaultProvider
	}

	gw, err := c.gateway(provider)
	if err != nil {
		return nil, err
	}
	return gw.Complete(ctx, req)
}

func (c *Client) gateway(provider string) (Gateway, error) {
	switch provider {
	case ProviderOllama:
		// Ollama is local and unauthenticated.
		return newOpenAIGateway(ProviderOllama, c.cfg.OllamaBaseURL+"/v1", "", c.cfg.OllamaModel), nil
	case ProviderGroq:
		if c.cfg.GroqAPIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return newOpenAIGateway(ProviderGroq, groqBaseURL, c.cfg.GroqAPIKey, c.cfg.GroqModel), nil
	case ProviderGrok:
		if c.cfg.GrokAPIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return newOpenAIGateway(ProviderGrok, grokBaseURL, c.cfg.GrokAPIKey, c.cfg.GrokModel), nil
	case ProviderGemini:
		if c.cfg.GeminiAPIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return newGeminiGateway(c.cfg.GeminiAPIKey, c.cfg.GeminiModel), nil
	}
	return nil, errors.Wrap(ErrUnknownProvider, provider)
}
