package llm

import (
	"testing"

	"github.com/mingunkim123/ledger-agent/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGatewaySelection(t *testing.T) {
	cfg := &config.Config{
		LLMProvider:   ProviderGroq,
		GroqAPIKey:    "gk",
		GroqModel:     "llama-3.3-70b-versatile",
		GrokAPIKey:    "",
		GeminiAPIKey:  "gm",
		GeminiModel:   "gemini-2.0-flash",
		OllamaBaseURL: "http://localhost:11434",
		OllamaModel:   "llama3.1",
	}
	c := NewClient(cfg)

	t.Run("default provider", func(t *testing.T) {
		gw, err := c.gateway(cfg.LLMProvider)
		require.NoError(t, err)
		assert.IsType(t, &openAIGateway{}, gw)
	})

	t.Run("gemini uses its own sdk", func(t *testing.T) {
		gw, err := c.gateway(ProviderGemini)
		require.NoError(t, err)
		assert.IsType(t, &geminiGateway{}, gw)
	})

	t.Run("ollama needs no key", func(t *testing.T) {
		gw, err := c.gateway(ProviderOllama)
		require.NoError(t, err)
		assert.IsType(t, &openAIGateway{}, gw)
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := c.gateway(ProviderGrok)
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := c.gateway("claude")
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})
}
