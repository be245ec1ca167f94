// mockllm is a standalone OpenAI-compatible chat-completions server for
// local development. It answers with a create_transaction tool call
// derived from the deterministic expense parser, so the api binary can
// run end to end without any real provider credentials.
package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mingunkim123/ledger-agent/internal/parser"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages" binding:"required"`
	Tools    []any         `json:"tools"`
}

type toolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role      string     `json:"role"`
		Content   string     `json:"content"`
		ToolCalls []toolCall `json:"tool_calls,omitempty"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// MockProvider fabricates completions from the fallback parser.
type MockProvider struct {
	rateLimitRate float64
	minDelay      time.Duration
	maxDelay      time.Duration
	rng           *rand.Rand
}

func NewMockProvider(rateLimitRate float64, minDelay, maxDelay time.Duration) *MockProvider {
	return &MockProvider{
		rateLimitRate: rateLimitRate,
		minDelay:      minDelay,
		maxDelay:      maxDelay,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockProvider) complete(req *chatCompletionRequest) *chatCompletionResponse {
	time.Sleep(m.randomDelay())

	var userMessage string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			userMessage = msg.Content
		}
	}

	resp := &chatCompletionResponse{
		ID:      "chatcmpl-" + uuid.New().String()[:8],
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
	}
	resp.Choices = make([]chatChoice, 1)
	resp.Choices[0].Message.Role = "assistant"

	extraction := parser.ParseSimpleExpense(userMessage, time.Now())
	if extraction == nil || len(req.Tools) == 0 {
		resp.Choices[0].Message.Content = "무엇을 얼마에 쓰셨는지 알려주세요."
		resp.Choices[0].FinishReason = "stop"

		log.Info().
			Str("message", userMessage).
			Msg("No extraction possible, asking to clarify")
		return resp
	}

	args, _ := json.Marshal(map[string]any{
		"occurred_date": extraction.OccurredDate,
		"type":          extraction.Type,
		"amount":        extraction.Amount,
		"category":      extraction.Category,
		"subcategory":   extraction.Subcategory,
		"merchant":      extraction.Merchant,
		"memo":          extraction.Memo,
	})

	call := toolCall{
		ID:   "call_" + uuid.New().String()[:8],
		Type: "function",
	}
	call.Function.Name = "create_transaction"
	call.Function.Arguments = string(args)

	resp.Choices[0].Message.ToolCalls = []toolCall{call}
	resp.Choices[0].FinishReason = "tool_calls"

	log.Info().
		Str("message", userMessage).
		Int("amount", extraction.Amount).
		Str("category", extraction.Category).
		Msg("Extraction succeeded")
	return resp
}

func (m *MockProvider) randomDelay() time.Duration {
	if m.maxDelay <= m.minDelay {
		return m.minDelay
	}
	delta := m.maxDelay - m.minDelay
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}

func (m *MockProvider) shouldRateLimit() bool {
	return m.rng.Float64() < m.rateLimitRate
}

type Handler struct {
	provider *MockProvider
}

func NewHandler(provider *MockProvider) *Handler {
	return &Handler{provider: provider}
}

func (h *Handler) ChatCompletions(c *gin.Context) {
	var req chatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"message": "Invalid request: " + err.Error(), "type": "invalid_request_error"},
		})
		return
	}

	if h.provider.shouldRateLimit() {
		log.Warn().Msg("Simulating rate limit")
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": gin.H{"message": "Rate limit reached", "type": "rate_limit_error"},
		})
		return
	}

	c.JSON(http.StatusOK, h.provider.complete(&req))
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// UpdateConfig allows changing the simulated rate-limit rate at runtime.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		RateLimitRate *float64 `json:"rate_limit_rate"`
	}
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if config.RateLimitRate != nil && *config.RateLimitRate >= 0 && *config.RateLimitRate <= 1.0 {
		h.provider.rateLimitRate = *config.RateLimitRate
		log.Info().Float64("rate", *config.RateLimitRate).Msg("Updated rate limit rate")
	}

	c.JSON(http.StatusOK, gin.H{"rate_limit_rate": h.provider.rateLimitRate})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/chat/completions", handler.ChatCompletions)
	}
	router.GET("/health", handler.HealthCheck)
	router.PUT("/config", handler.UpdateConfig)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8082")
	rateLimitRate := getEnvFloat("RATE_LIMIT_RATE", 0)
	minDelay := getEnvDuration("MIN_DELAY", 50*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 300*time.Millisecond)

	log.Info().
		Str("port", port).
		Float64("rate_limit_rate", rateLimitRate).
		Msg("Starting mock LLM provider")

	provider := NewMockProvider(rateLimitRate, minDelay, maxDelay)
	handler := NewHandler(provider)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down mock LLM provider")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Forced shutdown")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
