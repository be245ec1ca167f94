package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
)

const defaultRequestTimeout = 30 * time.Second

// openAIGateway speaks the OpenAI chat-completions dialect, which Groq,
// Grok and Ollama all expose.
type openAIGateway struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *fasthttp.Client
}

func newOpenAIGateway(name, baseURL, apiKey, model string) *openAIGateway {
	return &openAIGateway{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &fasthttp.Client{
			MaxConnsPerHost: 16,
			ReadTimeout:     defaultRequestTimeout,
			WriteTimeout:    10 * time.Second,
		},
	}
}

type openAIFunction struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIRequest struct {
	Model       string       `json:"model"`
	Messages    []Message    `json:"messages"`
	Tools       []openAITool `json:"tools,omitempty"`
	ToolChoice  string       `json:"tool_choice,omitempty"`
	Temperature float64      `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *openAIGateway) Complete(ctx context.Context, req Request) (*Completion, error) {
	payload := openAIRequest{
		Model:       g.model,
		Messages:    req.Messages,
		Temperature: 0,
	}
	for _, t := range req.Tools {
		payload.Tools = append(payload.Tools, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if len(payload.Tools) > 0 {
		payload.ToolChoice = "auto"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "could not marshal request")
	}

	raw, err := g.doRequest(ctx, body)
	if err != nil {
		return nil, err
	}

	var parsed openAIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errors.Wrapf(err, "could not unmarshal %s response", g.name)
	}
	return g.toCompletion(&parsed)
}

func (g *openAIGateway) doRequest(ctx context.Context, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(g.baseURL + "/chat/completions")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultRequestTimeout)
	}

	if err := g.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, errors.Wrapf(err, "%s request failed", g.name)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &ProviderError{
			Provider: g.name,
			Status:   resp.StatusCode(),
			Message:  string(resp.Body()),
		}
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())
	return result, nil
}

// toCompletion keeps the first tool call only. Providers occasionally
// return several; everything after the first is the model improvising.
func (g *openAIGateway) toCompletion(resp *openAIResponse) (*Completion, error) {
	if len(resp.Choices) == 0 {
		return &Completion{}, nil
	}

	msg := resp.Choices[0].Message
	c := &Completion{Content: msg.Content}

	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0].Function
		args := make(map[string]any)
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
				return nil, errors.Wrapf(err, "could not decode %s tool arguments", g.name)
			}
		}
		c.ToolCall = &FunctionCall{
			Name:      call.Name,
			Arguments: args,
		}
	}
	return c, nil
}
