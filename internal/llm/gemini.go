package llm

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/genai"
)

// geminiGateway uses Google's SDK instead of the OpenAI dialect.
type geminiGateway struct {
	apiKey string
	model  string
}

func newGeminiGateway(apiKey, model string) *geminiGateway {
	return &geminiGateway{
		apiKey: apiKey,
		model:  model,
	}
}

func (g *geminiGateway) Complete(ctx context.Context, req Request) (*Completion, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      g.apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1beta"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "could not create gemini client")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			cfg.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: m.Content}},
			}
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  m.Role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}

	if len(req.Tools) > 0 {
		tool := &genai.Tool{}
		for _, t := range req.Tools {
			tool.FunctionDeclarations = append(tool.FunctionDeclarations, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGeminiSchema(t.Parameters),
			})
		}
		cfg.Tools = []*genai.Tool{tool}
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, toGeminiError(err)
	}

	c := &Completion{Content: resp.Text()}
	if calls := resp.FunctionCalls(); len(calls) > 0 {
		c.ToolCall = &FunctionCall{
			Name:      calls[0].Name,
			Arguments: calls[0].Args,
		}
	}
	return c, nil
}

func toGeminiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
	}
	switch s.Type {
	case "object":
		out.Type = genai.TypeObject
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	case "array":
		out.Type = genai.TypeArray
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = toGeminiSchema(v)
		}
	}
	return out
}

func toGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{
			Provider: ProviderGemini,
			Status:   apiErr.Code,
			Message:  apiErr.Message,
		}
	}
	return errors.Wrap(err, "gemini request failed")
}
