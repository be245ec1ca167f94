// Package llm talks to chat-completion providers that support function
// calling. All providers are normalized onto one request/response shape
// so callers never see provider-specific payloads.
package llm

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

const (
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
	ProviderGroq   = "groq"
	ProviderGrok   = "grok"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema is a JSON-schema fragment describing tool parameters.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// Tool is a function the model may choose to call.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters"`
}

// FunctionCall is one tool invocation the model produced. Arguments are
// already decoded from the provider's JSON string form.
type FunctionCall struct {
	Name      string
	Arguments map[string]any
}

// Completion is the normalized model output. ToolCall is nil when the
// model answered with plain text instead of calling a tool.
type Completion struct {
	Content  string
	ToolCall *FunctionCall
}

// Request is one chat-completion call.
type Request struct {
	Messages []Message
	Tools    []Tool

	// Provider overrides the configured default when non-empty.
	Provider string
}
