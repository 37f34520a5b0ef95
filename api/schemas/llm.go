package schemas

import "context"

// -- LLM Client Schemas & Interface --

// GenerationOptions provides detailed parameters to control the text
// generation process of the LLM, such as creativity (temperature) and output
// length.
type GenerationOptions struct {
	Temperature float64 `json:"temperature"` // Controls randomness. Lower is more deterministic.
	TopP        float64 `json:"top_p"`       // Nucleus sampling parameter.
	TopK        int     `json:"top_k"`       // Top-k sampling parameter.
	MaxTokens   int     `json:"max_tokens"`  // Upper bound on generated tokens. Zero means provider default.
}

// GenerationRequest encapsulates a complete request to the LLM: the system
// and user prompts plus generation options. Each request is self-contained;
// clients keep no conversation state between calls, so everything the model
// needs to see must be in the prompts.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"` // Instructions for the model's persona and task.
	UserPrompt   string            `json:"user_prompt"`   // The per-round prompt built from session state.
	Options      GenerationOptions `json:"options"`       // Advanced generation parameters.
}

// LLMClient defines a standard interface for interacting with a Large
// Language Model, abstracting the specifics of the underlying provider
// (e.g., an OpenAI-compatible server or Gemini).
type LLMClient interface {
	// Generate produces a text completion based on the provided request.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	// Close cleans up any resources held by the client (e.g., network connections).
	Close() error
}
