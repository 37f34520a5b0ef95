// File: internal/llmclient/factory.go

// Package llmclient provides the generation backends the agent loop consumes
// through the schemas.LLMClient interface. Backends are selected by a
// generator ID of the form "provider/model[,key=value...]" and talk to their
// APIs over plain HTTP with retrying.
package llmclient

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/raccoon-cli/api/schemas"
	"github.com/xkilldash9x/raccoon-cli/internal/config"
)

// GeneratorID is the parsed form of the --generator-id flag, e.g.
// "ollama/llama3.1,api_base=http://localhost:11434".
type GeneratorID struct {
	Provider config.LLMProvider
	Model    string
	Params   map[string]string
}

// ParseGeneratorID splits a generator ID into provider, model, and optional
// comma-separated key=value parameters.
func ParseGeneratorID(id string) (GeneratorID, error) {
	parsed := GeneratorID{Params: map[string]string{}}

	id = strings.TrimSpace(id)
	if id == "" {
		return parsed, fmt.Errorf("generator ID is empty")
	}

	head, rest, _ := strings.Cut(id, ",")
	provider, model, ok := strings.Cut(head, "/")
	if !ok || provider == "" || model == "" {
		return parsed, fmt.Errorf("generator ID %q must have the form provider/model[,key=value...]", id)
	}
	parsed.Provider = config.LLMProvider(strings.ToLower(strings.TrimSpace(provider)))
	parsed.Model = strings.TrimSpace(model)

	if rest != "" {
		for _, pair := range strings.Split(rest, ",") {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return parsed, fmt.Errorf("generator ID parameter %q is not key=value", pair)
			}
			parsed.Params[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
		}
	}

	return parsed, nil
}

// NewClient is a factory that creates an LLMClient for the configured
// generator ID. The core treats the result as an opaque text completion
// service.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	id, err := ParseGeneratorID(cfg.GeneratorID)
	if err != nil {
		return nil, err
	}

	// A key embedded in the generator ID wins over the config/env one.
	apiKey := cfg.APIKey
	if key, ok := id.Params["api_key"]; ok {
		apiKey = key
	}

	switch id.Provider {
	case config.ProviderGemini:
		client, err := NewGeminiClient(id.Model, apiKey, cfg, logger)
		if err != nil {
			return nil, err
		}
		if base := id.Params["api_base"]; base != "" {
			client.SetEndpoint(geminiEndpoint(base, id.Model))
		}
		return client, nil
	case config.ProviderOpenAI, config.ProviderOllama, config.ProviderLMStudio:
		baseURL := id.Params["api_base"]
		if baseURL == "" {
			baseURL = defaultBaseURL(id.Provider)
		}
		return NewOpenAICompatClient(id.Provider, id.Model, baseURL, apiKey, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider %q. Supported: [%s, %s, %s, %s]",
			id.Provider, config.ProviderGemini, config.ProviderOpenAI, config.ProviderOllama, config.ProviderLMStudio)
	}
}

func defaultBaseURL(provider config.LLMProvider) string {
	switch provider {
	case config.ProviderOllama:
		return "http://localhost:11434"
	case config.ProviderLMStudio:
		return "http://localhost:1234"
	default:
		return "https://api.openai.com"
	}
}
