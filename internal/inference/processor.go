package inference

import (
	"fmt"

	"github.com/openscribe/scribe/internal/model"
)

const (
	ProviderLlamaCpp = "llamacpp"
	ProviderOpenAI   = "openai"
)

// Processor is the provider-independent inference surface.
type Processor interface {
	Process(req model.ProcessingRequest, onStatus func(string)) model.ProcessingResult
	Cancel()
}

// NewProcessor selects the inference backend for the configured
// provider. An empty provider means the llama.cpp-style client.
func NewProcessor(config Config) (Processor, error) {
	switch config.Provider {
	case "", ProviderLlamaCpp:
		if config.EndpointURL == "" {
			return nil, fmt.Errorf("inference endpoint URL required")
		}
		return NewClient(config), nil
	case ProviderOpenAI:
		if config.APIKey == "" && config.BaseURL == "" {
			return nil, fmt.Errorf("OpenAI provider requires an API key or a base URL")
		}
		return NewOpenAIProcessor(config), nil
	default:
		return nil, fmt.Errorf("unsupported inference provider: %s", config.Provider)
	}
}
