package config

import (
	"fmt"

	"github.com/openscribe/scribe/internal/inference"
)

func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid audio.sample_rate: %d", c.Audio.SampleRate)
	}
	if c.Audio.BlockSize <= 0 {
		return fmt.Errorf("invalid audio.block_size: %d", c.Audio.BlockSize)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("invalid audio.channels: %d", c.Audio.Channels)
	}
	if c.Audio.Format == "" {
		return fmt.Errorf("invalid audio.format: empty")
	}

	switch c.Recognizer.Backend {
	case "vosk":
		if c.Recognizer.ModelPath == "" {
			return fmt.Errorf("recognizer.model_path required for the vosk backend")
		}
	case "vosk-server":
		if c.Recognizer.ServerURL == "" {
			return fmt.Errorf("recognizer.server_url required for the vosk-server backend")
		}
	default:
		return fmt.Errorf("invalid recognizer.backend: %s (must be vosk or vosk-server)", c.Recognizer.Backend)
	}

	switch c.Inference.Provider {
	case "", inference.ProviderLlamaCpp:
		if c.Inference.EndpointURL == "" {
			return fmt.Errorf("inference.endpoint_url required")
		}
	case inference.ProviderOpenAI:
		if c.Inference.APIKey == "" && c.Inference.BaseURL == "" {
			return fmt.Errorf("OpenAI API key required: set inference.api_key, the OPENAI_API_KEY environment variable, or inference.base_url for a local server")
		}
	default:
		return fmt.Errorf("invalid inference.provider: %s (must be llamacpp or openai)", c.Inference.Provider)
	}

	if c.Inference.MaxTokens <= 0 {
		return fmt.Errorf("invalid inference.max_tokens: %d", c.Inference.MaxTokens)
	}
	if c.Inference.Temperature < 0.0 || c.Inference.Temperature > 2.0 {
		return fmt.Errorf("invalid inference.temperature: %g (must be between 0.0 and 2.0)", c.Inference.Temperature)
	}
	if c.Inference.TimeoutSeconds <= 0 {
		return fmt.Errorf("invalid inference.timeout_seconds: %g", c.Inference.TimeoutSeconds)
	}

	return nil
}
