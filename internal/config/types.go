package config

import "github.com/openscribe/scribe/internal/inference"

type Config struct {
	Audio      AudioConfig      `toml:"audio"`
	Recognizer RecognizerConfig `toml:"recognizer"`
	Inference  InferenceConfig  `toml:"inference"`
}

type AudioConfig struct {
	SampleRate int    `toml:"sample_rate"`
	BlockSize  int    `toml:"block_size"`
	Channels   int    `toml:"channels"`
	Format     string `toml:"format"`
	Device     string `toml:"device"`
}

// RecognizerConfig selects the speech engine: "vosk" loads a model
// directory in process, "vosk-server" streams to a websocket server.
type RecognizerConfig struct {
	Backend   string `toml:"backend"`
	ModelPath string `toml:"model_path"`
	ServerURL string `toml:"server_url"`
}

type InferenceConfig struct {
	Provider       string  `toml:"provider"`
	EndpointURL    string  `toml:"endpoint_url"`
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	MaxTokens      int     `toml:"max_tokens"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds float64 `toml:"timeout_seconds"`
	SystemPrompt   string  `toml:"system_prompt"`
	RepeatPenalty  float64 `toml:"repeat_penalty"`
	RepeatLastN    int     `toml:"repeat_last_n"`
	TopP           float64 `toml:"top_p"`
	TopK           int     `toml:"top_k"`
}

// InferenceClientConfig maps the loaded configuration onto the
// inference layer's own config type.
func (c *Config) InferenceClientConfig() inference.Config {
	return inference.Config{
		Provider:       c.Inference.Provider,
		EndpointURL:    c.Inference.EndpointURL,
		APIKey:         c.Inference.APIKey,
		BaseURL:        c.Inference.BaseURL,
		Model:          c.Inference.Model,
		MaxTokens:      c.Inference.MaxTokens,
		Temperature:    c.Inference.Temperature,
		TimeoutSeconds: c.Inference.TimeoutSeconds,
		SystemPrompt:   c.Inference.SystemPrompt,
		RepeatPenalty:  c.Inference.RepeatPenalty,
		RepeatLastN:    c.Inference.RepeatLastN,
		TopP:           c.Inference.TopP,
		TopK:           c.Inference.TopK,
	}
}
