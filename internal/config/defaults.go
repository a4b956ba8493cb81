package config

const defaultSystemPrompt = "Refine and organize this note. Structure the key information logically. " +
	"Eliminate all repetition, filler, and non-essential details to ensure " +
	"the final output is brief, factual, and scannable."

// DefaultConfig returns the configuration used when no config file
// exists yet.
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate: 16000,
			BlockSize:  8000,
			Channels:   1,
			Format:     "s16",
			Device:     "",
		},
		Recognizer: RecognizerConfig{
			Backend:   "vosk",
			ModelPath: "vosk-model-small-en-us-0.15",
			ServerURL: "ws://localhost:2700",
		},
		Inference: InferenceConfig{
			Provider:       "llamacpp",
			EndpointURL:    "http://localhost:8081/completion",
			MaxTokens:      2048,
			Temperature:    0.7,
			TimeoutSeconds: 30.0,
			SystemPrompt:   defaultSystemPrompt,
			RepeatPenalty:  1.15,
			RepeatLastN:    64,
			TopP:           0.9,
			TopK:           40,
		},
	}
}
