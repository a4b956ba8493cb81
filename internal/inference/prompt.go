package inference

import "fmt"

// BuildPrompt assembles the full completion prompt: the configured
// system prompt, then the custom instruction (or the default one),
// then the transcript.
func BuildPrompt(systemPrompt, customPrompt, transcript string) string {
	instruction := customPrompt
	if instruction == "" {
		instruction = defaultInstruction
	}
	return fmt.Sprintf("%s\n\n%s\n\nTranscript:\n%s", systemPrompt, instruction, transcript)
}
