package inference

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractText pulls generated text out of a completion response.
// Inference servers disagree on response shape, so fields are tried in
// a fixed order: content, text, completion, choices[0].text,
// choices[0].message.content. The order is a compatibility contract;
// do not reorder. Unknown shapes fall back to the stringified payload.
func ExtractText(data map[string]any) string {
	if s, ok := stringField(data, "content"); ok {
		return strings.TrimSpace(s)
	}
	if s, ok := stringField(data, "text"); ok {
		return strings.TrimSpace(s)
	}
	if s, ok := stringField(data, "completion"); ok {
		return strings.TrimSpace(s)
	}

	if choices, ok := data["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if s, ok := stringField(choice, "text"); ok {
				return strings.TrimSpace(s)
			}
			if msg, ok := choice["message"].(map[string]any); ok {
				if s, ok := stringField(msg, "content"); ok {
					return strings.TrimSpace(s)
				}
			}
		}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(raw)
}

func stringField(data map[string]any, key string) (string, bool) {
	s, ok := data[key].(string)
	return s, ok
}
