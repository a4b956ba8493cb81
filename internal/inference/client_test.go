package inference

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openscribe/scribe/internal/model"
)

func testConfig(endpoint string) Config {
	return Config{
		EndpointURL:    endpoint,
		MaxTokens:      128,
		Temperature:    0.7,
		TimeoutSeconds: 5,
		SystemPrompt:   "Clean up this note.",
	}
}

func TestProcessSuccess(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(`{"content": " cleaned notes "}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))

	var statuses []string
	result := client.Process(model.ProcessingRequest{Transcript: "raw speech"}, func(s string) {
		statuses = append(statuses, s)
	})

	if !result.IsSuccess() {
		t.Fatalf("expected success, got %s: %s", result.Status, result.ErrorMessage)
	}
	if result.ProcessedText != "cleaned notes" {
		t.Errorf("processed text = %q", result.ProcessedText)
	}
	if result.ProcessingTimeMs <= 0 {
		t.Errorf("expected positive processing time, got %g", result.ProcessingTimeMs)
	}
	if len(statuses) == 0 {
		t.Error("expected status callbacks")
	}

	if gotBody["stream"] != false {
		t.Errorf("stream = %v, want false", gotBody["stream"])
	}
	if gotBody["n_predict"] != float64(128) {
		t.Errorf("n_predict = %v", gotBody["n_predict"])
	}
	if _, ok := gotBody["stop"].([]any); !ok {
		t.Errorf("stop should be an array, got %T", gotBody["stop"])
	}
	prompt, _ := gotBody["prompt"].(string)
	if !strings.Contains(prompt, "Clean up this note.") || !strings.Contains(prompt, "raw speech") {
		t.Errorf("prompt missing parts: %q", prompt)
	}
	if !strings.Contains(prompt, "Convert this transcript into clear notes:") {
		t.Errorf("prompt missing default instruction: %q", prompt)
	}
	// Process sends the exact five-field body.
	for _, extra := range []string{"repeat_penalty", "top_p", "top_k", "repeat_last_n"} {
		if _, ok := gotBody[extra]; ok {
			t.Errorf("unexpected field %s in process payload", extra)
		}
	}
}

func TestProcessInvalidRequestSkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	result := client.Process(model.ProcessingRequest{Transcript: "   "}, nil)

	if result.Status != model.StatusFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
	if result.ProcessingTimeMs != 0 {
		t.Errorf("processing time = %g, want 0", result.ProcessingTimeMs)
	}
	if calls.Load() != 0 {
		t.Errorf("expected no network call, got %d", calls.Load())
	}
}

func TestProcessCancelledBeforeCall(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"content": "ok"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	client.Cancel()

	result := client.Process(model.ProcessingRequest{Transcript: "hello"}, nil)
	if result.Status != model.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", result.Status)
	}
	if calls.Load() != 0 {
		t.Errorf("cancelled before call should skip the network, got %d calls", calls.Load())
	}

	// The flag clears once consumed: the next call goes through.
	result = client.Process(model.ProcessingRequest{Transcript: "hello"}, nil)
	if !result.IsSuccess() {
		t.Errorf("expected success after cancel consumed, got %s", result.Status)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call after reset, got %d", calls.Load())
	}
}

func TestProcessHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	result := client.Process(model.ProcessingRequest{Transcript: "hello"}, nil)

	if result.Status != model.StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "500") {
		t.Errorf("error should name the status code: %q", result.ErrorMessage)
	}
	if !strings.Contains(result.ErrorMessage, "model not loaded") {
		t.Errorf("error should include the response body: %q", result.ErrorMessage)
	}
}

func TestProcessMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	result := client.Process(model.ProcessingRequest{Transcript: "hello"}, nil)

	if result.Status != model.StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "decode") {
		t.Errorf("error should mention decoding: %q", result.ErrorMessage)
	}
}

func TestProcessConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := NewClient(testConfig(endpoint))
	result := client.Process(model.ProcessingRequest{Transcript: "hello"}, nil)

	if result.Status != model.StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "verify the endpoint is running") {
		t.Errorf("error should instruct the operator: %q", result.ErrorMessage)
	}
}

func TestProcessTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"content": "late"}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.TimeoutSeconds = 0.05
	client := NewClient(cfg)

	result := client.Process(model.ProcessingRequest{Transcript: "hello"}, nil)
	if result.Status != model.StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if !strings.Contains(result.ErrorMessage, "timed out after 0.05s") {
		t.Errorf("error should name the configured timeout: %q", result.ErrorMessage)
	}
}

func TestProcessRequestOverrides(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"content": "ok"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	temp := 0.2
	result := client.Process(model.ProcessingRequest{
		Transcript:   "hello",
		CustomPrompt: "Summarize as bullet points:",
		MaxTokens:    64,
		Temperature:  &temp,
	}, nil)

	if !result.IsSuccess() {
		t.Fatalf("expected success, got %s", result.Status)
	}
	if gotBody["n_predict"] != float64(64) {
		t.Errorf("n_predict = %v, want 64", gotBody["n_predict"])
	}
	if gotBody["temperature"] != 0.2 {
		t.Errorf("temperature = %v, want 0.2", gotBody["temperature"])
	}
	prompt, _ := gotBody["prompt"].(string)
	if !strings.Contains(prompt, "Summarize as bullet points:") {
		t.Errorf("custom prompt not applied: %q", prompt)
	}
	if strings.Contains(prompt, "Convert this transcript into clear notes:") {
		t.Errorf("default instruction should be replaced: %q", prompt)
	}
}

func TestCheckAvailability(t *testing.T) {
	t.Run("health endpoint ok", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ok, err := CheckAvailability(server.URL + "/completion")
		if !ok {
			t.Errorf("expected available, got %v", err)
		}
	})

	t.Run("404 on base counts as responding", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		ok, err := CheckAvailability(server.URL)
		if !ok {
			t.Errorf("404 means the server is responding, got %v", err)
		}
	})

	t.Run("server error is unhealthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		ok, err := CheckAvailability(server.URL)
		if ok {
			t.Error("expected unavailable")
		}
		if err == nil || !strings.Contains(err.Error(), "500") {
			t.Errorf("error should name the status: %v", err)
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		endpoint := server.URL
		server.Close()

		ok, err := CheckAvailability(endpoint)
		if ok {
			t.Error("expected unavailable")
		}
		if err == nil {
			t.Error("expected an error")
		}
	})
}

func TestCompleteSendsSamplingParams(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"content": "reply"}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.RepeatPenalty = 1.15
	cfg.RepeatLastN = 64
	cfg.TopP = 0.9
	cfg.TopK = 40
	client := NewClient(cfg)

	text, err := client.Complete("prompt", []string{"\nUser:"})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if text != "reply" {
		t.Errorf("text = %q", text)
	}
	if gotBody["repeat_penalty"] != 1.15 {
		t.Errorf("repeat_penalty = %v", gotBody["repeat_penalty"])
	}
	if gotBody["top_k"] != float64(40) {
		t.Errorf("top_k = %v", gotBody["top_k"])
	}
	stops, _ := gotBody["stop"].([]any)
	if len(stops) != 1 || stops[0] != "\nUser:" {
		t.Errorf("stop = %v", gotBody["stop"])
	}
}
