// Package inference turns transcript text into one HTTP completion
// round trip against a llama.cpp-style server. All failure modes are
// returned as structured results, never as panics or propagated
// errors, so callers need no error handling around Process.
package inference

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openscribe/scribe/internal/model"
)

// ErrCancelled reports a cooperatively cancelled round trip.
var ErrCancelled = errors.New("inference cancelled")

const defaultInstruction = "Convert this transcript into clear notes:"

type Config struct {
	Provider       string
	EndpointURL    string
	APIKey         string
	BaseURL        string
	Model          string
	MaxTokens      int
	Temperature    float64
	TimeoutSeconds float64
	SystemPrompt   string

	// Extended sampling, applied to chat completions only.
	RepeatPenalty float64
	RepeatLastN   int
	TopP          float64
	TopK          int
}

// Client is the llama.cpp-style HTTP inference client.
type Client struct {
	config     Config
	httpClient *http.Client

	// mu serializes request construction and guards the cancellation
	// flag, so Cancel cannot race a fresh "not cancelled" reset.
	mu        sync.Mutex
	cancelled bool
}

func NewClient(config Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds * float64(time.Second)),
		},
	}
}

// Cancel raises the cooperative cancellation flag. An in-flight call
// runs to completion; its result is discarded and replaced by a
// Cancelled result. The flag clears once consumed.
func (c *Client) Cancel() {
	c.mu.Lock()
	c.cancelled = true
	c.mu.Unlock()
}

// takeCancelled consumes the cancellation flag.
func (c *Client) takeCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		c.cancelled = false
		return true
	}
	return false
}

// Process runs one blocking inference round trip. Invalid requests
// fail fast with zero processing time and no network call.
func (c *Client) Process(req model.ProcessingRequest, onStatus func(string)) model.ProcessingResult {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return model.Failure(fmt.Sprintf("invalid request: %v", err), 0)
	}

	id := uuid.NewString()[:8]
	notify(onStatus, "Sending request to inference server...")

	prompt := BuildPrompt(c.config.SystemPrompt, req.CustomPrompt, req.Transcript)

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.config.MaxTokens
	}
	temperature := c.config.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	text, err := c.generate(prompt, generateParams{
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Stop:        []string{},
	})
	elapsed := elapsedMs(start)

	if err != nil {
		if errors.Is(err, ErrCancelled) {
			log.Printf("inference: request %s cancelled after %.0fms", id, elapsed)
			return model.Cancelled()
		}
		log.Printf("inference: request %s failed after %.0fms: %v", id, elapsed, err)
		return model.Failure(err.Error(), elapsed)
	}

	notify(onStatus, "Processing complete")
	log.Printf("inference: request %s completed in %.0fms", id, elapsed)
	return model.Success(text, elapsed)
}

// Complete runs one raw completion round trip with the configured
// defaults and extended sampling parameters. Used by the chat session,
// which shares this client's cancellation flag.
func (c *Client) Complete(prompt string, stop []string) (string, error) {
	if stop == nil {
		stop = []string{}
	}
	return c.generate(prompt, generateParams{
		MaxTokens:     c.config.MaxTokens,
		Temperature:   c.config.Temperature,
		Stop:          stop,
		RepeatPenalty: c.config.RepeatPenalty,
		RepeatLastN:   c.config.RepeatLastN,
		TopP:          c.config.TopP,
		TopK:          c.config.TopK,
	})
}

type generateParams struct {
	MaxTokens     int
	Temperature   float64
	Stop          []string
	RepeatPenalty float64
	RepeatLastN   int
	TopP          float64
	TopK          int
}

type completionPayload struct {
	Prompt        string   `json:"prompt"`
	NPredict      int      `json:"n_predict"`
	Temperature   float64  `json:"temperature"`
	Stop          []string `json:"stop"`
	Stream        bool     `json:"stream"`
	RepeatPenalty float64  `json:"repeat_penalty,omitempty"`
	RepeatLastN   int      `json:"repeat_last_n,omitempty"`
	TopP          float64  `json:"top_p,omitempty"`
	TopK          int      `json:"top_k,omitempty"`
}

// generate performs the POST. The cancellation flag is checked before
// building the payload, before sending, and after receiving;
// cancellation is cooperative, not a network-level abort.
func (c *Client) generate(prompt string, p generateParams) (string, error) {
	if c.takeCancelled() {
		return "", ErrCancelled
	}

	body, err := json.Marshal(completionPayload{
		Prompt:        prompt,
		NPredict:      p.MaxTokens,
		Temperature:   p.Temperature,
		Stop:          p.Stop,
		Stream:        false,
		RepeatPenalty: p.RepeatPenalty,
		RepeatLastN:   p.RepeatLastN,
		TopP:          p.TopP,
		TopK:          p.TopK,
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	if c.takeCancelled() {
		return "", ErrCancelled
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.config.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)

	if c.takeCancelled() {
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}
		return "", ErrCancelled
	}

	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			return "", fmt.Errorf("inference request timed out after %gs: ensure the server at %s is responsive",
				c.config.TimeoutSeconds, c.config.EndpointURL)
		}
		return "", fmt.Errorf("cannot connect to inference server at %s: %v (verify the endpoint is running)",
			c.config.EndpointURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("inference server returned HTTP %d: %s",
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", fmt.Errorf("decode inference response: %v", err)
	}

	return ExtractText(data), nil
}

var probeClient = &http.Client{Timeout: 5 * time.Second}

// CheckAvailability probes whether an inference server is responding.
// The derived /health path is tried first, then the base endpoint;
// HTTP 200 or 404 on the base counts as responding, since llama.cpp
// builds differ in what they serve at the root.
func CheckAvailability(endpointURL string) (bool, error) {
	base := strings.TrimSuffix(endpointURL, "/completion")
	base = strings.TrimSuffix(base, "/")

	if resp, err := probeClient.Get(base + "/health"); err == nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return true, nil
		}
	}

	resp, err := probeClient.Get(base)
	if err != nil {
		return false, fmt.Errorf("cannot connect to inference server at %s: %w", endpointURL, err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound {
		return true, nil
	}
	return false, fmt.Errorf("inference server unhealthy (status %d)", resp.StatusCode)
}

func notify(onStatus func(string), msg string) {
	if onStatus != nil {
		onStatus(msg)
	}
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
