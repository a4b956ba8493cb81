package model

import (
	"fmt"
	"strings"
	"time"
)

// Status tracks the lifecycle of one inference request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// TranscriptionResult is one recognizer emission. Values are created once
// per emission and never mutated.
type TranscriptionResult struct {
	Text       string
	IsPartial  bool
	Timestamp  time.Time
	Confidence *float64
}

func (r TranscriptionResult) IsFinal() bool {
	return !r.IsPartial
}

// ProcessingRequest carries transcribed text to the inference layer.
// Zero MaxTokens and nil Temperature mean "use the configured default".
type ProcessingRequest struct {
	Transcript   string
	CustomPrompt string
	MaxTokens    int
	Temperature  *float64
}

func (r ProcessingRequest) Validate() error {
	if strings.TrimSpace(r.Transcript) == "" {
		return fmt.Errorf("transcript cannot be empty")
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", r.MaxTokens)
	}
	if r.Temperature != nil && (*r.Temperature < 0.0 || *r.Temperature > 2.0) {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %g", *r.Temperature)
	}
	return nil
}

// ProcessingResult is the structured outcome of one inference request.
// Failures are data, never panics: a result always carries either text
// or a human-readable error message.
type ProcessingResult struct {
	Status           Status
	ProcessedText    string
	ErrorMessage     string
	ProcessingTimeMs float64
}

func Success(text string, elapsedMs float64) ProcessingResult {
	return ProcessingResult{
		Status:           StatusCompleted,
		ProcessedText:    text,
		ProcessingTimeMs: elapsedMs,
	}
}

func Failure(message string, elapsedMs float64) ProcessingResult {
	return ProcessingResult{
		Status:           StatusFailed,
		ErrorMessage:     message,
		ProcessingTimeMs: elapsedMs,
	}
}

func Cancelled() ProcessingResult {
	return ProcessingResult{
		Status:       StatusCancelled,
		ErrorMessage: "processing cancelled by user",
	}
}

func (r ProcessingResult) IsSuccess() bool {
	return r.Status == StatusCompleted && r.ProcessedText != ""
}

func (r ProcessingResult) IsError() bool {
	return r.Status == StatusFailed
}

// TextOrError always returns a displayable string.
func (r ProcessingResult) TextOrError() string {
	switch {
	case r.IsSuccess():
		return r.ProcessedText
	case r.ErrorMessage != "":
		return fmt.Sprintf("Error: %s", r.ErrorMessage)
	default:
		return fmt.Sprintf("Processing %s", r.Status)
	}
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry in a conversation history.
type ChatMessage struct {
	Role    Role
	Content string
}
