package model

import (
	"strings"
	"testing"
	"time"
)

func TestProcessingRequestValidate(t *testing.T) {
	temp := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		req     ProcessingRequest
		wantErr string
	}{
		{
			name: "valid minimal",
			req:  ProcessingRequest{Transcript: "hello world"},
		},
		{
			name: "valid with options",
			req:  ProcessingRequest{Transcript: "hello", MaxTokens: 256, Temperature: temp(0.0)},
		},
		{
			name:    "empty transcript",
			req:     ProcessingRequest{Transcript: ""},
			wantErr: "transcript",
		},
		{
			name:    "whitespace transcript",
			req:     ProcessingRequest{Transcript: "   \n\t "},
			wantErr: "transcript",
		},
		{
			name:    "negative max tokens",
			req:     ProcessingRequest{Transcript: "hello", MaxTokens: -1},
			wantErr: "max_tokens",
		},
		{
			name:    "temperature too high",
			req:     ProcessingRequest{Transcript: "hello", Temperature: temp(2.5)},
			wantErr: "temperature",
		},
		{
			name:    "temperature negative",
			req:     ProcessingRequest{Transcript: "hello", Temperature: temp(-0.1)},
			wantErr: "temperature",
		},
		{
			name: "temperature upper bound",
			req:  ProcessingRequest{Transcript: "hello", Temperature: temp(2.0)},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestProcessingResult(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		r := Success("cleaned notes", 120)
		if !r.IsSuccess() {
			t.Error("success result should report IsSuccess")
		}
		if r.IsError() {
			t.Error("success result should not report IsError")
		}
		if r.TextOrError() != "cleaned notes" {
			t.Errorf("TextOrError = %q", r.TextOrError())
		}
	})

	t.Run("failure", func(t *testing.T) {
		r := Failure("connection refused", 30)
		if r.IsSuccess() {
			t.Error("failure should not report IsSuccess")
		}
		if !r.IsError() {
			t.Error("failure should report IsError")
		}
		if got := r.TextOrError(); got != "Error: connection refused" {
			t.Errorf("TextOrError = %q", got)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		r := Cancelled()
		if r.Status != StatusCancelled {
			t.Errorf("status = %s", r.Status)
		}
		if r.IsSuccess() || r.IsError() {
			t.Error("cancelled is neither success nor failure")
		}
		if r.ErrorMessage == "" {
			t.Error("cancelled result should carry a message")
		}
	})

	t.Run("completed without text is not success", func(t *testing.T) {
		r := ProcessingResult{Status: StatusCompleted}
		if r.IsSuccess() {
			t.Error("completed with empty text must not report IsSuccess")
		}
	})
}

func TestTranscriptionResult(t *testing.T) {
	partial := TranscriptionResult{Text: "hel", IsPartial: true, Timestamp: time.Now()}
	if partial.IsFinal() {
		t.Error("partial result reported final")
	}

	final := TranscriptionResult{Text: "hello", IsPartial: false, Timestamp: time.Now()}
	if !final.IsFinal() {
		t.Error("final result reported partial")
	}
}
