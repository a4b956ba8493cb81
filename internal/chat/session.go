// Package chat layers conversation history and context-window trimming
// on top of the inference client.
package chat

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/openscribe/scribe/internal/inference"
	"github.com/openscribe/scribe/internal/model"
)

const systemInstruction = "You are a helpful AI assistant. Respond concisely and accurately."

// maxContextMessages bounds prompt growth: only this many trailing
// history entries are serialized into the outgoing prompt.
const maxContextMessages = 10

// chatStops ends generation before the model starts speaking for the
// user.
var chatStops = []string{"\nUser:", "\n\n", "\nYou:", "\nQuestion:"}

// Response is the structured outcome of one chat turn.
type Response struct {
	Success bool
	Message string
	Err     string
}

// Session holds one conversation. It shares the inference client and
// therefore its cancellation flag.
type Session struct {
	client *inference.Client

	mu      sync.Mutex
	history []model.ChatMessage
}

func NewSession(client *inference.Client) *Session {
	return &Session{client: client}
}

// SendMessage runs one blocking chat turn. The user message is added
// to history before the network call so the conversation always shows
// what was sent, even when the call fails; the assistant reply is
// recorded only on success.
func (s *Session) SendMessage(text string, onStatus func(string)) Response {
	if strings.TrimSpace(text) == "" {
		return Response{Err: "empty message"}
	}

	s.mu.Lock()
	context := buildContext(s.history)
	s.history = append(s.history, model.ChatMessage{Role: model.RoleUser, Content: text})
	s.mu.Unlock()

	if onStatus != nil {
		onStatus("Sending message...")
	}

	prompt := fmt.Sprintf("%s\n\nUser: %s\nAssistant:", context, text)

	reply, err := s.client.Complete(prompt, chatStops)
	if err != nil {
		if errors.Is(err, inference.ErrCancelled) {
			return Response{Err: "cancelled by user"}
		}
		log.Printf("chat: send failed: %v", err)
		return Response{Err: err.Error()}
	}

	s.mu.Lock()
	s.history = append(s.history, model.ChatMessage{Role: model.RoleAssistant, Content: reply})
	s.mu.Unlock()

	return Response{Success: true, Message: reply}
}

// buildContext serializes the trailing history oldest-first. An empty
// history yields the fixed system instruction instead.
func buildContext(history []model.ChatMessage) string {
	if len(history) == 0 {
		return systemInstruction
	}

	recent := history
	if len(recent) > maxContextMessages {
		recent = recent[len(recent)-maxContextMessages:]
	}

	lines := make([]string, 0, len(recent)+1)
	lines = append(lines, "Conversation history:")
	for _, msg := range recent {
		lines = append(lines, fmt.Sprintf("%s: %s", capitalize(string(msg.Role)), msg.Content))
	}
	return strings.Join(lines, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Cancel raises the shared cooperative cancellation flag.
func (s *Session) Cancel() {
	s.client.Cancel()
}

func (s *Session) ClearHistory() {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()
}

// History returns a copy of the conversation so far.
func (s *Session) History() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}
