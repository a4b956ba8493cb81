package inference

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/openscribe/scribe/internal/model"
)

// OpenAIProcessor implements Processor against OpenAI-compatible chat
// completion servers. It keeps the same never-throwing result contract
// and cooperative cancellation semantics as the llama.cpp client.
type OpenAIProcessor struct {
	client *openai.Client
	config Config

	mu        sync.Mutex
	cancelled bool
}

func NewOpenAIProcessor(config Config) *OpenAIProcessor {
	cc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cc.BaseURL = config.BaseURL
	}
	return &OpenAIProcessor{
		client: openai.NewClientWithConfig(cc),
		config: config,
	}
}

func (p *OpenAIProcessor) Cancel() {
	p.mu.Lock()
	p.cancelled = true
	p.mu.Unlock()
}

func (p *OpenAIProcessor) takeCancelled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelled {
		p.cancelled = false
		return true
	}
	return false
}

func (p *OpenAIProcessor) Process(req model.ProcessingRequest, onStatus func(string)) model.ProcessingResult {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return model.Failure(fmt.Sprintf("invalid request: %v", err), 0)
	}
	if p.takeCancelled() {
		return model.Cancelled()
	}

	notify(onStatus, "Sending request to inference server...")

	instruction := req.CustomPrompt
	if instruction == "" {
		instruction = defaultInstruction
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	temperature := p.config.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	mdl := p.config.Model
	if mdl == "" {
		mdl = openai.GPT4oMini
	}

	chatReq := openai.ChatCompletionRequest{
		Model: mdl,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.config.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("%s\n\nTranscript:\n%s", instruction, req.Transcript)},
		},
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(p.config.TimeoutSeconds*float64(time.Second)))
	defer cancel()

	if p.takeCancelled() {
		return model.Cancelled()
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	elapsed := elapsedMs(start)

	if p.takeCancelled() {
		return model.Cancelled()
	}
	if err != nil {
		log.Printf("openai-processor: request failed after %.0fms: %v", elapsed, err)
		return model.Failure(fmt.Sprintf("chat completion: %v", err), elapsed)
	}
	if len(resp.Choices) == 0 {
		return model.Failure("chat completion: no response choices", elapsed)
	}

	notify(onStatus, "Processing complete")
	return model.Success(resp.Choices[0].Message.Content, elapsed)
}
