package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// FakeLLM implements a fake language model for testing
type FakeLLM struct {
	mu           sync.Mutex
	responses    []string
	currentIndex int
	callCount    int
	lastPrompt   string
	errorOnCall  int // if > 0, return an error on this call number
	errorMessage string
}

// NewFakeLLM creates a new fake LLM with predefined responses
func NewFakeLLM(responses ...string) *FakeLLM {
	return &FakeLLM{
		responses: responses,
	}
}

// Call implements the LLM interface
func (f *FakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callCount++
	f.lastPrompt = prompt

	if f.errorOnCall > 0 && f.callCount == f.errorOnCall {
		if f.errorMessage != "" {
			return "", errors.New(f.errorMessage)
		}
		return "", errors.New("fake error")
	}

	if len(f.responses) == 0 {
		return "", errors.New("no responses configured")
	}

	response := f.responses[f.currentIndex]
	f.currentIndex = (f.currentIndex + 1) % len(f.responses)

	return response, nil
}

// GenerateContent implements the LLM interface for message-based
// generation; a configured streaming func receives the whole response as
// a single delta.
func (f *FakeLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var parts []string
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				parts = append(parts, text.Text)
			}
		}
	}

	response, err := f.Call(ctx, strings.Join(parts, "\n"), options...)
	if err != nil {
		return nil, err
	}

	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.StreamingFunc != nil {
		if err := opts.StreamingFunc(ctx, []byte(response)); err != nil {
			return nil, err
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: response},
		},
	}, nil
}

// SetErrorOnCall makes the given call number fail
func (f *FakeLLM) SetErrorOnCall(call int, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errorOnCall = call
	f.errorMessage = message
}

// GetCallCount returns how many calls were made
func (f *FakeLLM) GetCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

// GetLastPrompt returns the prompt of the most recent call
func (f *FakeLLM) GetLastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastPrompt
}

// Reset resets the response index and call count
func (f *FakeLLM) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.currentIndex = 0
	f.callCount = 0
	f.lastPrompt = ""
}
