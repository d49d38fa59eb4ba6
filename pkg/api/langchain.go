package api

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/parleychat/parley/pkg/chat"
	"github.com/parleychat/parley/pkg/logger"
)

// LangChainClient runs sends against a local Ollama instance through
// LangChain Go. Sessions live client-side in this mode, so it only
// implements the send/stream half of the facade.
type LangChainClient struct {
	llm   llms.Model
	model string
}

func NewLangChainClient(baseURL, model string) (*LangChainClient, error) {
	var opts []ollama.Option

	if baseURL != "" {
		opts = append(opts, ollama.WithServerURL(baseURL))
	}
	if model != "" {
		opts = append(opts, ollama.WithModel(model))
	}

	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	return &LangChainClient{llm: llm, model: model}, nil
}

// NewLangChainClientWithModel wraps an existing llms.Model. Used by tests
// and anywhere a provider is constructed out-of-band.
func NewLangChainClientWithModel(llm llms.Model, model string) *LangChainClient {
	return &LangChainClient{llm: llm, model: model}
}

func (lc *LangChainClient) SendMessage(ctx context.Context, req ChatRequest) (chat.Message, error) {
	response, err := lc.llm.GenerateContent(ctx, convertMessages(req.Messages), lc.callOptions(req)...)
	if err != nil {
		return chat.Message{}, &TransportError{Op: "generate", Err: err}
	}

	if len(response.Choices) == 0 {
		return chat.Message{}, &TransportError{Op: "generate", Err: fmt.Errorf("no response choices returned")}
	}

	return chat.NewAssistantMessage(response.Choices[0].Content), nil
}

// StreamMessage returns a channel fed by the provider's streaming
// callback. The channel is closed after the done chunk or an error;
// cancellation flows through ctx into the underlying call.
func (lc *LangChainClient) StreamMessage(ctx context.Context, req ChatRequest) (<-chan chat.Chunk, error) {
	chunks := make(chan chat.Chunk, 64)

	opts := lc.callOptions(req)
	opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, delta []byte) error {
		select {
		case chunks <- chat.ContentChunk(string(delta), false):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}))

	go func() {
		defer close(chunks)

		_, err := lc.llm.GenerateContent(ctx, convertMessages(req.Messages), opts...)
		if err != nil {
			logger.Debug("streaming generate failed: %v", err)
			chunks <- chat.ErrorChunk(err.Error())
			return
		}
		chunks <- chat.DoneChunk()
	}()

	return chunks, nil
}

func (lc *LangChainClient) callOptions(req ChatRequest) []llms.CallOption {
	var opts []llms.CallOption
	if req.Options.Model != "" {
		opts = append(opts, llms.WithModel(req.Options.Model))
	}
	if req.Options.Temperature != 0 {
		opts = append(opts, llms.WithTemperature(req.Options.Temperature))
	}
	if req.Options.MaxTokens != 0 {
		opts = append(opts, llms.WithMaxTokens(req.Options.MaxTokens))
	}
	return opts
}

func convertMessages(messages []chat.Message) []llms.MessageContent {
	converted := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		messageType := llms.ChatMessageTypeHuman
		switch msg.Role {
		case chat.RoleSystem:
			messageType = llms.ChatMessageTypeSystem
		case chat.RoleAssistant:
			messageType = llms.ChatMessageTypeAI
		}
		converted = append(converted, llms.TextParts(messageType, msg.Content))
	}
	return converted
}
