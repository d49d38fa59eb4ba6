package testutil

import (
	"context"
	"sync"

	"github.com/parleychat/parley/pkg/api"
	"github.com/parleychat/parley/pkg/chat"
)

// FakeStreamingClient replays scripted chunk sequences, one per call,
// in order. It satisfies the consumer's Streamer interface.
type FakeStreamingClient struct {
	mu        sync.Mutex
	scripts   [][]chat.Chunk
	callIndex int
	requests  []api.ChatRequest
	sendErr   error
}

func NewFakeStreamingClient(scripts ...[]chat.Chunk) *FakeStreamingClient {
	return &FakeStreamingClient{scripts: scripts}
}

// Script builds a content-chunk sequence ending in a done chunk.
func Script(deltas ...string) []chat.Chunk {
	chunks := make([]chat.Chunk, 0, len(deltas)+1)
	for _, delta := range deltas {
		chunks = append(chunks, chat.ContentChunk(delta, false))
	}
	return append(chunks, chat.DoneChunk())
}

// ScriptWithError builds a sequence that streams deltas then fails.
func ScriptWithError(errMsg string, deltas ...string) []chat.Chunk {
	chunks := make([]chat.Chunk, 0, len(deltas)+1)
	for _, delta := range deltas {
		chunks = append(chunks, chat.ContentChunk(delta, false))
	}
	return append(chunks, chat.ErrorChunk(errMsg))
}

// SetSendError makes every call fail at the transport level.
func (f *FakeStreamingClient) SetSendError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

// Requests returns every request received so far.
func (f *FakeStreamingClient) Requests() []api.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]api.ChatRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *FakeStreamingClient) nextScript(req api.ChatRequest) ([]chat.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if f.callIndex >= len(f.scripts) {
		return []chat.Chunk{chat.DoneChunk()}, nil
	}

	script := f.scripts[f.callIndex]
	f.callIndex++
	return script, nil
}

func (f *FakeStreamingClient) StreamMessage(ctx context.Context, req api.ChatRequest) (<-chan chat.Chunk, error) {
	script, err := f.nextScript(req)
	if err != nil {
		return nil, err
	}

	chunks := make(chan chat.Chunk, len(script))
	go func() {
		defer close(chunks)
		for _, chunk := range script {
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
			if chunk.IsError() || chunk.Done {
				return
			}
		}
	}()

	return chunks, nil
}

func (f *FakeStreamingClient) SendMessage(ctx context.Context, req api.ChatRequest) (chat.Message, error) {
	script, err := f.nextScript(req)
	if err != nil {
		return chat.Message{}, err
	}

	content := ""
	for _, chunk := range script {
		if chunk.IsError() {
			return chat.Message{}, &api.StreamError{Message: chunk.Error}
		}
		content += chunk.Content
	}
	return chat.NewAssistantMessage(content), nil
}
