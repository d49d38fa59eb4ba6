package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/parleychat/parley/pkg/chat"
)

// StreamingClient extends Client with chunked streaming over
// newline-delimited JSON.
type StreamingClient struct {
	*Client
}

func NewStreamingClient(baseURL string) *StreamingClient {
	return &StreamingClient{Client: NewClient(baseURL)}
}

func NewStreamingClientWithTimeout(baseURL string, timeout time.Duration) *StreamingClient {
	return &StreamingClient{Client: NewClientWithTimeout(baseURL, timeout)}
}

// StreamMessage sends a chat request and returns a channel of chunks.
// The channel is closed after a done chunk, an error chunk, or when ctx
// is cancelled; cancellation is checked between chunk deliveries.
func (sc *StreamingClient) StreamMessage(ctx context.Context, req ChatRequest) (<-chan chat.Chunk, error) {
	req.Options.Stream = true

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Op: "stream", Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	url := sc.baseURL + "/api/v1/chat/stream"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, &TransportError{Op: "stream", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := sc.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "stream", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, &TransportError{Op: "stream", Err: fmt.Errorf("status %d", resp.StatusCode)}
		}

		var errorResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errorResp) == nil && errorResp.Error != "" {
			return nil, &TransportError{Op: "stream", Err: fmt.Errorf("status %d: %s", resp.StatusCode, errorResp.Error)}
		}
		return nil, &TransportError{Op: "stream", Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	chunks := make(chan chat.Chunk, 64)
	go sc.readStream(ctx, resp.Body, chunks)

	return chunks, nil
}

func (sc *StreamingClient) readStream(ctx context.Context, body io.ReadCloser, chunks chan<- chat.Chunk) {
	defer close(chunks)
	defer body.Close()

	scanner := bufio.NewScanner(body)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			chunks <- chat.ErrorChunk(ctx.Err().Error())
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var chunk chat.Chunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			chunks <- chat.ErrorChunk(fmt.Sprintf("failed to parse chunk: %v", err))
			return
		}
		chunk.Timestamp = time.Now()

		chunks <- chunk

		if chunk.IsError() || chunk.Done {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		chunks <- chat.ErrorChunk(fmt.Sprintf("stream reading error: %v", err))
	}
}
