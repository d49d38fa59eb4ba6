package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/parleychat/parley/pkg/chat"
)

// Client talks to the hosted chat backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return NewClientWithTimeout(baseURL, 60*time.Second)
}

func NewClientWithTimeout(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) GetSessions(ctx context.Context) ([]chat.Session, error) {
	var out struct {
		Sessions []chat.Session `json:"sessions"`
	}
	if err := c.getJSON(ctx, "/api/v1/sessions", &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (chat.Message, error) {
	req.Options.Stream = false

	var out struct {
		Data chat.Message `json:"data"`
	}
	if err := c.postJSON(ctx, "/api/v1/chat", req, &out); err != nil {
		return chat.Message{}, err
	}
	return out.Data, nil
}

func (c *Client) GetHistory(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var out struct {
		Data struct {
			Messages []chat.Message `json:"messages"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/api/v1/sessions/%s/messages", sessionID)
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Data.Messages, nil
}

func (c *Client) RegenerateMessage(ctx context.Context, req RegenerateRequest) (chat.Message, error) {
	var out struct {
		Data chat.Message `json:"data"`
	}
	if err := c.postJSON(ctx, "/api/v1/chat/regenerate", req, &out); err != nil {
		return chat.Message{}, err
	}
	return out.Data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &TransportError{Op: "GET " + path, Err: err}
	}
	return c.do(httpReq, path, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return &TransportError{Op: "POST " + path, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(reqBody))
	if err != nil {
		return &TransportError{Op: "POST " + path, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq, path, out)
}

func (c *Client) do(httpReq *http.Request, path string, out any) error {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &TransportError{Op: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)

		var errorResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errorResp) == nil && errorResp.Error != "" {
			return &TransportError{Op: path, Err: fmt.Errorf("status %d: %s", resp.StatusCode, errorResp.Error)}
		}
		return &TransportError{Op: path, Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: path, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
