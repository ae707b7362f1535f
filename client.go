package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultHTTPTimeout = 60 * time.Second

// serviceClient wraps the remote chat service. Every non-2xx status and every
// transport failure is reported as a plain error; callers do not distinguish
// status codes.
type serviceClient struct {
	baseURL string
	http    *http.Client
}

func newServiceClient(baseURL string, timeout time.Duration) *serviceClient {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &serviceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
}

type summarizeRequest struct {
	Text string `json:"text"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// historyMessage is one record of the flat history feed: a chat message
// tagged with the session it belongs to.
type historyMessage struct {
	SessionID string `json:"sessionId"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// sendMessage posts one user message. The session id is omitted from the
// request while the session is unestablished; the response always carries one.
func (c *serviceClient) sendMessage(ctx context.Context, text, sessionID string) (chatResponse, error) {
	var resp chatResponse
	err := c.postJSON(ctx, "/api/chat", chatRequest{Message: text, SessionID: sessionID}, &resp)
	if err != nil {
		return chatResponse{}, err
	}
	return resp, nil
}

func (c *serviceClient) summarize(ctx context.Context, text string) (string, error) {
	var resp summarizeResponse
	if err := c.postJSON(ctx, "/api/summarize", summarizeRequest{Text: text}, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

// listRecent fetches the flat, ungrouped history feed.
func (c *serviceClient) listRecent(ctx context.Context) ([]historyMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/history", nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var flat []historyMessage
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, fmt.Errorf("decode history response: %w", err)
	}
	return flat, nil
}

// deleteSession removes the server-side history for one session. Idempotent
// from the caller's perspective; the response body is ignored.
func (c *serviceClient) deleteSession(ctx context.Context, sessionID string) error {
	endpoint := c.baseURL + "/api/history/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	if _, err := c.do(req); err != nil {
		return err
	}
	return nil
}

func (c *serviceClient) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	return nil
}

func (c *serviceClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call chat service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat service response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chat service %d: %s", resp.StatusCode, previewForLog(strings.TrimSpace(string(body)), 200))
	}
	return body, nil
}

// previewForLog shortens a body for inclusion in error and log messages.
func previewForLog(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
