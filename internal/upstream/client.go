package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAPIVersion = "2023-06-01"

// ErrTimeout reports that the upstream call exceeded the client timeout.
var ErrTimeout = errors.New("upstream request timed out")

// Client talks to the provider's message-creation endpoint. It is constructed
// once and injected into the proxy handler and the worker; there are no
// process-wide lazily-initialized instances.
type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ForwardResult carries the raw upstream response so the proxy can relay it
// byte-for-byte.
type ForwardResult struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Forward posts body verbatim to the upstream endpoint with the given
// credential, passing through the supplied headers. Timeouts are mapped to
// ErrTimeout so callers can distinguish them from other transport failures.
func (c *Client) Forward(ctx context.Context, apiKey string, body []byte, passThrough http.Header) (*ForwardResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")
	for name, values := range passThrough {
		for _, v := range values {
			req.Header.Set(name, v)
		}
	}
	if req.Header.Get("anthropic-version") == "" {
		req.Header.Set("anthropic-version", defaultAPIVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("read upstream response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}

	return &ForwardResult{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        respBody,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// MessageRequest is the subset of the provider's message-creation request the
// worker needs for unattended agent runs.
type MessageRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
	System      string        `json:"system,omitempty"`
	Messages    []ChatMessage `json:"messages"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessageResponse is the subset of the provider response the worker and the
// proxy's usage metering care about.
type MessageResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage Usage `json:"usage"`
}

type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Text concatenates the text blocks of the response.
func (r *MessageResponse) Text() string {
	var buf bytes.Buffer
	for _, block := range r.Content {
		if block.Type == "text" {
			buf.WriteString(block.Text)
		}
	}
	return buf.String()
}

// CreateMessage performs a structured message call, used by the worker where
// the request is built server-side rather than relayed.
func (c *Client) CreateMessage(ctx context.Context, apiKey string, req MessageRequest) (*MessageResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal message request: %w", err)
	}

	result, err := c.Forward(ctx, apiKey, body, nil)
	if err != nil {
		return nil, err
	}
	if result.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned HTTP %d: %s", result.StatusCode, truncate(string(result.Body), 200))
	}

	var resp MessageResponse
	if err := json.Unmarshal(result.Body, &resp); err != nil {
		return nil, fmt.Errorf("decode upstream response: %w", err)
	}
	return &resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
