package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// How much of a non-JSON error body is surfaced to the user.
const rawBodyExcerptLen = 180

// APIError is a non-2xx reply from the backend, with the most useful message
// the body offered.
type APIError struct {
	Status  int
	Message string
	Details json.RawMessage
}

func (e *APIError) Error() string {
	return e.Message
}

// Client talks to the QA backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a client for the backend at baseURL. timeout bounds each
// individual ask; zero means 30 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
	}
}

// Ask posts the question and document to the backend and decodes the answer.
// Non-2xx replies come back as *APIError. Cancellation and deadline errors
// from ctx pass through wrapped so callers can classify them.
func (c *Client) Ask(ctx context.Context, question, documentText string) (*AskResponse, error) {
	if c.baseURL == "" {
		return nil, &APIError{Status: http.StatusInternalServerError, Message: "QA backend URL is not configured"}
	}

	body, err := json.Marshal(AskRequest{Question: question, DocumentText: documentText})
	if err != nil {
		return nil, fmt.Errorf("encode ask request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ask request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ask backend: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ask response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Message: errorMessage(raw, resp.StatusCode),
			Details: jsonDetails(raw),
		}
	}

	var parsed AskResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode ask response: %w", err)
	}
	return &parsed, nil
}

// errorMessage extracts the best available message from a failure body, in
// priority order: structured "detail", structured "error", a truncated raw
// excerpt, then a generic fallback carrying the status code.
func errorMessage(raw []byte, status int) string {
	var body struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Detail != "" {
			return body.Detail
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if excerpt := strings.TrimSpace(string(raw)); excerpt != "" {
		if len(excerpt) > rawBodyExcerptLen {
			excerpt = excerpt[:rawBodyExcerptLen]
		}
		return excerpt
	}
	return fmt.Sprintf("Request failed (%d)", status)
}

func jsonDetails(raw []byte) json.RawMessage {
	if !json.Valid(raw) {
		return nil
	}
	return json.RawMessage(bytes.Clone(raw))
}
