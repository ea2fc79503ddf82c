// Package notion talks to the Notion data source query API and decodes the
// property bags of the pages it returns.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lensgate/internal/retry"
)

const (
	// DefaultBaseURL is the public Notion API endpoint.
	DefaultBaseURL = "https://api.notion.com"
	// DefaultVersion is the Notion-Version header sent with every request.
	DefaultVersion = "2025-09-03"
	// PageSize is the number of results requested per query page.
	PageSize = 100
)

var (
	// ErrServerError is wrapped by API errors with a 5xx status.
	ErrServerError = errors.New("server_error")
	// ErrRateLimited is wrapped by API errors with a 429 status or rate_limited code.
	ErrRateLimited = errors.New("rate_limited")
)

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion api error: status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("notion api error: status %d: %s", e.Status, e.Message)
}

// StatusCode returns the HTTP status of the failed request.
func (e *APIError) StatusCode() int {
	return e.Status
}

// RateLimited reports whether the API flagged the request as rate limited.
func (e *APIError) RateLimited() bool {
	return e.Code == "rate_limited" || e.Status == http.StatusTooManyRequests
}

// Unwrap exposes the error class for errors.Is checks.
func (e *APIError) Unwrap() error {
	switch {
	case e.RateLimited():
		return ErrRateLimited
	case e.Status >= 500 && e.Status < 600:
		return ErrServerError
	}
	return nil
}

// Client is a client for the Notion data source query API.
type Client struct {
	BaseURL string
	Token   string
	Version string
	// Retry wraps every page request made by QueryChangedPages.
	Retry  retry.Policy
	client *http.Client
}

// NewClient creates a new Notion client. A zero timeout leaves requests bounded
// only by their context.
func NewClient(baseURL, token, version string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if version == "" {
		version = DefaultVersion
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Version: version,
		Retry:   retry.DefaultPolicy(),
		client:  &http.Client{Timeout: timeout},
	}
}

// QueryRequest is the body of a data source query.
type QueryRequest struct {
	PageSize    int              `json:"page_size,omitempty"`
	StartCursor string           `json:"start_cursor,omitempty"`
	Filter      *TimestampFilter `json:"filter,omitempty"`
	ResultType  string           `json:"result_type,omitempty"`
}

// QueryResponse is one page of query results. Results stay raw so that a single
// malformed row cannot fail the whole page.
type QueryResponse struct {
	Results    []json.RawMessage `json:"results"`
	NextCursor *string           `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
}

// QueryDataSource issues a single query request against a data source.
func (c *Client) QueryDataSource(ctx context.Context, sourceID string, payload QueryRequest) (*QueryResponse, error) {
	url := fmt.Sprintf("%s/v1/data_sources/%s/query", c.BaseURL, sourceID)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Notion-Version", c.Version)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp)
	}

	var out QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{}
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	// The HTTP status is authoritative even if the body disagrees.
	apiErr.Status = resp.StatusCode
	return apiErr
}
