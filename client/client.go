// Package client is the Go HTTP client for the txplain interpretation service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/brojonat/txplain/service/interpret"
	"github.com/brojonat/txplain/service/sui"
)

// Interpretation is an interpreted transaction and where it came from.
type Interpretation struct {
	Transaction *interpret.InterpretedTransaction `json:"transaction"`
	Source      string                            `json:"source,omitempty"`
	Switched    bool                              `json:"switched"`
	Cached      bool                              `json:"cached"`
}

// ArchivedInterpretation is one row of the archive listing.
type ArchivedInterpretation struct {
	Digest       string    `json:"digest"`
	Sender       string    `json:"sender"`
	Success      bool      `json:"success"`
	Headline     string    `json:"headline"`
	HeadlineTier string    `json:"headline_tier"`
	GasCostMist  string    `json:"gas_cost_mist"`
	Source       *string   `json:"source,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListOptions filters and paginates the archive listing.
type ListOptions struct {
	Sender string
	Limit  int
	Offset int
}

// Job is the state of a background interpretation.
type Job struct {
	WorkflowID string          `json:"workflow_id"`
	Status     string          `json:"status"` // running, completed, failed
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// APIError is a non-2xx response from the server. Kind is set for
// fetch failures (timeout, not_found, rate_limited, connectivity).
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("request failed (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("request failed: %s", e.Message)
}

// Client is the HTTP client for the txplain service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new txplain service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Interpret asks the server to interpret digest. With cached set, an
// archived interpretation is returned when one exists.
func (c *Client) Interpret(ctx context.Context, digest string, cached bool) (*Interpretation, error) {
	u := fmt.Sprintf("%s/api/v1/transactions/%s", c.baseURL, url.PathEscape(digest))
	if cached {
		u += "?cached=true"
	}

	var out Interpretation
	if err := c.do(ctx, http.MethodGet, u, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	c.logger.Debug("transaction interpreted", "digest", digest, "source", out.Source, "cached", out.Cached)
	return &out, nil
}

// Explain interprets an already-fetched transaction without RPC calls.
// objects may be nil.
func (c *Client) Explain(ctx context.Context, raw *sui.RawTransaction, objects map[string]*sui.EnrichedObject) (*interpret.InterpretedTransaction, error) {
	body := map[string]any{"transaction": raw}
	if len(objects) > 0 {
		body["objects"] = objects
	}

	var out Interpretation
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/api/v1/explain", body, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Transaction, nil
}

// GetArchived returns an archived interpretation.
func (c *Client) GetArchived(ctx context.Context, digest string) (*Interpretation, error) {
	u := fmt.Sprintf("%s/api/v1/interpretations/%s", c.baseURL, url.PathEscape(digest))

	var out Interpretation
	if err := c.do(ctx, http.MethodGet, u, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListArchived lists archived interpretations, newest first.
func (c *Client) ListArchived(ctx context.Context, opts ListOptions) ([]*ArchivedInterpretation, error) {
	q := url.Values{}
	if opts.Sender != "" {
		q.Set("sender", opts.Sender)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	u := c.baseURL + "/api/v1/interpretations"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var out struct {
		Interpretations []*ArchivedInterpretation `json:"interpretations"`
	}
	if err := c.do(ctx, http.MethodGet, u, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Interpretations, nil
}

// StartJob starts a background interpretation and returns its workflow ID.
func (c *Client) StartJob(ctx context.Context, digest string) (string, error) {
	var out Job
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/api/v1/jobs", map[string]string{"digest": digest}, http.StatusAccepted, &out); err != nil {
		return "", err
	}
	return out.WorkflowID, nil
}

// GetJob returns the state of a background interpretation.
func (c *Client) GetJob(ctx context.Context, workflowID string) (*Job, error) {
	u := fmt.Sprintf("%s/api/v1/jobs/%s", c.baseURL, url.PathEscape(workflowID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, c.parseErrorResponse(resp)
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &job, nil
}

// AwaitJob polls GetJob every interval until the job leaves the running
// state or ctx is done.
func (c *Client) AwaitJob(ctx context.Context, workflowID string, interval time.Duration) (*Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.GetJob(ctx, workflowID)
		if err != nil {
			return nil, err
		}
		if job.Status != "running" {
			return job, nil
		}

		c.logger.Debug("job still running", "workflow_id", workflowID)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// do sends a JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, u string, in any, wantStatus int, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return c.parseErrorResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse attempts to parse an error response from the server.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error, Kind: errResp.Kind}
}
