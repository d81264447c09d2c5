package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the ScamSquatch API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
}

// APIClient is a pure HTTP client for the ScamSquatch API.
type APIClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewAPIClient creates a new client for the ScamSquatch API.
func NewAPIClient(cfg Config) *APIClient {
	return &APIClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *APIClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// GetQuote fetches risk-scored routes for a swap.
func (c *APIClient) GetQuote(ctx context.Context, body map[string]string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/api/v1/quote", nil, body)
}

// GetBridgeQuote fetches a cross-chain bridge quote.
func (c *APIClient) GetBridgeQuote(ctx context.Context, body map[string]any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/api/v1/bridge/quote", nil, body)
}

// GetBridgeStatus checks an in-flight bridge transfer.
func (c *APIClient) GetBridgeStatus(ctx context.Context, txHash string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/api/v1/bridge/status/"+url.PathEscape(txHash), nil, nil)
}

// Simulate previews a swap before signing.
func (c *APIClient) Simulate(ctx context.Context, body map[string]any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/api/v1/simulate", nil, body)
}

// ListTokens lists tradable tokens on a chain.
func (c *APIClient) ListTokens(ctx context.Context, chainID string) (json.RawMessage, error) {
	q := url.Values{}
	if chainID != "" {
		q.Set("chainId", chainID)
	}
	return c.doRequest(ctx, http.MethodGet, "/api/v1/tokens", q, nil)
}

// RecentAssessments lists recently recorded risk assessments.
func (c *APIClient) RecentAssessments(ctx context.Context, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/api/v1/assessments/recent", q, nil)
}
