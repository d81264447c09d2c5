package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/scamsquatch/scamsquatch/internal/circuitbreaker"
	"github.com/scamsquatch/scamsquatch/internal/idgen"
	"github.com/scamsquatch/scamsquatch/internal/metrics"
	"github.com/scamsquatch/scamsquatch/internal/retry"
	"github.com/scamsquatch/scamsquatch/internal/token"
)

const breakerKey = "oneinch"

// OneInchClient fetches swap routes from the 1inch aggregation API.
// Upstream failures degrade to the built-in fallback route so a swap
// request always gets at least one candidate to assess.
type OneInchClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

// NewOneInchClient creates a route source backed by the 1inch API.
func NewOneInchClient(baseURL, apiKey string, logger *slog.Logger) *OneInchClient {
	return &OneInchClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: circuitbreaker.New(5, 30*time.Second),
		logger:  logger,
	}
}

// Healthy reports whether the upstream circuit is closed.
func (c *OneInchClient) Healthy() bool {
	return c.breaker.State(breakerKey) == circuitbreaker.StateClosed
}

// quoteResponse is the subset of the 1inch quote payload we consume.
type quoteResponse struct {
	DstAmount string `json:"dstAmount"`
	Gas       int64  `json:"gas"`
	Protocols [][]struct {
		Name string `json:"name"`
	} `json:"protocols"`
}

// GetRoutes fetches candidate routes for the request. Without an API key,
// or when the upstream is failing, it returns the fallback route.
func (c *OneInchClient) GetRoutes(ctx context.Context, req Request) ([]Route, error) {
	if c.apiKey == "" {
		c.logger.Warn("no 1inch API key configured, using fallback route")
		metrics.RouteRequestsTotal.WithLabelValues("fallback", "ok").Inc()
		return []Route{FallbackRoute(req)}, nil
	}

	if !c.breaker.Allow(breakerKey) {
		c.logger.Warn("1inch circuit open, using fallback route")
		metrics.RouteRequestsTotal.WithLabelValues("fallback", "ok").Inc()
		return []Route{FallbackRoute(req)}, nil
	}

	var quote quoteResponse
	err := retry.Do(ctx, 3, 200*time.Millisecond, func() error {
		return c.fetchQuote(ctx, req, &quote)
	})
	if err != nil {
		c.breaker.RecordFailure(breakerKey)
		metrics.RouteRequestsTotal.WithLabelValues("oneinch", "error").Inc()
		c.logger.Warn("1inch quote failed, using fallback route", "error", err)
		metrics.RouteRequestsTotal.WithLabelValues("fallback", "ok").Inc()
		return []Route{FallbackRoute(req)}, nil
	}

	c.breaker.RecordSuccess(breakerKey)
	metrics.RouteRequestsTotal.WithLabelValues("oneinch", "ok").Inc()

	return []Route{c.toRoute(req, quote)}, nil
}

func (c *OneInchClient) fetchQuote(ctx context.Context, req Request, out *quoteResponse) error {
	u := fmt.Sprintf("%s/%d/quote?%s", c.baseURL, req.FromChainID, url.Values{
		"src":    {req.FromToken},
		"dst":    {req.ToToken},
		"amount": {req.Amount},
	}.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusBadRequest {
		// Malformed swap parameters won't improve on retry.
		return retry.Permanent(fmt.Errorf("1inch API error: %d - %s", resp.StatusCode, body))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("1inch API error: %d - %s", resp.StatusCode, body)
	}

	return json.Unmarshal(body, out)
}

func (c *OneInchClient) toRoute(req Request, quote quoteResponse) Route {
	protocols := make([]string, 0, len(quote.Protocols))
	for _, hop := range quote.Protocols {
		if len(hop) > 0 {
			protocols = append(protocols, hop[0].Name)
		}
	}
	if len(protocols) == 0 {
		protocols = []string{"1inch"}
	}

	gas := quote.Gas
	if gas == 0 {
		gas = 150000
	}

	return Route{
		ID:           idgen.WithPrefix("route_"),
		FromToken:    resolveToken(req.FromChainID, req.FromToken),
		ToToken:      resolveToken(req.ToChainID, req.ToToken),
		FromAmount:   req.Amount,
		ToAmount:     quote.DstAmount,
		EstimatedGas: strconv.FormatInt(gas, 10),
		Protocols:    protocols,
		FromChainID:  req.FromChainID,
		ToChainID:    req.ToChainID,
	}
}

// GetTokens returns the upstream token list, or the built-in catalog when
// no key is configured or the upstream fails.
func (c *OneInchClient) GetTokens(ctx context.Context, chainID int64) ([]token.Token, error) {
	if c.apiKey == "" || !c.breaker.Allow(breakerKey) {
		return token.Popular(chainID), nil
	}

	u := fmt.Sprintf("%s/%d/tokens", c.baseURL, chainID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return token.Popular(chainID), nil
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.breaker.RecordFailure(breakerKey)
		c.logger.Warn("token list fetch failed, using catalog", "error", err)
		return token.Popular(chainID), nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure(breakerKey)
		return token.Popular(chainID), nil
	}
	c.breaker.RecordSuccess(breakerKey)

	var payload struct {
		Tokens map[string]struct {
			Symbol   string `json:"symbol"`
			Name     string `json:"name"`
			Decimals int    `json:"decimals"`
		} `json:"tokens"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return token.Popular(chainID), nil
	}

	out := make([]token.Token, 0, len(payload.Tokens))
	for addr, t := range payload.Tokens {
		out = append(out, token.Token{
			Symbol:   t.Symbol,
			Name:     t.Name,
			Decimals: t.Decimals,
			Address:  addr,
			ChainID:  chainID,
		})
	}
	if len(out) == 0 {
		return token.Popular(chainID), nil
	}
	return out, nil
}
