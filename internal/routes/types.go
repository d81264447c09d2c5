// Package routes models candidate swap routes and fetches them from
// aggregation APIs, with a deterministic fallback when upstream is down.
package routes

import (
	"context"

	"github.com/scamsquatch/scamsquatch/internal/token"
)

// Route is a candidate path for a swap, same-chain or cross-chain.
type Route struct {
	ID           string      `json:"id"`
	FromToken    token.Token `json:"fromToken"`
	ToToken      token.Token `json:"toToken"`
	FromAmount   string      `json:"fromAmount"`
	ToAmount     string      `json:"toAmount"`
	PriceImpact  float64     `json:"priceImpact"` // percent, e.g. 2.5 = 2.5%
	EstimatedGas string      `json:"estimatedGas"`
	Protocols    []string    `json:"protocols"` // one entry per hop
	FromChainID  int64       `json:"fromChainId"`
	ToChainID    int64       `json:"toChainId"`
}

// IsCrossChain reports whether the route crosses chains.
func (r Route) IsCrossChain() bool {
	return r.FromChainID != r.ToChainID
}

// Hops returns the number of protocol hops in the route.
func (r Route) Hops() int {
	return len(r.Protocols)
}

// Request describes the swap a caller wants routes for.
type Request struct {
	FromToken   string
	ToToken     string
	Amount      string
	FromChainID int64
	ToChainID   int64
	UserAddress string
}

// Source produces candidate routes for a swap request.
type Source interface {
	GetRoutes(ctx context.Context, req Request) ([]Route, error)
	GetTokens(ctx context.Context, chainID int64) ([]token.Token, error)
}
