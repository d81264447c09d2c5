package routes

import (
	"fmt"

	"github.com/scamsquatch/scamsquatch/internal/token"
)

// FallbackRoute builds a deterministic single-hop route when no upstream
// aggregator is reachable. Amounts pass through 1:1; the risk pipeline
// still assesses the route so callers get a safety verdict even offline.
func FallbackRoute(req Request) Route {
	protocols := []string{"uniswap"}
	if req.FromChainID != req.ToChainID {
		protocols = []string{"uniswap", "wormhole"}
	}

	return Route{
		ID:           fmt.Sprintf("fallback-%d-%d", req.FromChainID, req.ToChainID),
		FromToken:    resolveToken(req.FromChainID, req.FromToken),
		ToToken:      resolveToken(req.ToChainID, req.ToToken),
		FromAmount:   req.Amount,
		ToAmount:     req.Amount,
		PriceImpact:  0.1,
		EstimatedGas: "150000",
		Protocols:    protocols,
		FromChainID:  req.FromChainID,
		ToChainID:    req.ToChainID,
	}
}

// resolveToken fills in catalog metadata for an address when available,
// otherwise returns a bare token with just the address and chain.
func resolveToken(chainID int64, address string) token.Token {
	if t, ok := token.Lookup(chainID, address); ok {
		return t
	}
	return token.Token{Address: address, ChainID: chainID, Decimals: 18}
}
