// Package token defines the token model and the built-in token catalog
// used when the upstream token list is unavailable.
package token

import "strings"

// ZeroAddress denotes a chain's native asset (ETH, MATIC).
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Token describes an asset on a specific chain.
type Token struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
	ChainID  int64  `json:"chainId"`
	Name     string `json:"name"`
}

// IsNative reports whether the token is the chain's native asset.
func (t Token) IsNative() bool {
	return strings.EqualFold(t.Address, ZeroAddress)
}

// fallbackCatalog lists well-known tokens per chain, served when the
// upstream token list cannot be fetched.
var fallbackCatalog = map[int64][]Token{
	11155111: { // Sepolia
		{Symbol: "ETH", Address: ZeroAddress, Decimals: 18, ChainID: 11155111, Name: "Ethereum"},
		{Symbol: "USDC", Address: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", Decimals: 6, ChainID: 11155111, Name: "USD Coin"},
		{Symbol: "WETH", Address: "0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14", Decimals: 18, ChainID: 11155111, Name: "Wrapped Ethereum"},
	},
	80002: { // Polygon Amoy
		{Symbol: "MATIC", Address: ZeroAddress, Decimals: 18, ChainID: 80002, Name: "Polygon"},
		{Symbol: "USDC", Address: "0x9999f7Fea5938fD3b1E26A12c3f2fb024e194f97", Decimals: 6, ChainID: 80002, Name: "USD Coin"},
		{Symbol: "WMATIC", Address: "0x9c3C9283D3e44854697Cd22D3Faa240Cfb032889", Decimals: 18, ChainID: 80002, Name: "Wrapped Polygon"},
	},
}

// Popular returns the built-in token list for a chain. Returns an empty
// slice for chains without a catalog entry.
func Popular(chainID int64) []Token {
	tokens := fallbackCatalog[chainID]
	out := make([]Token, len(tokens))
	copy(out, tokens)
	return out
}

// Lookup finds a catalog token by address on the given chain.
func Lookup(chainID int64, address string) (Token, bool) {
	for _, t := range fallbackCatalog[chainID] {
		if strings.EqualFold(t.Address, address) {
			return t, true
		}
	}
	return Token{}, false
}

// SupportedChains lists the chain IDs with a built-in catalog.
func SupportedChains() []int64 {
	out := make([]int64, 0, len(fallbackCatalog))
	for id := range fallbackCatalog {
		out = append(out, id)
	}
	return out
}
