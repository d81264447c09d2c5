// Package chaindata supplies token-level signals for risk scoring: age,
// liquidity, holder counts, and contract verification.
//
// Signals come from a Source so the risk pipeline can be driven by real
// chain data in production and by fixed values in tests. The built-in
// deterministic source derives plausible signals from the token address,
// which keeps repeated assessments of the same token stable.
package chaindata

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/scamsquatch/scamsquatch/internal/cache"
	"github.com/scamsquatch/scamsquatch/internal/token"
)

// TokenData carries per-token signals consumed by the risk scorers.
type TokenData struct {
	Address      string    `json:"address"`
	ChainID      int64     `json:"chainId"`
	Name         string    `json:"name"`
	Symbol       string    `json:"symbol"`
	Decimals     int       `json:"decimals"`
	CreatedAt    time.Time `json:"createdAt"`
	LiquidityUSD float64   `json:"liquidity"`
	Holders      int       `json:"holders"`
	Verified     bool      `json:"verified"`
}

// AgeDays returns the token age in days at the given instant.
func (d TokenData) AgeDays(now time.Time) float64 {
	if d.CreatedAt.IsZero() {
		return 365 // unknown age is treated as established
	}
	return now.Sub(d.CreatedAt).Hours() / 24
}

// IsNew reports whether the token is younger than 30 days.
func (d TokenData) IsNew(now time.Time) bool {
	return d.AgeDays(now) < 30
}

// LowLiquidity reports whether liquidity is below the 10k threshold.
func (d TokenData) LowLiquidity() bool {
	return d.LiquidityUSD < 10_000
}

// MarketData carries market-level signals for the AI analyzer.
type MarketData struct {
	Price24hChangePct float64 `json:"price24hChange"`
	Volume24hUSD      float64 `json:"volume24h"`
	MarketCapUSD      float64 `json:"marketCap"`
	LiquidityDepthUSD float64 `json:"liquidityDepth"`
	Holders           int     `json:"holders"`
}

// Source resolves token and market signals.
type Source interface {
	TokenData(ctx context.Context, chainID int64, address string) (TokenData, error)
	MarketData(ctx context.Context, chainID int64, address string) (MarketData, error)
}

// MockSource derives deterministic signals from the token address. Known
// catalog tokens are reported as established and verified.
type MockSource struct {
	Clock cache.Clock
}

// NewMockSource creates a deterministic signal source.
func NewMockSource(clock cache.Clock) *MockSource {
	if clock == nil {
		clock = cache.RealClock{}
	}
	return &MockSource{Clock: clock}
}

func (m *MockSource) TokenData(ctx context.Context, chainID int64, address string) (TokenData, error) {
	now := m.Clock.Now()

	if t, ok := token.Lookup(chainID, address); ok {
		return TokenData{
			Address:      t.Address,
			ChainID:      chainID,
			Name:         t.Name,
			Symbol:       t.Symbol,
			Decimals:     t.Decimals,
			CreatedAt:    now.AddDate(-2, 0, 0),
			LiquidityUSD: 5_000_000,
			Holders:      50_000,
			Verified:     true,
		}, nil
	}

	h := addrHash(address)
	ageDays := int(h % 365)
	liquidity := float64(h%1_000_000) + 1
	holders := int(h % 10_000)

	return TokenData{
		Address:      address,
		ChainID:      chainID,
		Decimals:     18,
		CreatedAt:    now.AddDate(0, 0, -ageDays),
		LiquidityUSD: liquidity,
		Holders:      holders,
		Verified:     h%10 >= 3, // roughly 70% of unknown tokens verify
	}, nil
}

func (m *MockSource) MarketData(ctx context.Context, chainID int64, address string) (MarketData, error) {
	if _, ok := token.Lookup(chainID, address); ok {
		return MarketData{
			Price24hChangePct: 1.5,
			Volume24hUSD:      50_000_000,
			MarketCapUSD:      500_000_000,
			LiquidityDepthUSD: 10_000_000,
			Holders:           50_000,
		}, nil
	}

	h := addrHash(address)
	volume := float64(h % 20_000_000)
	return MarketData{
		Price24hChangePct: float64(h%60) - 30, // spread across -30%..+29%
		Volume24hUSD:      volume,
		MarketCapUSD:      volume * 10,
		LiquidityDepthUSD: float64(h % 8_000_000),
		Holders:           int(h % 10_000),
	}, nil
}

func addrHash(address string) uint64 {
	f := fnv.New64a()
	_, _ = f.Write([]byte(address))
	return f.Sum64()
}
