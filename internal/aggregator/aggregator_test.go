package aggregator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/scamsquatch/scamsquatch/internal/airisk"
	"github.com/scamsquatch/scamsquatch/internal/bridge"
	"github.com/scamsquatch/scamsquatch/internal/chaindata"
	"github.com/scamsquatch/scamsquatch/internal/risk"
	"github.com/scamsquatch/scamsquatch/internal/routes"
	"github.com/scamsquatch/scamsquatch/internal/token"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubRouteSource struct {
	routes []routes.Route
	err    error
}

func (s *stubRouteSource) GetRoutes(ctx context.Context, req routes.Request) ([]routes.Route, error) {
	return s.routes, s.err
}

func (s *stubRouteSource) GetTokens(ctx context.Context, chainID int64) ([]token.Token, error) {
	return token.Popular(chainID), nil
}

type stubSignals struct {
	data chaindata.TokenData
}

func (s *stubSignals) TokenData(ctx context.Context, chainID int64, address string) (chaindata.TokenData, error) {
	d := s.data
	d.Address = address
	d.ChainID = chainID
	return d, nil
}

func (s *stubSignals) MarketData(ctx context.Context, chainID int64, address string) (chaindata.MarketData, error) {
	return chaindata.MarketData{
		Price24hChangePct: 1,
		Volume24hUSD:      50_000_000,
		MarketCapUSD:      500_000_000,
		LiquidityDepthUSD: 10_000_000,
		Holders:           50_000,
	}, nil
}

func establishedSignals() *stubSignals {
	return &stubSignals{data: chaindata.TokenData{
		Name:         "USD Coin",
		Symbol:       "USDC",
		CreatedAt:    testNow.AddDate(-2, 0, 0),
		LiquidityUSD: 5_000_000,
		Holders:      50_000,
		Verified:     true,
	}}
}

func uniswapRoute(id string) routes.Route {
	return routes.Route{
		ID:          id,
		FromToken:   token.Token{Symbol: "ETH", Address: token.ZeroAddress, ChainID: 11155111},
		ToToken:     token.Token{Symbol: "USDC", Address: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", ChainID: 11155111},
		FromAmount:  "1000000000000000000",
		ToAmount:    "2500000000",
		PriceImpact: 0.5,
		Protocols:   []string{"uniswap"},
		FromChainID: 11155111,
		ToChainID:   11155111,
	}
}

func sameChainRequest() routes.Request {
	return routes.Request{
		FromToken:   token.ZeroAddress,
		ToToken:     "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
		Amount:      "1000000000000000000",
		FromChainID: 11155111,
		ToChainID:   11155111,
		UserAddress: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0",
	}
}

func testAggregator(source routes.Source, signals chaindata.Source) *Aggregator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := fixedClock{testNow}
	engine := risk.NewEngine(nil).WithClock(clock)
	ai := airisk.NewAnalyzer(signals, logger,
		airisk.WithClock(clock), airisk.WithRand(func() float64 { return 0 }))
	bridges := bridge.NewService(nil, logger, bridge.WithClock(clock))
	return New(source, signals, engine, ai, bridges, logger).WithClock(clock)
}

func TestGetRoutesAndRisk_SameChain(t *testing.T) {
	source := &stubRouteSource{routes: []routes.Route{uniswapRoute("r1"), uniswapRoute("r2")}}
	a := testAggregator(source, establishedSignals())

	result, err := a.GetRoutesAndRisk(context.Background(), sameChainRequest())
	if err != nil {
		t.Fatalf("GetRoutesAndRisk failed: %v", err)
	}

	if result.IsCrossChain {
		t.Error("same-chain request reported cross-chain")
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(result.Candidates))
	}
	for _, c := range result.Candidates {
		if c.Assessment.Traditional.Score != 0 {
			t.Errorf("route %s traditional score = %d, want 0 for a safe route",
				c.Route.ID, c.Assessment.Traditional.Score)
		}
		if c.Assessment.Overall >= 50 {
			t.Errorf("route %s overall = %d, want below 50", c.Route.ID, c.Assessment.Overall)
		}
	}
	if !result.OnChainData.ToToken.Verified {
		t.Error("on-chain data not echoed back")
	}
}

func TestGetRoutesAndRisk_NoRoutes(t *testing.T) {
	a := testAggregator(&stubRouteSource{}, establishedSignals())
	_, err := a.GetRoutesAndRisk(context.Background(), sameChainRequest())
	if !errors.Is(err, ErrNoRoutes) {
		t.Errorf("err = %v, want ErrNoRoutes", err)
	}
}

func TestGetRoutesAndRisk_SourceError(t *testing.T) {
	a := testAggregator(&stubRouteSource{err: errors.New("upstream down")}, establishedSignals())
	if _, err := a.GetRoutesAndRisk(context.Background(), sameChainRequest()); err == nil {
		t.Error("source error not surfaced")
	}
}

func TestGetRoutesAndRisk_CrossChain(t *testing.T) {
	a := testAggregator(&stubRouteSource{}, establishedSignals())

	req := sameChainRequest()
	req.ToChainID = 2

	result, err := a.GetRoutesAndRisk(context.Background(), req)
	if err != nil {
		t.Fatalf("GetRoutesAndRisk failed: %v", err)
	}

	if !result.IsCrossChain {
		t.Error("cross-chain request not flagged")
	}
	if result.BridgeQuote == nil {
		t.Fatal("missing bridge quote")
	}
	if result.BridgeQuote.BridgeProvider != "Wormhole" {
		t.Errorf("provider = %s", result.BridgeQuote.BridgeProvider)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1 bridge route", len(result.Candidates))
	}

	c := result.Candidates[0]
	if c.Assessment.Traditional.Score < 25 {
		t.Errorf("bridge assessment = %d, want at least the base bridge weight", c.Assessment.Traditional.Score)
	}
	if c.Route.Protocols[0] != "wormhole" {
		t.Errorf("bridge route protocols = %v", c.Route.Protocols)
	}
}

func TestGetRoutesAndRisk_CrossChainBadAmount(t *testing.T) {
	a := testAggregator(&stubRouteSource{}, establishedSignals())

	req := sameChainRequest()
	req.ToChainID = 2
	req.Amount = "not-a-number"

	if _, err := a.GetRoutesAndRisk(context.Background(), req); err == nil {
		t.Error("invalid bridge amount not surfaced")
	}
}

func candidateWith(id string, overall int, level risk.Level, toAmount string) Candidate {
	return Candidate{
		Route:      routes.Route{ID: id, ToAmount: toAmount},
		Assessment: risk.Combined{RouteID: id, Overall: overall, Level: level},
	}
}

func TestBestRoute(t *testing.T) {
	candidates := []Candidate{
		candidateWith("a", 40, risk.LevelMedium, "100"),
		candidateWith("b", 30, risk.LevelMedium, "100"),
		candidateWith("c", 60, risk.LevelHigh, "100"),
	}
	best := BestRoute(candidates)
	if best == nil || best.Route.ID != "b" {
		t.Fatalf("BestRoute = %+v, want b", best)
	}
}

func TestBestRoute_TieBreakByOutput(t *testing.T) {
	candidates := []Candidate{
		candidateWith("small", 30, risk.LevelMedium, "100"),
		candidateWith("large", 30, risk.LevelMedium, "200"),
	}
	best := BestRoute(candidates)
	if best == nil || best.Route.ID != "large" {
		t.Fatalf("BestRoute = %+v, want the higher-output route", best)
	}
}

func TestBestRoute_NoneQualify(t *testing.T) {
	candidates := []Candidate{
		candidateWith("a", 50, risk.LevelMedium, "100"),
		candidateWith("b", 90, risk.LevelCritical, "100"),
	}
	if best := BestRoute(candidates); best != nil {
		t.Errorf("BestRoute = %+v, want nil when nothing scores below 50", best)
	}
}

func TestSaferAlternatives(t *testing.T) {
	current := candidateWith("current", 70, risk.LevelHigh, "100")
	candidates := []Candidate{
		current,
		candidateWith("a", 40, risk.LevelMedium, "100"),
		candidateWith("b", 20, risk.LevelLow, "100"),
		candidateWith("c", 85, risk.LevelCritical, "100"),
		candidateWith("d", 60, risk.LevelHigh, "100"),
		candidateWith("e", 10, risk.LevelLow, "100"),
	}

	safer := SaferAlternatives(candidates, current)
	if len(safer) != 3 {
		t.Fatalf("alternatives = %d, want 3", len(safer))
	}
	want := []string{"e", "b", "a"}
	for i, id := range want {
		if safer[i].Route.ID != id {
			t.Errorf("alternatives[%d] = %s, want %s", i, safer[i].Route.ID, id)
		}
	}
}

func TestSaferAlternatives_ExcludesCritical(t *testing.T) {
	current := candidateWith("current", 90, risk.LevelCritical, "100")
	candidates := []Candidate{
		candidateWith("crit", 85, risk.LevelCritical, "100"),
	}
	if safer := SaferAlternatives(candidates, current); len(safer) != 0 {
		t.Errorf("alternatives = %v, want none", safer)
	}
}
