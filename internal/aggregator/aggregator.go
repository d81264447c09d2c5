// Package aggregator orchestrates a quote request end to end: fetch
// candidate routes (same-chain) or a bridge quote (cross-chain), gather
// on-chain signals, fan out both risk scorers per candidate, and merge
// the verdicts into one assessment per route.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/scamsquatch/scamsquatch/internal/airisk"
	"github.com/scamsquatch/scamsquatch/internal/bridge"
	"github.com/scamsquatch/scamsquatch/internal/cache"
	"github.com/scamsquatch/scamsquatch/internal/chaindata"
	"github.com/scamsquatch/scamsquatch/internal/metrics"
	"github.com/scamsquatch/scamsquatch/internal/risk"
	"github.com/scamsquatch/scamsquatch/internal/routes"
	"github.com/scamsquatch/scamsquatch/internal/token"
)

// ErrNoRoutes reports that the route source returned zero candidates.
var ErrNoRoutes = errors.New("No routes found for the specified swap")

// Candidate pairs a route with its merged risk verdict.
type Candidate struct {
	Route      routes.Route  `json:"route"`
	Assessment risk.Combined `json:"riskAssessment"`
}

// OnChainData carries the token signals used during scoring, echoed
// back so the caller can display them.
type OnChainData struct {
	FromToken chaindata.TokenData `json:"fromToken"`
	ToToken   chaindata.TokenData `json:"toToken"`
}

// Result is the full answer to one quote request.
type Result struct {
	IsCrossChain bool          `json:"isCrossChain"`
	Candidates   []Candidate   `json:"routes"`
	OnChainData  OnChainData   `json:"onChainData"`
	BridgeQuote  *bridge.Quote `json:"bridgeQuote,omitempty"`
}

// Aggregator wires the route source, signal source, and both scorers.
type Aggregator struct {
	source  routes.Source
	signals chaindata.Source
	engine  *risk.Engine
	ai      *airisk.Analyzer
	bridges *bridge.Service
	clock   cache.Clock
	logger  *slog.Logger
}

// New creates an aggregator over the given collaborators.
func New(source routes.Source, signals chaindata.Source, engine *risk.Engine,
	ai *airisk.Analyzer, bridges *bridge.Service, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		source:  source,
		signals: signals,
		engine:  engine,
		ai:      ai,
		bridges: bridges,
		clock:   cache.RealClock{},
		logger:  logger,
	}
}

// WithClock overrides the time source, for tests.
func (a *Aggregator) WithClock(c cache.Clock) *Aggregator {
	a.clock = c
	return a
}

// GetRoutesAndRisk answers a quote request. Same-chain requests fan out
// over candidate routes; cross-chain requests assess a single bridge
// quote. Signal lookups fail open to zero-value data so one bad RPC
// never blocks a quote.
func (a *Aggregator) GetRoutesAndRisk(ctx context.Context, req routes.Request) (Result, error) {
	if req.FromChainID != req.ToChainID {
		return a.crossChain(ctx, req)
	}
	return a.sameChain(ctx, req)
}

func (a *Aggregator) sameChain(ctx context.Context, req routes.Request) (Result, error) {
	candidates, err := a.source.GetRoutes(ctx, req)
	if err != nil {
		metrics.RouteRequestsTotal.WithLabelValues("same_chain", "error").Inc()
		return Result{}, fmt.Errorf("fetch routes: %w", err)
	}
	if len(candidates) == 0 {
		metrics.RouteRequestsTotal.WithLabelValues("same_chain", "empty").Inc()
		return Result{}, ErrNoRoutes
	}

	data := a.tokenSignals(ctx, req)

	assessed := make([]Candidate, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, route := range candidates {
		g.Go(func() error {
			assessed[i] = a.assess(gctx, route, data)
			return nil
		})
	}
	// assess never fails; the group only propagates cancellation.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	metrics.RouteRequestsTotal.WithLabelValues("same_chain", "ok").Inc()
	return Result{Candidates: assessed, OnChainData: data}, nil
}

func (a *Aggregator) crossChain(ctx context.Context, req routes.Request) (Result, error) {
	quote, err := a.bridges.GetQuote(bridge.Request{
		FromChain:   req.FromChainID,
		ToChain:     req.ToChainID,
		FromToken:   req.FromToken,
		ToToken:     req.ToToken,
		FromAmount:  req.Amount,
		UserAddress: req.UserAddress,
	})
	if err != nil {
		metrics.RouteRequestsTotal.WithLabelValues("cross_chain", "error").Inc()
		return Result{}, fmt.Errorf("Failed to get bridge quote: %w", err)
	}

	data := a.tokenSignals(ctx, req)
	route := bridgeRoute(quote)

	traditional := a.engine.AssessBridge(risk.BridgeInput{
		FeePercent:        quote.FeePercent(),
		EstimatedTime:     quote.EstimatedTime,
		ToChainID:         quote.ToChain,
		DestTokenVerified: data.ToToken.Verified,
	})
	aiVerdict := a.ai.AnalyzeRoute(ctx, route)
	combined := risk.Merge(route.ID, traditional, aiVerdict.Summary(), a.clock.Now())
	a.engine.RecordCombined(route, combined)

	metrics.RouteRequestsTotal.WithLabelValues("cross_chain", "ok").Inc()
	return Result{
		IsCrossChain: true,
		Candidates:   []Candidate{{Route: route, Assessment: combined}},
		OnChainData:  data,
		BridgeQuote:  &quote,
	}, nil
}

func (a *Aggregator) assess(ctx context.Context, route routes.Route, data OnChainData) Candidate {
	traditional := a.engine.Score(route, data.FromToken, data.ToToken)
	aiVerdict := a.ai.AnalyzeRoute(ctx, route)
	combined := risk.Merge(route.ID, traditional, aiVerdict.Summary(), a.clock.Now())
	a.engine.RecordCombined(route, combined)
	return Candidate{Route: route, Assessment: combined}
}

func (a *Aggregator) tokenSignals(ctx context.Context, req routes.Request) OnChainData {
	var data OnChainData
	var err error

	data.FromToken, err = a.signals.TokenData(ctx, req.FromChainID, req.FromToken)
	if err != nil {
		a.logger.Warn("source token signals unavailable",
			slog.String("token", req.FromToken), slog.String("error", err.Error()))
	}
	data.ToToken, err = a.signals.TokenData(ctx, req.ToChainID, req.ToToken)
	if err != nil {
		a.logger.Warn("destination token signals unavailable",
			slog.String("token", req.ToToken), slog.String("error", err.Error()))
	}
	return data
}

// bridgeRoute shapes a bridge quote as a single-hop route so the AI
// analyzer and response envelope can treat both branches uniformly.
func bridgeRoute(q bridge.Quote) routes.Route {
	return routes.Route{
		ID:           q.ID,
		FromToken:    resolveToken(q.FromChain, q.FromToken),
		ToToken:      resolveToken(q.ToChain, q.ToToken),
		FromAmount:   q.FromAmount,
		ToAmount:     q.ToAmount,
		EstimatedGas: "350000",
		Protocols:    []string{"wormhole"},
		FromChainID:  q.FromChain,
		ToChainID:    q.ToChain,
	}
}

func resolveToken(chainID int64, address string) token.Token {
	if t, ok := token.Lookup(chainID, address); ok {
		return t
	}
	return token.Token{Address: address, ChainID: chainID, Decimals: 18}
}

// BestRoute picks the lowest-risk candidate with an overall score
// strictly below 50, tie-broken by higher output amount. Returns nil
// when no candidate qualifies.
func BestRoute(candidates []Candidate) *Candidate {
	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if c.Assessment.Overall >= 50 {
			continue
		}
		if best == nil || c.Assessment.Overall < best.Assessment.Overall ||
			(c.Assessment.Overall == best.Assessment.Overall && higherAmount(c.Route.ToAmount, best.Route.ToAmount)) {
			best = c
		}
	}
	return best
}

// SaferAlternatives lists up to three candidates scoring strictly below
// the current route's score, excluding CRITICAL ones, ascending.
func SaferAlternatives(candidates []Candidate, current Candidate) []Candidate {
	var safer []Candidate
	for _, c := range candidates {
		if c.Route.ID == current.Route.ID {
			continue
		}
		if c.Assessment.Overall < current.Assessment.Overall && c.Assessment.Level != risk.LevelCritical {
			safer = append(safer, c)
		}
	}
	sort.SliceStable(safer, func(i, j int) bool {
		return safer[i].Assessment.Overall < safer[j].Assessment.Overall
	})
	if len(safer) > 3 {
		safer = safer[:3]
	}
	return safer
}

func higherAmount(a, b string) bool {
	av, aok := new(big.Int).SetString(a, 10)
	bv, bok := new(big.Int).SetString(b, 10)
	if !aok || !bok {
		return a > b
	}
	return av.Cmp(bv) > 0
}
