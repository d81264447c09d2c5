package risk

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/scamsquatch/scamsquatch/internal/cache"
	"github.com/scamsquatch/scamsquatch/internal/chaindata"
	"github.com/scamsquatch/scamsquatch/internal/idgen"
	"github.com/scamsquatch/scamsquatch/internal/metrics"
	"github.com/scamsquatch/scamsquatch/internal/routes"
)

// Engine runs the weighted factor table over routes and bridge quotes.
type Engine struct {
	store Store
	clock cache.Clock
}

// NewEngine creates a scoring engine backed by the given audit store.
// Store may be nil; recording is best-effort either way.
func NewEngine(store Store) *Engine {
	return &Engine{store: store, clock: cache.RealClock{}}
}

// WithClock overrides the clock used for token-age checks.
func (e *Engine) WithClock(c cache.Clock) *Engine {
	e.clock = c
	return e
}

// Score evaluates a route against the factor table.
// Pure in-memory computation, no I/O.
func (e *Engine) Score(route routes.Route, from, to chaindata.TokenData) Assessment {
	now := e.clock.Now()

	var factors []Factor
	var warnings []string
	score := 0.0

	add := func(f Factor, warning string) {
		factors = append(factors, f)
		if f.Triggered {
			score += f.Weight
			if warning != "" {
				warnings = append(warnings, warning)
			}
		}
	}

	// Unknown protocol: every hop outside the trusted set is listed.
	var unknown []string
	for _, p := range route.Protocols {
		if !IsTrustedProtocol(p) {
			unknown = append(unknown, p)
		}
	}
	unknownList := strings.Join(unknown, ", ")
	add(Factor{
		Name:      "UNKNOWN_PROTOCOL",
		Weight:    WeightUnknownProtocol,
		Triggered: len(unknown) > 0,
		Detail:    unknownList,
	}, fmt.Sprintf("Route uses unknown protocols: %s", unknownList))

	// Price impact scales with severity, capped at full weight.
	impactTriggered := route.PriceImpact > priceImpactTriggerPct
	impactWeight := 0.0
	if impactTriggered {
		impactWeight = WeightHighPriceImpact * math.Min(route.PriceImpact, priceImpactCapPct) / priceImpactCapPct
	}
	add(Factor{
		Name:      "HIGH_PRICE_IMPACT",
		Weight:    impactWeight,
		Triggered: impactTriggered,
		Detail:    fmt.Sprintf("%.2f%%", route.PriceImpact),
	}, fmt.Sprintf("High price impact: %.2f%%", route.PriceImpact))

	add(Factor{
		Name:      "MULTIPLE_HOPS",
		Weight:    WeightMultipleHops,
		Triggered: route.Hops() > multipleHopsThreshold,
		Detail:    fmt.Sprintf("%d hops", route.Hops()),
	}, fmt.Sprintf("Route has %d hops, each adds risk", route.Hops()))

	crossChain := route.IsCrossChain()
	add(Factor{
		Name:      "CROSS_CHAIN_BRIDGE",
		Weight:    WeightCrossChainBridge,
		Triggered: crossChain,
	}, "Route crosses chains via a bridge")

	// Untrusted bridge: cross-chain with no recognizable bridge hop, or a
	// bridge-looking hop that is not in the trusted set.
	untrustedBridge := false
	bridgeHop := ""
	if crossChain {
		for _, p := range route.Protocols {
			if IsBridgeHop(p) {
				bridgeHop = p
				break
			}
		}
		untrustedBridge = bridgeHop == "" || !IsTrustedProtocol(bridgeHop)
	}
	add(Factor{
		Name:      "UNTRUSTED_BRIDGE",
		Weight:    WeightUntrustedBridge,
		Triggered: untrustedBridge,
		Detail:    bridgeHop,
	}, "Bridge protocol is not recognized as trusted")

	add(Factor{
		Name:      "CHAIN_SPECIFIC_RISK",
		Weight:    WeightChainSpecificRisk,
		Triggered: !reputableChains[route.ToChainID],
		Detail:    fmt.Sprintf("chain %d", route.ToChainID),
	}, fmt.Sprintf("Destination chain %d has elevated risk", route.ToChainID))

	// Scam patterns in either token's name or symbol.
	pattern, suspicious := MatchesScamPattern(from.Name, from.Symbol)
	if !suspicious {
		pattern, suspicious = MatchesScamPattern(to.Name, to.Symbol)
	}
	add(Factor{
		Name:      "SUSPICIOUS_CONTRACT",
		Weight:    WeightSuspiciousContract,
		Triggered: suspicious,
		Detail:    pattern,
	}, fmt.Sprintf("Token matches scam pattern: %s", pattern))

	// Token age and liquidity apply per token.
	for _, td := range []struct {
		label string
		data  chaindata.TokenData
	}{{"source", from}, {"destination", to}} {
		add(Factor{
			Name:      "NEW_TOKEN",
			Weight:    WeightNewToken,
			Triggered: td.data.IsNew(now),
			Detail:    td.label,
		}, fmt.Sprintf("The %s token was created less than 30 days ago", td.label))

		add(Factor{
			Name:      "LOW_LIQUIDITY",
			Weight:    WeightLowLiquidity,
			Triggered: td.data.LowLiquidity(),
			Detail:    td.label,
		}, fmt.Sprintf("The %s token has very low liquidity", td.label))
	}

	clamped := clamp(score)
	return Assessment{
		Score:    clamped,
		Level:    LevelFor(clamped),
		Factors:  factors,
		Warnings: warnings,
	}
}

// AssessBridge evaluates a bridge quote against the bridge factor table.
func (e *Engine) AssessBridge(in BridgeInput) Assessment {
	var factors []Factor
	var warnings []string
	score := 0.0

	add := func(f Factor, warning string) {
		factors = append(factors, f)
		if f.Triggered {
			score += f.Weight
			if warning != "" {
				warnings = append(warnings, warning)
			}
		}
	}

	// Every bridge transfer carries base bridge risk.
	add(Factor{
		Name:      "CROSS_CHAIN_BRIDGE",
		Weight:    WeightCrossChainBridge,
		Triggered: true,
	}, "Cross-chain transfers add bridge risk")

	add(Factor{
		Name:      "HIGH_BRIDGE_FEE",
		Weight:    15,
		Triggered: in.FeePercent > 5,
		Detail:    fmt.Sprintf("%.2f%%", in.FeePercent),
	}, fmt.Sprintf("Bridge fee of %.2f%% is unusually high", in.FeePercent))

	add(Factor{
		Name:      "SLOW_BRIDGE",
		Weight:    10,
		Triggered: in.EstimatedTime > 600,
		Detail:    fmt.Sprintf("%ds", in.EstimatedTime),
	}, "Bridge transfer is expected to take more than 10 minutes")

	add(Factor{
		Name:      "UNSUPPORTED_DESTINATION",
		Weight:    25,
		Triggered: !supportedBridgeChains[in.ToChainID],
		Detail:    fmt.Sprintf("chain %d", in.ToChainID),
	}, fmt.Sprintf("Destination chain %d is not a supported bridge target", in.ToChainID))

	add(Factor{
		Name:      "UNVERIFIED_DESTINATION_TOKEN",
		Weight:    20,
		Triggered: !in.DestTokenVerified,
	}, "Destination token contract is not verified")

	clamped := clamp(score)
	return Assessment{
		Score:    clamped,
		Level:    LevelFor(clamped),
		Factors:  factors,
		Warnings: warnings,
	}
}

// supportedBridgeChains are destinations the bridge pipeline supports.
var supportedBridgeChains = map[int64]bool{
	11155111: true, // Sepolia
	2:        true, // Wormhole chain ID for Ethereum
}

// RecordCombined persists a combined assessment asynchronously
// (best-effort audit trail) and updates metrics.
func (e *Engine) RecordCombined(route routes.Route, combined Combined) {
	metrics.AssessmentsTotal.WithLabelValues(string(combined.Level)).Inc()
	metrics.AssessmentScores.Observe(float64(combined.Overall))

	if e.store == nil {
		return
	}
	rec := &Record{
		ID:         idgen.WithPrefix("assess_"),
		RouteID:    combined.RouteID,
		FromToken:  route.FromToken.Address,
		ToToken:    route.ToToken.Address,
		FromChain:  route.FromChainID,
		ToChain:    route.ToChainID,
		Overall:    combined.Overall,
		Level:      combined.Level,
		Warnings:   combined.Warnings,
		AssessedAt: combined.AssessedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.store.Record(ctx, rec)
	}()
}

func clamp(score float64) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(math.Round(score))
}
