// Package airisk runs the heuristic AI-style risk analysis over a swap
// route. The analyzer never fails a request: signal lookups that error
// degrade to a neutral mid-range verdict so the caller can still merge
// scores and respond.
package airisk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/scamsquatch/scamsquatch/internal/cache"
	"github.com/scamsquatch/scamsquatch/internal/chaindata"
	"github.com/scamsquatch/scamsquatch/internal/metrics"
	"github.com/scamsquatch/scamsquatch/internal/risk"
	"github.com/scamsquatch/scamsquatch/internal/routes"
)

const (
	cacheTTL      = 5 * time.Minute
	sweepInterval = time.Minute

	baseScore = 30

	fallbackScore      = 50
	fallbackConfidence = 0.5
)

const fallbackWarning = "Unable to complete full risk analysis"

// trustedBridges are bridge protocols the cross-chain check accepts
// without a penalty. Matching is substring, case-insensitive.
var trustedBridges = []string{"wormhole", "layerzero", "chainbridge", "arbitrum", "optimism"}

// chainRisk maps chain IDs to a baseline cross-chain risk weight.
// Unlisted chains default to 0.5.
var chainRisk = map[int64]float64{
	1:        0.1,
	11155111: 0.2,
	137:      0.3,
	43114:    0.4,
	56:       0.4,
	42161:    0.3,
	10:       0.3,
}

// RiskFactors breaks the verdict into named probabilities.
type RiskFactors struct {
	ScamProbability float64 `json:"scamProbability"`
	ContractRisk    float64 `json:"contractRisk"`
	LiquidityRisk   float64 `json:"liquidityRisk"`
	VolatilityRisk  float64 `json:"volatilityRisk"`
}

// ContractAnalysis describes what the contract inspection found.
type ContractAnalysis struct {
	IsVerified         bool     `json:"isVerified"`
	SourceCodeQuality  float64  `json:"sourceCodeQuality"`
	SuspiciousPatterns []string `json:"suspiciousPatterns"`
}

// MarketAnalysis describes liquidity and volume conditions.
type MarketAnalysis struct {
	LiquidityDepth      float64 `json:"liquidityDepth"`
	VolumeAnalysis      string  `json:"volumeAnalysis"`
	PriceImpact         float64 `json:"priceImpact"`
	HoldersDistribution string  `json:"holdersDistribution"`
}

// ReputationAnalysis describes community and developer signals.
type ReputationAnalysis struct {
	CommunityTrust      float64  `json:"communityTrust"`
	DeveloperActivity   string   `json:"developerActivity"`
	SocialMediaPresence string   `json:"socialMediaPresence"`
	KnownIncidents      []string `json:"knownIncidents"`
}

// Details carries the narrative sub-analyses attached to a verdict.
type Details struct {
	Contract   ContractAnalysis   `json:"contractAnalysis"`
	Market     MarketAnalysis     `json:"marketAnalysis"`
	Reputation ReputationAnalysis `json:"reputationAnalysis"`
}

// Analysis is a full AI verdict for one route.
type Analysis struct {
	Score       int         `json:"riskScore"`
	Confidence  float64     `json:"confidence"`
	Warnings    []string    `json:"warnings"`
	RiskFactors RiskFactors `json:"riskFactors"`
	Details     Details     `json:"details"`
}

// Summary reduces the analysis to the fields score merging needs.
func (a Analysis) Summary() risk.Summary {
	return risk.Summary{Score: a.Score, Confidence: a.Confidence, Warnings: a.Warnings}
}

// Analyzer produces AI risk verdicts backed by chain signals and a
// short-lived result cache.
type Analyzer struct {
	signals chaindata.Source
	clock   cache.Clock
	randf   func() float64
	cache   *cache.TTL[Analysis]
	logger  *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithClock overrides the time source, for tests.
func WithClock(c cache.Clock) Option {
	return func(a *Analyzer) { a.clock = c }
}

// WithRand overrides the confidence jitter source, for tests.
func WithRand(f func() float64) Option {
	return func(a *Analyzer) { a.randf = f }
}

// NewAnalyzer creates an analyzer over the given signal source.
func NewAnalyzer(signals chaindata.Source, logger *slog.Logger, opts ...Option) *Analyzer {
	a := &Analyzer{
		signals: signals,
		clock:   cache.RealClock{},
		randf:   rand.Float64,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.cache = cache.NewTTL[Analysis](cacheTTL, a.clock)
	return a
}

// Start begins background cache sweeping.
func (a *Analyzer) Start() {
	a.cache.Start(sweepInterval)
}

// Stop halts background cache sweeping.
func (a *Analyzer) Stop() {
	a.cache.Stop()
}

// AnalyzeRoute scores one route. It never returns an error: signal
// failures produce the neutral fallback verdict instead.
func (a *Analyzer) AnalyzeRoute(ctx context.Context, route routes.Route) Analysis {
	key := cacheKey(route)
	if hit, ok := a.cache.Get(key); ok {
		metrics.AICacheHitsTotal.WithLabelValues("hit").Inc()
		return hit
	}
	metrics.AICacheHitsTotal.WithLabelValues("miss").Inc()

	analysis, err := a.analyze(ctx, route)
	if err != nil {
		metrics.AIFallbacksTotal.Inc()
		a.logger.Warn("ai analysis degraded to fallback",
			slog.String("route_id", route.ID),
			slog.String("error", err.Error()))
		return Analysis{
			Score:      fallbackScore,
			Confidence: fallbackConfidence,
			Warnings:   []string{fallbackWarning},
			RiskFactors: RiskFactors{
				ScamProbability: 0.5,
				ContractRisk:    0.5,
				LiquidityRisk:   0.5,
				VolatilityRisk:  0.5,
			},
		}
	}

	a.cache.Set(key, analysis)
	return analysis
}

func (a *Analyzer) analyze(ctx context.Context, route routes.Route) (Analysis, error) {
	now := a.clock.Now()

	dest, err := a.signals.TokenData(ctx, route.ToChainID, route.ToToken.Address)
	if err != nil {
		return Analysis{}, fmt.Errorf("token data: %w", err)
	}
	market, err := a.signals.MarketData(ctx, route.ToChainID, route.ToToken.Address)
	if err != nil {
		return Analysis{}, fmt.Errorf("market data: %w", err)
	}

	isNew := dest.IsNew(now)
	lowLiquidity := dest.LowLiquidity()
	verified := dest.Verified

	volatility := volatilityScore(market)
	holderRisk := holderDistributionRisk(market)

	score := float64(baseScore)
	if isNew {
		score += 30
	}
	if lowLiquidity {
		score += 20
	}
	if !verified {
		score += 20
	}
	score += volatility * 20
	score += holderRisk * 10

	var warnings []string
	if isNew {
		warnings = append(warnings, "Token was recently created")
	}
	if lowLiquidity {
		warnings = append(warnings, "Low liquidity pool detected")
	}
	if !verified {
		warnings = append(warnings, "Contract code is not verified")
	}

	if route.IsCrossChain() {
		if !hasTrustedBridge(route.Protocols) {
			warnings = append(warnings, "Untrusted or unknown bridge protocol detected")
			score += 20
		}
		fromRisk := chainRiskFor(route.FromChainID)
		toRisk := chainRiskFor(route.ToChainID)
		score += ((fromRisk + toRisk) / 2) * 30
	}

	volRisk := volumeRisk(market.Volume24hUSD)
	liqRisk := liquidityRisk(market.LiquidityDepthUSD)
	score += volRisk * 15
	score += liqRisk * 20
	score += holderRisk * 10

	if volRisk > 0.7 {
		warnings = append(warnings, "Unusually low trading volume")
	}
	if liqRisk > 0.7 {
		warnings = append(warnings, "Critically low liquidity")
	}
	if holderRisk > 0.7 {
		warnings = append(warnings, "High concentration of token holders")
	}

	final := int(math.Round(math.Min(100, math.Max(0, score))))

	return Analysis{
		Score:      final,
		Confidence: 0.85 + a.randf()*0.15,
		Warnings:   warnings,
		RiskFactors: RiskFactors{
			ScamProbability: pick(isNew, 0.7, 0.1),
			ContractRisk:    pick(!verified, 0.8, 0.2),
			LiquidityRisk:   pick(lowLiquidity, 0.9, 0.3),
			VolatilityRisk:  volatility,
		},
		Details: Details{
			Contract: ContractAnalysis{
				IsVerified:         verified,
				SourceCodeQuality:  pick(verified, 0.8, 0.3),
				SuspiciousPatterns: suspiciousPatterns(dest),
			},
			Market: MarketAnalysis{
				LiquidityDepth:      market.LiquidityDepthUSD,
				VolumeAnalysis:      volumeNarrative(lowLiquidity),
				PriceImpact:         pick(lowLiquidity, 0.15, 0.02),
				HoldersDistribution: holdersNarrative(isNew),
			},
			Reputation: ReputationAnalysis{
				CommunityTrust:      pick(isNew, 0.3, 0.8),
				DeveloperActivity:   devActivityNarrative(verified),
				SocialMediaPresence: socialPresenceNarrative(isNew),
				KnownIncidents:      []string{},
			},
		},
	}, nil
}

// cacheKey identifies a route analysis by the swap parameters that
// influence the verdict.
func cacheKey(route routes.Route) string {
	return fmt.Sprintf("%d-%s-%s-%s-%s",
		route.FromChainID, route.FromToken.Address, route.ToToken.Address, route.ID, route.FromAmount)
}

func hasTrustedBridge(protocols []string) bool {
	for _, p := range protocols {
		lower := strings.ToLower(p)
		for _, trusted := range trustedBridges {
			if strings.Contains(lower, trusted) {
				return true
			}
		}
	}
	return false
}

func chainRiskFor(chainID int64) float64 {
	if r, ok := chainRisk[chainID]; ok {
		return r
	}
	return 0.5
}

func volatilityScore(m chaindata.MarketData) float64 {
	priceVolatility := 0.3
	if math.Abs(m.Price24hChangePct) > 20 {
		priceVolatility = 0.8
	}
	volumeVolatility := 0.2
	if m.MarketCapUSD <= 0 || m.Volume24hUSD/m.MarketCapUSD < 0.1 {
		volumeVolatility = 0.7
	}
	return (priceVolatility + volumeVolatility) / 2
}

func holderDistributionRisk(m chaindata.MarketData) float64 {
	switch {
	case m.Holders < 100:
		return 0.9
	case m.Holders < 1_000:
		return 0.6
	case m.Holders < 5_000:
		return 0.3
	default:
		return 0.1
	}
}

func volumeRisk(volume24h float64) float64 {
	switch {
	case volume24h >= 10_000_000:
		return 0.1
	case volume24h >= 1_000_000:
		return 0.3
	case volume24h >= 100_000:
		return 0.6
	default:
		return 0.9
	}
}

func liquidityRisk(liquidity float64) float64 {
	switch {
	case liquidity >= 5_000_000:
		return 0.1
	case liquidity >= 500_000:
		return 0.4
	case liquidity >= 50_000:
		return 0.7
	default:
		return 0.9
	}
}

func suspiciousPatterns(dest chaindata.TokenData) []string {
	patterns := []string{}
	if pattern, ok := risk.MatchesScamPattern(dest.Name, dest.Symbol); ok {
		patterns = append(patterns, pattern)
	}
	return patterns
}

func pick(cond bool, ifTrue, ifFalse float64) float64 {
	if cond {
		return ifTrue
	}
	return ifFalse
}

func volumeNarrative(lowLiquidity bool) string {
	if lowLiquidity {
		return "Low trading volume in the past 24 hours with suspicious trade patterns"
	}
	return "Healthy trading volume with normal distribution of trades"
}

func holdersNarrative(isNew bool) string {
	if isNew {
		return "Top 3 holders control 95% of supply"
	}
	return "Well-distributed token holdings across 1000+ addresses"
}

func devActivityNarrative(verified bool) string {
	if verified {
		return "Regular updates and active development team"
	}
	return "Limited or no visible development activity"
}

func socialPresenceNarrative(isNew bool) string {
	if isNew {
		return "Limited social media presence with recent creation dates"
	}
	return "Established presence on major platforms with active community"
}
