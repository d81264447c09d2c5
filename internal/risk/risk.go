// Package risk implements weighted risk scoring for swap routes.
//
// Every candidate route is evaluated against a fixed table of weighted
// factors: protocol trust, price impact, hop count, bridge usage, chain
// reputation, token age, liquidity, and scam-pattern matching. Scores
// range 0 (safe) to 100 (critical) and map onto four levels. Bridge
// quotes get their own factor table. The traditional score is later
// merged with the heuristic AI score into a combined assessment.
package risk

import (
	"context"
	"time"
)

// Level buckets a risk score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Score thresholds for levels.
const (
	criticalThreshold = 80
	highThreshold     = 60
	mediumThreshold   = 30
)

// LevelFor maps a clamped score onto a level.
func LevelFor(score int) Level {
	switch {
	case score >= criticalThreshold:
		return LevelCritical
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Factor weights. Each triggered factor adds its weight to the score;
// price impact is the only scaled factor.
const (
	WeightUnknownProtocol    = 25
	WeightHighPriceImpact    = 20
	WeightMultipleHops       = 10
	WeightCrossChainBridge   = 25
	WeightUntrustedBridge    = 30
	WeightChainSpecificRisk  = 20
	WeightSuspiciousContract = 20
	WeightNewToken           = 15
	WeightLowLiquidity       = 15
)

// Trigger thresholds.
const (
	priceImpactTriggerPct = 5.0  // factor triggers above this
	priceImpactCapPct     = 20.0 // impact at or above this scores full weight
	multipleHopsThreshold = 3    // factor triggers above this many hops
)

// Factor is one weighted contribution to an assessment.
type Factor struct {
	Name      string  `json:"name"`
	Weight    float64 `json:"weight"`
	Triggered bool    `json:"triggered"`
	Detail    string  `json:"detail,omitempty"`
}

// Assessment is the traditional scorer's verdict on a route.
type Assessment struct {
	Score           int      `json:"riskScore"`
	Level           Level    `json:"riskLevel"`
	Factors         []Factor `json:"factors"`
	Warnings        []string `json:"warnings"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Summary is the slice of an AI analysis that merging needs.
type Summary struct {
	Score      int      `json:"riskScore"`
	Confidence float64  `json:"confidence"`
	Warnings   []string `json:"warnings"`
}

// Combined is the merged verdict over both scorers.
type Combined struct {
	RouteID         string     `json:"routeId"`
	Traditional     Assessment `json:"traditional"`
	AI              Summary    `json:"ai"`
	Overall         int        `json:"overallRiskScore"`
	Level           Level      `json:"riskLevel"`
	Warnings        []string   `json:"warnings"`
	Recommendations []string   `json:"recommendations"`
	AssessedAt      time.Time  `json:"assessedAt"`
}

// BridgeInput carries the quote attributes the bridge factor table reads.
type BridgeInput struct {
	FeePercent        float64 // bridge fee as percent of transfer
	EstimatedTime     int     // seconds
	ToChainID         int64
	DestTokenVerified bool
}

// Record is a persisted combined assessment for the audit trail.
type Record struct {
	ID         string    `json:"id"`
	RouteID    string    `json:"routeId"`
	FromToken  string    `json:"fromToken"`
	ToToken    string    `json:"toToken"`
	FromChain  int64     `json:"fromChain"`
	ToChain    int64     `json:"toChain"`
	Overall    int       `json:"overallRiskScore"`
	Level      Level     `json:"riskLevel"`
	Warnings   []string  `json:"warnings"`
	AssessedAt time.Time `json:"assessedAt"`
}

// Store persists assessment records for audit.
type Store interface {
	Record(ctx context.Context, rec *Record) error
	ListRecent(ctx context.Context, limit int) ([]*Record, error)
}
