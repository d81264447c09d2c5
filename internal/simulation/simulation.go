// Package simulation previews a swap before the user signs: gas cost,
// approval requirements, and a drain-pattern security check. Chain
// reads degrade to safe defaults so a flaky RPC never blocks a preview.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/scamsquatch/scamsquatch/internal/risk"
	"github.com/scamsquatch/scamsquatch/internal/routes"
	"github.com/scamsquatch/scamsquatch/internal/token"
)

const (
	// swapBaseGas plus perHopGas approximates router execution cost.
	swapBaseGas = 150_000
	perHopGas   = 50_000

	// approveGas is the usual ERC-20 approve cost.
	approveGas = 46_000

	gasLimitBufferPct = 20

	defaultSlippagePct = 0.5

	// spenderAddress is the 1inch v5 router.
	spenderAddress = "0x1111111254EEB25477B68fb85Ed929f73A960582"
)

// allowanceSelector is keccak("allowance(address,address)")[:4].
var allowanceSelector = []byte{0xdd, 0x62, 0xed, 0x3e}

// fallbackGasPrice is 20 gwei, used when no RPC is reachable.
var fallbackGasPrice = big.NewInt(20_000_000_000)

// drainPatterns are token-name substrings associated with drain scams.
var drainPatterns = []string{
	"infinite_approval",
	"max_uint256_approval",
	"high_fee_transfer",
	"suspicious_contract",
	"proxy_contract",
	"upgradeable_contract",
	"admin_functions",
	"emergency_functions",
	"blacklist_functions",
	"pause_functions",
}

// GasEstimate is the dry-run execution cost breakdown.
type GasEstimate struct {
	GasUsed   string `json:"gasUsed"`
	GasLimit  string `json:"gasLimit"`
	GasPrice  string `json:"gasPrice"`
	TotalCost string `json:"totalCost"`
}

// Approval describes whether the router needs an allowance first.
type Approval struct {
	Required          bool   `json:"required"`
	CurrentAllowance  string `json:"currentAllowance"`
	RequiredAllowance string `json:"requiredAllowance"`
	ApprovalGas       string `json:"approvalGas"`
	ApprovalCost      string `json:"approvalCost"`
	SpenderAddress    string `json:"spenderAddress"`
}

// Security is the drain-pattern analysis attached to a preview.
type Security struct {
	TokenDrainRisk     bool     `json:"tokenDrainRisk"`
	SuspiciousPatterns []string `json:"suspiciousPatterns"`
	Warnings           []string `json:"warnings"`
	Recommendations    []string `json:"recommendations"`
}

// Fees breaks the preview cost into components.
type Fees struct {
	Protocol string `json:"protocol"`
	Gas      string `json:"gas"`
	Total    string `json:"total"`
}

// Preview summarizes what the user gives and gets.
type Preview struct {
	InputAmount  string  `json:"inputAmount"`
	OutputAmount string  `json:"outputAmount"`
	PriceImpact  float64 `json:"priceImpact"`
	Slippage     float64 `json:"slippage"`
	Fees         Fees    `json:"fees"`
}

// Result is the full pre-sign preview.
type Result struct {
	Simulation GasEstimate `json:"simulation"`
	Approval   Approval    `json:"approval"`
	Security   Security    `json:"security"`
	Preview    Preview     `json:"preview"`
}

// Request describes the swap to preview.
type Request struct {
	Route       routes.Route `json:"route"`
	UserAddress string       `json:"userAddress"`
	FromAmount  string       `json:"fromAmount"`
	ToAmount    string       `json:"toAmount"`
	Slippage    float64      `json:"slippage"`
}

// ChainReader is the RPC surface the simulator needs.
// *ethclient.Client satisfies it.
type ChainReader interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Service produces swap previews.
type Service struct {
	chain  ChainReader
	logger *slog.Logger
}

// NewService creates a simulator. chain may be nil; previews then use
// the fallback gas price and skip allowance reads.
func NewService(chain ChainReader, logger *slog.Logger) *Service {
	return &Service{chain: chain, logger: logger}
}

// Simulate builds the full preview for one route.
func (s *Service) Simulate(ctx context.Context, req Request) (Result, error) {
	if req.FromAmount == "" {
		return Result{}, fmt.Errorf("missing transfer amount")
	}
	if req.Slippage <= 0 {
		req.Slippage = defaultSlippagePct
	}

	gasPrice := s.gasPrice(ctx)
	sim := estimateSwapGas(req.Route, gasPrice)
	approval := s.checkApproval(ctx, req.Route.FromToken, req.UserAddress, req.FromAmount, gasPrice)
	security := AnalyzeDrainRisk(req.Route)

	gasCost := new(big.Int).Mul(big.NewInt(int64(swapGas(req.Route))), gasPrice)
	approvalCost, _ := new(big.Int).SetString(approval.ApprovalCost, 10)
	if approvalCost == nil {
		approvalCost = big.NewInt(0)
	}
	totalFees := new(big.Int).Add(gasCost, approvalCost)

	return Result{
		Simulation: sim,
		Approval:   approval,
		Security:   security,
		Preview: Preview{
			InputAmount:  req.FromAmount,
			OutputAmount: req.ToAmount,
			PriceImpact:  req.Route.PriceImpact,
			Slippage:     req.Slippage,
			Fees: Fees{
				Protocol: "0",
				Gas:      gasCost.String(),
				Total:    totalFees.String(),
			},
		},
	}, nil
}

// EstimateGas returns the combined swap+approval gas cost for a route.
func (s *Service) EstimateGas(ctx context.Context, req Request) (GasEstimate, error) {
	result, err := s.Simulate(ctx, req)
	if err != nil {
		return GasEstimate{}, err
	}

	swapUsed, _ := new(big.Int).SetString(result.Simulation.GasUsed, 10)
	approvalUsed, _ := new(big.Int).SetString(result.Approval.ApprovalGas, 10)
	if swapUsed == nil {
		swapUsed = big.NewInt(0)
	}
	if approvalUsed == nil {
		approvalUsed = big.NewInt(0)
	}

	total := new(big.Int).Add(swapUsed, approvalUsed)
	price, _ := new(big.Int).SetString(result.Simulation.GasPrice, 10)
	cost := new(big.Int).Mul(total, price)

	return GasEstimate{
		GasUsed:   total.String(),
		GasLimit:  result.Simulation.GasLimit,
		GasPrice:  result.Simulation.GasPrice,
		TotalCost: cost.String(),
	}, nil
}

// AnalyzeDrainRisk inspects a route for drain-scam signals. It is a
// pure function over the route.
func AnalyzeDrainRisk(route routes.Route) Security {
	sec := Security{
		SuspiciousPatterns: []string{},
		Warnings:           []string{},
		Recommendations:    []string{},
	}

	names := []string{
		strings.ToLower(route.FromToken.Name),
		strings.ToLower(route.FromToken.Symbol),
		strings.ToLower(route.ToToken.Name),
		strings.ToLower(route.ToToken.Symbol),
	}
	var suspicious []string
	for _, name := range names {
		for _, pattern := range drainPatterns {
			if name != "" && strings.Contains(name, pattern) {
				suspicious = append(suspicious, name)
				break
			}
		}
	}
	if len(suspicious) > 0 {
		sec.SuspiciousPatterns = append(sec.SuspiciousPatterns, "suspicious_token_name")
		sec.Warnings = append(sec.Warnings,
			fmt.Sprintf("Suspicious token names detected: %s", strings.Join(suspicious, ", ")))
		sec.Recommendations = append(sec.Recommendations, "Verify token contract on blockchain explorer")
	}

	if route.PriceImpact > 10 {
		sec.SuspiciousPatterns = append(sec.SuspiciousPatterns, "high_price_impact")
		sec.Warnings = append(sec.Warnings,
			fmt.Sprintf("High price impact: %.2f%%", route.PriceImpact))
		sec.Recommendations = append(sec.Recommendations, "Consider using a different route or reducing amount")
	}

	if route.Hops() > 3 {
		sec.SuspiciousPatterns = append(sec.SuspiciousPatterns, "complex_route")
		sec.Warnings = append(sec.Warnings,
			fmt.Sprintf("Complex route with %d hops", route.Hops()))
		sec.Recommendations = append(sec.Recommendations, "Consider a simpler route to reduce risk")
	}

	var unknown []string
	for _, p := range route.Protocols {
		if !risk.IsTrustedProtocol(p) {
			unknown = append(unknown, p)
		}
	}
	if len(unknown) > 0 {
		sec.SuspiciousPatterns = append(sec.SuspiciousPatterns, "unknown_protocols")
		sec.Warnings = append(sec.Warnings,
			fmt.Sprintf("Unknown protocols: %s", strings.Join(unknown, ", ")))
		sec.Recommendations = append(sec.Recommendations, "Research unknown protocols before proceeding")
	}

	sec.TokenDrainRisk = len(sec.SuspiciousPatterns) > 0
	return sec
}

func (s *Service) gasPrice(ctx context.Context) *big.Int {
	if s.chain == nil {
		return fallbackGasPrice
	}
	price, err := s.chain.SuggestGasPrice(ctx)
	if err != nil || price == nil || price.Sign() <= 0 {
		s.logger.Warn("gas price lookup failed, using fallback",
			slog.String("fallback_wei", fallbackGasPrice.String()))
		return fallbackGasPrice
	}
	return price
}

func (s *Service) checkApproval(ctx context.Context, from token.Token, owner, amount string, gasPrice *big.Int) Approval {
	approval := Approval{
		CurrentAllowance:  "0",
		RequiredAllowance: "0",
		ApprovalGas:       "0",
		ApprovalCost:      "0",
		SpenderAddress:    spenderAddress,
	}

	// Native transfers never need an allowance.
	if from.IsNative() {
		return approval
	}

	required, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return approval
	}
	approval.RequiredAllowance = required.String()

	current := s.allowance(ctx, from.Address, owner)
	approval.CurrentAllowance = current.String()

	if current.Cmp(required) < 0 {
		approval.Required = true
		approval.ApprovalGas = big.NewInt(approveGas).String()
		approval.ApprovalCost = new(big.Int).Mul(big.NewInt(approveGas), gasPrice).String()
	}
	return approval
}

// allowance reads allowance(owner, spender) from the token contract.
// Any failure reads as zero, which forces the safe "approval required"
// path for ERC-20 inputs.
func (s *Service) allowance(ctx context.Context, tokenAddr, owner string) *big.Int {
	if s.chain == nil || !common.IsHexAddress(tokenAddr) || !common.IsHexAddress(owner) {
		return big.NewInt(0)
	}

	data := make([]byte, 0, 4+32+32)
	data = append(data, allowanceSelector...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(owner).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(common.HexToAddress(spenderAddress).Bytes(), 32)...)

	contract := common.HexToAddress(tokenAddr)
	out, err := s.chain.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil || len(out) < 32 {
		return big.NewInt(0)
	}
	return new(big.Int).SetBytes(out[:32])
}

func swapGas(route routes.Route) int {
	return swapBaseGas + perHopGas*route.Hops()
}

func estimateSwapGas(route routes.Route, gasPrice *big.Int) GasEstimate {
	gas := swapGas(route)
	limit := gas * (100 + gasLimitBufferPct) / 100
	cost := new(big.Int).Mul(big.NewInt(int64(gas)), gasPrice)

	return GasEstimate{
		GasUsed:   big.NewInt(int64(gas)).String(),
		GasLimit:  big.NewInt(int64(limit)).String(),
		GasPrice:  gasPrice.String(),
		TotalCost: cost.String(),
	}
}
