package simulation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"

	"github.com/scamsquatch/scamsquatch/internal/routes"
	"github.com/scamsquatch/scamsquatch/internal/token"
)

type fakeChain struct {
	gasPrice  *big.Int
	gasErr    error
	allowance *big.Int
	callErr   error
	calls     int
}

func (f *fakeChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return f.gasPrice, f.gasErr
}

func (f *fakeChain) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	f.calls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	out := make([]byte, 32)
	f.allowance.FillBytes(out)
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ethRoute() routes.Route {
	return routes.Route{
		ID:          "route-1",
		FromToken:   token.Token{Symbol: "ETH", Name: "Ether", Address: token.ZeroAddress, ChainID: 11155111},
		ToToken:     token.Token{Symbol: "USDC", Name: "USD Coin", Address: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", ChainID: 11155111},
		FromAmount:  "1000000000000000000",
		ToAmount:    "2500000000",
		PriceImpact: 0.5,
		Protocols:   []string{"uniswap"},
		FromChainID: 11155111,
		ToChainID:   11155111,
	}
}

func erc20Route() routes.Route {
	r := ethRoute()
	r.FromToken = token.Token{Symbol: "USDC", Name: "USD Coin", Address: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", ChainID: 11155111}
	r.ToToken = token.Token{Symbol: "WETH", Name: "Wrapped Ether", Address: "0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14", ChainID: 11155111}
	return r
}

const userAddr = "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb0"

func TestSimulate_GasScalesWithHops(t *testing.T) {
	chain := &fakeChain{gasPrice: big.NewInt(10_000_000_000), allowance: big.NewInt(0)}
	s := NewService(chain, testLogger())

	route := ethRoute()
	route.Protocols = []string{"uniswap", "curve", "balancer"}

	result, err := s.Simulate(context.Background(), Request{
		Route: route, UserAddress: userAddr,
		FromAmount: route.FromAmount, ToAmount: route.ToAmount,
	})
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	// 150k base + 3 hops * 50k
	if result.Simulation.GasUsed != "300000" {
		t.Errorf("GasUsed = %s, want 300000", result.Simulation.GasUsed)
	}
	if result.Simulation.GasLimit != "360000" {
		t.Errorf("GasLimit = %s, want 20%% buffer over gas used", result.Simulation.GasLimit)
	}
	if result.Simulation.GasPrice != "10000000000" {
		t.Errorf("GasPrice = %s", result.Simulation.GasPrice)
	}
}

func TestSimulate_NativeTokenSkipsApproval(t *testing.T) {
	chain := &fakeChain{gasPrice: big.NewInt(10_000_000_000), allowance: big.NewInt(0)}
	s := NewService(chain, testLogger())

	result, err := s.Simulate(context.Background(), Request{
		Route: ethRoute(), UserAddress: userAddr,
		FromAmount: "1000000000000000000", ToAmount: "2500000000",
	})
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	if result.Approval.Required {
		t.Error("native input should not require approval")
	}
	if chain.calls != 0 {
		t.Errorf("allowance read for native token, calls = %d", chain.calls)
	}
}

func TestSimulate_ERC20RequiresApproval(t *testing.T) {
	chain := &fakeChain{gasPrice: big.NewInt(10_000_000_000), allowance: big.NewInt(100)}
	s := NewService(chain, testLogger())

	result, err := s.Simulate(context.Background(), Request{
		Route: erc20Route(), UserAddress: userAddr,
		FromAmount: "1000000", ToAmount: "400000000000000",
	})
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}

	if !result.Approval.Required {
		t.Error("low allowance should require approval")
	}
	if result.Approval.CurrentAllowance != "100" {
		t.Errorf("CurrentAllowance = %s, want 100", result.Approval.CurrentAllowance)
	}
	if result.Approval.ApprovalGas != "46000" {
		t.Errorf("ApprovalGas = %s", result.Approval.ApprovalGas)
	}
}

func TestSimulate_SufficientAllowance(t *testing.T) {
	allowance, _ := new(big.Int).SetString("10000000000000000000", 10)
	chain := &fakeChain{gasPrice: big.NewInt(10_000_000_000), allowance: allowance}
	s := NewService(chain, testLogger())

	result, err := s.Simulate(context.Background(), Request{
		Route: erc20Route(), UserAddress: userAddr,
		FromAmount: "1000000", ToAmount: "400000000000000",
	})
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if result.Approval.Required {
		t.Error("sufficient allowance should not require approval")
	}
}

func TestSimulate_AllowanceReadFailureForcesApproval(t *testing.T) {
	chain := &fakeChain{gasPrice: big.NewInt(10_000_000_000), callErr: errors.New("rpc down")}
	s := NewService(chain, testLogger())

	result, err := s.Simulate(context.Background(), Request{
		Route: erc20Route(), UserAddress: userAddr,
		FromAmount: "1000000", ToAmount: "400000000000000",
	})
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if !result.Approval.Required {
		t.Error("unreadable allowance should fall back to requiring approval")
	}
}

func TestSimulate_GasPriceFallback(t *testing.T) {
	chain := &fakeChain{gasErr: errors.New("rpc down"), allowance: big.NewInt(0)}
	s := NewService(chain, testLogger())

	result, err := s.Simulate(context.Background(), Request{
		Route: ethRoute(), UserAddress: userAddr,
		FromAmount: "1000000000000000000", ToAmount: "2500000000",
	})
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if result.Simulation.GasPrice != "20000000000" {
		t.Errorf("GasPrice = %s, want 20 gwei fallback", result.Simulation.GasPrice)
	}
}

func TestSimulate_DefaultsSlippage(t *testing.T) {
	s := NewService(nil, testLogger())
	result, err := s.Simulate(context.Background(), Request{
		Route: ethRoute(), UserAddress: userAddr,
		FromAmount: "1000000000000000000", ToAmount: "2500000000",
	})
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if result.Preview.Slippage != 0.5 {
		t.Errorf("Slippage = %v, want 0.5 default", result.Preview.Slippage)
	}
}

func TestSimulate_RequiresAmount(t *testing.T) {
	s := NewService(nil, testLogger())
	if _, err := s.Simulate(context.Background(), Request{Route: ethRoute()}); err == nil {
		t.Error("Simulate without amount succeeded, want error")
	}
}

func TestAnalyzeDrainRisk_CleanRoute(t *testing.T) {
	sec := AnalyzeDrainRisk(ethRoute())
	if sec.TokenDrainRisk {
		t.Errorf("clean route flagged: %v", sec.Warnings)
	}
}

func TestAnalyzeDrainRisk_HighPriceImpact(t *testing.T) {
	route := ethRoute()
	route.PriceImpact = 15
	sec := AnalyzeDrainRisk(route)

	if !sec.TokenDrainRisk {
		t.Fatal("high price impact not flagged")
	}
	if !hasPattern(sec, "high_price_impact") {
		t.Errorf("patterns = %v", sec.SuspiciousPatterns)
	}
}

func TestAnalyzeDrainRisk_ComplexRoute(t *testing.T) {
	route := ethRoute()
	route.Protocols = []string{"uniswap", "curve", "balancer", "sushiswap"}
	sec := AnalyzeDrainRisk(route)

	if !hasPattern(sec, "complex_route") {
		t.Errorf("patterns = %v, want complex_route", sec.SuspiciousPatterns)
	}
}

func TestAnalyzeDrainRisk_UnknownProtocols(t *testing.T) {
	route := ethRoute()
	route.Protocols = []string{"mysterydex"}
	sec := AnalyzeDrainRisk(route)

	if !hasPattern(sec, "unknown_protocols") {
		t.Errorf("patterns = %v, want unknown_protocols", sec.SuspiciousPatterns)
	}
	found := false
	for _, w := range sec.Warnings {
		if strings.Contains(w, "mysterydex") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings %v do not name the unknown protocol", sec.Warnings)
	}
}

func TestAnalyzeDrainRisk_SuspiciousTokenName(t *testing.T) {
	route := ethRoute()
	route.ToToken.Name = "Proxy_Contract Coin"
	sec := AnalyzeDrainRisk(route)

	if !hasPattern(sec, "suspicious_token_name") {
		t.Errorf("patterns = %v, want suspicious_token_name", sec.SuspiciousPatterns)
	}
}

func TestEstimateGas_IncludesApproval(t *testing.T) {
	chain := &fakeChain{gasPrice: big.NewInt(10_000_000_000), allowance: big.NewInt(0)}
	s := NewService(chain, testLogger())

	est, err := s.EstimateGas(context.Background(), Request{
		Route: erc20Route(), UserAddress: userAddr,
		FromAmount: "1000000", ToAmount: "400000000000000",
	})
	if err != nil {
		t.Fatalf("EstimateGas failed: %v", err)
	}
	// 150k + 1 hop * 50k + 46k approval
	if est.GasUsed != "246000" {
		t.Errorf("GasUsed = %s, want 246000", est.GasUsed)
	}
}

func hasPattern(sec Security, want string) bool {
	for _, p := range sec.SuspiciousPatterns {
		if p == want {
			return true
		}
	}
	return false
}
