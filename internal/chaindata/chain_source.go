package chaindata

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/scamsquatch/scamsquatch/internal/circuitbreaker"
	"github.com/scamsquatch/scamsquatch/internal/token"
)

const rpcBreakerKey = "rpc"

// ChainSource layers real contract verification over the deterministic
// mock signals: a token address with no deployed code cannot be a
// verified contract. Other signals (age, liquidity, holders) come from
// the mock source until an indexer is wired in.
type ChainSource struct {
	client  *ethclient.Client
	mock    *MockSource
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

// NewChainSource wraps an RPC client as a signal source.
func NewChainSource(client *ethclient.Client, mock *MockSource, logger *slog.Logger) *ChainSource {
	return &ChainSource{
		client:  client,
		mock:    mock,
		breaker: circuitbreaker.New(5, 30*time.Second),
		logger:  logger,
	}
}

func (s *ChainSource) TokenData(ctx context.Context, chainID int64, address string) (TokenData, error) {
	data, err := s.mock.TokenData(ctx, chainID, address)
	if err != nil {
		return TokenData{}, err
	}

	// Native asset has no contract to verify.
	if address == token.ZeroAddress {
		data.Verified = true
		return data, nil
	}

	if !s.breaker.Allow(rpcBreakerKey) {
		return data, nil
	}

	code, err := s.client.CodeAt(ctx, common.HexToAddress(address), nil)
	if err != nil {
		s.breaker.RecordFailure(rpcBreakerKey)
		s.logger.Warn("code lookup failed, keeping mock verification", "address", address, "error", err)
		return data, nil
	}
	s.breaker.RecordSuccess(rpcBreakerKey)

	if len(code) == 0 {
		// No deployed bytecode at this address on our RPC's chain.
		data.Verified = false
	}
	return data, nil
}

func (s *ChainSource) MarketData(ctx context.Context, chainID int64, address string) (MarketData, error) {
	return s.mock.MarketData(ctx, chainID, address)
}

// Healthy reports whether the RPC circuit is closed.
func (s *ChainSource) Healthy() bool {
	return s.breaker.State(rpcBreakerKey) == circuitbreaker.StateClosed
}
