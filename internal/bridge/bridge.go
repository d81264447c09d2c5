// Package bridge produces cross-chain transfer quotes, on-chain fee
// estimates, and transfer status for the Sepolia↔Wormhole corridor.
// Quotes are deterministic MVP math (0.5% fee, 1:1 passthrough); status
// is derived from the transaction hash shape rather than real bridge
// polling, behind an interface a production poller can replace.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/scamsquatch/scamsquatch/internal/cache"
	"github.com/scamsquatch/scamsquatch/internal/metrics"
)

const (
	provider = "Wormhole"

	// feePermille is the quote fee in thousandths of the transfer amount.
	feePermille = 5

	// transferGas covers the token transfer plus bridge bookkeeping.
	transferGas = 350_000

	corridorTimeSeconds = 300
	defaultTimeSeconds  = 600

	completedAfter = 5 * time.Minute
)

// ChainSepolia and ChainWormholeAptos bound the supported corridor.
const (
	ChainSepolia       int64 = 11155111
	ChainWormholeAptos int64 = 2
)

var txHashRe = regexp.MustCompile(`^0x[a-fA-F0-9]{8,}$`)

// Quote is a prepared cross-chain transfer estimate.
type Quote struct {
	ID             string `json:"id"`
	FromChain      int64  `json:"fromChain"`
	ToChain        int64  `json:"toChain"`
	FromToken      string `json:"fromToken"`
	ToToken        string `json:"toToken"`
	FromAmount     string `json:"fromAmount"`
	ToAmount       string `json:"toAmount"`
	BridgeFee      string `json:"bridgeFee"`
	EstimatedTime  int    `json:"estimatedTime"` // seconds
	BridgeProvider string `json:"bridgeProvider"`
}

// FeePercent returns the quote fee as a percentage of the transfer.
func (q Quote) FeePercent() float64 {
	return float64(feePermille) / 10
}

// Request describes the transfer a caller wants quoted.
type Request struct {
	FromChain   int64  `json:"fromChain"`
	ToChain     int64  `json:"toChain"`
	FromToken   string `json:"fromToken"`
	ToToken     string `json:"toToken"`
	FromAmount  string `json:"fromAmount"`
	UserAddress string `json:"userAddress"`
}

// StatusKind is the transfer lifecycle state.
type StatusKind string

const (
	StatusPending   StatusKind = "pending"
	StatusCompleted StatusKind = "completed"
	StatusFailed    StatusKind = "failed"
)

// Status describes where a transfer stands.
type Status struct {
	Status        StatusKind `json:"status"`
	SourceChainTx string     `json:"sourceChainTx"`
	TargetChainTx string     `json:"targetChainTx,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Transfer is the prepared execution plan for an accepted quote. The
// server never broadcasts; the caller signs and submits the steps.
type Transfer struct {
	ID              string            `json:"id"`
	Quote           Quote             `json:"quote"`
	TransactionData map[string]string `json:"transactionData"`
	Instructions    []string          `json:"instructions"`
}

// GasPricer supplies the current gas price. *ethclient.Client satisfies it.
type GasPricer interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// StatusSource resolves transfer status. The built-in Service derives it
// from the hash; a production implementation would poll the bridge network.
type StatusSource interface {
	Status(ctx context.Context, txHash string) (Status, error)
}

// Service implements the quote, fee, and status pipeline.
type Service struct {
	gas       GasPricer
	clock     cache.Clock
	minFeeWei *big.Int
	maxFeeWei *big.Int
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(c cache.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithFeeBounds sets the acceptable fee window in ETH.
func WithFeeBounds(minETH, maxETH float64) Option {
	return func(s *Service) {
		s.minFeeWei = ethToWei(minETH)
		s.maxFeeWei = ethToWei(maxETH)
	}
}

// NewService creates a bridge service. gas may be nil when no RPC is
// configured; EstimateFee then reports an error and quotes still work.
func NewService(gas GasPricer, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		gas:       gas,
		clock:     cache.RealClock{},
		minFeeWei: ethToWei(0.001),
		maxFeeWei: ethToWei(1),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetQuote prices a cross-chain transfer. The amount conversion is a 1:1
// passthrough; the fee is 0.5% of the transfer in input token units.
func (s *Service) GetQuote(req Request) (Quote, error) {
	amount, ok := new(big.Int).SetString(req.FromAmount, 10)
	if !ok || amount.Sign() <= 0 {
		metrics.BridgeQuotesTotal.WithLabelValues("invalid").Inc()
		return Quote{}, fmt.Errorf("invalid transfer amount %q", req.FromAmount)
	}
	if req.FromChain == req.ToChain {
		metrics.BridgeQuotesTotal.WithLabelValues("invalid").Inc()
		return Quote{}, fmt.Errorf("bridge quote requires distinct chains, got %d", req.FromChain)
	}

	fee := new(big.Int).Mul(amount, big.NewInt(feePermille))
	fee.Div(fee, big.NewInt(1000))

	q := Quote{
		ID:             fmt.Sprintf("bridge-%d", s.clock.Now().UnixMilli()),
		FromChain:      req.FromChain,
		ToChain:        req.ToChain,
		FromToken:      req.FromToken,
		ToToken:        req.ToToken,
		FromAmount:     req.FromAmount,
		ToAmount:       req.FromAmount,
		BridgeFee:      fee.String(),
		EstimatedTime:  estimatedTime(req.FromChain, req.ToChain),
		BridgeProvider: provider,
	}

	metrics.BridgeQuotesTotal.WithLabelValues("ok").Inc()
	s.logger.Info("bridge quote prepared",
		slog.String("quote_id", q.ID),
		slog.Int64("from_chain", q.FromChain),
		slog.Int64("to_chain", q.ToChain),
		slog.String("fee", q.BridgeFee))
	return q, nil
}

// EstimateFee computes the on-chain transfer fee in wei from the current
// gas price. Estimates outside the configured window are rejected rather
// than silently clamped.
func (s *Service) EstimateFee(ctx context.Context) (*big.Int, error) {
	if s.gas == nil {
		return nil, fmt.Errorf("no gas price source configured")
	}
	gasPrice, err := s.gas.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	fee := new(big.Int).Mul(gasPrice, big.NewInt(transferGas))
	if fee.Cmp(s.minFeeWei) < 0 || fee.Cmp(s.maxFeeWei) > 0 {
		return nil, fmt.Errorf("estimated fee %s wei outside reasonable range [%s, %s]",
			fee, s.minFeeWei, s.maxFeeWei)
	}
	return fee, nil
}

// Status derives transfer state from the hash shape and elapsed time.
func (s *Service) Status(ctx context.Context, txHash string) (Status, error) {
	if !txHashRe.MatchString(txHash) {
		return Status{}, fmt.Errorf("invalid transaction hash format")
	}

	st := Status{Status: StatusPending, SourceChainTx: txHash}

	switch {
	case strings.HasSuffix(txHash, "00"):
		st.Status = StatusFailed
		st.Error = "Bridge transfer failed"
	case len(txHash)-2 >= 64 || s.elapsed(txHash) > completedAfter:
		st.Status = StatusCompleted
		st.TargetChainTx = txHash + "1"
	}
	return st, nil
}

// Execute prepares the transfer steps for an accepted quote.
func (s *Service) Execute(q Quote, userAddress string) Transfer {
	return Transfer{
		ID:    q.ID,
		Quote: q,
		TransactionData: map[string]string{
			"targetChain":   strconv.FormatInt(q.ToChain, 10),
			"targetAddress": userAddress,
			"amount":        q.FromAmount,
			"fee":           q.BridgeFee,
		},
		Instructions: []string{
			"1. Approve token spending on source chain",
			"2. Submit bridge transaction on source chain",
			"3. Wait for bridge confirmation (5-10 minutes)",
			"4. Claim tokens on destination chain",
		},
	}
}

// elapsed reads the initiation timestamp encoded in the first eight hex
// digits of the hash. Unparseable prefixes read as just-initiated.
func (s *Service) elapsed(txHash string) time.Duration {
	if len(txHash) < 10 {
		return 0
	}
	secs, err := strconv.ParseInt(txHash[2:10], 16, 64)
	if err != nil {
		return 0
	}
	return s.clock.Now().Sub(time.Unix(secs, 0))
}

func estimatedTime(fromChain, toChain int64) int {
	sepoliaAptos := fromChain == ChainSepolia && toChain == ChainWormholeAptos
	aptosSepolia := fromChain == ChainWormholeAptos && toChain == ChainSepolia
	if sepoliaAptos || aptosSepolia {
		return corridorTimeSeconds
	}
	return defaultTimeSeconds
}

func ethToWei(eth float64) *big.Int {
	wei, _ := new(big.Float).Mul(big.NewFloat(eth), big.NewFloat(1e18)).Int(nil)
	return wei
}
