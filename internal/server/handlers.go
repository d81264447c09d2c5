package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scamsquatch/scamsquatch/internal/aggregator"
	"github.com/scamsquatch/scamsquatch/internal/bridge"
	"github.com/scamsquatch/scamsquatch/internal/logging"
	"github.com/scamsquatch/scamsquatch/internal/metrics"
	"github.com/scamsquatch/scamsquatch/internal/realtime"
	"github.com/scamsquatch/scamsquatch/internal/risk"
	"github.com/scamsquatch/scamsquatch/internal/routes"
	"github.com/scamsquatch/scamsquatch/internal/simulation"
	"github.com/scamsquatch/scamsquatch/internal/validation"
)

// QuoteRequest is the body/query shape for /api/v1/quote.
type QuoteRequest struct {
	FromToken   string `json:"fromToken" form:"fromToken"`
	ToToken     string `json:"toToken" form:"toToken"`
	Amount      string `json:"amount" form:"amount"`
	FromChainID string `json:"fromChainId" form:"fromChainId"`
	ToChainID   string `json:"toChainId" form:"toChainId"`
	UserAddress string `json:"userAddress" form:"userAddress"`
}

// QuoteResponse bundles candidates with the selection the UI leads with.
type QuoteResponse struct {
	aggregator.Result
	BestRoute         *aggregator.Candidate  `json:"bestRoute,omitempty"`
	SaferAlternatives []aggregator.Candidate `json:"saferAlternatives,omitempty"`
}

func (s *Server) quoteHandler(c *gin.Context) {
	var req QuoteRequest
	if c.Request.Method == http.MethodGet {
		if err := c.ShouldBindQuery(&req); err != nil {
			badRequest(c, "invalid_request", "Invalid query parameters")
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", "Invalid JSON body")
		return
	}

	errs := validation.Validate(
		validation.Required("fromToken", req.FromToken),
		validation.Required("toToken", req.ToToken),
		validation.Required("amount", req.Amount),
		validation.Required("fromChainId", req.FromChainID),
		validation.Required("toChainId", req.ToChainID),
	)
	if len(errs) > 0 {
		badRequest(c, "missing_parameters",
			"Missing required parameters: "+strings.Join(errs.Fields(), ", "))
		return
	}

	fromChain, err1 := strconv.ParseInt(req.FromChainID, 10, 64)
	toChain, err2 := strconv.ParseInt(req.ToChainID, 10, 64)
	if err1 != nil || err2 != nil {
		badRequest(c, "invalid_chain_id", "Chain IDs must be numeric")
		return
	}

	result, err := s.aggregator.GetRoutesAndRisk(c.Request.Context(), routes.Request{
		FromToken:   req.FromToken,
		ToToken:     req.ToToken,
		Amount:      req.Amount,
		FromChainID: fromChain,
		ToChainID:   toChain,
		UserAddress: req.UserAddress,
	})
	if err != nil {
		if errors.Is(err, aggregator.ErrNoRoutes) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "no_routes",
				"message": err.Error(),
			})
			return
		}
		logging.L(c.Request.Context()).Error("quote failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "quote_failed",
			"message": err.Error(),
		})
		return
	}

	best := aggregator.BestRoute(result.Candidates)
	resp := QuoteResponse{Result: result, BestRoute: best}
	if best != nil {
		resp.SaferAlternatives = aggregator.SaferAlternatives(result.Candidates, *best)
		s.publishAssessment(*best)
	}

	c.JSON(http.StatusOK, resp)
}

// publishAssessment streams the leading candidate to WebSocket subscribers
// and raises a separate alert for critical routes.
func (s *Server) publishAssessment(cand aggregator.Candidate) {
	data := map[string]interface{}{
		"routeId":          cand.Route.ID,
		"fromToken":        cand.Route.FromToken.Address,
		"toToken":          cand.Route.ToToken.Address,
		"fromChain":        cand.Route.FromChainID,
		"toChain":          cand.Route.ToChainID,
		"overallRiskScore": cand.Assessment.Overall,
		"riskLevel":        string(cand.Assessment.Level),
		"warnings":         cand.Assessment.Warnings,
	}
	s.realtimeHub.BroadcastAssessment(data)

	if cand.Assessment.Level == risk.LevelCritical {
		s.realtimeHub.Broadcast(&realtime.Event{
			Type:      realtime.EventHighRisk,
			Timestamp: time.Now().UTC(),
			Data:      data,
		})
	}
}

func (s *Server) tokensHandler(c *gin.Context) {
	chainID := s.cfg.ChainID
	if raw := c.Query("chainId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "invalid_chain_id", "Chain ID must be numeric")
			return
		}
		chainID = parsed
	}

	tokens, err := s.routeSource.GetTokens(c.Request.Context(), chainID)
	if err != nil {
		logging.L(c.Request.Context()).Error("token list failed", "error", err, "chain_id", chainID)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "tokens_unavailable",
			"message": "Failed to fetch token list",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chainId": chainID, "tokens": tokens})
}

// AnalyzeRequest scores a single already-fetched route.
type AnalyzeRequest struct {
	Route routes.Route `json:"route"`
}

func (s *Server) analyzeHandler(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Route.ID == "" || req.Route.FromToken.Address == "" || req.Route.ToToken.Address == "" {
		badRequest(c, "missing_parameters", "Missing required parameters: route")
		return
	}

	ctx := c.Request.Context()
	from, err := s.signals.TokenData(ctx, req.Route.FromChainID, req.Route.FromToken.Address)
	if err != nil {
		logging.L(ctx).Warn("token signals unavailable", "error", err)
	}
	to, err := s.signals.TokenData(ctx, req.Route.ToChainID, req.Route.ToToken.Address)
	if err != nil {
		logging.L(ctx).Warn("token signals unavailable", "error", err)
	}

	traditional := s.engine.Score(req.Route, from, to)
	analysis := s.analyzer.AnalyzeRoute(ctx, req.Route)
	combined := risk.Merge(req.Route.ID, traditional, analysis.Summary(), time.Now().UTC())
	s.engine.RecordCombined(req.Route, combined)

	c.JSON(http.StatusOK, gin.H{
		"assessment": combined,
		"aiDetails":  analysis.Details,
	})
}

func (s *Server) simulateHandler(c *gin.Context) {
	var req simulation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", "Invalid JSON body")
		return
	}

	result, err := s.simulator.Simulate(c.Request.Context(), req)
	if err != nil {
		metrics.SimulationsTotal.WithLabelValues("error").Inc()
		badRequest(c, "simulation_failed", err.Error())
		return
	}
	metrics.SimulationsTotal.WithLabelValues("ok").Inc()

	c.JSON(http.StatusOK, result)
}

func (s *Server) simulateGasHandler(c *gin.Context) {
	var req simulation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", "Invalid JSON body")
		return
	}

	estimate, err := s.simulator.EstimateGas(c.Request.Context(), req)
	if err != nil {
		badRequest(c, "estimation_failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, estimate)
}

func (s *Server) bridgeQuoteHandler(c *gin.Context) {
	var req bridge.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", "Invalid JSON body")
		return
	}

	quote, err := s.bridges.GetQuote(req)
	if err != nil {
		badRequest(c, "bridge_quote_failed", "Failed to get bridge quote: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, quote)
}

// BridgeExecuteRequest accepts a previously issued quote to prepare for signing.
type BridgeExecuteRequest struct {
	Quote       bridge.Quote `json:"quote"`
	UserAddress string       `json:"userAddress"`
}

func (s *Server) bridgeExecuteHandler(c *gin.Context) {
	var req BridgeExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_request", "Invalid JSON body")
		return
	}

	errs := validation.Validate(
		validation.Required("quote.id", req.Quote.ID),
		validation.Required("userAddress", req.UserAddress),
		validation.ValidAddress("userAddress", req.UserAddress),
	)
	if len(errs) > 0 {
		badRequest(c, "missing_parameters",
			"Missing required parameters: "+strings.Join(errs.Fields(), ", "))
		return
	}

	transfer := s.bridges.Execute(req.Quote, req.UserAddress)
	c.JSON(http.StatusOK, transfer)
}

func (s *Server) bridgeStatusHandler(c *gin.Context) {
	txHash := c.Param("txHash")

	status, err := s.bridges.Status(c.Request.Context(), txHash)
	if err != nil {
		badRequest(c, "invalid_tx_hash", err.Error())
		return
	}

	s.realtimeHub.BroadcastBridgeStatus(map[string]interface{}{
		"sourceChainTx": status.SourceChainTx,
		"targetChainTx": status.TargetChainTx,
		"status":        string(status.Status),
		"error":         status.Error,
	})

	c.JSON(http.StatusOK, status)
}

func (s *Server) bridgeFeeHandler(c *gin.Context) {
	fee, err := s.bridges.EstimateFee(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Warn("fee estimation failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "fee_estimation_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"feeWei": fee.String()})
}

func (s *Server) recentAssessmentsHandler(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			badRequest(c, "invalid_limit", "Limit must be a positive integer")
			return
		}
		if parsed > 100 {
			parsed = 100
		}
		limit = parsed
	}

	records, err := s.store.ListRecent(c.Request.Context(), limit)
	if err != nil {
		logging.L(c.Request.Context()).Error("assessment history failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "history_unavailable",
			"message": "Failed to load assessment history",
		})
		return
	}
	if records == nil {
		records = []*risk.Record{}
	}

	c.JSON(http.StatusOK, gin.H{"assessments": records, "count": len(records)})
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   code,
		"message": message,
	})
}
