// Package server sets up the HTTP server with all routes
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/scamsquatch/scamsquatch/internal/aggregator"
	"github.com/scamsquatch/scamsquatch/internal/airisk"
	"github.com/scamsquatch/scamsquatch/internal/bridge"
	"github.com/scamsquatch/scamsquatch/internal/cache"
	"github.com/scamsquatch/scamsquatch/internal/chaindata"
	"github.com/scamsquatch/scamsquatch/internal/config"
	"github.com/scamsquatch/scamsquatch/internal/health"
	"github.com/scamsquatch/scamsquatch/internal/idgen"
	"github.com/scamsquatch/scamsquatch/internal/logging"
	"github.com/scamsquatch/scamsquatch/internal/metrics"
	"github.com/scamsquatch/scamsquatch/internal/ratelimit"
	"github.com/scamsquatch/scamsquatch/internal/realtime"
	"github.com/scamsquatch/scamsquatch/internal/risk"
	"github.com/scamsquatch/scamsquatch/internal/routes"
	"github.com/scamsquatch/scamsquatch/internal/security"
	"github.com/scamsquatch/scamsquatch/internal/simulation"
	"github.com/scamsquatch/scamsquatch/internal/traces"
	"github.com/scamsquatch/scamsquatch/internal/validation"
)

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg         *config.Config
	store       risk.Store
	routeSource routes.Source
	signals     chaindata.Source
	engine      *risk.Engine
	analyzer    *airisk.Analyzer
	bridges     *bridge.Service
	simulator   *simulation.Service
	aggregator  *aggregator.Aggregator
	realtimeHub *realtime.Hub
	checks      *health.Registry

	globalLimiter *ratelimit.Limiter
	swapLimiter   *ratelimit.Limiter
	bridgeLimiter *ratelimit.Limiter

	eth            *ethclient.Client // nil when no RPC configured
	db             *sql.DB           // nil if using in-memory
	router         *gin.Engine
	httpSrv        *http.Server
	logger         *slog.Logger
	cancelRunCtx   context.CancelFunc // cancels background goroutines started in Run
	shutdownTraces func(context.Context) error

	// Health state
	ready   atomic.Bool
	healthy atomic.Bool
}

// Option configures the server
type Option func(*Server)

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRouteSource sets a custom route source (for testing)
func WithRouteSource(src routes.Source) Option {
	return func(s *Server) {
		s.routeSource = src
	}
}

// WithSignalSource sets a custom chain-data source (for testing)
func WithSignalSource(src chaindata.Source) Option {
	return func(s *Server) {
		s.signals = src
	}
}

// New creates a new server instance
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logging.New(cfg.LogLevel, "json"),
		checks: health.NewRegistry(),
	}

	// Apply options first (may set sources/logger)
	for _, opt := range opts {
		opt(s)
	}

	// Storage (Postgres if DATABASE_URL set, otherwise in-memory)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Configure connection pool
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		s.db = db
		s.store = risk.NewPostgresStore(db)
		s.logger.Info("using PostgreSQL storage", "url", maskDSN(cfg.DatabaseURL))
	} else {
		s.store = risk.NewMemoryStore()
		s.logger.Info("using in-memory storage (data will not persist)")
	}

	// Operator-supplied upstream URLs are SSRF vectors in production
	if cfg.IsProduction() {
		for name, u := range map[string]string{"RPC_URL": cfg.RPCURL, "ONEINCH_API_URL": cfg.OneInchAPIURL} {
			if u == "" {
				continue
			}
			if err := security.ValidateEndpointURL(u); err != nil {
				return nil, fmt.Errorf("unsafe %s: %w", name, err)
			}
		}
	}

	// RPC client is optional: signals and fee estimation degrade without it
	if cfg.RPCURL != "" {
		client, err := ethclient.Dial(cfg.RPCURL)
		if err != nil {
			s.logger.Warn("RPC dial failed, on-chain reads disabled", "error", err)
		} else {
			s.eth = client
		}
	}

	// Token/market signal source
	if s.signals == nil {
		mock := chaindata.NewMockSource(nil)
		if s.eth != nil {
			s.signals = chaindata.NewChainSource(s.eth, mock, logging.Component(s.logger, "chaindata"))
			s.logger.Info("on-chain signal source enabled", "rpc", cfg.RPCURL)
		} else {
			s.signals = mock
			s.logger.Info("deterministic signal source enabled (no RPC)")
		}
	}

	// Route source
	if s.routeSource == nil {
		s.routeSource = routes.NewOneInchClient(cfg.OneInchAPIURL, cfg.OneInchAPIKey,
			logging.Component(s.logger, "routes"))
		if cfg.OneInchAPIKey == "" {
			s.logger.Info("no aggregation API key, fallback routes only")
		}
	}

	// Risk pipeline
	s.engine = risk.NewEngine(s.store)
	s.analyzer = airisk.NewAnalyzer(s.signals, logging.Component(s.logger, "airisk"))

	var gas bridge.GasPricer
	var chain simulation.ChainReader
	if s.eth != nil {
		gas = s.eth
		chain = s.eth
	}
	s.bridges = bridge.NewService(gas, logging.Component(s.logger, "bridge"),
		bridge.WithFeeBounds(cfg.BridgeMinFeeETH, cfg.BridgeMaxFeeETH))
	s.simulator = simulation.NewService(chain, logging.Component(s.logger, "simulation"))

	s.aggregator = aggregator.New(s.routeSource, s.signals, s.engine, s.analyzer,
		s.bridges, logging.Component(s.logger, "aggregator"))

	// Realtime hub for WebSocket streaming
	s.realtimeHub = realtime.NewHub(s.logger)
	s.logger.Info("realtime streaming enabled")

	s.registerHealthChecks()

	// Configure gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.setupMiddleware()
	s.setupRoutes()

	s.healthy.Store(true)

	return s, nil
}

func (s *Server) registerHealthChecks() {
	if s.db != nil {
		s.checks.Register("database", func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return s.db.PingContext(ctx)
		})
	}

	if client, ok := s.routeSource.(*routes.OneInchClient); ok {
		s.checks.Register("route_source", func(context.Context) error {
			if !client.Healthy() {
				return errors.New("circuit open")
			}
			return nil
		})
	}
}

// maskDSN hides password in connection string for logging
func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

func (s *Server) setupMiddleware() {
	// Recovery with logging
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logging.L(c.Request.Context()).Error("panic recovered",
			"error", recovered,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An unexpected error occurred",
		})
	}))

	// Security headers
	s.router.Use(security.HeadersMiddleware())

	// CORS
	s.router.Use(security.CORSMiddleware(s.cfg.AllowedOrigins))

	// Request size limit (1MB)
	s.router.Use(validation.RequestSizeMiddleware(validation.MaxRequestSize))

	// Global rate limit; the swap and bridge groups add tighter ones
	globalCfg := ratelimit.DefaultConfig()
	if s.cfg.RateLimitGlobal > 0 {
		globalCfg.RequestsPerMinute = s.cfg.RateLimitGlobal
	}
	s.globalLimiter = ratelimit.New(globalCfg)
	s.router.Use(s.globalLimiter.Middleware())

	// Prometheus metrics
	s.router.Use(metrics.Middleware())

	// Request ID
	s.router.Use(s.requestIDMiddleware())

	// Logging
	s.router.Use(s.loggingMiddleware())
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check for existing request ID (from load balancer, etc.)
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = idgen.New()
		}

		// Add to context
		ctx := logging.WithRequestID(c.Request.Context(), requestID)
		ctx = logging.WithLogger(ctx, s.logger)
		c.Request = c.Request.WithContext(ctx)

		// Set response header
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		logger := logging.L(c.Request.Context())

		// Log level based on status code
		switch {
		case status >= 500:
			logger.Error("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
				"client_ip", c.ClientIP(),
			)
		case status >= 400:
			logger.Warn("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		default:
			logger.Info("request completed",
				"method", c.Request.Method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}
	}
}

// -----------------------------------------------------------------------------
// Routes
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	// Health & metrics endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/health/live", s.livenessHandler)
	s.router.GET("/health/ready", s.readinessHandler)
	s.router.GET("/metrics", metrics.Handler())

	// WebSocket for real-time risk events
	s.router.GET("/ws", func(c *gin.Context) {
		s.realtimeHub.HandleWebSocket(c.Writer, c.Request)
	})

	// API info
	s.router.GET("/api", s.infoHandler)

	v1 := s.router.Group("/api/v1")

	// Swap quotes carry the heaviest upstream fan-out
	s.swapLimiter = ratelimit.New(swapLimitConfig(s.cfg))
	quotes := v1.Group("")
	quotes.Use(s.swapLimiter.Middleware())
	if s.cfg.QuoteCacheTTL > 0 {
		quotes.Use(cache.ResponseMiddleware(time.Duration(s.cfg.QuoteCacheTTL) * time.Second))
	}
	quotes.GET("/quote", s.quoteHandler)
	quotes.POST("/quote", s.quoteHandler)

	v1.GET("/tokens", s.tokensHandler)
	v1.POST("/analyze", s.analyzeHandler)
	v1.POST("/simulate", s.simulateHandler)
	v1.POST("/simulate/gas", s.simulateGasHandler)
	v1.GET("/assessments/recent", s.recentAssessmentsHandler)
	v1.GET("/realtime/stats", s.realtimeStatsHandler)

	// Bridge endpoints get the tightest limit
	s.bridgeLimiter = ratelimit.New(bridgeLimitConfig(s.cfg))
	bridgeGroup := v1.Group("/bridge")
	bridgeGroup.Use(s.bridgeLimiter.Middleware())
	bridgeGroup.POST("/quote", s.bridgeQuoteHandler)
	bridgeGroup.POST("/execute", s.bridgeExecuteHandler)
	bridgeGroup.GET("/status/:txHash", validation.TxHashParamMiddleware(), s.bridgeStatusHandler)
	bridgeGroup.GET("/fee", s.bridgeFeeHandler)
}

func swapLimitConfig(cfg *config.Config) ratelimit.Config {
	c := ratelimit.SwapConfig()
	if cfg.RateLimitSwap > 0 {
		c.RequestsPerMinute = cfg.RateLimitSwap
	}
	return c
}

func bridgeLimitConfig(cfg *config.Config) ratelimit.Config {
	c := ratelimit.BridgeConfig()
	if cfg.RateLimitBridge > 0 {
		c.RequestsPerMinute = cfg.RateLimitBridge
	}
	return c
}

// -----------------------------------------------------------------------------
// Health handlers
// -----------------------------------------------------------------------------

// HealthResponse for health check endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy, statuses := s.checks.CheckAll(ctx)

	checks := make(map[string]string, len(statuses))
	for _, st := range statuses {
		if st.Healthy {
			checks[st.Name] = "healthy"
		} else {
			checks[st.Name] = "unhealthy"
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Version:   "0.1.0",
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) livenessHandler(c *gin.Context) {
	if !s.healthy.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (s *Server) readinessHandler(c *gin.Context) {
	if !s.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) infoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":        "scamsquatch",
		"description": "Cross-chain swap safety layer: every route is risk-scored before you sign",
		"version":     "0.1.0",
		"endpoints": gin.H{
			"quote":       "/api/v1/quote",
			"tokens":      "/api/v1/tokens",
			"analyze":     "/api/v1/analyze",
			"simulate":    "/api/v1/simulate",
			"bridge":      "/api/v1/bridge/quote",
			"assessments": "/api/v1/assessments/recent",
			"websocket":   "/ws",
		},
	})
}

func (s *Server) realtimeStatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.realtimeHub.Stats())
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Run starts the HTTP server with graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	// Create a cancellable context for background goroutines so Shutdown() can stop them.
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelRunCtx = cancel

	s.httpSrv = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Tracing (no-op when OTLP_ENDPOINT unset)
	shutdownTraces, err := traces.Init(runCtx, s.cfg.OTLPEndpoint, s.logger)
	if err != nil {
		s.logger.Warn("tracing init failed", "error", err)
	} else {
		s.shutdownTraces = shutdownTraces
	}

	// Channel to catch server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info("starting server",
			"port", s.cfg.Port,
			"chain_id", s.cfg.ChainID,
		)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Start AI analysis cache sweeper
	s.analyzer.Start()

	// Start realtime hub
	go s.realtimeHub.Run(runCtx)

	// DB pool stats for the dashboard
	if s.db != nil {
		metrics.StartDBStatsCollector(runCtx, s.db, 15*time.Second)
	}

	// Mark as ready after brief delay for startup
	go func() {
		time.Sleep(100 * time.Millisecond)
		s.ready.Store(true)
		s.logger.Info("server ready")
	}()

	// Wait for shutdown signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.ready.Store(false)
	s.logger.Info("starting graceful shutdown")

	// Cancel the context for all background goroutines (hub, collectors)
	if s.cancelRunCtx != nil {
		s.cancelRunCtx()
	}

	// Give load balancers time to stop sending traffic
	time.Sleep(5 * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}

	// Stop the AI cache sweeper
	s.analyzer.Stop()

	// Stop rate limiter cleanup goroutines
	for _, l := range []*ratelimit.Limiter{s.globalLimiter, s.swapLimiter, s.bridgeLimiter} {
		if l != nil {
			l.Stop()
		}
	}
	s.logger.Info("rate limiters stopped")

	// Flush any pending trace spans
	if s.shutdownTraces != nil {
		if err := s.shutdownTraces(ctx); err != nil {
			s.logger.Warn("trace shutdown error", "error", err)
		}
	}

	// Close the RPC client
	if s.eth != nil {
		s.eth.Close()
	}

	// Close database connection pool
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("database close error", "error", err)
		} else {
			s.logger.Info("database connection closed")
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the gin router for testing
func (s *Server) Router() *gin.Engine {
	return s.router
}
