// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Blockchain settings
	RPCURL  string
	ChainID int64

	// Route aggregation
	OneInchAPIURL string // Base URL for the 1inch aggregation API
	OneInchAPIKey string // Optional, fallback routes are used without it

	// Bridge settings
	BridgeMinFeeETH float64 // Fee estimates below this are rejected
	BridgeMaxFeeETH float64 // Fee estimates above this are rejected

	// Rate limiting (requests per minute)
	RateLimitGlobal int
	RateLimitSwap   int
	RateLimitBridge int

	// Response cache TTL for quote endpoints, in seconds
	QuoteCacheTTL int

	// CORS
	AllowedOrigins []string

	// Tracing
	OTLPEndpoint string
}

// Sepolia defaults
const (
	DefaultRPCURL        = "https://ethereum-sepolia-rpc.publicnode.com"
	DefaultChainID       = 11155111 // Sepolia
	DefaultOneInchAPIURL = "https://api.1inch.dev/swap/v6.0"
	DefaultPort          = "3002"
	DefaultEnv           = "development"
	DefaultLogLevel      = "info"
)

// Fee sanity bounds for bridge estimates, in ETH.
const (
	DefaultBridgeMinFeeETH = 0.001
	DefaultBridgeMaxFeeETH = 1.0
)

// Rate limit defaults, requests per minute per client.
const (
	DefaultRateLimitGlobal = 100
	DefaultRateLimitSwap   = 20
	DefaultRateLimitBridge = 10
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		Env:             getEnv("ENV", DefaultEnv),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:     os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		RPCURL:          getEnv("RPC_URL", DefaultRPCURL),
		ChainID:         getEnvInt64("CHAIN_ID", DefaultChainID),
		OneInchAPIURL:   getEnv("ONEINCH_API_URL", DefaultOneInchAPIURL),
		OneInchAPIKey:   os.Getenv("ONEINCH_API_KEY"),
		BridgeMinFeeETH: getEnvFloat("BRIDGE_MIN_FEE_ETH", DefaultBridgeMinFeeETH),
		BridgeMaxFeeETH: getEnvFloat("BRIDGE_MAX_FEE_ETH", DefaultBridgeMaxFeeETH),
		RateLimitGlobal: int(getEnvInt64("RATE_LIMIT_GLOBAL", DefaultRateLimitGlobal)),
		RateLimitSwap:   int(getEnvInt64("RATE_LIMIT_SWAP", DefaultRateLimitSwap)),
		RateLimitBridge: int(getEnvInt64("RATE_LIMIT_BRIDGE", DefaultRateLimitBridge)),
		QuoteCacheTTL:   int(getEnvInt64("QUOTE_CACHE_TTL", 60)),
		AllowedOrigins:  splitCSV(os.Getenv("ALLOWED_ORIGINS")),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("CHAIN_ID must be positive")
	}
	if c.BridgeMinFeeETH <= 0 || c.BridgeMaxFeeETH <= c.BridgeMinFeeETH {
		return fmt.Errorf("bridge fee bounds are invalid: min=%v max=%v", c.BridgeMinFeeETH, c.BridgeMaxFeeETH)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
