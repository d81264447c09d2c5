package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != DefaultPort {
		t.Errorf("Port = %q, want %q", cfg.Port, DefaultPort)
	}
	if cfg.ChainID != DefaultChainID {
		t.Errorf("ChainID = %d, want %d", cfg.ChainID, DefaultChainID)
	}
	if cfg.OneInchAPIURL != DefaultOneInchAPIURL {
		t.Errorf("OneInchAPIURL = %q, want %q", cfg.OneInchAPIURL, DefaultOneInchAPIURL)
	}
	if cfg.BridgeMinFeeETH != DefaultBridgeMinFeeETH {
		t.Errorf("BridgeMinFeeETH = %v, want %v", cfg.BridgeMinFeeETH, DefaultBridgeMinFeeETH)
	}
	if cfg.RateLimitBridge != DefaultRateLimitBridge {
		t.Errorf("RateLimitBridge = %d, want %d", cfg.RateLimitBridge, DefaultRateLimitBridge)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CHAIN_ID", "137")
	t.Setenv("RATE_LIMIT_SWAP", "5")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://app.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.ChainID != 137 {
		t.Errorf("ChainID = %d, want 137", cfg.ChainID)
	}
	if cfg.RateLimitSwap != 5 {
		t.Errorf("RateLimitSwap = %d, want 5", cfg.RateLimitSwap)
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Fatalf("AllowedOrigins = %v, want 2 entries", cfg.AllowedOrigins)
	}
	if cfg.AllowedOrigins[1] != "https://app.example.com" {
		t.Errorf("AllowedOrigins[1] = %q", cfg.AllowedOrigins[1])
	}
}

func TestValidate_RejectsBadFeeBounds(t *testing.T) {
	cfg := &Config{
		RPCURL:          "https://example.org",
		ChainID:         1,
		BridgeMinFeeETH: 1.0,
		BridgeMaxFeeETH: 0.5,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for max fee below min fee")
	}
}

func TestValidate_RequiresRPCURL(t *testing.T) {
	cfg := &Config{ChainID: 1, BridgeMinFeeETH: 0.001, BridgeMaxFeeETH: 1}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing RPC_URL")
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment should be true")
	}
	if cfg.IsProduction() {
		t.Error("IsProduction should be false")
	}
}
