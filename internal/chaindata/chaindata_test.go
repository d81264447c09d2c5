package chaindata

import (
	"context"
	"testing"
	"time"

	"github.com/scamsquatch/scamsquatch/internal/token"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMockSource_CatalogTokensAreEstablished(t *testing.T) {
	src := NewMockSource(fixedClock{testNow})

	data, err := src.TokenData(context.Background(), 11155111, "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
	if err != nil {
		t.Fatalf("TokenData failed: %v", err)
	}

	if data.Symbol != "USDC" {
		t.Errorf("Symbol = %q", data.Symbol)
	}
	if !data.Verified {
		t.Error("catalog token should be verified")
	}
	if data.IsNew(testNow) {
		t.Error("catalog token should not be new")
	}
	if data.LowLiquidity() {
		t.Error("catalog token should not be low liquidity")
	}
}

func TestMockSource_Deterministic(t *testing.T) {
	src := NewMockSource(fixedClock{testNow})
	addr := "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

	a, _ := src.TokenData(context.Background(), 1, addr)
	b, _ := src.TokenData(context.Background(), 1, addr)

	if a.LiquidityUSD != b.LiquidityUSD || a.Holders != b.Holders || a.Verified != b.Verified {
		t.Errorf("signals not deterministic: %+v vs %+v", a, b)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		t.Error("creation date not deterministic")
	}
}

func TestTokenData_AgeThresholds(t *testing.T) {
	young := TokenData{CreatedAt: testNow.AddDate(0, 0, -10)}
	if !young.IsNew(testNow) {
		t.Error("10-day-old token should be new")
	}

	old := TokenData{CreatedAt: testNow.AddDate(0, 0, -45)}
	if old.IsNew(testNow) {
		t.Error("45-day-old token should not be new")
	}

	unknown := TokenData{}
	if unknown.IsNew(testNow) {
		t.Error("unknown age should be treated as established")
	}
}

func TestTokenData_LowLiquidity(t *testing.T) {
	if (TokenData{LiquidityUSD: 9_999}).LowLiquidity() == false {
		t.Error("9999 should be low liquidity")
	}
	if (TokenData{LiquidityUSD: 10_000}).LowLiquidity() {
		t.Error("10000 should not be low liquidity")
	}
}

func TestMockSource_MarketDataCatalog(t *testing.T) {
	src := NewMockSource(fixedClock{testNow})
	md, err := src.MarketData(context.Background(), 11155111, token.ZeroAddress)
	if err != nil {
		t.Fatalf("MarketData failed: %v", err)
	}
	if md.Volume24hUSD < 10_000_000 {
		t.Errorf("catalog volume = %v, want high", md.Volume24hUSD)
	}
}
