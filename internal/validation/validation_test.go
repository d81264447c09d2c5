package validation

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIsValidEthAddress(t *testing.T) {
	tests := []struct {
		addr  string
		valid bool
	}{
		{"0x0000000000000000000000000000000000000000", true},
		{"0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", true},
		{"0x1c7d4b196cb0c7b01d743fbc6116a902379c7238", true},
		{"1c7D4B196Cb0C7B01d743Fbc6116a902379C7238", false}, // no prefix
		{"0x123", false},
		{"", false},
		{"0xZZZZ4B196Cb0C7B01d743Fbc6116a902379C7238", false},
	}

	for _, tc := range tests {
		if got := IsValidEthAddress(tc.addr); got != tc.valid {
			t.Errorf("IsValidEthAddress(%q) = %v, want %v", tc.addr, got, tc.valid)
		}
	}
}

func TestIsValidTxHash(t *testing.T) {
	valid := "0x" + strRepeat("ab", 32)
	if !IsValidTxHash(valid) {
		t.Errorf("IsValidTxHash(%q) = false, want true", valid)
	}
	if IsValidTxHash("0x1234") {
		t.Error("short hash should be invalid")
	}
	if IsValidTxHash(strRepeat("ab", 32)) {
		t.Error("hash without 0x prefix should be invalid")
	}
}

func TestSanitizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  0xABCDEF1234567890abcdef1234567890ABCDEF12  ", "0xabcdef1234567890abcdef1234567890abcdef12"},
		{"abcdef1234567890abcdef1234567890abcdef12", "0xabcdef1234567890abcdef1234567890abcdef12"},
	}
	for _, tc := range tests {
		if got := SanitizeAddress(tc.in); got != tc.want {
			t.Errorf("SanitizeAddress(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidate_CollectsMissingFields(t *testing.T) {
	errs := Validate(
		Required("fromToken", ""),
		Required("toToken", "0x0000000000000000000000000000000000000000"),
		Required("amount", " "),
	)

	if len(errs) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(errs), errs)
	}
	fields := errs.Fields()
	if fields[0] != "fromToken" || fields[1] != "amount" {
		t.Errorf("Fields() = %v", fields)
	}
}

func TestValidAmount(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"1", true},
		{"0.5", true},
		{"1000000000000000000", true},
		{"0", false},
		{"0.0", false},
		{"1.2.3", false},
		{".5", false},
		{"5.", false},
		{"abc", false},
		{"-1", false},
		{"", true}, // empty is left to Required
	}

	for _, tc := range tests {
		err := ValidAmount("amount", tc.value)()
		if (err == nil) != tc.ok {
			t.Errorf("ValidAmount(%q) error = %v, want ok=%v", tc.value, err, tc.ok)
		}
	}
}

func TestValidChainID(t *testing.T) {
	if err := ValidChainID("chainId", "11155111")(); err != nil {
		t.Errorf("valid chain ID rejected: %v", err)
	}
	if err := ValidChainID("chainId", "-1")(); err == nil {
		t.Error("negative chain ID accepted")
	}
	if err := ValidChainID("chainId", "mainnet")(); err == nil {
		t.Error("non-numeric chain ID accepted")
	}
}

func TestTxHashParamMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/status/:txHash", TxHashParamMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// Valid hash passes through
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status/0x"+strRepeat("12", 32), nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid hash: status = %d, want 200", w.Code)
	}

	// Malformed hash rejected
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/status/nothash", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad hash: status = %d, want 400", w.Code)
	}
}

func strRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
