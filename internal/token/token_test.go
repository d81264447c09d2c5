package token

import "testing"

func TestPopular_Sepolia(t *testing.T) {
	tokens := Popular(11155111)
	if len(tokens) != 3 {
		t.Fatalf("got %d tokens, want 3", len(tokens))
	}

	symbols := map[string]bool{}
	for _, tok := range tokens {
		symbols[tok.Symbol] = true
		if tok.ChainID != 11155111 {
			t.Errorf("token %s has chainId %d", tok.Symbol, tok.ChainID)
		}
	}
	for _, want := range []string{"ETH", "USDC", "WETH"} {
		if !symbols[want] {
			t.Errorf("missing %s in Sepolia catalog", want)
		}
	}
}

func TestPopular_UnknownChain(t *testing.T) {
	if tokens := Popular(999999); len(tokens) != 0 {
		t.Errorf("unknown chain returned %d tokens, want 0", len(tokens))
	}
}

func TestPopular_ReturnsCopy(t *testing.T) {
	a := Popular(11155111)
	a[0].Symbol = "MUTATED"
	b := Popular(11155111)
	if b[0].Symbol == "MUTATED" {
		t.Error("Popular should not expose the internal catalog")
	}
}

func TestLookup_CaseInsensitive(t *testing.T) {
	tok, ok := Lookup(11155111, "0x1c7d4b196cb0c7b01d743fbc6116a902379c7238")
	if !ok {
		t.Fatal("lowercase USDC address not found")
	}
	if tok.Symbol != "USDC" || tok.Decimals != 6 {
		t.Errorf("got %+v", tok)
	}
}

func TestLookup_Miss(t *testing.T) {
	if _, ok := Lookup(11155111, "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"); ok {
		t.Error("unexpected hit for unknown address")
	}
}

func TestIsNative(t *testing.T) {
	eth, _ := Lookup(11155111, ZeroAddress)
	if !eth.IsNative() {
		t.Error("zero address should be native")
	}
	usdc, _ := Lookup(11155111, "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
	if usdc.IsNative() {
		t.Error("USDC should not be native")
	}
}
