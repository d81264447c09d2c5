package risk

import "strings"

// trustedProtocols are established DEXes and bridges. Matching is
// case-insensitive substring, so "UNISWAP_V3" matches "uniswap".
var trustedProtocols = []string{
	"uniswap",
	"sushiswap",
	"pancakeswap",
	"curve",
	"balancer",
	"1inch",
	"paraswap",
	"0x",
	"kyber",
	"wormhole",
	"stargate",
	"layerzero",
}

// bridgeKeywords identify hops that perform a cross-chain transfer.
var bridgeKeywords = []string{
	"bridge",
	"portal",
	"wormhole",
	"layerzero",
}

// scamPatterns are substrings in token names or symbols that have no
// business in a production asset.
var scamPatterns = []string{
	"honeypot",
	"rugpull",
	"fake",
	"scam",
	"test",
	"mock",
}

// reputableChains are destination chains that carry no extra chain risk.
var reputableChains = map[int64]bool{
	1:        true, // mainnet
	11155111: true, // Sepolia
}

// IsTrustedProtocol reports whether the protocol name matches a trusted
// DEX or bridge.
func IsTrustedProtocol(name string) bool {
	lower := strings.ToLower(name)
	for _, trusted := range trustedProtocols {
		if strings.Contains(lower, trusted) {
			return true
		}
	}
	return false
}

// IsBridgeHop reports whether the protocol name looks like a bridge.
func IsBridgeHop(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range bridgeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// MatchesScamPattern returns the matched pattern if the token name or
// symbol contains a known scam marker.
func MatchesScamPattern(name, symbol string) (string, bool) {
	haystack := strings.ToLower(name + " " + symbol)
	for _, pattern := range scamPatterns {
		if strings.Contains(haystack, pattern) {
			return pattern, true
		}
	}
	return "", false
}
