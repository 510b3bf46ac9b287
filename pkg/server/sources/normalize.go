package sources

import (
	"strings"
)

// Stablecoin aliases treated as USD-denominated for consolidation.
// A Binance BTCUSDT quote and a Coinbase BTC-USD quote land in the same
// unit bucket and share one FX conversion.
var stablecoinAliases = map[string]string{
	"USDT": "USD",
	"USDC": "USD",
	"BUSD": "USD",
	"DAI":  "USD",
	"TUSD": "USD",
	"USDD": "USD",
	"USDP": "USD",
}

// NormalizeCurrency maps stablecoin denominations to USD and upper-cases
// everything else.
func NormalizeCurrency(currency string) string {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if normalized, ok := stablecoinAliases[c]; ok {
		return normalized
	}
	return c
}

// IsUSDEquivalent reports whether the currency is USD or a USD stablecoin.
func IsUSDEquivalent(currency string) bool {
	return NormalizeCurrency(currency) == "USD"
}

// SameCurrency reports whether two currency codes are equivalent after
// normalization.
func SameCurrency(a, b string) bool {
	return NormalizeCurrency(a) == NormalizeCurrency(b)
}
