// Package tokens resolves human token symbols to canonical on-chain
// contract addresses.
package tokens

import (
	"sort"
	"strings"

	"chainpulse/internal/upstream"
)

// DefaultTable covers the mainnet ERC-20 contracts the dashboard ships
// with. The table is injected at construction so deployments can swap in a
// refreshed listing without touching code.
var DefaultTable = map[string]string{
	"eth":   "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH
	"weth":  "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
	"usdt":  "0xdAC17F958D2ee523a2206206994597C13D831ec7",
	"usdc":  "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
	"dai":   "0x6B175474E89094C44Da98b954EedeAC495271d0F",
	"wbtc":  "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599",
	"link":  "0x514910771AF9Ca656af840dff83E8264EcF986CA",
	"uni":   "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984",
	"aave":  "0x7Fc66500c84A76Ad7e9c93437bFc5Ac33E2DDaE9",
	"shib":  "0x95aD61b0a150d79219dCF64E1E6Cc01f0B64C4cE",
	"matic": "0x7D1AfA7B718fb893dB30A3aBc0Cfc608AaCfeBB0",
	"ldo":   "0x5A98FcBEA516Cf06857215779Fd812CA3beF1B32",
}

// Resolver maps token symbols to contract addresses via a static table,
// immutable for the process lifetime.
type Resolver struct {
	addressBySymbol map[string]string
	orderedSymbols  []string
}

// NewResolver copies the given symbol→address table, lowercasing keys.
// A nil table means DefaultTable.
func NewResolver(table map[string]string) *Resolver {
	if table == nil {
		table = DefaultTable
	}

	bySymbol := make(map[string]string, len(table))
	for symbol, address := range table {
		key := strings.ToLower(strings.TrimSpace(symbol))
		if key != "" {
			bySymbol[key] = address
		}
	}

	// Fallback scan order must be deterministic across processes.
	ordered := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		ordered = append(ordered, symbol)
	}
	sort.Strings(ordered)

	return &Resolver{addressBySymbol: bySymbol, orderedSymbols: ordered}
}

// Resolve returns the contract address for a symbol. Matching is
// case-insensitive exact first, then falls back to the first table symbol
// containing the input as a substring. The fallback is intentionally loose;
// callers must treat it as a best-effort guess, not an authoritative
// resolution. An unmatched symbol yields a NotFoundError, never an
// unrelated address.
func (r *Resolver) Resolve(symbol string) (string, error) {
	needle := strings.ToLower(strings.TrimSpace(symbol))
	if needle == "" {
		return "", &upstream.NotFoundError{Identifier: symbol}
	}

	if address, ok := r.addressBySymbol[needle]; ok {
		return address, nil
	}

	for _, candidate := range r.orderedSymbols {
		if strings.Contains(candidate, needle) {
			return r.addressBySymbol[candidate], nil
		}
	}

	return "", &upstream.NotFoundError{Identifier: symbol}
}
