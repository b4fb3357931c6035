package telegram

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ton-trading-bot/internal/stonfi"
)

// formatAmount trims trailing zeros so 10.000000 renders as "10".
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-6:]
}

func assetLabel(a stonfi.Asset) string {
	if a.DisplayName != "" && a.DisplayName != a.Symbol {
		return fmt.Sprintf("%s (%s)", a.DisplayName, a.Symbol)
	}
	return a.Symbol
}

// unitsToAmount converts an integer base-unit balance into a token amount.
func unitsToAmount(units string, decimals int) (float64, error) {
	units = strings.TrimSpace(units)
	if units == "" {
		return 0, nil
	}
	n, ok := new(big.Int).SetString(units, 10)
	if !ok {
		return 0, fmt.Errorf("invalid units %q", units)
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	out, _ := new(big.Float).Quo(new(big.Float).SetInt(n), scale).Float64()
	return out, nil
}
