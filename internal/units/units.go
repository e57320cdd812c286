package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Decimal places of the common EVM denominations.
const (
	EtherDecimals = 18
	GweiDecimals  = 9
)

// ErrInvalidAmount is returned for malformed or out-of-range decimal input.
var ErrInvalidAmount = errors.New("invalid amount")

var (
	// WeiPerEther is 10^18.
	WeiPerEther = pow10(EtherDecimals)
	// WeiPerGwei is 10^9.
	WeiPerGwei = pow10(GweiDecimals)
)

// ParseEther converts a decimal ether string ("0.5", "12", ".25") into wei.
// The conversion is exact: more than 18 fractional digits is an error rather
// than a rounding.
func ParseEther(s string) (*big.Int, error) {
	return ParseUnits(s, EtherDecimals)
}

// ParseGwei converts a decimal gwei string into wei.
func ParseGwei(s string) (*big.Int, error) {
	return ParseUnits(s, GweiDecimals)
}

// ParseUnits converts a decimal string into an integer scaled by 10^decimals.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if s[0] == '-' {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	s = strings.TrimPrefix(s, "+")

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !allDigits(whole) || !allDigits(frac) {
		return nil, fmt.Errorf("%w: %q is not a decimal number", ErrInvalidAmount, s)
	}

	frac = strings.TrimRight(frac, "0")
	if len(frac) > decimals {
		return nil, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, decimals)
	}

	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return n, nil
}

// FormatEther renders wei as the shortest exact decimal ether string.
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}

// FormatUnits renders n / 10^decimals exactly, trimming trailing zeros.
func FormatUnits(n *big.Int, decimals int) string {
	if n == nil {
		return "0"
	}
	neg := n.Sign() < 0
	abs := new(big.Int).Abs(n)

	q, r := new(big.Int).QuoRem(abs, pow10(decimals), new(big.Int))
	out := q.String()
	if r.Sign() != 0 {
		frac := fmt.Sprintf("%0*s", decimals, r.String())
		out += "." + strings.TrimRight(frac, "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}

// EtherFloat is the lossy display projection wei / 10^18. Do not feed the
// result back into arithmetic.
func EtherFloat(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Rat).SetFrac(wei, WeiPerEther).Float64()
	return f
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
