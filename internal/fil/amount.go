package fil

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/filecoin-project/go-state-types/abi"
	fbig "github.com/filecoin-project/go-state-types/big"
)

// Decimals is the number of attoFIL digits in one FIL.
const Decimals = 18

var attoPerFIL = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// ParseAmount parses either an integer attoFIL amount ("1000") or a decimal
// FIL amount with a FIL suffix ("0.5FIL", "0.5 fil").
func ParseAmount(s string) (abi.TokenAmount, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	if strings.HasSuffix(upper, "FIL") && !strings.HasSuffix(upper, "ATTOFIL") {
		return ParseFIL(strings.TrimSpace(s[:len(s)-3]))
	}
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "attoFIL"), "attofil"))
	return ParseAttoFIL(s)
}

// ParseAttoFIL parses a non-negative base-10 attoFIL integer.
func ParseAttoFIL(s string) (abi.TokenAmount, error) {
	if s == "" {
		return fbig.Zero(), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fbig.Int{}, fmt.Errorf("invalid attoFIL amount: %q", s)
	}
	if v.Sign() < 0 {
		return fbig.Int{}, fmt.Errorf("amount must not be negative: %q", s)
	}
	return fbig.NewFromGo(v), nil
}

// ParseFIL converts a decimal FIL string to attoFIL.
func ParseFIL(s string) (abi.TokenAmount, error) {
	if s == "" {
		return fbig.Int{}, fmt.Errorf("empty FIL amount")
	}
	if strings.HasPrefix(s, "-") {
		return fbig.Int{}, fmt.Errorf("amount must not be negative: %q", s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > Decimals {
		return fbig.Int{}, fmt.Errorf("too many decimal places in %q (max %d)", s, Decimals)
	}
	frac += strings.Repeat("0", Decimals-len(frac))

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return fbig.Int{}, fmt.Errorf("invalid FIL amount: %q", s)
	}
	return fbig.NewFromGo(v), nil
}

// FormatFIL renders an attoFIL amount as an exact decimal FIL string with
// trailing zeros removed.
func FormatFIL(amount abi.TokenAmount) string {
	if amount.Nil() {
		return "0"
	}

	q, r := new(big.Int).QuoRem(amount.Int, attoPerFIL, new(big.Int))
	if r.Sign() == 0 {
		return q.String()
	}

	frac := r.String()
	frac = strings.Repeat("0", Decimals-len(frac)) + frac
	frac = strings.TrimRight(frac, "0")
	return q.String() + "." + frac
}
