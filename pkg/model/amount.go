package model

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

const minorPerMajor = 100

var reDecimal = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// Amount is a money value held as an integer count of minor units (pence,
// cents). Backends send prices either as JSON numbers or as numeric strings;
// both decode into the same Amount.
type Amount int64

// ParseAmount converts a decimal string in major units ("45", "45.5",
// "45.505", "4.55e1") into minor units, rounding half away from zero beyond
// two decimal places.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if !reDecimal.MatchString(s) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	r.Mul(r, big.NewRat(minorPerMajor, 1))

	num := new(big.Int).Abs(r.Num())
	den := r.Denom()
	q, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Lsh(rem, 1).Cmp(den) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	if !q.IsInt64() {
		return 0, fmt.Errorf("amount %q out of range", s)
	}

	v := q.Int64()
	if r.Sign() < 0 {
		v = -v
	}
	return Amount(v), nil
}

func (a Amount) Minor() int64 {
	return int64(a)
}

func (a Amount) Float64() float64 {
	return float64(a) / minorPerMajor
}

func (a Amount) IsNegative() bool {
	return a < 0
}

// String renders the amount in major units with two decimals, e.g. "45.50".
func (a Amount) String() string {
	sign := ""
	v := int64(a)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/minorPerMajor, v%minorPerMajor)
}

var currencySymbols = map[string]string{
	"GBP": "£",
	"EUR": "€",
	"USD": "$",
}

// Format renders a display value for the given ISO currency code, falling
// back to "CODE 12.34" for currencies without a known symbol.
func (a Amount) Format(currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	symbol, ok := currencySymbols[code]
	if !ok {
		if code == "" {
			return a.String()
		}
		return code + " " + a.String()
	}
	if a < 0 {
		return "-" + symbol + (-a).String()
	}
	return symbol + a.String()
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return fmt.Errorf("invalid amount string %s: %w", raw, err)
		}
		raw = unquoted
	}

	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.RawMessage(a.String()), nil
}
