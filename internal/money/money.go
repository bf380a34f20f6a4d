// Package money handles Brazilian-formatted monetary values ("1.234,56").
package money

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value in cents.
type Amount int64

// maxDigits keeps parsed values well inside int64 cents.
const maxDigits = 15

// Parse converts a Brazilian-formatted figure into an Amount.
// Dots are thousands separators and a trailing ",dd" is the decimal part.
// Anything that does not read as a number yields 0.
func Parse(s string) Amount {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if n := len(cleaned); n >= 3 && cleaned[n-3] == ',' && isDigit(cleaned[n-2]) && isDigit(cleaned[n-1]) {
		cleaned = cleaned[:n-3] + "." + cleaned[n-2:]
	}

	num := numericPrefix(cleaned)
	if num == "" {
		return 0
	}
	if len(num) > maxDigits+1 {
		return 0
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return 0
	}
	return Amount(d.Round(2).Shift(2).IntPart())
}

// numericPrefix returns the leading "ddd.dd" part of s, the way a lenient
// float reader would consume it.
func numericPrefix(s string) string {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	intPart := s[:i]
	frac := ""
	if i < len(s) && s[i] == '.' {
		j := i + 1
		for j < len(s) && isDigit(s[j]) {
			j++
		}
		frac = s[i+1 : j]
	}
	if intPart == "" && frac == "" {
		return ""
	}
	if intPart == "" {
		intPart = "0"
	}
	if frac == "" {
		return intPart
	}
	return intPart + "." + frac
}

// Decimal returns the amount as a decimal in currency units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -2)
}

// Add returns a+b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a-b.
func (a Amount) Sub(b Amount) Amount { return a - b }

// Floor0 clamps negative amounts to zero.
func (a Amount) Floor0() Amount {
	if a < 0 {
		return 0
	}
	return a
}

// String formats the amount with a decimal point and two places ("1234.56").
func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// BRL formats the amount the way the source documents print it ("1.234,56").
func (a Amount) BRL() string {
	s := a.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// MarshalJSON encodes the amount as a fixed-point number with two decimals.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string in currency units.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*a = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	*a = Amount(d.Round(2).Shift(2).IntPart())
	return nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
