package model

import (
	"strconv"
	"strings"

	"github.com/yanun0323/decimal"
	"github.com/yanun0323/errors"
)

// Price is a scaled integer in cents.
type Price int64

// PriceBucketWidth is the dedup bucket width: $50,000 in cents.
const PriceBucketWidth Price = 50_000 * 100

// Bucket returns the dedup price bucket index.
func (p Price) Bucket() int64 {
	if p < 0 {
		return -1
	}
	return int64(p / PriceBucketWidth)
}

// Dollars returns the price as a float dollar amount. Display only; never
// feed the result back into a Price.
func (p Price) Dollars() float64 {
	return float64(p) / 100
}

func (p Price) String() string {
	neg := p < 0
	v := int64(p)
	if neg {
		v = -v
	}
	whole := strconv.FormatInt(v/100, 10)
	frac := strconv.FormatInt(v%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	if neg {
		return "-" + whole + "." + frac
	}
	return whole + "." + frac
}

// PriceFromDollars converts a dollar amount into cents, rounding half away
// from zero.
func PriceFromDollars(d float64) Price {
	if d >= 0 {
		return Price(d*100 + 0.5)
	}
	return Price(d*100 - 0.5)
}

// PriceFromDecimal converts a provider decimal amount into cents. Digits
// beyond cents are truncated.
func PriceFromDecimal(d decimal.Decimal) (Price, error) {
	return ParsePrice(d.String())
}

// ParsePrice parses a decimal dollar string ("451000.50") into cents.
func ParsePrice(s string) (Price, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty price")
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	cents, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse price")
	}
	cents *= 100
	if len(frac) > 0 {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		sub, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, errors.Wrap(err, "parse price cents")
		}
		if len(frac) == 1 {
			sub *= 10
		}
		cents += sub
	}
	if neg {
		cents = -cents
	}
	return Price(cents), nil
}
