// Package currency converts amounts into the single reporting currency used
// for aggregation.
package currency

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// RateTable returns how many units of the reporting currency one unit of code is worth
type RateTable interface {
	Rate(code string) (decimal.Decimal, bool)
}

// Normalizer converts amounts into a reporting currency
type Normalizer struct {
	reporting string
	rates     RateTable
}

// NewNormalizer creates a normalizer for the given reporting currency
func NewNormalizer(reporting string, rates RateTable) *Normalizer {
	return &Normalizer{
		reporting: strings.ToUpper(strings.TrimSpace(reporting)),
		rates:     rates,
	}
}

// Reporting returns the reporting currency code
func (n *Normalizer) Reporting() string {
	return n.reporting
}

// Convert converts amount from code into the reporting currency. Amounts with
// no currency are returned unchanged. A currency without a rate is an error
// and the amount is returned unconverted alongside it.
func (n *Normalizer) Convert(amount decimal.Decimal, code string) (decimal.Decimal, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || code == n.reporting {
		return amount, nil
	}
	if n.rates == nil {
		return amount, fmt.Errorf("no rate table for %s", code)
	}
	rate, ok := n.rates.Rate(code)
	if !ok || !rate.IsPositive() {
		return amount, fmt.Errorf("no exchange rate from %s to %s", code, n.reporting)
	}
	return amount.Mul(rate), nil
}

// Valid reports whether code is a known ISO 4217 currency
func Valid(code string) bool {
	if len(code) != 3 {
		return false
	}
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// Round rounds amount to the minor unit of the currency. Unknown currencies
// round to two decimals.
func Round(amount decimal.Decimal, code string) decimal.Decimal {
	places := int32(2)
	if c := money.GetCurrency(strings.ToUpper(code)); c != nil {
		places = int32(c.Fraction)
	}
	return amount.Round(places)
}
