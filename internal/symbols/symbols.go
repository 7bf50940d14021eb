// Package symbols normalises ticker notations so that records naming the same
// instrument through different exchange prefixes or market suffixes can be
// matched.
package symbols

import (
	"regexp"
	"sort"
	"strings"
)

// PrimarySuffix is the market suffix added to bare symbols when generating variants
const PrimarySuffix = "ST"

var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// suffixCurrency maps exchange suffixes to their trading currency
var suffixCurrency = map[string]string{
	"ST": "SEK",
	"OL": "NOK",
	"CO": "DKK",
	"HE": "EUR",
	"IC": "ISK",
	"L":  "GBP",
	"DE": "EUR",
	"F":  "EUR",
	"PA": "EUR",
	"AS": "EUR",
	"BR": "EUR",
	"MI": "EUR",
	"MC": "EUR",
	"LS": "EUR",
	"VI": "EUR",
	"SW": "CHF",
	"TO": "CAD",
	"V":  "CAD",
	"AX": "AUD",
	"NZ": "NZD",
	"T":  "JPY",
	"HK": "HKD",
}

// Set is a set of symbol variants
type Set map[string]struct{}

// Contains reports whether s is in the set
func (s Set) Contains(symbol string) bool {
	_, ok := s[symbol]
	return ok
}

// Intersects reports whether the two sets share a variant
func (s Set) Intersects(other Set) bool {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	for v := range small {
		if large.Contains(v) {
			return true
		}
	}
	return false
}

// Slice returns the variants in sorted order
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s Set) add(symbol string) {
	if symbol != "" {
		s[symbol] = struct{}{}
	}
}

// Canonical returns the uppercase symbol without any "EXCHANGE:" prefix
func Canonical(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if i := strings.LastIndex(s, ":"); i >= 0 {
		s = strings.TrimSpace(s[i+1:])
	}
	return strings.Join(strings.Fields(s), " ")
}

// Variants returns every notation under which raw may appear: the original,
// the prefix-stripped form and, for the primary market, both the suffixed and
// unsuffixed forms. Symbols on other markets keep their suffix, so a bare
// symbol never matches a foreign listing.
func Variants(raw string) Set {
	set := Set{}
	original := strings.ToUpper(strings.TrimSpace(raw))
	if original == "" {
		return set
	}
	set.add(original)

	canonical := Canonical(raw)
	set.add(canonical)

	base, suffix := SplitSuffix(canonical)
	switch suffix {
	case PrimarySuffix:
		set.add(base)
	case "":
		set.add(base + "." + PrimarySuffix)
	}

	for v := range set {
		if strings.Contains(v, " ") {
			set.add(strings.ReplaceAll(v, " ", "-"))
		}
	}
	return set
}

// Same reports whether two symbols refer to the same instrument
func Same(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return Variants(a).Intersects(Variants(b))
}

// SplitSuffix splits a canonical symbol into its base and a recognised market
// suffix. The suffix is empty when none is recognised.
func SplitSuffix(symbol string) (string, string) {
	i := strings.LastIndex(symbol, ".")
	if i <= 0 || i == len(symbol)-1 {
		return symbol, ""
	}
	suffix := symbol[i+1:]
	if _, ok := suffixCurrency[suffix]; !ok {
		return symbol, ""
	}
	return symbol[:i], suffix
}

// CurrencyForSuffix infers the trading currency from a symbol's market suffix
func CurrencyForSuffix(symbol string) (string, bool) {
	_, suffix := SplitSuffix(Canonical(symbol))
	if suffix == "" {
		return "", false
	}
	return suffixCurrency[suffix], true
}

// IsISIN reports whether s looks like an International Securities Identification Number
func IsISIN(s string) bool {
	return isinPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}
