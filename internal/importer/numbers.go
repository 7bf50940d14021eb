package importer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/currency"
)

var currencyToken = regexp.MustCompile(`\b[A-Z]{3}\b`)

var numericField = regexp.MustCompile(`^[-−(]?\s*[$€£¥]?\s*\d[\d.,\s\x{00a0}\x{202f}']*\)?\s*(?:[A-Za-z]{3}|kr|%)?$`)

var currencySigns = []struct{ sign, code string }{
	{"$", "USD"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
}

// ParseNumber parses a locale-formatted number. Comma or dot may be the
// decimal separator; when both appear the last one is. A lone comma is a
// decimal separator, repeated separators of one kind are thousands groups.
func ParseNumber(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	negative := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.':
			b.WriteRune(r)
		case r == '-' || r == '−':
			if b.Len() == 0 {
				negative = true
			}
		case r == '(' && b.Len() == 0:
			negative = true
		}
	}
	n := b.String()
	if strings.IndexFunc(n, unicode.IsDigit) < 0 {
		return decimal.Zero, false
	}

	commas, dots := strings.Count(n, ","), strings.Count(n, ".")
	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(n, ",") > strings.LastIndex(n, ".") {
			n = strings.ReplaceAll(n, ".", "")
			n = strings.Replace(n, ",", ".", 1)
		} else {
			n = strings.ReplaceAll(n, ",", "")
		}
	case commas == 1:
		n = strings.Replace(n, ",", ".", 1)
	case commas > 1:
		n = strings.ReplaceAll(n, ",", "")
	case dots > 1:
		n = strings.ReplaceAll(n, ".", "")
	}
	if strings.Count(n, ".") > 1 {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(strings.Trim(n, "."))
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// looksNumeric reports whether a field holds only a number with optional
// sign, grouping and a currency marker
func looksNumeric(s string) bool {
	return numericField.MatchString(strings.TrimSpace(s))
}

// CurrencyHint extracts a currency embedded in a header such as "Kurs (SEK)"
func CurrencyHint(label string) string {
	for _, tok := range currencyToken.FindAllString(label, -1) {
		if currency.Valid(tok) {
			return tok
		}
	}
	for _, cs := range currencySigns {
		if strings.Contains(label, cs.sign) {
			return cs.code
		}
	}
	return ""
}

// DetectDelimiter picks the field separator from the header line
func DetectDelimiter(line string) rune {
	commas := strings.Count(line, ",")
	semis := strings.Count(line, ";")
	tabs := strings.Count(line, "\t")
	switch {
	case tabs > commas && tabs > semis:
		return '\t'
	case semis > commas:
		return ';'
	default:
		return ','
	}
}
