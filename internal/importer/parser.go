// Package importer turns pasted or uploaded delimited text into holdings. The
// text has no guaranteed schema: delimiter, column roles, number locale and
// currency are inferred.
package importer

import (
	"encoding/csv"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/currency"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/symbols"
)

var tickerLike = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.&:\-]{0,11}( [A-Z0-9]{1,2})?(\.[A-Z]{1,2})?$`)

// Result is the outcome of one import
type Result struct {
	Holdings []*models.Holding   `json:"holdings"`
	Sources  []Source             `json:"-"`
	Skipped  []*models.ParseError `json:"skipped"`
	Rows     int                  `json:"rows"`
}

// Source describes the input row a parsed holding came from. Sources[i]
// belongs to Holdings[i].
type Source struct {
	Line int
	Text string
	// CurrencyDefaulted is set when nothing in the row or header named a
	// currency and the parser's default was used.
	CurrencyDefaulted bool
}

// Parser converts delimited text into holdings
type Parser struct {
	defaultCurrency string
}

// NewParser creates a parser that falls back to defaultCurrency
func NewParser(defaultCurrency string) *Parser {
	return &Parser{defaultCurrency: strings.ToUpper(defaultCurrency)}
}

type column struct {
	role  Role
	label string
}

type line struct {
	number int
	text   string
}

// Parse reads text and returns the holdings it could interpret. Rows that
// cannot be interpreted are reported in Skipped and do not fail the batch.
func (p *Parser) Parse(text string) *Result {
	res := &Result{}
	lines := splitLines(text)
	if len(lines) == 0 {
		return res
	}

	delim := DetectDelimiter(lines[0].text)
	header := splitRow(lines[0].text, delim)

	columns := make([]column, len(header))
	known, numeric := false, false
	for i, label := range header {
		columns[i] = column{role: ClassifyHeader(label), label: label}
		if columns[i].role != RoleUnknown {
			known = true
		}
		if looksNumeric(label) {
			numeric = true
		}
	}

	// A line holding numbers is data even when a value happens to contain a keyword.
	data := lines[1:]
	if !known || numeric {
		columns = inferColumns(header)
		data = lines
	}

	for _, l := range data {
		res.Rows++
		h, defaulted, reason := p.parseRow(columns, splitRow(l.text, delim))
		if reason != "" {
			res.Skipped = append(res.Skipped, &models.ParseError{Line: l.number, Row: l.text, Reason: reason})
			continue
		}
		res.Holdings = append(res.Holdings, h)
		res.Sources = append(res.Sources, Source{Line: l.number, Text: l.text, CurrencyDefaulted: defaulted})
	}
	return res
}

func (p *Parser) parseRow(columns []column, fields []string) (*models.Holding, bool, string) {
	var (
		name, currencyCol    string
		symbol, isin         string
		quantity             decimal.Decimal
		price, avgPrice      decimal.Decimal
		priceLabel, avgLabel string
	)

	for i, col := range columns {
		if i >= len(fields) {
			break
		}
		v := fields[i]
		if v == "" {
			continue
		}
		switch col.role {
		case RoleName:
			if name == "" {
				name = v
			}
		case RoleSymbol:
			if symbols.IsISIN(v) {
				if isin == "" {
					isin = strings.ToUpper(v)
				}
			} else if symbol == "" {
				symbol = symbols.Canonical(v)
			}
		case RoleQuantity:
			if n, ok := ParseNumber(v); ok && n.IsPositive() && quantity.IsZero() {
				quantity = n
			}
		case RolePurchasePrice:
			n, ok := ParseNumber(v)
			if !ok || !n.IsPositive() {
				continue
			}
			if IsAverageCostLabel(col.label) && avgPrice.IsZero() {
				avgPrice, avgLabel = n, col.label
			}
			if price.IsZero() {
				price, priceLabel = n, col.label
			}
		case RoleCurrency:
			code := strings.ToUpper(v)
			if currencyCol == "" && currency.Valid(code) {
				currencyCol = code
			}
		}
	}

	if !avgPrice.IsZero() {
		price, priceLabel = avgPrice, avgLabel
	}
	if symbol == "" {
		symbol = isin
	}

	switch {
	case name == "" && symbol == "":
		return nil, false, "missing name and symbol"
	case !quantity.IsPositive():
		return nil, false, "missing quantity"
	case !price.IsPositive():
		return nil, false, "missing purchase price"
	}

	h := &models.Holding{
		Type:                   models.HoldingTypeSecurity,
		Name:                   name,
		Symbol:                 symbol,
		Quantity:               quantity,
		PurchasePrice:          price,
		NameManuallyEdited:     true,
		PriceManuallyEdited:    true,
		CurrencyManuallyEdited: currencyCol != "",
	}
	cur, defaulted := p.resolveCurrency(currencyCol, priceLabel, symbol)
	h.Currency = cur
	return h, defaulted, ""
}

// resolveCurrency reports true when it fell back to the default currency
func (p *Parser) resolveCurrency(column, priceLabel, symbol string) (string, bool) {
	if column != "" {
		return column, false
	}
	if hint := CurrencyHint(priceLabel); hint != "" {
		return hint, false
	}
	if cur, ok := symbols.CurrencyForSuffix(symbol); ok {
		return cur, false
	}
	return p.defaultCurrency, true
}

// inferColumns assigns roles to a headerless table from the content of its
// first row. Each column takes the next free slot it can fill, in the order
// name, symbol, quantity, purchase price, currency.
func inferColumns(first []string) []column {
	columns := make([]column, len(first))
	taken := map[Role]bool{}
	sawNumber := false

	take := func(i int, roles ...Role) {
		for _, r := range roles {
			if !taken[r] {
				taken[r] = true
				columns[i].role = r
				return
			}
		}
	}

	for i, v := range first {
		switch {
		case v == "":
		case looksNumeric(v):
			sawNumber = true
			take(i, RoleQuantity, RolePurchasePrice)
		case sawNumber && len(v) == 3 && currency.Valid(strings.ToUpper(v)):
			take(i, RoleCurrency)
		case symbols.IsISIN(v) || tickerLike.MatchString(v):
			take(i, RoleSymbol, RoleName)
		default:
			take(i, RoleName, RoleSymbol)
		}
	}
	return columns
}

func splitLines(text string) []line {
	text = strings.ReplaceAll(text, "\ufeff", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var out []line
	for i, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, line{number: i + 1, text: l})
	}
	return out
}

func splitRow(text string, delim rune) []string {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	fields, err := r.Read()
	if err != nil {
		fields = strings.Split(text, string(delim))
	}
	for i, f := range fields {
		fields[i] = cleanField(f)
	}
	return fields
}

func cleanField(s string) string {
	s = strings.ReplaceAll(s, "\ufeff", "")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
