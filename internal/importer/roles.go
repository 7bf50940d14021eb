package importer

import (
	"strings"
)

// Role is the meaning assigned to an import column
type Role int

// Column roles
const (
	RoleUnknown Role = iota
	RoleSymbol
	RoleName
	RoleQuantity
	RolePurchasePrice
	RoleCurrency
)

func (r Role) String() string {
	switch r {
	case RoleSymbol:
		return "symbol"
	case RoleName:
		return "name"
	case RoleQuantity:
		return "quantity"
	case RolePurchasePrice:
		return "purchasePrice"
	case RoleCurrency:
		return "currency"
	default:
		return "unknown"
	}
}

// Header synonyms, English and Swedish. Order of roleKeywords is the match
// order: currency first so "valutakod" is not read as a symbol code, symbol
// before name so "kortnamn" and "short name" are not read as names.
var roleKeywords = []struct {
	role     Role
	keywords []string
}{
	{RoleCurrency, []string{"currency", "valuta", "ccy"}},
	{RoleSymbol, []string{"symbol", "ticker", "isin", "kortnamn", "short name", "shortname", "kod"}},
	{RoleQuantity, []string{"quantity", "qty", "shares", "units", "volume", "antal", "innehav"}},
	{RolePurchasePrice, []string{"price", "cost", "kurs", "pris", "gav", "average", "avg", "anskaffning", "inköp"}},
	{RoleName, []string{"name", "namn", "company", "bolag", "företag", "instrument", "security", "värdepapper", "description", "beskrivning"}},
}

// totalKeywords mark columns holding a position total rather than a per-unit
// price, such as "Anskaffningsvärde" or "Total cost"
var totalKeywords = []string{"total", "summa", "belopp", "amount", "value", "värde"}

var averageCostKeywords = []string{"average", "avg", "gav", "snitt", "genomsnitt", "anskaffningskurs", "cost basis"}

// ClassifyHeader maps a header label to a column role
func ClassifyHeader(label string) Role {
	l := normalizeLabel(label)
	if l == "" {
		return RoleUnknown
	}
	for _, rk := range roleKeywords {
		if rk.role == RolePurchasePrice && isTotalLabel(l) {
			continue
		}
		for _, kw := range rk.keywords {
			if strings.Contains(l, kw) {
				return rk.role
			}
		}
	}
	return RoleUnknown
}

// IsAverageCostLabel reports whether a price header names an average cost
func IsAverageCostLabel(label string) bool {
	l := normalizeLabel(label)
	for _, kw := range averageCostKeywords {
		if strings.Contains(l, kw) {
			return true
		}
	}
	return false
}

func isTotalLabel(l string) bool {
	l = strings.ReplaceAll(l, "värdepapper", "")
	for _, kw := range totalKeywords {
		if strings.Contains(l, kw) {
			return true
		}
	}
	return false
}

func normalizeLabel(label string) string {
	l := strings.ToLower(cleanField(label))
	l = strings.NewReplacer("_", " ", "-", " ").Replace(l)
	return strings.Join(strings.Fields(l), " ")
}
