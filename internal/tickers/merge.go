// Package tickers merges ticker reference data from sources that disagree into
// one canonical record per symbol.
package tickers

import (
	"strings"

	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/symbols"
)

// Conflict records two equally trusted records that disagree on a value
type Conflict struct {
	Symbol   string
	Field    string
	Kept     string
	Rejected string
	Source   models.TickerSource
}

// Merger accumulates ticker records for a single merge pass
type Merger struct {
	records   map[string]models.TickerRecord
	conflicts []Conflict
}

// NewMerger creates an empty merger
func NewMerger() *Merger {
	return &Merger{records: make(map[string]models.TickerRecord)}
}

// Merge combines the given lists into a directory
func Merge(lists ...[]models.TickerRecord) *Directory {
	m := NewMerger()
	for _, list := range lists {
		m.Add(list...)
	}
	return m.Directory()
}

// Add merges records into the working set
func (m *Merger) Add(records ...models.TickerRecord) {
	for _, r := range records {
		r = normalize(r)
		if r.Symbol == "" {
			continue
		}
		existing, ok := m.records[r.Symbol]
		if !ok {
			m.records[r.Symbol] = r
			continue
		}
		m.records[r.Symbol] = m.combine(existing, r)
	}
}

// Conflicts returns the equal-trust disagreements seen so far
func (m *Merger) Conflicts() []Conflict {
	return m.conflicts
}

// Directory publishes the merged records. The merger must not be used afterwards.
func (m *Merger) Directory() *Directory {
	d := newDirectory(m.records)
	m.records = nil
	return d
}

func (m *Merger) combine(existing, incoming models.TickerRecord) models.TickerRecord {
	exTrust, inTrust := existing.Source.Trust(), incoming.Source.Trust()

	if exTrust != inTrust {
		primary, secondary := existing, incoming
		if inTrust > exTrust {
			primary, secondary = incoming, existing
		}
		// A name mismatch across trust levels means the lower source is
		// probably describing another instrument, so none of its data is used.
		if !namesMatch(primary, secondary) {
			return primary
		}
		return fillGaps(primary, secondary)
	}

	if incoming.UpdatedAt.After(existing.UpdatedAt) {
		return m.fillEqual(incoming, existing)
	}
	return m.fillEqual(existing, incoming)
}

// fillEqual fills gaps in kept from other and records disagreements
func (m *Merger) fillEqual(kept, other models.TickerRecord) models.TickerRecord {
	if hasName(kept) && hasName(other) && !strings.EqualFold(kept.Name, other.Name) {
		m.conflict(kept, "name", kept.Name, other.Name)
	}
	if kept.Currency != "" && other.Currency != "" && kept.Currency != other.Currency {
		m.conflict(kept, "currency", kept.Currency, other.Currency)
	}
	if kept.Price.Valid && other.Price.Valid && !kept.Price.Decimal.Equal(other.Price.Decimal) {
		m.conflict(kept, "price", kept.Price.Decimal.String(), other.Price.Decimal.String())
	}
	return fillGaps(kept, other)
}

func (m *Merger) conflict(kept models.TickerRecord, field, keptValue, rejected string) {
	m.conflicts = append(m.conflicts, Conflict{
		Symbol:   kept.Symbol,
		Field:    field,
		Kept:     keptValue,
		Rejected: rejected,
		Source:   kept.Source,
	})
}

func fillGaps(primary, secondary models.TickerRecord) models.TickerRecord {
	if !hasName(primary) && hasName(secondary) {
		primary.Name = secondary.Name
	}
	if primary.Currency == "" {
		primary.Currency = secondary.Currency
	}
	if !primary.Price.Valid && secondary.Price.Valid {
		primary.Price = secondary.Price
	}
	if primary.UpdatedAt.IsZero() {
		primary.UpdatedAt = secondary.UpdatedAt
	}
	return primary
}

// hasName reports whether the record carries a real name rather than an echo of its symbol
func hasName(r models.TickerRecord) bool {
	return r.Name != "" && !strings.EqualFold(r.Name, r.Symbol)
}

func namesMatch(a, b models.TickerRecord) bool {
	if !hasName(a) || !hasName(b) {
		return true
	}
	return strings.EqualFold(a.Name, b.Name)
}

func normalize(r models.TickerRecord) models.TickerRecord {
	r.Symbol = symbols.Canonical(r.Symbol)
	r.Name = strings.TrimSpace(r.Name)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.Price.Valid && !r.Price.Decimal.IsPositive() {
		r.Price.Valid = false
	}
	return r
}
