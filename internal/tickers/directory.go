package tickers

import (
	"sort"
	"strings"

	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/symbols"
)

// Directory is an immutable set of merged ticker records
type Directory struct {
	records map[string]models.TickerRecord
	index   map[string][]string
}

// Empty returns a directory with no records
func Empty() *Directory {
	return newDirectory(nil)
}

func newDirectory(records map[string]models.TickerRecord) *Directory {
	d := &Directory{
		records: make(map[string]models.TickerRecord, len(records)),
		index:   make(map[string][]string),
	}
	for key, r := range records {
		d.records[key] = r
		for v := range symbols.Variants(key) {
			d.index[v] = append(d.index[v], key)
		}
	}
	for v := range d.index {
		sort.Strings(d.index[v])
	}
	return d
}

// Len returns the number of records
func (d *Directory) Len() int {
	return len(d.records)
}

// Lookup finds the record for a symbol, matching through its variants. An exact
// canonical match wins; otherwise the most trusted variant match is returned.
func (d *Directory) Lookup(symbol string) (models.TickerRecord, bool) {
	key := symbols.Canonical(symbol)
	if r, ok := d.records[key]; ok {
		return r, true
	}

	var best models.TickerRecord
	found := false
	for _, v := range symbols.Variants(symbol).Slice() {
		for _, k := range d.index[v] {
			r := d.records[k]
			if !found || r.Source.Trust() > best.Source.Trust() {
				best, found = r, true
			}
		}
	}
	return best, found
}

// Search returns records whose symbol or name contains the query, best matches first
func (d *Directory) Search(query string, limit int) []models.TickerRecord {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []models.TickerRecord
	for _, r := range d.records {
		if strings.Contains(r.Symbol, q) || strings.Contains(strings.ToUpper(r.Name), q) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := strings.HasPrefix(out[i].Symbol, q), strings.HasPrefix(out[j].Symbol, q)
		if pi != pj {
			return pi
		}
		return out[i].Symbol < out[j].Symbol
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// All returns every record sorted by symbol
func (d *Directory) All() []models.TickerRecord {
	out := make([]models.TickerRecord, 0, len(d.records))
	for _, r := range d.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// With returns a new directory with records merged on top of this one
func (d *Directory) With(records ...models.TickerRecord) (*Directory, []Conflict) {
	m := NewMerger()
	m.Add(d.All()...)
	m.Add(records...)
	conflicts := m.Conflicts()
	return m.Directory(), conflicts
}
