package portfolio

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/symbols"
	"github.com/trogers1052/portfolio-service/internal/tickers"
)

// RefreshResult describes a ticker refresh
type RefreshResult struct {
	Tickers   int      `json:"tickers"`
	Reference int      `json:"reference"`
	Conflicts int      `json:"conflicts"`
	Warnings  []string `json:"warnings,omitempty"`
}

// RefreshTickers merges the reference list with the persisted ticker cache and
// the current directory, publishes the result and writes it back to the cache.
// A failing reference fetch keeps the cached data; a failing cache write is
// reported as a warning.
func (s *Service) RefreshTickers(ctx context.Context) (*RefreshResult, error) {
	result := &RefreshResult{}

	cached, err := s.store.GetCachedTickers(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load ticker cache")
		result.Warnings = append(result.Warnings, (&models.PersistenceError{Op: "load ticker cache", Err: err}).Error())
	}

	var reference []models.TickerRecord
	if s.reference != nil {
		reference, err = s.reference.Fetch(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("reference fetch failed, keeping cached tickers")
			result.Warnings = append(result.Warnings, err.Error())
		}
		result.Reference = len(reference)
	}

	s.dirMu.Lock()
	merger := tickers.NewMerger()
	merger.Add(cached...)
	merger.Add(s.Directory().All()...)
	merger.Add(reference...)
	dir := merger.Directory()
	s.directory.Store(dir)
	s.dirMu.Unlock()

	s.logConflicts(merger.Conflicts())
	result.Conflicts = len(merger.Conflicts())
	result.Tickers = dir.Len()

	if err := s.store.SaveTickers(ctx, dir.All()); err != nil {
		s.log.Error().Err(err).Msg("failed to save ticker cache")
		result.Warnings = append(result.Warnings, (&models.PersistenceError{Op: "save ticker cache", Err: err}).Error())
	}

	s.log.Info().
		Int("tickers", result.Tickers).
		Int("reference", result.Reference).
		Int("conflicts", result.Conflicts).
		Msg("tickers refreshed")
	return result, nil
}

// ReloadTickers merges the persisted ticker cache into the published directory
func (s *Service) ReloadTickers(ctx context.Context) error {
	cached, err := s.store.GetCachedTickers(ctx)
	if err != nil {
		return err
	}
	s.publish(cached...)
	return nil
}

// LookupTicker resolves a symbol through the published directory
func (s *Service) LookupTicker(symbol string) (models.TickerRecord, bool) {
	return s.Directory().Lookup(symbol)
}

// SearchTickers searches the directory and, when it has too few matches, the
// search provider. Provider results are merged into the directory. Provider
// failures are logged and the local matches returned.
func (s *Service) SearchTickers(ctx context.Context, query string, limit int) []models.TickerRecord {
	query = strings.TrimSpace(query)
	if limit <= 0 {
		limit = s.searchLimit
	}

	local := s.Directory().Search(query, limit)
	if len(local) >= limit || s.search == nil || query == "" {
		return local
	}

	found, err := s.search.Search(ctx, query)
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("symbol search failed")
		return local
	}
	s.publish(found...)
	return s.Directory().Search(query, limit)
}

// ScheduleLookup resolves symbol for a holding after the debounce delay. A
// later call for the same holding replaces this one.
func (s *Service) ScheduleLookup(holdingID, symbol string) {
	symbol = symbols.Canonical(symbol)
	if holdingID == "" || symbol == "" {
		return
	}
	scheduled := s.debouncer.Schedule(holdingID, func(ctx context.Context) {
		s.resolveSymbol(ctx, holdingID, symbol)
	})
	if scheduled {
		s.log.Debug().Str("holding_id", holdingID).Str("symbol", symbol).Msg("symbol lookup scheduled")
	}
}

// resolveSymbol searches and quotes symbol, merges what it finds into the
// directory and fills the holding's non-manual fields. Lookup failures leave
// the holding unchanged until its next edit.
func (s *Service) resolveSymbol(ctx context.Context, holdingID, symbol string) {
	log := s.log.With().Str("holding_id", holdingID).Str("symbol", symbol).Logger()

	resolved := false
	if s.search != nil {
		results, err := s.search.Search(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Msg("symbol search failed")
		}
		var found []models.TickerRecord
		for _, r := range results {
			if symbols.Same(r.Symbol, symbol) {
				found = append(found, r)
			}
		}
		if len(found) > 0 {
			s.publish(found...)
			resolved = true
		}
	}
	if s.quotes != nil {
		q, err := s.quotes.Quote(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Msg("quote lookup failed")
		} else {
			qr := quoteRecord(q)
			if known, ok := s.Directory().Lookup(symbol); ok {
				qr.Symbol = known.Symbol
			}
			s.publish(qr)
			resolved = true
		}
	}
	if ctx.Err() != nil || !resolved {
		return
	}

	rec, ok := s.Directory().Lookup(symbol)
	if !ok {
		return
	}
	h, err := s.store.GetHolding(ctx, holdingID)
	if err != nil {
		log.Warn().Err(err).Msg("holding gone before lookup finished")
		return
	}
	if !symbols.Same(h.Symbol, symbol) || !applyRecord(h, rec, true) {
		return
	}
	h, err = s.store.EnrichHolding(ctx, holdingID, h.Symbol, rec)
	if errors.Is(err, models.ErrNotFound) {
		log.Info().Msg("holding changed before lookup finished")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to save resolved holding")
		return
	}
	if err := s.publisher.PublishHoldingUpdated(ctx, h); err != nil {
		log.Warn().Err(err).Msg("failed to publish holding updated")
	}
	log.Info().Str("name", h.Name).Msg("holding resolved")
}

// publish merges records into a new directory and swaps it in
func (s *Service) publish(records ...models.TickerRecord) {
	s.dirMu.Lock()
	dir, conflicts := s.Directory().With(records...)
	s.directory.Store(dir)
	s.dirMu.Unlock()
	s.logConflicts(conflicts)
}

func (s *Service) logConflicts(conflicts []tickers.Conflict) {
	for _, c := range conflicts {
		s.log.Warn().
			Str("symbol", c.Symbol).
			Str("field", c.Field).
			Str("kept", c.Kept).
			Str("rejected", c.Rejected).
			Msg("ticker conflict")
	}
}

func quoteRecord(q *models.Quote) models.TickerRecord {
	return models.TickerRecord{
		Symbol:    q.Symbol,
		Currency:  q.Currency,
		Price:     decimal.NullDecimal{Decimal: q.Price, Valid: q.Price.IsPositive()},
		Source:    models.SourceSearch,
		UpdatedAt: time.Now().UTC(),
	}
}
