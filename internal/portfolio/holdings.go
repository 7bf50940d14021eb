package portfolio

import (
	"context"
	"strings"

	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/symbols"
)

// ImportResult reports the outcome of an import
type ImportResult struct {
	Accepted []*models.Holding    `json:"accepted"`
	Skipped  []*models.ParseError `json:"skipped"`
	Rows     int                  `json:"rows"`
}

// GetHolding returns one holding
func (s *Service) GetHolding(ctx context.Context, id string) (*models.Holding, error) {
	return s.store.GetHolding(ctx, id)
}

// ListHoldings returns the holdings of an account
func (s *Service) ListHoldings(ctx context.Context, accountID string) ([]*models.Holding, error) {
	return s.store.ListHoldings(ctx, accountID)
}

// AddHolding validates and stores a new holding. Unknown symbols get a
// debounced lookup.
func (s *Service) AddHolding(ctx context.Context, h *models.Holding) (*models.Holding, error) {
	s.normalize(h)
	known := s.enrich(h, false)
	if err := h.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.CreateHolding(ctx, h); err != nil {
		return nil, err
	}
	if err := s.publisher.PublishHoldingAdded(ctx, h); err != nil {
		s.log.Warn().Err(err).Str("holding_id", h.ID).Msg("failed to publish holding added")
	}

	if !known && h.Symbol != "" && !h.IsCash() {
		s.ScheduleLookup(h.ID, h.Symbol)
	}
	return h, nil
}

// UpdateHolding replaces the editable fields of a stored holding. Changing the
// symbol schedules a new lookup and cancels any earlier one.
func (s *Service) UpdateHolding(ctx context.Context, h *models.Holding) (*models.Holding, error) {
	existing, err := s.store.GetHolding(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	h.AccountID = existing.AccountID
	h.CreatedAt = existing.CreatedAt

	s.normalize(h)
	symbolChanged := h.Symbol != existing.Symbol
	known := s.enrich(h, symbolChanged)
	if err := h.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateHolding(ctx, h); err != nil {
		return nil, err
	}
	if err := s.publisher.PublishHoldingUpdated(ctx, h); err != nil {
		s.log.Warn().Err(err).Str("holding_id", h.ID).Msg("failed to publish holding updated")
	}

	switch {
	case h.Symbol == "" || h.IsCash():
		s.debouncer.Cancel(h.ID)
	case symbolChanged && !known:
		s.ScheduleLookup(h.ID, h.Symbol)
	case symbolChanged:
		s.debouncer.Cancel(h.ID)
	}
	return h, nil
}

// DeleteHolding removes a holding and its history
func (s *Service) DeleteHolding(ctx context.Context, id string) error {
	existing, err := s.store.GetHolding(ctx, id)
	if err != nil {
		return err
	}
	s.debouncer.Cancel(id)

	if err := s.store.DeleteHolding(ctx, id); err != nil {
		return err
	}
	if err := s.publisher.PublishHoldingRemoved(ctx, existing.AccountID, id); err != nil {
		s.log.Warn().Err(err).Str("holding_id", id).Msg("failed to publish holding removed")
	}
	return nil
}

// Import parses text into holdings for accountID and stores the accepted rows
// in one transaction. Rows that cannot be used are reported, not fatal.
func (s *Service) Import(ctx context.Context, accountID, text string) (*ImportResult, error) {
	parsed := s.parser.Parse(text)
	result := &ImportResult{
		Accepted: make([]*models.Holding, 0, len(parsed.Holdings)),
		Skipped:  parsed.Skipped,
		Rows:     parsed.Rows,
	}

	for i, h := range parsed.Holdings {
		src := parsed.Sources[i]
		h.AccountID = accountID
		s.normalize(h)
		if src.CurrencyDefaulted {
			// Let the directory supply the currency. enrich restores the
			// default when it cannot.
			h.Currency = ""
		}
		s.enrich(h, false)
		if err := h.Validate(); err != nil {
			result.Skipped = append(result.Skipped, &models.ParseError{Line: src.Line, Row: src.Text, Reason: err.Error()})
			continue
		}
		result.Accepted = append(result.Accepted, h)
	}

	if len(result.Accepted) == 0 {
		return result, nil
	}
	if err := s.store.CreateHoldingsBatch(ctx, result.Accepted); err != nil {
		return nil, err
	}

	for _, h := range result.Accepted {
		if err := s.publisher.PublishHoldingAdded(ctx, h); err != nil {
			s.log.Warn().Err(err).Str("holding_id", h.ID).Msg("failed to publish holding added")
		}
		if _, ok := s.Directory().Lookup(h.Symbol); h.Symbol != "" && !ok {
			s.ScheduleLookup(h.ID, h.Symbol)
		}
	}

	s.log.Info().
		Str("account_id", accountID).
		Int("rows", result.Rows).
		Int("accepted", len(result.Accepted)).
		Int("skipped", len(result.Skipped)).
		Msg("holdings imported")
	return result, nil
}

func (s *Service) normalize(h *models.Holding) {
	if h.Type == "" {
		h.Type = models.HoldingTypeSecurity
	}
	h.Name = strings.TrimSpace(h.Name)
	if h.Symbol != "" {
		h.Symbol = symbols.Canonical(h.Symbol)
	}
	h.Currency = strings.ToUpper(strings.TrimSpace(h.Currency))
	if h.Currency == "" && !h.IsCash() {
		if cur, ok := symbols.CurrencyForSuffix(h.Symbol); ok {
			h.Currency = cur
		}
	}
}

// enrich fills fields of h from the ticker directory and reports whether the
// symbol was known. Manually edited fields are never touched. With replace,
// automatically resolved values from an earlier symbol are overwritten.
func (s *Service) enrich(h *models.Holding, replace bool) bool {
	defer func() {
		if h.Currency == "" {
			h.Currency = s.defaultCurrency
		}
	}()

	if h.Symbol == "" || h.IsCash() {
		return false
	}
	rec, ok := s.Directory().Lookup(h.Symbol)
	if !ok {
		return false
	}
	applyRecord(h, rec, replace)
	return true
}

// applyRecord copies ticker data into the non-manual fields of h and reports
// whether anything changed
func applyRecord(h *models.Holding, rec models.TickerRecord, replace bool) bool {
	changed := false
	if !h.NameManuallyEdited && rec.Name != "" && rec.Name != h.Name &&
		(replace || h.Name == "" || strings.EqualFold(h.Name, h.Symbol)) {
		h.Name = rec.Name
		changed = true
	}
	if !h.CurrencyManuallyEdited && rec.Currency != "" && rec.Currency != h.Currency &&
		(replace || h.Currency == "") {
		h.Currency = rec.Currency
		changed = true
	}
	if !h.PriceManuallyEdited && rec.Price.Valid &&
		(!h.CurrentPrice.Valid || !h.CurrentPrice.Decimal.Equal(rec.Price.Decimal)) {
		h.CurrentPrice = rec.Price
		changed = true
	}
	return changed
}
