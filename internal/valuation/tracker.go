// Package valuation computes holding and portfolio performance and records one
// snapshot per holding per day.
package valuation

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/currency"
	"github.com/trogers1052/portfolio-service/internal/models"
)

var hundred = decimal.NewFromInt(100)

// SnapshotStore reads and writes performance history
type SnapshotStore interface {
	// GetLatestSnapshotBefore returns nil and no error when there is no earlier snapshot.
	GetLatestSnapshotBefore(ctx context.Context, holdingID string, date time.Time) (*models.PerformanceSnapshot, error)
	UpsertSnapshots(ctx context.Context, snapshots []*models.PerformanceSnapshot) error
}

// PriceSource resolves ticker data for a symbol
type PriceSource interface {
	Lookup(symbol string) (models.TickerRecord, bool)
}

// Tracker computes portfolio performance
type Tracker struct {
	normalizer *currency.Normalizer
	store      SnapshotStore
	log        zerolog.Logger
	now        func() time.Time
}

// NewTracker creates a tracker. store may be nil, in which case no history is read or written.
func NewTracker(normalizer *currency.Normalizer, store SnapshotStore, log zerolog.Logger) *Tracker {
	return &Tracker{
		normalizer: normalizer,
		store:      store,
		log:        log,
		now:        time.Now,
	}
}

// Compute values the holdings of one account. History failures never fail the
// computation; they are logged and reported in the summary's warnings.
func (t *Tracker) Compute(ctx context.Context, accountID string, holdings []*models.Holding, prices PriceSource) *models.PerformanceSummary {
	today := Today(t.now())
	reporting := t.normalizer.Reporting()

	summary := &models.PerformanceSummary{
		AccountID: accountID,
		Currency:  reporting,
		Date:      today,
		Holdings:  make([]*models.HoldingPerformance, 0, len(holdings)),
	}

	var (
		current, invested, dayChange, cash decimal.Decimal
		snapshots                          []*models.PerformanceSnapshot
	)

	for _, h := range holdings {
		if h.IsCash() {
			value := t.convert(h.Quantity, h.Currency, summary)
			cash = cash.Add(value)
			summary.Holdings = append(summary.Holdings, &models.HoldingPerformance{
				HoldingID:     h.ID,
				Name:          h.Name,
				Type:          models.HoldingTypeCash,
				PricePerUnit:  decimal.NewFromInt(1),
				PriceCurrency: h.Currency,
				CurrentValue:  currency.Round(value, reporting),
				InvestedValue: currency.Round(value, reporting),
			})
			continue
		}

		perf, snap := t.valueHolding(ctx, h, prices, today, summary)
		current = current.Add(perf.CurrentValue)
		invested = invested.Add(perf.InvestedValue)
		dayChange = dayChange.Add(perf.DayChange)
		summary.Holdings = append(summary.Holdings, roundHolding(perf, reporting))
		if snap != nil {
			snapshots = append(snapshots, snap)
		}
	}

	total := current.Add(cash)
	summary.CurrentValue = currency.Round(current, reporting)
	summary.InvestedValue = currency.Round(invested, reporting)
	summary.Return = currency.Round(current.Sub(invested), reporting)
	summary.ReturnPct = percent(current.Sub(invested), invested)
	summary.DayChange = currency.Round(dayChange, reporting)
	summary.DayChangePct = percent(dayChange, current.Sub(dayChange))
	summary.Cash = currency.Round(cash, reporting)
	summary.TotalValue = currency.Round(total, reporting)
	summary.CashPct = percent(cash, total)
	summary.InvestedPct = percent(current, total)

	t.saveSnapshots(ctx, snapshots, summary)

	t.log.Info().
		Str("account_id", accountID).
		Int("holdings", len(holdings)).
		Str("total", summary.TotalValue.String()).
		Str("currency", reporting).
		Msg("performance computed")

	return summary
}

func (t *Tracker) valueHolding(ctx context.Context, h *models.Holding, prices PriceSource, today time.Time, summary *models.PerformanceSummary) (*models.HoldingPerformance, *models.PerformanceSnapshot) {
	price, priceCurrency := ResolvePrice(h, prices)

	currentValue := t.convert(price.Mul(h.Quantity), priceCurrency, summary)
	investedValue := currentValue
	if h.PurchasePrice.IsPositive() {
		investedValue = t.convert(h.PurchasePrice.Mul(h.Quantity), h.Currency, summary)
	}

	yesterday := currentValue
	if prev := t.previous(ctx, h, today, summary); prev != nil {
		yesterday = t.convert(prev.TotalValue, prev.Currency, summary)
	}

	profit := currentValue.Sub(investedValue)
	change := currentValue.Sub(yesterday)

	perf := &models.HoldingPerformance{
		HoldingID:     h.ID,
		Name:          h.Name,
		Symbol:        h.Symbol,
		Type:          models.HoldingTypeSecurity,
		PricePerUnit:  price,
		PriceCurrency: priceCurrency,
		CurrentValue:  currentValue,
		InvestedValue: investedValue,
		Profit:        profit,
		ProfitPct:     percent(profit, investedValue),
		DayChange:     change,
		DayChangePct:  percent(change, yesterday),
	}

	if h.ID == "" {
		return perf, nil
	}
	return perf, &models.PerformanceSnapshot{
		HoldingID:    h.ID,
		Date:         today,
		PricePerUnit: t.convert(price, priceCurrency, summary),
		TotalValue:   currentValue,
		Currency:     t.normalizer.Reporting(),
	}
}

// convert returns amount in the reporting currency. Without a rate the amount
// is used unconverted and the summary gets one warning per currency.
func (t *Tracker) convert(amount decimal.Decimal, code string, summary *models.PerformanceSummary) decimal.Decimal {
	converted, err := t.normalizer.Convert(amount, code)
	if err == nil {
		return converted
	}
	warning := fmt.Sprintf("no exchange rate for %s, amounts in %s counted as %s", code, code, summary.Currency)
	if !slices.Contains(summary.Warnings, warning) {
		t.log.Warn().Err(err).Str("currency", code).Str("account_id", summary.AccountID).Msg("amount left unconverted")
		summary.Warnings = append(summary.Warnings, warning)
	}
	return amount
}

func (t *Tracker) previous(ctx context.Context, h *models.Holding, today time.Time, summary *models.PerformanceSummary) *models.PerformanceSnapshot {
	if t.store == nil || h.ID == "" {
		return nil
	}
	prev, err := t.store.GetLatestSnapshotBefore(ctx, h.ID, today)
	if err != nil {
		perr := &models.PersistenceError{Op: "read snapshot history", Err: err}
		t.log.Error().Err(err).Str("holding_id", h.ID).Msg("failed to read previous snapshot")
		summary.Warnings = append(summary.Warnings, perr.Error())
		return nil
	}
	return prev
}

func (t *Tracker) saveSnapshots(ctx context.Context, snapshots []*models.PerformanceSnapshot, summary *models.PerformanceSummary) {
	if t.store == nil || len(snapshots) == 0 {
		return
	}
	if err := t.store.UpsertSnapshots(ctx, snapshots); err != nil {
		perr := &models.PersistenceError{Op: "save performance snapshots", Err: err}
		t.log.Error().Err(err).Int("snapshots", len(snapshots)).Msg("failed to save performance snapshots")
		summary.Warnings = append(summary.Warnings, perr.Error())
	}
}

// ResolvePrice picks the per-unit price of a holding and the currency it is
// quoted in. A manually edited price always wins, then the ticker price, then
// the last stored price and finally the purchase price.
func ResolvePrice(h *models.Holding, prices PriceSource) (decimal.Decimal, string) {
	if h.PriceManuallyEdited && h.CurrentPrice.Valid {
		return h.CurrentPrice.Decimal, h.Currency
	}
	if h.Symbol != "" && prices != nil {
		if rec, ok := prices.Lookup(h.Symbol); ok && rec.Price.Valid {
			cur := rec.Currency
			if cur == "" {
				cur = h.Currency
			}
			return rec.Price.Decimal, cur
		}
	}
	if h.CurrentPrice.Valid {
		return h.CurrentPrice.Decimal, h.Currency
	}
	return h.PurchasePrice, h.Currency
}

// Today truncates t to its UTC calendar date
func Today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(hundred).DivRound(whole, 4)
}

func roundHolding(p *models.HoldingPerformance, reporting string) *models.HoldingPerformance {
	p.CurrentValue = currency.Round(p.CurrentValue, reporting)
	p.InvestedValue = currency.Round(p.InvestedValue, reporting)
	p.Profit = currency.Round(p.Profit, reporting)
	p.DayChange = currency.Round(p.DayChange, reporting)
	return p
}
