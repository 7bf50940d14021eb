package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceSnapshot is the persisted value of one holding on one day
type PerformanceSnapshot struct {
	ID           int             `json:"id"`
	HoldingID    string          `json:"holding_id"`
	Date         time.Time       `json:"date"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	TotalValue   decimal.Decimal `json:"total_value"`
	Currency     string          `json:"currency"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// HoldingPerformance is the computed valuation of a single holding
type HoldingPerformance struct {
	HoldingID     string          `json:"holding_id"`
	Name          string          `json:"name"`
	Symbol        string          `json:"symbol,omitempty"`
	Type          string          `json:"type"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
	PriceCurrency string          `json:"price_currency"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	InvestedValue decimal.Decimal `json:"invested_value"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitPct     decimal.Decimal `json:"profit_pct"`
	DayChange     decimal.Decimal `json:"day_change"`
	DayChangePct  decimal.Decimal `json:"day_change_pct"`
}

// PerformanceSummary aggregates holding performance for an account. It is
// derived on every recomputation and never stored.
type PerformanceSummary struct {
	AccountID     string                `json:"account_id"`
	Currency      string                `json:"currency"`
	Date          time.Time             `json:"date"`
	CurrentValue  decimal.Decimal       `json:"current_value"`
	InvestedValue decimal.Decimal       `json:"invested_value"`
	Return        decimal.Decimal       `json:"return"`
	ReturnPct     decimal.Decimal       `json:"return_pct"`
	DayChange     decimal.Decimal       `json:"day_change"`
	DayChangePct  decimal.Decimal       `json:"day_change_pct"`
	Cash          decimal.Decimal       `json:"cash"`
	CashPct       decimal.Decimal       `json:"cash_pct"`
	InvestedPct   decimal.Decimal       `json:"invested_pct"`
	TotalValue    decimal.Decimal       `json:"total_value"`
	Holdings      []*HoldingPerformance `json:"holdings"`
	Warnings      []string              `json:"warnings,omitempty"`
}
