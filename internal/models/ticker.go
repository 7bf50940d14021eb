package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TickerSource identifies where a ticker record came from
type TickerSource string

// Ticker source constants
const (
	SourceReference TickerSource = "reference"
	SourceCache     TickerSource = "cache"
	SourceSearch    TickerSource = "search"
)

// Trust returns the priority of a source when records disagree. Higher wins.
func (s TickerSource) Trust() int {
	switch s {
	case SourceReference:
		return 3
	case SourceCache:
		return 2
	case SourceSearch:
		return 1
	default:
		return 0
	}
}

// TickerRecord represents reference data for one instrument
type TickerRecord struct {
	Symbol    string              `json:"symbol"`
	Name      string              `json:"name"`
	Currency  string              `json:"currency,omitempty"`
	Price     decimal.NullDecimal `json:"price"`
	Source    TickerSource        `json:"source"`
	UpdatedAt time.Time           `json:"updated_at,omitempty"`
}

// Quote is a best-effort price for a symbol
type Quote struct {
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}
