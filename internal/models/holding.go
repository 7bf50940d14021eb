package models

import (
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Holding type constants
const (
	HoldingTypeSecurity = "security"
	HoldingTypeCash     = "cash"
)

// Holding represents a position owned by an account. Cash holdings keep their
// balance in Quantity and are never priced through a ticker lookup.
type Holding struct {
	ID                     string              `json:"id"`
	AccountID              string              `json:"account_id"`
	Type                   string              `json:"type"`
	Name                   string              `json:"name"`
	Symbol                 string              `json:"symbol,omitempty"`
	Quantity               decimal.Decimal     `json:"quantity"`
	PurchasePrice          decimal.Decimal     `json:"purchase_price"`
	CurrentPrice           decimal.NullDecimal `json:"current_price"`
	Currency               string              `json:"currency"`
	NameManuallyEdited     bool                `json:"name_manually_edited"`
	PriceManuallyEdited    bool                `json:"price_manually_edited"`
	CurrencyManuallyEdited bool                `json:"currency_manually_edited"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

// Column limits of the holdings table
const (
	MaxNameLength   = 255
	MaxSymbolLength = 32
)

// IsCash reports whether the holding is a cash balance
func (h *Holding) IsCash() bool {
	return h.Type == HoldingTypeCash
}

// Validate checks that a holding carries enough data to be persisted
func (h *Holding) Validate() error {
	if h.Type != "" && h.Type != HoldingTypeSecurity && h.Type != HoldingTypeCash {
		return &ValidationError{Field: "type", Reason: "must be security or cash"}
	}
	if h.Quantity.IsNegative() {
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if utf8.RuneCountInString(h.Name) > MaxNameLength {
		return &ValidationError{Field: "name", Reason: "is too long"}
	}
	if utf8.RuneCountInString(h.Symbol) > MaxSymbolLength {
		return &ValidationError{Field: "symbol", Reason: "is too long"}
	}
	if h.IsCash() {
		if h.Currency == "" {
			return &ValidationError{Field: "currency", Reason: "is required for cash"}
		}
		return nil
	}
	if h.Name == "" && h.Symbol == "" {
		return &ValidationError{Field: "name", Reason: "name or symbol is required"}
	}
	if !h.Quantity.IsPositive() {
		return &ValidationError{Field: "quantity", Reason: "must be greater than zero"}
	}
	if !h.PurchasePrice.IsPositive() {
		return &ValidationError{Field: "purchase_price", Reason: "must be greater than zero"}
	}
	return nil
}
