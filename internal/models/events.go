package models

import "time"

// Event type constants
const (
	EventHoldingsChanged     = "HOLDINGS_CHANGED"
	EventTickersRefreshed    = "TICKERS_REFRESHED"
	EventRefreshRequested    = "REFRESH_REQUESTED"
	EventHoldingAdded        = "HOLDING_ADDED"
	EventHoldingUpdated      = "HOLDING_UPDATED"
	EventHoldingRemoved      = "HOLDING_REMOVED"
	EventPerformanceComputed = "PERFORMANCE_COMPUTED"
)

// PortfolioEvent is consumed from Kafka and triggers a recomputation
type PortfolioEvent struct {
	EventType string    `json:"event_type"`
	AccountID string    `json:"account_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HoldingEvent is published when a holding is added, updated or removed
type HoldingEvent struct {
	EventType string    `json:"event_type"`
	AccountID string    `json:"account_id"`
	HoldingID string    `json:"holding_id"`
	Holding   *Holding  `json:"holding,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PerformanceEvent is published after each recomputation
type PerformanceEvent struct {
	EventType string              `json:"event_type"`
	AccountID string              `json:"account_id"`
	Summary   *PerformanceSummary `json:"summary"`
	Timestamp time.Time           `json:"timestamp"`
}
