// Package portfolio ties holdings, ticker data and valuation together.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-service/internal/importer"
	"github.com/trogers1052/portfolio-service/internal/lookup"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/tickers"
	"github.com/trogers1052/portfolio-service/internal/valuation"
)

// Store is the persistence the service needs
type Store interface {
	valuation.SnapshotStore

	CreateHolding(ctx context.Context, h *models.Holding) error
	CreateHoldingsBatch(ctx context.Context, holdings []*models.Holding) error
	GetHolding(ctx context.Context, id string) (*models.Holding, error)
	ListHoldings(ctx context.Context, accountID string) ([]*models.Holding, error)
	ListAccounts(ctx context.Context) ([]string, error)
	UpdateHolding(ctx context.Context, h *models.Holding) error
	EnrichHolding(ctx context.Context, id, symbol string, rec models.TickerRecord) (*models.Holding, error)
	DeleteHolding(ctx context.Context, id string) error

	GetSnapshotHistory(ctx context.Context, holdingID string, from, to time.Time) ([]*models.PerformanceSnapshot, error)

	SaveTickers(ctx context.Context, records []models.TickerRecord) error
	GetCachedTickers(ctx context.Context) ([]models.TickerRecord, error)
}

// ReferenceSource fetches the trusted ticker list
type ReferenceSource interface {
	Fetch(ctx context.Context) ([]models.TickerRecord, error)
}

// SymbolSearcher finds candidate tickers for a query
type SymbolSearcher interface {
	Search(ctx context.Context, query string) ([]models.TickerRecord, error)
}

// QuoteSource returns a best-effort quote
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// EventPublisher announces holding changes and computed performance
type EventPublisher interface {
	PublishHoldingAdded(ctx context.Context, h *models.Holding) error
	PublishHoldingUpdated(ctx context.Context, h *models.Holding) error
	PublishHoldingRemoved(ctx context.Context, accountID, holdingID string) error
	PublishPerformance(ctx context.Context, summary *models.PerformanceSummary) error
}

// Options configures the optional collaborators of a Service. Nil sources
// disable the corresponding lookups.
type Options struct {
	Reference       ReferenceSource
	Search          SymbolSearcher
	Quotes          QuoteSource
	Publisher       EventPublisher
	DefaultCurrency string
	Debounce        time.Duration
	SearchLimit     int
}

// Service manages holdings and recomputes portfolio performance
type Service struct {
	store     Store
	tracker   *valuation.Tracker
	reference ReferenceSource
	search    SymbolSearcher
	quotes    QuoteSource
	publisher EventPublisher
	parser    *importer.Parser
	debouncer *lookup.Debouncer
	directory atomic.Pointer[tickers.Directory]
	dirMu     sync.Mutex // serialises directory swaps

	defaultCurrency string
	searchLimit     int
	log             zerolog.Logger
}

// NewService creates a portfolio service with an empty ticker directory
func NewService(store Store, tracker *valuation.Tracker, opts Options, log zerolog.Logger) *Service {
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 10
	}
	s := &Service{
		store:           store,
		tracker:         tracker,
		reference:       opts.Reference,
		search:          opts.Search,
		quotes:          opts.Quotes,
		publisher:       opts.Publisher,
		parser:          importer.NewParser(opts.DefaultCurrency),
		debouncer:       lookup.NewDebouncer(opts.Debounce),
		defaultCurrency: opts.DefaultCurrency,
		searchLimit:     opts.SearchLimit,
		log:             log,
	}
	s.directory.Store(tickers.Empty())
	return s
}

// Directory returns the currently published ticker directory
func (s *Service) Directory() *tickers.Directory {
	return s.directory.Load()
}

// Performance recomputes and publishes the performance of one account
func (s *Service) Performance(ctx context.Context, accountID string) (*models.PerformanceSummary, error) {
	holdings, err := s.store.ListHoldings(ctx, accountID)
	if err != nil {
		return nil, err
	}

	summary := s.tracker.Compute(ctx, accountID, holdings, s.Directory())

	if err := s.publisher.PublishPerformance(ctx, summary); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("failed to publish performance")
	}
	return summary, nil
}

// Recompute recomputes one account
func (s *Service) Recompute(ctx context.Context, accountID string) error {
	_, err := s.Performance(ctx, accountID)
	return err
}

// RecomputeAll recomputes every account with holdings. One failing account
// does not stop the others.
func (s *Service) RecomputeAll(ctx context.Context) error {
	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, accountID := range accounts {
		if err := s.Recompute(ctx, accountID); err != nil {
			s.log.Error().Err(err).Str("account_id", accountID).Msg("recompute failed")
			errs = append(errs, fmt.Errorf("account %s: %w", accountID, err))
		}
	}
	return errors.Join(errs...)
}

// History returns the snapshots of a holding between from and to inclusive
func (s *Service) History(ctx context.Context, holdingID string, from, to time.Time) ([]*models.PerformanceSnapshot, error) {
	if _, err := s.store.GetHolding(ctx, holdingID); err != nil {
		return nil, err
	}
	return s.store.GetSnapshotHistory(ctx, holdingID, from, to)
}

// Close stops pending symbol lookups
func (s *Service) Close() {
	s.debouncer.Stop()
}

type nopPublisher struct{}

func (nopPublisher) PublishHoldingAdded(context.Context, *models.Holding) error { return nil }
func (nopPublisher) PublishHoldingUpdated(context.Context, *models.Holding) error { return nil }
func (nopPublisher) PublishHoldingRemoved(context.Context, string, string) error { return nil }
func (nopPublisher) PublishPerformance(context.Context, *models.PerformanceSummary) error { return nil }
