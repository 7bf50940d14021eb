package lookup

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/symbols"
)

// QuoteProvider fetches a live quote
type QuoteProvider interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// CachedQuotes serves quotes from cache and falls back to a provider
type CachedQuotes struct {
	provider QuoteProvider
	cache    QuoteCache
	log      zerolog.Logger
}

// NewCachedQuotes wraps provider with cache
func NewCachedQuotes(provider QuoteProvider, cache QuoteCache, log zerolog.Logger) *CachedQuotes {
	return &CachedQuotes{provider: provider, cache: cache, log: log}
}

// Quote returns the cached quote for symbol or fetches it. Provider failures
// are returned as *models.LookupError.
func (c *CachedQuotes) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = symbols.Canonical(symbol)
	if q, ok := c.cache.Get(ctx, symbol); ok {
		return q, nil
	}

	q, err := c.provider.Quote(ctx, symbol)
	if err != nil {
		return nil, &models.LookupError{Provider: "quote", Symbol: symbol, Err: err}
	}
	q.Symbol = symbol
	c.cache.Set(ctx, q)
	c.log.Debug().Str("symbol", symbol).Str("price", q.Price.String()).Msg("quote fetched")
	return q, nil
}
