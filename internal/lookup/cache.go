package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/symbols"
)

// QuoteCache stores quotes by canonical symbol
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (*models.Quote, bool)
	Set(ctx context.Context, quote *models.Quote)
}

// MemoryQuoteCache keeps quotes in process memory
type MemoryQuoteCache struct {
	c *cache.Cache
}

// NewMemoryQuoteCache creates an in-memory cache whose entries expire after ttl
func NewMemoryQuoteCache(ttl time.Duration) *MemoryQuoteCache {
	return &MemoryQuoteCache{c: cache.New(ttl, 2*ttl)}
}

// Get implements QuoteCache
func (m *MemoryQuoteCache) Get(_ context.Context, symbol string) (*models.Quote, bool) {
	v, ok := m.c.Get(symbols.Canonical(symbol))
	if !ok {
		return nil, false
	}
	q := v.(models.Quote)
	return &q, true
}

// Set implements QuoteCache
func (m *MemoryQuoteCache) Set(_ context.Context, quote *models.Quote) {
	m.c.SetDefault(symbols.Canonical(quote.Symbol), *quote)
}

// RedisQuoteCache shares quotes between service instances
type RedisQuoteCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedisQuoteCache creates a Redis-backed cache
func NewRedisQuoteCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisQuoteCache {
	return &RedisQuoteCache{client: client, ttl: ttl, log: log}
}

func quoteKey(symbol string) string {
	return "quote:" + symbols.Canonical(symbol)
}

// Get implements QuoteCache. Redis errors are logged and reported as a miss.
func (r *RedisQuoteCache) Get(ctx context.Context, symbol string) (*models.Quote, bool) {
	data, err := r.client.Get(ctx, quoteKey(symbol)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Str("symbol", symbol).Msg("failed to read quote from redis")
		}
		return nil, false
	}
	var q models.Quote
	if err := json.Unmarshal(data, &q); err != nil {
		r.log.Warn().Err(err).Str("symbol", symbol).Msg("discarding malformed cached quote")
		return nil, false
	}
	return &q, true
}

// Set implements QuoteCache
func (r *RedisQuoteCache) Set(ctx context.Context, quote *models.Quote) {
	data, err := json.Marshal(quote)
	if err != nil {
		r.log.Warn().Err(err).Str("symbol", quote.Symbol).Msg("failed to marshal quote")
		return
	}
	if err := r.client.Set(ctx, quoteKey(quote.Symbol), data, r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Str("symbol", quote.Symbol).Msg("failed to write quote to redis")
	}
}

// LayeredQuoteCache reads through a fast cache to a shared one and backfills
type LayeredQuoteCache struct {
	near QuoteCache
	far  QuoteCache
}

// NewLayeredQuoteCache combines two caches
func NewLayeredQuoteCache(near, far QuoteCache) *LayeredQuoteCache {
	return &LayeredQuoteCache{near: near, far: far}
}

// Get implements QuoteCache
func (l *LayeredQuoteCache) Get(ctx context.Context, symbol string) (*models.Quote, bool) {
	if q, ok := l.near.Get(ctx, symbol); ok {
		return q, true
	}
	q, ok := l.far.Get(ctx, symbol)
	if ok {
		l.near.Set(ctx, q)
	}
	return q, ok
}

// Set implements QuoteCache
func (l *LayeredQuoteCache) Set(ctx context.Context, quote *models.Quote) {
	l.near.Set(ctx, quote)
	l.far.Set(ctx, quote)
}
