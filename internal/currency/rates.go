package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StaticRates is a fixed rate table
type StaticRates map[string]decimal.Decimal

// Rate implements RateTable
func (s StaticRates) Rate(code string) (decimal.Decimal, bool) {
	r, ok := s[strings.ToUpper(code)]
	return r, ok
}

// ParseStaticRates parses "USD=10.42,EUR=11.37" into a rate table
func ParseStaticRates(spec string) (StaticRates, error) {
	rates := StaticRates{}
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid rate %q: expected CODE=RATE", pair)
		}
		code = strings.ToUpper(strings.TrimSpace(code))
		if !Valid(code) {
			return nil, fmt.Errorf("invalid rate %q: unknown currency %s", pair, code)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("invalid rate %q: rate must be a positive number", pair)
		}
		rates[code] = rate
	}
	return rates, nil
}

// Chain consults each table in order
type Chain []RateTable

// Rate implements RateTable
func (c Chain) Rate(code string) (decimal.Decimal, bool) {
	for _, t := range c {
		if t == nil {
			continue
		}
		if r, ok := t.Rate(code); ok {
			return r, true
		}
	}
	return decimal.Zero, false
}

type ratesResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

// RemoteRates fetches rates from a Frankfurter-style endpoint and caches them
type RemoteRates struct {
	url       string
	reporting string
	client    *http.Client
	cache     *cache.Cache
	log       zerolog.Logger
}

// NewRemoteRates creates a remote rate table. Fetched rates expire after ttl.
func NewRemoteRates(url, reporting string, ttl time.Duration, log zerolog.Logger) *RemoteRates {
	return &RemoteRates{
		url:       url,
		reporting: strings.ToUpper(reporting),
		client:    &http.Client{Timeout: 10 * time.Second},
		cache:     cache.New(ttl, 2*ttl),
		log:       log,
	}
}

// Rate implements RateTable
func (r *RemoteRates) Rate(code string) (decimal.Decimal, bool) {
	v, ok := r.cache.Get(strings.ToUpper(code))
	if !ok {
		return decimal.Zero, false
	}
	return v.(decimal.Decimal), true
}

// Refresh downloads the latest rates. The endpoint quotes foreign units per
// reporting unit, so each rate is inverted before caching.
func (r *RemoteRates) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build rates request: %w", err)
	}
	q := req.URL.Query()
	q.Set("from", r.reporting)
	req.URL.RawQuery = q.Encode()

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch exchange rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("exchange rate API returned non-OK status %d", resp.StatusCode)
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode exchange rates: %w", err)
	}
	if body.Base != "" && !strings.EqualFold(body.Base, r.reporting) {
		return fmt.Errorf("exchange rates quoted in %s, expected %s", body.Base, r.reporting)
	}

	stored := 0
	for code, rate := range body.Rates {
		if !rate.IsPositive() {
			continue
		}
		r.cache.SetDefault(strings.ToUpper(code), decimal.NewFromInt(1).DivRound(rate, 10))
		stored++
	}
	r.log.Info().Int("rates", stored).Str("date", body.Date).Msg("exchange rates refreshed")
	return nil
}
