package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/models"
)

const (
	pricePath    = "$.chart.result[0].meta.regularMarketPrice"
	currencyPath = "$.chart.result[0].meta.currency"
	errorPath    = "$.chart.error.description"
)

// QuoteClient fetches the latest market price for a symbol
type QuoteClient struct {
	http *httpClient
}

// NewQuoteClient creates a quote client
func NewQuoteClient(opts Options) *QuoteClient {
	return &QuoteClient{http: newHTTPClient(opts)}
}

// Quote implements lookup.QuoteProvider
func (c *QuoteClient) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	u := strings.TrimRight(c.http.baseURL, "/") + "/v8/finance/chart/" + url.PathEscape(symbol) + "?interval=1d&range=1d"

	var doc any
	if err := c.http.getJSON(ctx, u, &doc); err != nil {
		return nil, err
	}

	if desc, err := first(errorPath, doc); err == nil {
		if s, ok := desc.(string); ok && s != "" {
			return nil, fmt.Errorf("chart API error: %s", s)
		}
	}

	raw, err := first(pricePath, doc)
	if err != nil {
		return nil, fmt.Errorf("no price data for %s: %w", symbol, err)
	}
	price, ok := raw.(float64)
	if !ok || price <= 0 {
		return nil, fmt.Errorf("no price data for %s", symbol)
	}

	cur := ""
	if v, err := first(currencyPath, doc); err == nil {
		cur, _ = v.(string)
	}

	return &models.Quote{
		Symbol:   symbol,
		Price:    decimal.NewFromFloat(price),
		Currency: strings.ToUpper(cur),
	}, nil
}
