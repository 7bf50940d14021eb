package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/importer"
	"github.com/trogers1052/portfolio-service/internal/models"
)

var (
	nameKeys     = []string{"company", "name"}
	tickerKeys   = []string{"ticker", "symbol"}
	currencyKeys = []string{"currency"}
	priceKeys    = []string{"price", "last"}
)

// ReferenceClient downloads the trusted bulk ticker list
type ReferenceClient struct {
	http     *httpClient
	rowsPath string
}

// NewReferenceClient creates a client for the reference list at opts.BaseURL.
// rowsPath is a JSONPath expression selecting the row array.
func NewReferenceClient(opts Options, rowsPath string) *ReferenceClient {
	if rowsPath == "" {
		rowsPath = "$"
	}
	return &ReferenceClient{http: newHTTPClient(opts), rowsPath: rowsPath}
}

// Fetch returns every row of the reference list. Rows without a ticker are dropped.
func (c *ReferenceClient) Fetch(ctx context.Context) ([]models.TickerRecord, error) {
	var doc any
	if err := c.http.getJSON(ctx, c.http.baseURL, &doc); err != nil {
		return nil, &models.LookupError{Provider: "reference", Err: err}
	}

	selected, err := jsonpath.Get(c.rowsPath, doc)
	if err != nil {
		return nil, &models.LookupError{Provider: "reference", Err: fmt.Errorf("failed to select rows %q: %w", c.rowsPath, err)}
	}
	rows, ok := selected.([]any)
	if !ok {
		return nil, &models.LookupError{Provider: "reference", Err: fmt.Errorf("rows at %q are not a list", c.rowsPath)}
	}

	records := make([]models.TickerRecord, 0, len(rows))
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		ticker := stringField(obj, tickerKeys)
		if ticker == "" {
			continue
		}
		records = append(records, models.TickerRecord{
			Symbol:   ticker,
			Name:     stringField(obj, nameKeys),
			Currency: strings.ToUpper(stringField(obj, currencyKeys)),
			Price:    priceField(obj, priceKeys),
			Source:   models.SourceReference,
		})
	}
	return records, nil
}

func stringField(obj map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func priceField(obj map[string]any, keys []string) decimal.NullDecimal {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case float64:
			if v > 0 {
				return decimal.NewNullDecimal(decimal.NewFromFloat(v))
			}
		case string:
			if d, ok := importer.ParseNumber(v); ok && d.IsPositive() {
				return decimal.NewNullDecimal(d)
			}
		}
	}
	return decimal.NullDecimal{}
}
