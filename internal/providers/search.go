package providers

import (
	"context"
	"net/url"
	"strings"

	"github.com/trogers1052/portfolio-service/internal/models"
)

type yahooSearchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		Exchange  string `json:"exchange"`
		Shortname string `json:"shortname"`
		Longname  string `json:"longname"`
		QuoteType string `json:"quoteType"`
		Currency  string `json:"currency"`
	} `json:"quotes"`
}

// SearchClient resolves free text to candidate tickers
type SearchClient struct {
	http  *httpClient
	limit int
}

// NewSearchClient creates a search client returning at most limit candidates
func NewSearchClient(opts Options, limit int) *SearchClient {
	if limit <= 0 {
		limit = 10
	}
	return &SearchClient{http: newHTTPClient(opts), limit: limit}
}

// Search returns candidates for query
func (c *SearchClient) Search(ctx context.Context, query string) ([]models.TickerRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	u := strings.TrimRight(c.http.baseURL, "/") + "/v1/finance/search?" + url.Values{
		"q":           {query},
		"quotesCount": {"10"},
		"newsCount":   {"0"},
		"lang":        {"en-US"},
	}.Encode()

	var body yahooSearchResponse
	if err := c.http.getJSON(ctx, u, &body); err != nil {
		return nil, &models.LookupError{Provider: "search", Symbol: query, Err: err}
	}

	var out []models.TickerRecord
	for _, q := range body.Quotes {
		if q.Symbol == "" {
			continue
		}
		name := q.Shortname
		if name == "" {
			name = q.Longname
		}
		out = append(out, models.TickerRecord{
			Symbol:   q.Symbol,
			Name:     name,
			Currency: strings.ToUpper(q.Currency),
			Source:   models.SourceSearch,
		})
		if len(out) == c.limit {
			break
		}
	}
	return out, nil
}
