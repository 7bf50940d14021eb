package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/portfolio"
)

type MockPortfolio struct {
	mock.Mock
}

func (m *MockPortfolio) ListHoldings(ctx context.Context, accountID string) ([]*models.Holding, error) {
	args := m.Called(ctx, accountID)
	h, _ := args.Get(0).([]*models.Holding)
	return h, args.Error(1)
}

func (m *MockPortfolio) GetHolding(ctx context.Context, id string) (*models.Holding, error) {
	args := m.Called(ctx, id)
	h, _ := args.Get(0).(*models.Holding)
	return h, args.Error(1)
}

func (m *MockPortfolio) AddHolding(ctx context.Context, h *models.Holding) (*models.Holding, error) {
	args := m.Called(ctx, h)
	out, _ := args.Get(0).(*models.Holding)
	return out, args.Error(1)
}

func (m *MockPortfolio) UpdateHolding(ctx context.Context, h *models.Holding) (*models.Holding, error) {
	args := m.Called(ctx, h)
	out, _ := args.Get(0).(*models.Holding)
	return out, args.Error(1)
}

func (m *MockPortfolio) DeleteHolding(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPortfolio) Import(ctx context.Context, accountID, text string) (*portfolio.ImportResult, error) {
	args := m.Called(ctx, accountID, text)
	out, _ := args.Get(0).(*portfolio.ImportResult)
	return out, args.Error(1)
}

func (m *MockPortfolio) Performance(ctx context.Context, accountID string) (*models.PerformanceSummary, error) {
	args := m.Called(ctx, accountID)
	out, _ := args.Get(0).(*models.PerformanceSummary)
	return out, args.Error(1)
}

func (m *MockPortfolio) History(ctx context.Context, holdingID string, from, to time.Time) ([]*models.PerformanceSnapshot, error) {
	args := m.Called(ctx, holdingID, from, to)
	out, _ := args.Get(0).([]*models.PerformanceSnapshot)
	return out, args.Error(1)
}

func (m *MockPortfolio) RefreshTickers(ctx context.Context) (*portfolio.RefreshResult, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).(*portfolio.RefreshResult)
	return out, args.Error(1)
}

func (m *MockPortfolio) SearchTickers(ctx context.Context, query string, limit int) []models.TickerRecord {
	args := m.Called(ctx, query, limit)
	out, _ := args.Get(0).([]models.TickerRecord)
	return out
}

func (m *MockPortfolio) LookupTicker(symbol string) (models.TickerRecord, bool) {
	args := m.Called(symbol)
	return args.Get(0).(models.TickerRecord), args.Bool(1)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(t *testing.T, p Portfolio, db Pinger, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := SetupRoutes(NewHandler(p, db), zerolog.Nop())

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body["error"]
}

func TestHealthCheck(t *testing.T) {
	rr := serve(t, new(MockPortfolio), pingFunc(func(context.Context) error { return nil }), "GET", "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, new(MockPortfolio), pingFunc(func(context.Context) error { return errors.New("down") }), "GET", "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestListHoldings(t *testing.T) {
	p := new(MockPortfolio)
	p.On("ListHoldings", mock.Anything, "acc-1").Return([]*models.Holding{
		{ID: "h-1", AccountID: "acc-1", Symbol: "AAPL", Quantity: decimal.NewFromInt(10)},
	}, nil)

	rr := serve(t, p, nil, "GET", "/api/v1/accounts/acc-1/holdings", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var got []models.Holding
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "AAPL", got[0].Symbol)
}

func TestListHoldings_EmptyIsArray(t *testing.T) {
	p := new(MockPortfolio)
	p.On("ListHoldings", mock.Anything, "acc-1").Return(nil, nil)

	rr := serve(t, p, nil, "GET", "/api/v1/accounts/acc-1/holdings", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestAddHolding(t *testing.T) {
	p := new(MockPortfolio)
	p.On("AddHolding", mock.Anything, mock.MatchedBy(func(h *models.Holding) bool {
		return h.AccountID == "acc-1" && h.ID == "" && h.Symbol == "VOLV-B"
	})).Return(&models.Holding{ID: "h-1", AccountID: "acc-1", Symbol: "VOLV-B"}, nil)

	rr := serve(t, p, nil, "POST", "/api/v1/accounts/acc-1/holdings", "application/json",
		`{"id":"ignored","symbol":"VOLV-B","quantity":"10","purchase_price":"200"}`)

	assert.Equal(t, http.StatusCreated, rr.Code)
	p.AssertExpectations(t)
}

func TestAddHolding_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"invalid json", `{`, nil, http.StatusBadRequest},
		{"validation", `{}`, &models.ValidationError{Field: "quantity", Reason: "must be greater than zero"}, http.StatusBadRequest},
		{"store failure", `{}`, errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := new(MockPortfolio)
			p.On("AddHolding", mock.Anything, mock.Anything).Return(nil, tt.err)

			rr := serve(t, p, nil, "POST", "/api/v1/accounts/acc-1/holdings", "application/json", tt.body)

			assert.Equal(t, tt.status, rr.Code)
			assert.NotEmpty(t, decodeError(t, rr))
			assert.NotContains(t, rr.Body.String(), "connection reset")
		})
	}
}

func TestGetHolding_NotFound(t *testing.T) {
	p := new(MockPortfolio)
	p.On("GetHolding", mock.Anything, "nope").Return(nil, fmt.Errorf("holding not found: nope: %w", models.ErrNotFound))

	rr := serve(t, p, nil, "GET", "/api/v1/holdings/nope", "", "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateHolding_UsesPathID(t *testing.T) {
	p := new(MockPortfolio)
	p.On("UpdateHolding", mock.Anything, mock.MatchedBy(func(h *models.Holding) bool {
		return h.ID == "h-7" && h.Name == "Investor B"
	})).Return(&models.Holding{ID: "h-7", Name: "Investor B"}, nil)

	rr := serve(t, p, nil, "PUT", "/api/v1/holdings/h-7", "application/json", `{"id":"other","name":"Investor B"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	p.AssertExpectations(t)
}

func TestDeleteHolding(t *testing.T) {
	p := new(MockPortfolio)
	p.On("DeleteHolding", mock.Anything, "h-1").Return(nil)

	rr := serve(t, p, nil, "DELETE", "/api/v1/holdings/h-1", "", "")

	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestImportHoldings(t *testing.T) {
	result := &portfolio.ImportResult{
		Accepted: []*models.Holding{{Symbol: "AAPL"}},
		Skipped:  []*models.ParseError{{Line: 2, Reason: "missing quantity"}},
		Rows:     2,
	}

	t.Run("plain text", func(t *testing.T) {
		p := new(MockPortfolio)
		p.On("Import", mock.Anything, "acc-1", "AAPL;10;150,50\nBAD;;1").Return(result, nil)

		rr := serve(t, p, nil, "POST", "/api/v1/accounts/acc-1/holdings/import", "text/plain", "AAPL;10;150,50\nBAD;;1")

		require.Equal(t, http.StatusOK, rr.Code)
		var got portfolio.ImportResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Len(t, got.Accepted, 1)
		assert.Equal(t, "missing quantity", got.Skipped[0].Reason)
	})

	t.Run("json", func(t *testing.T) {
		p := new(MockPortfolio)
		p.On("Import", mock.Anything, "acc-1", "AAPL;10;150").Return(result, nil)

		rr := serve(t, p, nil, "POST", "/api/v1/accounts/acc-1/holdings/import", "application/json", `{"text":"AAPL;10;150"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		p.AssertExpectations(t)
	})

	t.Run("empty", func(t *testing.T) {
		rr := serve(t, new(MockPortfolio), nil, "POST", "/api/v1/accounts/acc-1/holdings/import", "text/plain", "  ")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("too large", func(t *testing.T) {
		p := new(MockPortfolio)
		body := strings.Repeat("AAPL;10;150\n", maxImportBytes/12+1)

		rr := serve(t, p, nil, "POST", "/api/v1/accounts/acc-1/holdings/import", "text/plain", body)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
		assert.Equal(t, "import body too large", decodeError(t, rr))
		p.AssertNotCalled(t, "Import", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGetPerformance(t *testing.T) {
	p := new(MockPortfolio)
	p.On("Performance", mock.Anything, "acc-1").Return(&models.PerformanceSummary{
		AccountID:  "acc-1",
		Currency:   "SEK",
		TotalValue: decimal.NewFromInt(2000),
		Warnings:   []string{"failed to save performance snapshots: timeout"},
	}, nil)

	rr := serve(t, p, nil, "GET", "/api/v1/accounts/acc-1/performance", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var got models.PerformanceSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.TotalValue.Equal(decimal.NewFromInt(2000)))
	assert.Len(t, got.Warnings, 1)
}

func TestGetHistory(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	p := new(MockPortfolio)
	p.On("History", mock.Anything, "h-1", from, to).Return([]*models.PerformanceSnapshot{
		{HoldingID: "h-1", Date: from, TotalValue: decimal.NewFromInt(100), Currency: "SEK"},
	}, nil)

	rr := serve(t, p, nil, "GET", "/api/v1/holdings/h-1/history?from=2024-03-01&to=2024-03-31", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var got []models.PerformanceSnapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Len(t, got, 1)
}

func TestGetHistory_BadRange(t *testing.T) {
	for _, q := range []string{"from=yesterday", "to=2024-13-01", "from=2024-03-02&to=2024-03-01"} {
		t.Run(q, func(t *testing.T) {
			rr := serve(t, new(MockPortfolio), nil, "GET", "/api/v1/holdings/h-1/history?"+q, "", "")
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestTickers(t *testing.T) {
	p := new(MockPortfolio)
	p.On("RefreshTickers", mock.Anything).Return(&portfolio.RefreshResult{Tickers: 3, Reference: 2}, nil)
	p.On("SearchTickers", mock.Anything, "volvo", 5).Return([]models.TickerRecord{{Symbol: "VOLV-B.ST", Name: "Volvo B"}})
	p.On("LookupTicker", "VOLV-B").Return(models.TickerRecord{Symbol: "VOLV-B.ST"}, true)
	p.On("LookupTicker", "NOPE").Return(models.TickerRecord{}, false)

	rr := serve(t, p, nil, "POST", "/api/v1/tickers/refresh", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, p, nil, "GET", "/api/v1/tickers/search?q=volvo&limit=5", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "VOLV-B.ST")

	rr = serve(t, p, nil, "GET", "/api/v1/tickers/search", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(t, p, nil, "GET", "/api/v1/tickers/VOLV-B", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, p, nil, "GET", "/api/v1/tickers/NOPE", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
