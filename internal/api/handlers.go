package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/trogers1052/portfolio-service/internal/models"
	"github.com/trogers1052/portfolio-service/internal/portfolio"
)

const maxImportBytes = 5 << 20

// Portfolio is the service behind the handlers
type Portfolio interface {
	ListHoldings(ctx context.Context, accountID string) ([]*models.Holding, error)
	GetHolding(ctx context.Context, id string) (*models.Holding, error)
	AddHolding(ctx context.Context, h *models.Holding) (*models.Holding, error)
	UpdateHolding(ctx context.Context, h *models.Holding) (*models.Holding, error)
	DeleteHolding(ctx context.Context, id string) error
	Import(ctx context.Context, accountID, text string) (*portfolio.ImportResult, error)
	Performance(ctx context.Context, accountID string) (*models.PerformanceSummary, error)
	History(ctx context.Context, holdingID string, from, to time.Time) ([]*models.PerformanceSnapshot, error)
	RefreshTickers(ctx context.Context) (*portfolio.RefreshResult, error)
	SearchTickers(ctx context.Context, query string, limit int) []models.TickerRecord
	LookupTicker(symbol string) (models.TickerRecord, bool)
}

// Pinger reports backing store health
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	portfolio Portfolio
	db        Pinger
}

// NewHandler creates a new Handler. db may be nil.
func NewHandler(p Portfolio, db Pinger) *Handler {
	return &Handler{
		portfolio: p,
		db:        db,
	}
}

// ListHoldings handles GET /accounts/{account}/holdings
func (h *Handler) ListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.portfolio.ListHoldings(r.Context(), mux.Vars(r)["account"])
	if err != nil {
		respondError(w, r, err)
		return
	}
	if holdings == nil {
		holdings = []*models.Holding{}
	}

	respondJSON(w, http.StatusOK, holdings)
}

// GetHolding handles GET /holdings/{id}
func (h *Handler) GetHolding(w http.ResponseWriter, r *http.Request) {
	holding, err := h.portfolio.GetHolding(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, holding)
}

// AddHolding handles POST /accounts/{account}/holdings
func (h *Handler) AddHolding(w http.ResponseWriter, r *http.Request) {
	var holding models.Holding
	if err := json.NewDecoder(r.Body).Decode(&holding); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	holding.ID = ""
	holding.AccountID = mux.Vars(r)["account"]

	created, err := h.portfolio.AddHolding(r.Context(), &holding)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// UpdateHolding handles PUT /holdings/{id}
func (h *Handler) UpdateHolding(w http.ResponseWriter, r *http.Request) {
	var holding models.Holding
	if err := json.NewDecoder(r.Body).Decode(&holding); err != nil {
		respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	holding.ID = mux.Vars(r)["id"]

	updated, err := h.portfolio.UpdateHolding(r.Context(), &holding)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// DeleteHolding handles DELETE /holdings/{id}
func (h *Handler) DeleteHolding(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolio.DeleteHolding(r.Context(), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ImportHoldings handles POST /accounts/{account}/holdings/import. The body is
// either the raw delimited text or a JSON object {"text": "..."}.
func (h *Handler) ImportHoldings(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondMessage(w, http.StatusRequestEntityTooLarge, "import body too large")
		return
	}
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	text := string(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}
		text = req.Text
	}
	if strings.TrimSpace(text) == "" {
		respondMessage(w, http.StatusBadRequest, "import text is required")
		return
	}

	result, err := h.portfolio.Import(r.Context(), mux.Vars(r)["account"], text)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetPerformance handles GET /accounts/{account}/performance
func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	summary, err := h.portfolio.Performance(r.Context(), mux.Vars(r)["account"])
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// GetHistory handles GET /holdings/{id}/history?from=YYYY-MM-DD&to=YYYY-MM-DD.
// The range defaults to the last 30 days.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)

	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = time.Parse(time.DateOnly, v); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid from date")
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = time.Parse(time.DateOnly, v); err != nil {
			respondMessage(w, http.StatusBadRequest, "invalid to date")
			return
		}
	}
	if to.Before(from) {
		respondMessage(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	history, err := h.portfolio.History(r.Context(), mux.Vars(r)["id"], from, to)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if history == nil {
		history = []*models.PerformanceSnapshot{}
	}

	respondJSON(w, http.StatusOK, history)
}

// RefreshTickers handles POST /tickers/refresh
func (h *Handler) RefreshTickers(w http.ResponseWriter, r *http.Request) {
	result, err := h.portfolio.RefreshTickers(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// SearchTickers handles GET /tickers/search?q=...&limit=N
func (h *Handler) SearchTickers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		respondMessage(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results := h.portfolio.SearchTickers(r.Context(), query, limit)
	if results == nil {
		results = []models.TickerRecord{}
	}

	respondJSON(w, http.StatusOK, results)
}

// GetTicker handles GET /tickers/{symbol}
func (h *Handler) GetTicker(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.portfolio.LookupTicker(mux.Vars(r)["symbol"])
	if !ok {
		respondMessage(w, http.StatusNotFound, "ticker not found")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("health check failed")
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// respondError maps service errors to status codes
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		respondMessage(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, models.ErrNotFound):
		respondMessage(w, http.StatusNotFound, err.Error())
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		respondMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
