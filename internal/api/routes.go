package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, log zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(log))

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Account routes
	api.HandleFunc("/accounts/{account}/holdings", handler.ListHoldings).Methods("GET")
	api.HandleFunc("/accounts/{account}/holdings", handler.AddHolding).Methods("POST")
	api.HandleFunc("/accounts/{account}/holdings/import", handler.ImportHoldings).Methods("POST")
	api.HandleFunc("/accounts/{account}/performance", handler.GetPerformance).Methods("GET")

	// Holding routes
	api.HandleFunc("/holdings/{id}", handler.GetHolding).Methods("GET")
	api.HandleFunc("/holdings/{id}", handler.UpdateHolding).Methods("PUT")
	api.HandleFunc("/holdings/{id}", handler.DeleteHolding).Methods("DELETE")
	api.HandleFunc("/holdings/{id}/history", handler.GetHistory).Methods("GET")

	// Ticker routes
	api.HandleFunc("/tickers/refresh", handler.RefreshTickers).Methods("POST")
	api.HandleFunc("/tickers/search", handler.SearchTickers).Methods("GET")
	api.HandleFunc("/tickers/{symbol}", handler.GetTicker).Methods("GET")

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger attaches a request scoped logger to the context and logs each
// completed request
func requestLogger(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := log.With().
				Str("request_id", uuid.NewString()).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Logger()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(reqLog.WithContext(r.Context())))

			reqLog.Info().
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("request handled")
		})
	}
}
