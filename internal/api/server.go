// Package api serves portfolio rollups as a local read-only JSON API.
package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// NewServer creates an HTTP server with all routes configured. The price
// endpoint is registered only when quotes is non-nil.
func NewServer(port string, p Portfolio, quotes QuoteStore, adminAPIKey string) *http.Server {
	handler := NewHandler(p, quotes)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/portfolio/latest", handler.GetLatestPortfolio)
	mux.HandleFunc("GET /api/v1/portfolio/dates", handler.ListDates)
	mux.HandleFunc("GET /api/v1/portfolio/{date}", handler.GetPortfolioByDate)
	mux.HandleFunc("GET /api/v1/portfolio/{date}/xlsx", handler.GetPortfolioXLSX)

	if quotes != nil {
		saveHandler := http.HandlerFunc(handler.SaveQuote)
		if adminAPIKey != "" {
			mux.Handle("POST /api/v1/prices", requireAuth(adminAPIKey, saveHandler))
		} else {
			slog.Warn("ADMIN_API_KEY not set, price endpoint is unprotected")
			mux.Handle("POST /api/v1/prices", saveHandler)
		}
	}

	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
