package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/aggregate"
	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/export"
	"github.com/mtlprog/folio/internal/filter"
	"github.com/mtlprog/folio/internal/portfolio"
	"github.com/mtlprog/folio/internal/price"
	"github.com/mtlprog/folio/internal/remote"
)

// Portfolio serves rollups and uploaded dates.
type Portfolio interface {
	Rollup(ctx context.Context, q portfolio.Query) (portfolio.Report, error)
	Dates(ctx context.Context) ([]domain.Date, error)
}

// QuoteStore accepts manually entered prices.
type QuoteStore interface {
	SaveQuote(ctx context.Context, code string, p decimal.Decimal) error
}

// Handler provides HTTP endpoints for the local portfolio API.
type Handler struct {
	portfolio Portfolio
	quotes    QuoteStore
}

// NewHandler creates a new API handler. quotes may be nil when no database is configured.
func NewHandler(p Portfolio, quotes QuoteStore) *Handler {
	return &Handler{portfolio: p, quotes: quotes}
}

// GetLatestPortfolio handles GET /api/v1/portfolio/latest.
func (h *Handler) GetLatestPortfolio(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.serveRollup(w, r, q)
}

// GetPortfolioByDate handles GET /api/v1/portfolio/{date}.
func (h *Handler) GetPortfolioByDate(w http.ResponseWriter, r *http.Request) {
	q, ok := h.dateQuery(w, r)
	if !ok {
		return
	}
	h.serveRollup(w, r, q)
}

// GetPortfolioXLSX handles GET /api/v1/portfolio/{date}/xlsx.
func (h *Handler) GetPortfolioXLSX(w http.ResponseWriter, r *http.Request) {
	q, ok := h.dateQuery(w, r)
	if !ok {
		return
	}
	report, ok := h.rollup(w, r, q)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="portfolio-`+report.Date.String()+`.xlsx"`)
	if err := export.WriteXLSX(w, export.BuildSheets([]portfolio.Report{report})); err != nil {
		slog.Error("failed to write workbook", "date", report.Date, "error", err)
	}
}

// ListDates handles GET /api/v1/portfolio/dates.
func (h *Handler) ListDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.portfolio.Dates(r.Context())
	if err != nil {
		writeUpstreamError(w, "failed to list portfolio dates", err)
		return
	}
	if dates == nil {
		dates = []domain.Date{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

type quoteRequest struct {
	Code  string          `json:"code"`
	Price decimal.Decimal `json:"price"`
}

// SaveQuote handles POST /api/v1/prices.
func (h *Handler) SaveQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.quotes.SaveQuote(r.Context(), req.Code, req.Price); err != nil {
		if errors.Is(err, price.ErrInvalidQuote) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("failed to save quote", "code", req.Code, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": price.NormalizeCode(req.Code), "price": req.Price})
}

func (h *Handler) dateQuery(w http.ResponseWriter, r *http.Request) (portfolio.Query, bool) {
	date, err := domain.ParseDate(r.PathValue("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return portfolio.Query{}, false
	}
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return portfolio.Query{}, false
	}
	q.Date = date
	return q, true
}

func (h *Handler) serveRollup(w http.ResponseWriter, r *http.Request, q portfolio.Query) {
	if report, ok := h.rollup(w, r, q); ok {
		writeJSON(w, http.StatusOK, report)
	}
}

func (h *Handler) rollup(w http.ResponseWriter, r *http.Request, q portfolio.Query) (portfolio.Report, bool) {
	report, err := h.portfolio.Rollup(r.Context(), q)
	if err != nil {
		writeUpstreamError(w, "failed to build rollup", err)
		return portfolio.Report{}, false
	}
	return report, true
}

// parseQuery reads mode, sector, brokerage, code, sort and desc.
func parseQuery(v url.Values) (portfolio.Query, error) {
	var q portfolio.Query
	var err error

	if s := v.Get("mode"); s != "" {
		if q.Mode, err = aggregate.ParseMode(s); err != nil {
			return q, err
		}
	}
	if q.Filters.SectorIDs, err = filter.ParseIDs(v.Get("sector")); err != nil {
		return q, err
	}
	if q.Filters.BrokerageIDs, err = filter.ParseIDs(v.Get("brokerage")); err != nil {
		return q, err
	}
	q.Filters.Code = strings.TrimSpace(v.Get("code"))

	if s := v.Get("sort"); s != "" {
		if q.Sort, err = aggregate.ParseSortField(s); err != nil {
			return q, err
		}
	}
	if s := v.Get("desc"); s != "" {
		if q.Desc, err = strconv.ParseBool(s); err != nil {
			return q, errors.New("invalid desc value, expected true or false")
		}
	}
	return q, nil
}

func writeUpstreamError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		writeError(w, http.StatusBadGateway, apiErr.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
