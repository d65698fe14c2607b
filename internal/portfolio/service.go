// Package portfolio implements the portfolio use cases: rollups for a date,
// uploaded dates, file upload, range delete and the default brokerage.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/aggregate"
	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/filter"
	"github.com/mtlprog/folio/internal/price"
	"github.com/mtlprog/folio/internal/remote"
	"github.com/mtlprog/folio/internal/resolver"
)

var (
	ErrInvalidRange      = errors.New("from date cannot be later than to date")
	ErrFutureDate        = errors.New("date cannot be in the future")
	ErrUnsupportedFile   = errors.New("unsupported file type, expected .csv, .xls or .xlsx")
	ErrBrokerageRequired = errors.New("please select a brokerage")
	ErrUnknownBrokerage  = errors.New("unknown brokerage")
	ErrDefaultAlreadySet = errors.New("default brokerage is already set")
	ErrDeclined          = errors.New("cancelled")
)

// Remote is the subset of the collaborator API used by Service.
type Remote interface {
	Portfolio(ctx context.Context, date domain.Date) ([]domain.Holding, error)
	PortfolioDates(ctx context.Context) ([]domain.Date, error)
	Brokerages(ctx context.Context) ([]domain.Brokerage, error)
	Sectors(ctx context.Context) ([]domain.Sector, error)
	UploadHoldings(ctx context.Context, u remote.Upload) (string, error)
	DeletePortfolioRange(ctx context.Context, rd remote.RangeDelete) (string, error)
	DefaultBrokerage(ctx context.Context) (*domain.Brokerage, error)
	SetDefaultBrokerage(ctx context.Context, brokerageID int) error
}

// Service orchestrates portfolio reads and writes over the remote API.
type Service struct {
	remote Remote
	prices price.Source
	today  func() domain.Date
}

// NewService creates a new portfolio Service. All dependencies are required.
func NewService(r Remote, prices price.Source) *Service {
	if r == nil {
		panic("portfolio.NewService: remote is nil")
	}
	if prices == nil {
		panic("portfolio.NewService: prices is nil")
	}
	return &Service{remote: r, prices: prices, today: domain.Today}
}

// Query selects and shapes one rollup.
type Query struct {
	Date    domain.Date
	Mode    aggregate.Mode
	Filters filter.Filters
	Sort    aggregate.SortField
	Desc    bool
}

// Report is a rollup of one date's holdings.
type Report struct {
	Date     domain.Date      `json:"date"`
	Holdings int              `json:"holdings"`
	Rollup   aggregate.Rollup `json:"rollup"`
}

// Rollup fetches the holdings for q.Date, filters them and aggregates by q.Mode.
// A zero date means the latest uploaded date, or today when nothing was uploaded.
func (s *Service) Rollup(ctx context.Context, q Query) (Report, error) {
	if q.Mode == "" {
		q.Mode = aggregate.ModeSector
	}
	if q.Date.IsZero() {
		latest, ok, err := s.LatestDate(ctx)
		if err != nil {
			return Report{}, err
		}
		q.Date = lo.Ternary(ok, latest, s.today())
	}

	holdings, err := s.Holdings(ctx, q.Date)
	if err != nil {
		return Report{}, err
	}
	holdings = filter.Apply(holdings, q.Filters, filter.HoldingKeys)

	table, err := s.prices.Table(ctx)
	if err != nil {
		slog.Warn("Portfolio: price source unavailable, market value will be zero", "error", err)
		table = price.Table{}
	}

	rollup := aggregate.Aggregate(holdings, q.Mode, table)
	if q.Sort != "" {
		rollup = rollup.Sorted(q.Sort, q.Desc)
	}

	return Report{Date: q.Date, Holdings: len(holdings), Rollup: rollup}, nil
}

// Holdings fetches the holdings for date, filling embedded brokerages and sectors
// that the API left out. Rows that break the non-negativity invariants are kept and logged.
func (s *Service) Holdings(ctx context.Context, date domain.Date) ([]domain.Holding, error) {
	holdings, err := s.remote.Portfolio(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("fetching holdings for %s: %w", date, err)
	}

	for _, h := range holdings {
		if err := h.Validate(); err != nil {
			slog.Warn("Portfolio: invalid holding", "date", date, "error", err)
		}
	}

	if !needsEnrichment(holdings) {
		return holdings, nil
	}
	brokerages, err := s.remote.Brokerages(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching brokerages: %w", err)
	}
	sectors, err := s.remote.Sectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching sectors: %w", err)
	}
	return resolver.Enrich(holdings, brokerages, sectors), nil
}

func needsEnrichment(holdings []domain.Holding) bool {
	return lo.SomeBy(holdings, func(h domain.Holding) bool {
		missingBrokerage := h.Brokerage == nil && h.BrokerageID != 0
		missingSector := h.StockMaster != nil && h.StockMaster.Sector == nil && h.StockMaster.SectorID != 0
		return missingBrokerage || missingSector
	})
}

// Dates returns the dates with uploaded holdings, ascending and de-duplicated.
func (s *Service) Dates(ctx context.Context) ([]domain.Date, error) {
	dates, err := s.remote.PortfolioDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing portfolio dates: %w", err)
	}
	slices.SortFunc(dates, func(a, b domain.Date) int { return a.Time().Compare(b.Time()) })
	return slices.CompactFunc(dates, func(a, b domain.Date) bool { return a == b }), nil
}

// LatestDate returns the most recent uploaded date, false when nothing was uploaded.
func (s *Service) LatestDate(ctx context.Context) (domain.Date, bool, error) {
	dates, err := s.Dates(ctx)
	if err != nil {
		return domain.Date{}, false, err
	}
	if len(dates) == 0 {
		return domain.Date{}, false, nil
	}
	return dates[len(dates)-1], true, nil
}

func (s *Service) brokerage(ctx context.Context, id int) (domain.Brokerage, error) {
	brokerages, err := s.remote.Brokerages(ctx)
	if err != nil {
		return domain.Brokerage{}, fmt.Errorf("fetching brokerages: %w", err)
	}
	b, ok := lo.Find(brokerages, func(b domain.Brokerage) bool { return b.ID == id })
	if !ok {
		return domain.Brokerage{}, fmt.Errorf("brokerage %d: %w", id, ErrUnknownBrokerage)
	}
	return b, nil
}
