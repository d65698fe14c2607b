// Package worker runs periodic background jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/folio/internal/domain"
)

// errNoPortfolio is logged, not fatal: nothing has been uploaded yet.
var errNoPortfolio = errors.New("no uploaded portfolio")

// DateSource reports the most recent date with uploaded holdings.
type DateSource interface {
	LatestDate(ctx context.Context) (domain.Date, bool, error)
}

// Exporter writes the rollups for one date.
type Exporter interface {
	Export(ctx context.Context, date domain.Date) error
}

// ReportWorker periodically exports the latest portfolio rollup.
type ReportWorker struct {
	dates    DateSource
	exporter Exporter
	interval time.Duration
}

// NewReportWorker creates a new ReportWorker.
func NewReportWorker(dates DateSource, exporter Exporter, interval time.Duration) *ReportWorker {
	if dates == nil {
		panic("worker.NewReportWorker: dates is nil")
	}
	if exporter == nil {
		panic("worker.NewReportWorker: exporter is nil")
	}
	if interval <= 0 {
		panic("worker.NewReportWorker: interval must be positive")
	}
	return &ReportWorker{
		dates:    dates,
		exporter: exporter,
		interval: interval,
	}
}

func (w *ReportWorker) runOnce(ctx context.Context) (domain.Date, error) {
	date, ok, err := w.dates.LatestDate(ctx)
	if err != nil {
		return domain.Date{}, fmt.Errorf("finding latest date: %w", err)
	}
	if !ok {
		return domain.Date{}, errNoPortfolio
	}
	if err := w.exporter.Export(ctx, date); err != nil {
		return date, fmt.Errorf("exporting %s: %w", date, err)
	}
	return date, nil
}

func (w *ReportWorker) tick(ctx context.Context, initial bool) {
	phase := "export"
	if initial {
		phase = "initial export"
	}

	date, err := w.runOnce(ctx)
	switch {
	case errors.Is(err, errNoPortfolio):
		slog.Info("ReportWorker: nothing to export yet")
	case err != nil:
		slog.Error("ReportWorker: "+phase+" failed", "error", err)
	default:
		slog.Info("ReportWorker: "+phase+" completed", "date", date)
	}
}

// Run starts the report worker loop. It blocks until the context is cancelled.
func (w *ReportWorker) Run(ctx context.Context) {
	slog.Info("ReportWorker: starting", "interval", w.interval)

	// Export immediately on startup
	w.tick(ctx, true)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ReportWorker: shutting down")
			return
		case <-ticker.C:
			w.tick(ctx, false)
		}
	}
}
