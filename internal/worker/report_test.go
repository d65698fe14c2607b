package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/folio/internal/domain"
)

type mockDates struct {
	date domain.Date
	ok   bool
	err  error
}

func (m *mockDates) LatestDate(context.Context) (domain.Date, bool, error) {
	return m.date, m.ok, m.err
}

type mockExporter struct {
	callCount atomic.Int32
	last      atomic.Value
	err       error
}

func (m *mockExporter) Export(_ context.Context, date domain.Date) error {
	m.callCount.Add(1)
	m.last.Store(date)
	return m.err
}

func TestReportWorkerRunsAndShutdown(t *testing.T) {
	exp := &mockExporter{}
	w := NewReportWorker(&mockDates{date: domain.NewDate(2024, 3, 1), ok: true}, exp, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := exp.callCount.Load(); got < 1 {
		t.Errorf("call count = %d, want >= 1", got)
	}
	if got := exp.last.Load().(domain.Date); got.String() != "2024-03-01" {
		t.Errorf("exported date = %s, want 2024-03-01", got)
	}
}

func TestReportWorkerSkipsWithoutUploads(t *testing.T) {
	exp := &mockExporter{}
	w := NewReportWorker(&mockDates{}, exp, time.Hour)

	if _, err := w.runOnce(context.Background()); !errors.Is(err, errNoPortfolio) {
		t.Errorf("err = %v, want errNoPortfolio", err)
	}
	if exp.callCount.Load() != 0 {
		t.Error("exporter called without an uploaded portfolio")
	}
}

func TestReportWorkerPropagatesErrors(t *testing.T) {
	tests := []struct {
		name  string
		dates *mockDates
		exp   *mockExporter
	}{
		{"date lookup", &mockDates{err: errors.New("HTTP 503")}, &mockExporter{}},
		{"export", &mockDates{date: domain.NewDate(2024, 3, 1), ok: true}, &mockExporter{err: errors.New("quota exceeded")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewReportWorker(tt.dates, tt.exp, time.Hour)
			if _, err := w.runOnce(context.Background()); err == nil || errors.Is(err, errNoPortfolio) {
				t.Errorf("err = %v, want failure", err)
			}
		})
	}
}

func TestNewReportWorkerRejectsNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for zero interval")
		}
	}()
	NewReportWorker(&mockDates{}, &mockExporter{}, 0)
}
