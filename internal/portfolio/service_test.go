package portfolio

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/aggregate"
	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/filter"
	"github.com/mtlprog/folio/internal/price"
	"github.com/mtlprog/folio/internal/remote"
	"github.com/mtlprog/folio/internal/session"
)

type mockRemote struct {
	holdings   []domain.Holding
	dates      []domain.Date
	brokerages []domain.Brokerage
	sectors    []domain.Sector
	def        *domain.Brokerage
	err        error

	uploads     []remote.Upload
	uploadBody  string
	deletes     []remote.RangeDelete
	setDefaults []int
	listCalls   int
	fetched     []domain.Date
}

func (m *mockRemote) Portfolio(_ context.Context, date domain.Date) ([]domain.Holding, error) {
	m.fetched = append(m.fetched, date)
	return m.holdings, m.err
}

func (m *mockRemote) PortfolioDates(context.Context) ([]domain.Date, error) {
	return m.dates, m.err
}

func (m *mockRemote) Brokerages(context.Context) ([]domain.Brokerage, error) {
	m.listCalls++
	return m.brokerages, nil
}

func (m *mockRemote) Sectors(context.Context) ([]domain.Sector, error) {
	m.listCalls++
	return m.sectors, nil
}

func (m *mockRemote) UploadHoldings(_ context.Context, u remote.Upload) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	b, _ := io.ReadAll(u.Content)
	m.uploadBody = string(b)
	m.uploads = append(m.uploads, u)
	return "", nil
}

func (m *mockRemote) DeletePortfolioRange(_ context.Context, rd remote.RangeDelete) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.deletes = append(m.deletes, rd)
	return "Deleted 4 holdings.", nil
}

func (m *mockRemote) DefaultBrokerage(context.Context) (*domain.Brokerage, error) {
	return m.def, nil
}

func (m *mockRemote) SetDefaultBrokerage(_ context.Context, id int) error {
	if m.err != nil {
		return m.err
	}
	m.setDefaults = append(m.setDefaults, id)
	b, _ := m.find(id)
	m.def = &b
	return nil
}

func (m *mockRemote) find(id int) (domain.Brokerage, bool) {
	for _, b := range m.brokerages {
		if b.ID == id {
			return b, true
		}
	}
	return domain.Brokerage{}, false
}

type failingSource struct{}

func (failingSource) Table(context.Context) (price.Table, error) {
	return nil, errors.New("database down")
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func relianceRemote() *mockRemote {
	energy := &domain.Sector{ID: 1, Name: "Energy"}
	reliance := &domain.StockMaster{ID: 100, Code: "RELIANCE", SectorID: 1, Sector: energy}
	return &mockRemote{
		holdings: []domain.Holding{
			{ID: 1, MappingID: 11, Quantity: 7, AverageCost: dec("3139.85"), BrokerageID: 10, BrokerageCode: "RELIANCE-EQ", Brokerage: &domain.Brokerage{ID: 10, Name: "Zerodha"}, StockMaster: reliance},
			{ID: 2, MappingID: 21, Quantity: 10, AverageCost: dec("3100.85"), BrokerageID: 20, BrokerageCode: "RELIND", Brokerage: &domain.Brokerage{ID: 20, Name: "Sharekhan"}, StockMaster: reliance},
		},
		brokerages: []domain.Brokerage{{ID: 10, Name: "Zerodha"}, {ID: 20, Name: "Sharekhan"}},
		sectors:    []domain.Sector{*energy},
	}
}

func newTestService(r *mockRemote, src price.Source) *Service {
	svc := NewService(r, src)
	svc.today = func() domain.Date { return domain.NewDate(2024, 3, 15) }
	return svc
}

func TestRollupSectorScenario(t *testing.T) {
	svc := newTestService(relianceRemote(), price.NewStatic(map[string]decimal.Decimal{"RELIANCE": dec("3500")}))

	report, err := svc.Rollup(context.Background(), Query{Date: domain.NewDate(2024, 3, 1), Mode: aggregate.ModeSector})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Holdings != 2 {
		t.Errorf("Holdings = %d, want 2", report.Holdings)
	}
	g, ok := report.Rollup.Group("Energy")
	if !ok {
		t.Fatalf("no Energy group, keys = %v", report.Rollup.Keys())
	}
	if !g.TotalInvested.Equal(dec("52987.45")) {
		t.Errorf("TotalInvested = %s, want 52987.45", g.TotalInvested)
	}
	if len(g.Stocks) != 1 || g.Stocks[0].Qty != 17 {
		t.Fatalf("rows = %+v, want one row with qty 17", g.Stocks)
	}
	if got := g.Stocks[0].AvgCost.StringFixed(2); got != "3116.91" {
		t.Errorf("AvgCost = %s, want 3116.91", got)
	}
	if !g.Stocks[0].TotalValue.Equal(dec("59500")) {
		t.Errorf("TotalValue = %s, want 59500", g.Stocks[0].TotalValue)
	}
}

func TestRollupStockScenarioWithFilter(t *testing.T) {
	svc := newTestService(relianceRemote(), price.Static{})

	report, err := svc.Rollup(context.Background(), Query{Mode: aggregate.ModeStock})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, _ := report.Rollup.Group("RELIANCE")
	if len(g.Stocks) != 2 {
		t.Errorf("rows = %d, want 2", len(g.Stocks))
	}

	report, err = svc.Rollup(context.Background(), Query{
		Mode:    aggregate.ModeStock,
		Filters: filter.Filters{BrokerageIDs: []int{20}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, _ = report.Rollup.Group("RELIANCE")
	if len(g.Stocks) != 1 || g.Stocks[0].BrokerageName != "Sharekhan" {
		t.Errorf("filtered rows = %+v", g.Stocks)
	}
}

func TestRollupSorted(t *testing.T) {
	svc := newTestService(relianceRemote(), price.Static{})

	report, err := svc.Rollup(context.Background(), Query{Mode: aggregate.ModeStock, Sort: aggregate.SortByQty, Desc: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rows := report.Rollup.Groups[0].Stocks
	if rows[0].Qty != 10 || rows[1].Qty != 7 {
		t.Errorf("qty order = %d, %d, want 10, 7", rows[0].Qty, rows[1].Qty)
	}
}

func TestRollupDateDefaults(t *testing.T) {
	r := relianceRemote()
	svc := newTestService(r, price.Static{})

	report, err := svc.Rollup(context.Background(), Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Date.String() != "2024-03-15" {
		t.Errorf("no uploads: date = %s, want today 2024-03-15", report.Date)
	}
	if report.Rollup.Mode != aggregate.ModeSector {
		t.Errorf("mode = %s, want Sector", report.Rollup.Mode)
	}

	r.dates = []domain.Date{domain.NewDate(2024, 2, 29), domain.NewDate(2024, 1, 31)}
	report, err = svc.Rollup(context.Background(), Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Date.String() != "2024-02-29" || r.fetched[len(r.fetched)-1].String() != "2024-02-29" {
		t.Errorf("date = %s, fetched %v, want latest 2024-02-29", report.Date, r.fetched)
	}
}

func TestRollupPriceSourceFailureIsNotFatal(t *testing.T) {
	svc := newTestService(relianceRemote(), failingSource{})

	report, err := svc.Rollup(context.Background(), Query{Mode: aggregate.ModeSector})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Rollup.TotalInvested.Equal(dec("52987.45")) {
		t.Errorf("TotalInvested = %s", report.Rollup.TotalInvested)
	}
}

func TestRollupRemoteError(t *testing.T) {
	r := relianceRemote()
	r.err = errors.New("HTTP 502")
	svc := newTestService(r, price.Static{})

	if _, err := svc.Rollup(context.Background(), Query{}); err == nil {
		t.Error("expected error")
	}
}

func TestHoldingsEnrichment(t *testing.T) {
	r := relianceRemote()
	if _, err := newTestService(r, price.Static{}).Holdings(context.Background(), domain.Date{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.listCalls != 0 {
		t.Errorf("complete holdings triggered %d lookups", r.listCalls)
	}

	r.holdings = []domain.Holding{{ID: 1, Quantity: 1, BrokerageID: 10, StockMaster: &domain.StockMaster{ID: 100, Code: "RELIANCE", SectorID: 1}}}
	got, err := newTestService(r, price.Static{}).Holdings(context.Background(), domain.Date{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Brokerage == nil || got[0].Brokerage.Name != "Zerodha" || got[0].StockMaster.SectorName() != "Energy" {
		t.Errorf("holding not enriched: %+v", got[0])
	}
}

func TestDatesSortedUnique(t *testing.T) {
	r := &mockRemote{dates: []domain.Date{
		domain.NewDate(2024, 2, 29), domain.NewDate(2024, 1, 31), domain.NewDate(2024, 2, 29),
	}}
	svc := newTestService(r, price.Static{})

	dates, err := svc.Dates(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := make([]string, len(dates))
	for i, d := range dates {
		got[i] = d.String()
	}
	if diff := cmp.Diff([]string{"2024-01-31", "2024-02-29"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	latest, ok, err := svc.LatestDate(context.Background())
	if err != nil || !ok || latest.String() != "2024-02-29" {
		t.Errorf("LatestDate = %s, %v, %v", latest, ok, err)
	}
}

func TestUploadValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     UploadRequest
		def     *domain.Brokerage
		wantErr error
	}{
		{"unsupported extension", UploadRequest{Filename: "holdings.pdf", BrokerageID: 10}, nil, ErrUnsupportedFile},
		{"future date", UploadRequest{Filename: "h.csv", BrokerageID: 10, Date: domain.NewDate(2024, 3, 16)}, nil, ErrFutureDate},
		{"no brokerage and no default", UploadRequest{Filename: "h.csv"}, nil, ErrBrokerageRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &mockRemote{def: tt.def}
			svc := newTestService(r, price.Static{})
			tt.req.Content = strings.NewReader("x")

			_, err := svc.Upload(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if len(r.uploads) != 0 {
				t.Error("invalid upload reached the API")
			}
		})
	}
}

func TestUploadDefaults(t *testing.T) {
	r := &mockRemote{def: &domain.Brokerage{ID: 20, Name: "Sharekhan"}}
	svc := newTestService(r, price.Static{})

	msg, err := svc.Upload(context.Background(), UploadRequest{
		Filename: "/tmp/exports/Holdings.XLSX",
		Content:  strings.NewReader("data"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg != "File uploaded successfully." {
		t.Errorf("message = %q", msg)
	}
	u := r.uploads[0]
	if u.Filename != "Holdings.XLSX" || u.BrokerageID != 20 || u.Date.String() != "2024-03-15" {
		t.Errorf("upload = %+v", u)
	}
	if r.uploadBody != "data" {
		t.Errorf("body = %q", r.uploadBody)
	}
}

func TestDeleteRange(t *testing.T) {
	from, to := domain.NewDate(2024, 1, 1), domain.NewDate(2024, 1, 31)

	t.Run("inverted range never reaches the API", func(t *testing.T) {
		r := relianceRemote()
		svc := newTestService(r, price.Static{})
		_, err := svc.DeleteRange(context.Background(), RangeRequest{BrokerageID: 10, From: to, To: from}, func(string) bool { return true })
		if !errors.Is(err, ErrInvalidRange) {
			t.Errorf("err = %v, want ErrInvalidRange", err)
		}
		if len(r.deletes) != 0 {
			t.Error("request sent")
		}
	})

	t.Run("declined", func(t *testing.T) {
		r := relianceRemote()
		svc := newTestService(r, price.Static{})
		var prompt string
		_, err := svc.DeleteRange(context.Background(), RangeRequest{BrokerageID: 10, From: from, To: to}, func(p string) bool {
			prompt = p
			return false
		})
		if !errors.Is(err, ErrDeclined) {
			t.Errorf("err = %v, want ErrDeclined", err)
		}
		want := `Are you sure you want to delete the portfolio for brokerage "Zerodha" from 2024-01-01 to 2024-01-31?`
		if prompt != want {
			t.Errorf("prompt = %q, want %q", prompt, want)
		}
		if len(r.deletes) != 0 {
			t.Error("request sent after decline")
		}
	})

	t.Run("confirmed single day", func(t *testing.T) {
		r := relianceRemote()
		svc := newTestService(r, price.Static{})
		msg, err := svc.DeleteRange(context.Background(), RangeRequest{BrokerageID: 20, From: from, To: from}, func(string) bool { return true })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg != "Deleted 4 holdings." {
			t.Errorf("message = %q", msg)
		}
		want := []remote.RangeDelete{{BrokerageID: 20, FromDate: from, ToDate: from}}
		if diff := cmp.Diff(want, r.deletes, cmp.Comparer(func(a, b domain.Date) bool { return a == b })); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("brokerage required", func(t *testing.T) {
		svc := newTestService(relianceRemote(), price.Static{})
		if _, err := svc.DeleteRange(context.Background(), RangeRequest{From: from, To: to}, nil); !errors.Is(err, ErrBrokerageRequired) {
			t.Errorf("err = %v, want ErrBrokerageRequired", err)
		}
	})
}

func TestDefaultBrokerageIsSetOnce(t *testing.T) {
	r := relianceRemote()
	svc := newTestService(r, price.Static{})
	id := session.NewStatic("user-1", "tok")

	p, err := svc.Profile(context.Background(), id)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if !p.CanSetDefault() {
		t.Fatal("prompt should be available before a default is set")
	}

	b, err := svc.SetDefaultBrokerage(context.Background(), 10)
	if err != nil {
		t.Fatalf("SetDefaultBrokerage: %v", err)
	}
	if b.Name != "Zerodha" {
		t.Errorf("default = %+v", b)
	}

	p, _ = svc.Profile(context.Background(), id)
	if p.CanSetDefault() {
		t.Error("prompt still available after default was set")
	}
	if p.UserID != "user-1" || p.DefaultBrokerage.Name != "Zerodha" {
		t.Errorf("profile = %+v", p)
	}

	if _, err := svc.SetDefaultBrokerage(context.Background(), 20); !errors.Is(err, ErrDefaultAlreadySet) {
		t.Errorf("second set: err = %v, want ErrDefaultAlreadySet", err)
	}
	if diff := cmp.Diff([]int{10}, r.setDefaults); diff != "" {
		t.Errorf("API calls (-want +got):\n%s", diff)
	}
}

func TestSetDefaultBrokerageUnknown(t *testing.T) {
	r := relianceRemote()
	svc := newTestService(r, price.Static{})

	if _, err := svc.SetDefaultBrokerage(context.Background(), 99); !errors.Is(err, ErrUnknownBrokerage) {
		t.Errorf("err = %v, want ErrUnknownBrokerage", err)
	}
	if len(r.setDefaults) != 0 {
		t.Error("unknown brokerage reached the API")
	}
}

func TestProfileFillsBrokerageName(t *testing.T) {
	r := relianceRemote()
	r.def = &domain.Brokerage{ID: 20}
	svc := newTestService(r, price.Static{})

	p, err := svc.Profile(context.Background(), session.NewStatic("u", "t"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.DefaultBrokerage.Name != "Sharekhan" {
		t.Errorf("DefaultBrokerage = %+v", p.DefaultBrokerage)
	}
}
