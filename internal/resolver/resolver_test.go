package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/mtlprog/folio/internal/domain"
)

type mockCreator struct {
	masterCalls []createMasterCall
	sectorCalls []string
	nextID      int
	err         error
}

type createMasterCall struct {
	code     string
	sectorID int
}

func (m *mockCreator) CreateStockMaster(_ context.Context, code string, sectorID int) (domain.StockMaster, error) {
	m.masterCalls = append(m.masterCalls, createMasterCall{code, sectorID})
	if m.err != nil {
		return domain.StockMaster{}, m.err
	}
	m.nextID++
	return domain.StockMaster{ID: 1000 + m.nextID, Code: code, SectorID: sectorID}, nil
}

func (m *mockCreator) CreateSector(_ context.Context, name string) (domain.Sector, error) {
	m.sectorCalls = append(m.sectorCalls, name)
	if m.err != nil {
		return domain.Sector{}, m.err
	}
	m.nextID++
	return domain.Sector{ID: 500 + m.nextID, Name: name}, nil
}

var (
	energy = domain.Sector{ID: 1, Name: "Energy"}
	it     = domain.Sector{ID: 2, Name: "IT"}
)

func newCatalog(creator *mockCreator) *Catalog {
	return NewCatalog(creator,
		[]domain.StockMaster{{ID: 100, Code: "RELIANCE", SectorID: 1, Sector: &energy}},
		[]domain.Sector{energy, it},
	)
}

func TestResolveOrCreateExistingMaster(t *testing.T) {
	creator := &mockCreator{}
	c := newCatalog(creator)

	got, err := c.ResolveOrCreate(context.Background(), domain.BrokerageMapping{ID: 1}, " RELIANCE ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 100 {
		t.Errorf("ID = %d, want 100", got.ID)
	}
	if len(creator.masterCalls) != 0 {
		t.Errorf("unexpected create calls: %v", creator.masterCalls)
	}
}

func TestResolveOrCreateUsesRowSector(t *testing.T) {
	tests := []struct {
		name       string
		row        domain.BrokerageMapping
		wantSector int
	}{
		{
			name:       "row mapped to a master in IT",
			row:        domain.BrokerageMapping{ID: 1, StockMaster: &domain.StockMaster{ID: 7, Code: "OLD", SectorID: 2}},
			wantSector: 2,
		},
		{
			name:       "sector known only by name",
			row:        domain.BrokerageMapping{ID: 1, StockMaster: &domain.StockMaster{ID: 7, Code: "OLD", Sector: &domain.Sector{Name: "energy"}}},
			wantSector: 1,
		},
		{
			name:       "unmapped row",
			row:        domain.BrokerageMapping{ID: 1},
			wantSector: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &mockCreator{}
			c := newCatalog(creator)

			got, err := c.ResolveOrCreate(context.Background(), tt.row, "TCS")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(creator.masterCalls) != 1 || creator.masterCalls[0] != (createMasterCall{"TCS", tt.wantSector}) {
				t.Errorf("create calls = %v, want [{TCS %d}]", creator.masterCalls, tt.wantSector)
			}
			if _, ok := c.Lookup("TCS"); !ok {
				t.Error("created master not added to catalog")
			}
			if got.Code != "TCS" {
				t.Errorf("Code = %q", got.Code)
			}
		})
	}
}

func TestResolveOrCreateFillsSector(t *testing.T) {
	c := newCatalog(&mockCreator{})
	row := domain.BrokerageMapping{StockMaster: &domain.StockMaster{SectorID: 2}}

	got, err := c.ResolveOrCreate(context.Background(), row, "INFY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SectorName() != "IT" {
		t.Errorf("SectorName() = %q, want IT", got.SectorName())
	}
}

func TestResolveOrCreateBlankCodeCancels(t *testing.T) {
	creator := &mockCreator{}
	c := newCatalog(creator)

	_, err := c.ResolveOrCreate(context.Background(), domain.BrokerageMapping{}, "   ")
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("err = %v, want ErrCancelled", err)
	}
	if len(creator.masterCalls) != 0 {
		t.Error("blank code must not reach the API")
	}
}

func TestResolveOrCreateFailureLeavesCatalog(t *testing.T) {
	creator := &mockCreator{err: errors.New("conflict")}
	c := newCatalog(creator)

	_, err := c.ResolveOrCreate(context.Background(), domain.BrokerageMapping{}, "TCS")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(c.Masters()) != 1 {
		t.Errorf("masters = %d, want 1", len(c.Masters()))
	}
}

func TestResolveOrCreateSector(t *testing.T) {
	creator := &mockCreator{}
	c := newCatalog(creator)

	got, err := c.ResolveOrCreateSector(context.Background(), "  it ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 2 || len(creator.sectorCalls) != 0 {
		t.Errorf("existing sector: got %+v, calls %v", got, creator.sectorCalls)
	}

	got, err = c.ResolveOrCreateSector(context.Background(), " Pharma ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Pharma" || len(creator.sectorCalls) != 1 || creator.sectorCalls[0] != "Pharma" {
		t.Errorf("created sector: got %+v, calls %v", got, creator.sectorCalls)
	}
	if _, ok := c.SectorByID(got.ID); !ok {
		t.Error("created sector not added to catalog")
	}

	if _, err := c.ResolveOrCreateSector(context.Background(), ""); !errors.Is(err, ErrCancelled) {
		t.Errorf("blank name: err = %v, want ErrCancelled", err)
	}
}

func TestEnrich(t *testing.T) {
	master := &domain.StockMaster{ID: 100, Code: "RELIANCE", SectorID: 1}
	holdings := []domain.Holding{
		{ID: 1, BrokerageID: 10, StockMaster: master},
		{ID: 2, BrokerageID: 99},
	}
	brokerages := []domain.Brokerage{{ID: 10, Name: "Zerodha"}}

	got := Enrich(holdings, brokerages, []domain.Sector{energy})

	if got[0].Brokerage == nil || got[0].Brokerage.Name != "Zerodha" {
		t.Errorf("brokerage not filled: %+v", got[0].Brokerage)
	}
	if got[0].StockMaster.SectorName() != "Energy" {
		t.Errorf("sector not filled: %+v", got[0].StockMaster)
	}
	if got[1].Brokerage != nil {
		t.Errorf("unknown brokerage id filled: %+v", got[1].Brokerage)
	}
	if master.Sector != nil || holdings[0].Brokerage != nil {
		t.Error("Enrich modified its input")
	}
}

func TestSetSectorsRefreshesMasters(t *testing.T) {
	c := NewCatalog(&mockCreator{},
		[]domain.StockMaster{
			{ID: 100, Code: "RELIANCE", SectorID: 1, Sector: &energy},
			{ID: 200, Code: "INFY", SectorID: 2, Sector: &it},
		},
		[]domain.Sector{energy, it},
	)

	c.SetSectors([]domain.Sector{{ID: 1, Name: "Oil & Gas"}})

	masters := c.Masters()
	if got := masters[0].SectorName(); got != "Oil & Gas" {
		t.Errorf("renamed sector = %q, want Oil & Gas", got)
	}
	if masters[1].Sector != nil || masters[1].SectorName() != domain.UnknownSectorLabel {
		t.Errorf("deleted sector still embedded: %+v", masters[1].Sector)
	}
}
