package filter

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/domain"
)

func sampleHoldings() []domain.Holding {
	energy := &domain.Sector{ID: 1, Name: "Energy"}
	banking := &domain.Sector{ID: 2, Name: "Banking"}
	return []domain.Holding{
		{ID: 1, BrokerageID: 10, StockMaster: &domain.StockMaster{ID: 100, Code: "RELIANCE", SectorID: 1, Sector: energy}},
		{ID: 2, BrokerageID: 20, StockMaster: &domain.StockMaster{ID: 100, Code: "RELIANCE", SectorID: 1, Sector: energy}},
		{ID: 3, BrokerageID: 10, StockMaster: &domain.StockMaster{ID: 200, Code: "HDFCBANK", SectorID: 2, Sector: banking}},
		{ID: 4, BrokerageID: 20, BrokerageCode: "MYSTERY"},
	}
}

func ids(hs []domain.Holding) []int {
	out := make([]int, len(hs))
	for i, h := range hs {
		out[i] = h.ID
	}
	return out
}

func TestApplyNoOpLaw(t *testing.T) {
	items := sampleHoldings()

	for name, f := range map[string]Filters{
		"zero":             {},
		"empty sector ids": {SectorIDs: []int{}},
		"blank code":       {Code: "   "},
	} {
		got := Apply(items, f, HoldingKeys)
		if diff := cmp.Diff(ids(items), ids(got)); diff != "" {
			t.Errorf("%s: (-want +got):\n%s", name, diff)
		}
		if &got[0] != &items[0] {
			t.Errorf("%s: expected the input slice to be returned as is", name)
		}
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		filters Filters
		want    []int
	}{
		{"sector", Filters{SectorIDs: []int{1}}, []int{1, 2}},
		{"brokerage", Filters{BrokerageIDs: []int{20}}, []int{2, 4}},
		{"sector and brokerage", Filters{SectorIDs: []int{1}, BrokerageIDs: []int{10}}, []int{1}},
		{"code substring case-insensitive", Filters{Code: " bank "}, []int{3}},
		{"code matches canonical code only", Filters{Code: "mystery"}, nil},
		{"several sectors", Filters{SectorIDs: []int{1, 2}}, []int{1, 2, 3}},
		{"no match", Filters{SectorIDs: []int{99}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(sampleHoldings(), tt.filters, HoldingKeys)
			if diff := cmp.Diff(tt.want, ids(got), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestMappingAndMasterKeys(t *testing.T) {
	mapped := domain.BrokerageMapping{
		ID: 1, BrokerageID: 10, BrokerageCode: "RIL",
		StockMaster: &domain.StockMaster{ID: 5, Code: "RELIANCE", SectorID: 3},
	}
	unmapped := domain.BrokerageMapping{ID: 2, BrokerageID: 20, BrokerageCode: "XYZ"}

	if got, want := MappingKeys(mapped), (Keys{SectorID: 3, BrokerageID: 10, Code: "RELIANCE"}); got != want {
		t.Errorf("MappingKeys(mapped) = %+v, want %+v", got, want)
	}
	if got, want := MappingKeys(unmapped), (Keys{BrokerageID: 20}); got != want {
		t.Errorf("MappingKeys(unmapped) = %+v, want %+v", got, want)
	}

	masters := []domain.StockMaster{{ID: 1, Code: "TCS", SectorID: 4}, {ID: 2, Code: "INFY", SectorID: 4}, {ID: 3, Code: "ONGC", SectorID: 1}}
	got := Apply(masters, Filters{SectorIDs: []int{4}, Code: "tc"}, MasterKeys)
	if len(got) != 1 || got[0].Code != "TCS" {
		t.Errorf("Apply(masters) = %+v, want [TCS]", got)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	items := sampleHoldings()
	_ = Apply(items, Filters{SectorIDs: []int{2}}, HoldingKeys)
	if diff := cmp.Diff([]int{1, 2, 3, 4}, ids(items)); diff != "" {
		t.Errorf("input changed (-want +got):\n%s", diff)
	}
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"1", []int{1}, false},
		{" 1, 2 ,3,", []int{1, 2, 3}, false},
		{"1,x", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseIDs(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIDs(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseIDs(%q) (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestSearchSectors(t *testing.T) {
	sectors := []domain.Sector{{ID: 1, Name: "Energy"}, {ID: 2, Name: "Banking"}, {ID: 3, Name: "Renewable Energy"}}

	tests := []struct {
		query string
		want  []int
	}{
		{"", []int{1, 2, 3}},
		{"  ", []int{1, 2, 3}},
		{"ENERGY", []int{1, 3}},
		{"bank", []int{2}},
		{"steel", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := lo.Map(SearchSectors(sectors, tt.query), func(s domain.Sector, _ int) int { return s.ID })
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
