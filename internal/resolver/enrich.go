package resolver

import (
	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/domain"
)

// Enrich fills embedded brokerages and sectors that the API left out, looking them
// up by id. It returns new holdings and never modifies the input or its pointees.
func Enrich(holdings []domain.Holding, brokerages []domain.Brokerage, sectors []domain.Sector) []domain.Holding {
	brokerageByID := lo.KeyBy(brokerages, func(b domain.Brokerage) int { return b.ID })
	sectorByID := lo.KeyBy(sectors, func(s domain.Sector) int { return s.ID })

	return lo.Map(holdings, func(h domain.Holding, _ int) domain.Holding {
		if h.Brokerage == nil && h.BrokerageID != 0 {
			if b, ok := brokerageByID[h.BrokerageID]; ok {
				h.Brokerage = &b
			}
		}
		if m := h.StockMaster; m != nil && m.Sector == nil && m.SectorID != 0 {
			if s, ok := sectorByID[m.SectorID]; ok {
				master := *m
				master.Sector = &s
				h.StockMaster = &master
			}
		}
		return h
	})
}
