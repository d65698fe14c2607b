// Package aggregate rolls flat holdings up into sector, brokerage or stock groups
// with weighted-average cost per row.
package aggregate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/domain"
)

// Mode selects the grouping dimension.
type Mode string

const (
	ModeSector    Mode = "Sector"
	ModeBrokerage Mode = "Brokerage"
	ModeStock     Mode = "Stock"
)

// Modes lists every grouping mode in display order.
var Modes = []Mode{ModeSector, ModeBrokerage, ModeStock}

// ParseMode parses a grouping mode case-insensitively.
func ParseMode(s string) (Mode, error) {
	m, ok := lo.Find(Modes, func(m Mode) bool {
		return strings.EqualFold(string(m), strings.TrimSpace(s))
	})
	if !ok {
		return "", fmt.Errorf("unknown grouping mode %q, expected sector, brokerage or stock", s)
	}
	return m, nil
}

// PriceTable supplies current market prices by stock code.
type PriceTable interface {
	Price(code string) (decimal.Decimal, bool)
}

// StockSummary is one aggregated row inside a group.
type StockSummary struct {
	Name          string          `json:"name"`
	BrokerageCode string          `json:"brokerageCode"`
	BrokerageName string          `json:"brokerageName"`
	Qty           int64           `json:"qty"`
	TotalCost     decimal.Decimal `json:"totalCost"`
	AvgCost       decimal.Decimal `json:"avgCost"`
	TotalValue    decimal.Decimal `json:"totalValue"`
}

// HasAvgCost reports whether AvgCost was computed. It is left at zero for empty rows.
func (s StockSummary) HasAvgCost() bool {
	return s.Qty > 0
}

// Group is the rollup for one group key.
type Group struct {
	Key           string          `json:"key"`
	TotalInvested decimal.Decimal `json:"totalInvested"`
	Stocks        []StockSummary  `json:"stocks"`
}

// Rollup is the full aggregation result. Groups keep first-seen order.
type Rollup struct {
	Mode          Mode            `json:"mode"`
	Groups        []Group         `json:"groups"`
	TotalInvested decimal.Decimal `json:"totalInvested"`
}

// Group returns the group with the given key.
func (r Rollup) Group(key string) (Group, bool) {
	return lo.Find(r.Groups, func(g Group) bool { return g.Key == key })
}

// Exposure returns the share of the total invested held by the group, in percent.
// It is zero when the group is missing or nothing is invested.
func (r Rollup) Exposure(key string) decimal.Decimal {
	g, ok := r.Group(key)
	if !ok {
		return decimal.Zero
	}
	return domain.Percent(g.TotalInvested, r.TotalInvested)
}

// Keys returns the group keys in order.
func (r Rollup) Keys() []string {
	return lo.Map(r.Groups, func(g Group, _ int) string { return g.Key })
}

type groupBuilder struct {
	group Group
	rows  map[string]int
}

// Aggregate groups holdings by mode. A nil price table values every row at zero.
func Aggregate(holdings []domain.Holding, mode Mode, prices PriceTable) Rollup {
	var builders []*groupBuilder
	index := make(map[string]int)

	for _, h := range holdings {
		key := groupKey(h, mode)
		gi, ok := index[key]
		if !ok {
			gi = len(builders)
			index[key] = gi
			builders = append(builders, &groupBuilder{
				group: Group{Key: key, TotalInvested: decimal.Zero},
				rows:  make(map[string]int),
			})
		}
		b := builders[gi]

		qty := decimal.NewFromInt(h.Quantity)
		cost := h.TotalCost()
		value := qty.Mul(lookupPrice(prices, h.PriceCode()))

		b.group.TotalInvested = b.group.TotalInvested.Add(cost)

		id := identityKey(h, mode)
		if ri, ok := b.rows[id]; ok {
			row := &b.group.Stocks[ri]
			row.Qty += h.Quantity
			row.TotalCost = row.TotalCost.Add(cost)
			row.TotalValue = row.TotalValue.Add(value)
			continue
		}
		b.rows[id] = len(b.group.Stocks)
		b.group.Stocks = append(b.group.Stocks, StockSummary{
			Name:          stockName(h),
			BrokerageCode: lo.CoalesceOrEmpty(h.BrokerageCode, domain.UnknownCodeLabel),
			BrokerageName: brokerageName(h),
			Qty:           h.Quantity,
			TotalCost:     cost,
			AvgCost:       decimal.Zero,
			TotalValue:    value,
		})
	}

	groups := lo.Map(builders, func(b *groupBuilder, _ int) Group {
		for i := range b.group.Stocks {
			row := &b.group.Stocks[i]
			if row.Qty > 0 {
				row.AvgCost = row.TotalCost.Div(decimal.NewFromInt(row.Qty))
			}
		}
		return b.group
	})

	total := lo.Reduce(groups, func(acc decimal.Decimal, g Group, _ int) decimal.Decimal {
		return acc.Add(g.TotalInvested)
	}, decimal.Zero)

	return Rollup{Mode: mode, Groups: groups, TotalInvested: total}
}

func groupKey(h domain.Holding, mode Mode) string {
	switch mode {
	case ModeBrokerage:
		return brokerageName(h)
	case ModeStock:
		if h.StockMaster != nil {
			if name := h.StockMaster.DisplayName(); name != "" {
				return name
			}
		}
		return lo.CoalesceOrEmpty(h.BrokerageCode, domain.UnknownLabel)
	default:
		if h.StockMaster != nil && h.StockMaster.Sector != nil && h.StockMaster.Sector.Name != "" {
			return h.StockMaster.Sector.Name
		}
		return domain.UnknownLabel
	}
}

// identityKey separates canonical ids from fallback ids so that a master id can
// never collide with a mapping id.
func identityKey(h domain.Holding, mode Mode) string {
	var base string
	switch {
	case h.Resolved():
		base = "s" + strconv.Itoa(h.StockMaster.ID)
	case h.MappingID != 0:
		base = "m" + strconv.Itoa(h.MappingID)
	default:
		base = "c" + strconv.Itoa(h.BrokerageID) + ":" + h.BrokerageCode
	}
	if mode == ModeStock {
		return base + "@" + strconv.Itoa(h.BrokerageID)
	}
	return base
}

func stockName(h domain.Holding) string {
	if h.StockMaster != nil {
		if name := h.StockMaster.DisplayName(); name != "" {
			return name
		}
	}
	return lo.CoalesceOrEmpty(h.BrokerageCode, domain.UnknownStockLabel)
}

func brokerageName(h domain.Holding) string {
	if h.Brokerage == nil || h.Brokerage.Name == "" {
		return domain.UnknownBrokerageLabel
	}
	return h.Brokerage.Name
}

func lookupPrice(prices PriceTable, code string) decimal.Decimal {
	if prices == nil || code == "" {
		return decimal.Zero
	}
	p, ok := prices.Price(code)
	if !ok {
		return decimal.Zero
	}
	return p
}
