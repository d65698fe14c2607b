package aggregate

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// SortField names a sortable StockSummary column.
type SortField string

const (
	SortByName          SortField = "name"
	SortByBrokerageCode SortField = "brokerageCode"
	SortByBrokerage     SortField = "brokerage"
	SortByQty           SortField = "qty"
	SortByAvgCost       SortField = "avgCost"
	SortByTotalCost     SortField = "totalCost"
	SortByTotalValue    SortField = "totalValue"
)

// ParseSortField validates a sort column name, matching case-insensitively.
func ParseSortField(s string) (SortField, error) {
	for _, f := range []SortField{SortByName, SortByBrokerageCode, SortByBrokerage, SortByQty, SortByAvgCost, SortByTotalCost, SortByTotalValue} {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// SortStocks sorts rows in place. Strings compare case-insensitively, numbers numerically,
// and equal keys keep their insertion order.
func SortStocks(stocks []StockSummary, field SortField, desc bool) {
	compare := stockComparator(field)
	slices.SortStableFunc(stocks, func(a, b StockSummary) int {
		c := compare(a, b)
		if desc {
			return -c
		}
		return c
	})
}

// Sorted returns a copy of the rollup with every group's rows sorted.
func (r Rollup) Sorted(field SortField, desc bool) Rollup {
	out := r
	out.Groups = make([]Group, len(r.Groups))
	for i, g := range r.Groups {
		g.Stocks = slices.Clone(g.Stocks)
		SortStocks(g.Stocks, field, desc)
		out.Groups[i] = g
	}
	return out
}

// SortGroups orders groups by key, or by total invested when byTotal is set.
func SortGroups(groups []Group, byTotal, desc bool) {
	slices.SortStableFunc(groups, func(a, b Group) int {
		var c int
		if byTotal {
			c = a.TotalInvested.Cmp(b.TotalInvested)
		} else {
			c = compareFold(a.Key, b.Key)
		}
		if desc {
			return -c
		}
		return c
	})
}

func stockComparator(field SortField) func(a, b StockSummary) int {
	switch field {
	case SortByBrokerageCode:
		return func(a, b StockSummary) int { return compareFold(a.BrokerageCode, b.BrokerageCode) }
	case SortByBrokerage:
		return func(a, b StockSummary) int { return compareFold(a.BrokerageName, b.BrokerageName) }
	case SortByQty:
		return func(a, b StockSummary) int { return cmp.Compare(a.Qty, b.Qty) }
	case SortByAvgCost:
		return decimalComparator(func(s StockSummary) decimal.Decimal { return s.AvgCost })
	case SortByTotalCost:
		return decimalComparator(func(s StockSummary) decimal.Decimal { return s.TotalCost })
	case SortByTotalValue:
		return decimalComparator(func(s StockSummary) decimal.Decimal { return s.TotalValue })
	default:
		return func(a, b StockSummary) int { return compareFold(a.Name, b.Name) }
	}
}

func decimalComparator(get func(StockSummary) decimal.Decimal) func(a, b StockSummary) int {
	return func(a, b StockSummary) int { return get(a).Cmp(get(b)) }
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
