// Package filter narrows holdings, mappings and stock masters by sector, brokerage and code.
package filter

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/domain"
)

// Filters is a conjunction of optional predicates. An empty id list or empty
// code places no restriction on that dimension.
type Filters struct {
	SectorIDs    []int  `json:"sectorIds,omitempty"`
	BrokerageIDs []int  `json:"brokerageIds,omitempty"`
	Code         string `json:"code,omitempty"`
}

// IsZero reports whether the filters restrict nothing.
func (f Filters) IsZero() bool {
	return len(f.SectorIDs) == 0 && len(f.BrokerageIDs) == 0 && strings.TrimSpace(f.Code) == ""
}

// Keys are the attributes of an item that filters match against.
type Keys struct {
	SectorID    int
	BrokerageID int
	Code        string
}

// Match reports whether k satisfies every active predicate.
func (f Filters) Match(k Keys) bool {
	if len(f.SectorIDs) > 0 && !slices.Contains(f.SectorIDs, k.SectorID) {
		return false
	}
	if len(f.BrokerageIDs) > 0 && !slices.Contains(f.BrokerageIDs, k.BrokerageID) {
		return false
	}
	code := strings.ToLower(strings.TrimSpace(f.Code))
	if code != "" && !strings.Contains(strings.ToLower(k.Code), code) {
		return false
	}
	return true
}

// Apply returns the items matching f in their original order. With no active
// predicate the input slice itself is returned.
func Apply[T any](items []T, f Filters, keys func(T) Keys) []T {
	if f.IsZero() {
		return items
	}
	return lo.Filter(items, func(item T, _ int) bool {
		return f.Match(keys(item))
	})
}

// HoldingKeys matches a holding on its resolved sector, its brokerage and its canonical code.
func HoldingKeys(h domain.Holding) Keys {
	k := Keys{SectorID: h.SectorID(), BrokerageID: h.BrokerageID}
	if h.StockMaster != nil {
		k.Code = h.StockMaster.Code
	}
	return k
}

// MappingKeys matches a mapping on its master's sector, its brokerage and the master code.
func MappingKeys(m domain.BrokerageMapping) Keys {
	k := Keys{SectorID: m.SectorID(), BrokerageID: m.BrokerageID}
	if m.StockMaster != nil {
		k.Code = m.StockMaster.Code
	}
	return k
}

// MasterKeys matches a stock master on its sector and code. Masters carry no brokerage.
func MasterKeys(m domain.StockMaster) Keys {
	return Keys{SectorID: m.SectorID, Code: m.Code}
}

// ParseIDs parses a comma-separated id list such as "1, 2,3". Blank input yields nil.
func ParseIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("parsing id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SearchSectors returns the sectors whose name contains query, case-insensitively.
// A blank query returns sectors unchanged.
func SearchSectors(sectors []domain.Sector, query string) []domain.Sector {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return sectors
	}
	return lo.Filter(sectors, func(s domain.Sector, _ int) bool {
		return strings.Contains(strings.ToLower(s.Name), query)
	})
}
