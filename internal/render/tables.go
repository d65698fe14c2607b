package render

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/price"
)

// MasterSort orders the stock master table.
type MasterSort string

const (
	MasterByCode   MasterSort = "code"
	MasterBySector MasterSort = "sector"
)

// MappingSort orders the brokerage mapping table.
type MappingSort string

const (
	MappingByBrokerageCode MappingSort = "brokerageCode"
	MappingByMasterCode    MappingSort = "masterCode"
	MappingByBrokerage     MappingSort = "brokerage"
)

// ParseMasterSort parses a master sort key, case-insensitively.
func ParseMasterSort(s string) (MasterSort, error) {
	return parseKey(s, MasterByCode, MasterByCode, MasterBySector)
}

// ParseMappingSort parses a mapping sort key, case-insensitively.
func ParseMappingSort(s string) (MappingSort, error) {
	return parseKey(s, MappingByBrokerageCode, MappingByBrokerageCode, MappingByMasterCode, MappingByBrokerage)
}

func parseKey[K ~string](s string, def K, keys ...K) (K, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	k, ok := lo.Find(keys, func(k K) bool { return strings.EqualFold(string(k), s) })
	if !ok {
		return "", fmt.Errorf("unknown sort key %q, must be one of: %s", s, strings.Join(lo.Map(keys, func(k K, _ int) string { return string(k) }), ", "))
	}
	return k, nil
}

// SortSectors returns the sectors ordered by name, case-insensitively.
func SortSectors(sectors []domain.Sector) []domain.Sector {
	out := slices.Clone(sectors)
	slices.SortStableFunc(out, func(a, b domain.Sector) int { return compareFold(a.Name, b.Name) })
	return out
}

// SortMasters returns a sorted copy. Sector order falls back to code for ties.
func SortMasters(masters []domain.StockMaster, by MasterSort) []domain.StockMaster {
	out := slices.Clone(masters)
	slices.SortStableFunc(out, func(a, b domain.StockMaster) int {
		if by == MasterBySector {
			if c := compareFold(a.SectorName(), b.SectorName()); c != 0 {
				return c
			}
		}
		return compareFold(a.Code, b.Code)
	})
	return out
}

// SortMappings returns a sorted copy.
func SortMappings(mappings []domain.BrokerageMapping, by MappingSort) []domain.BrokerageMapping {
	key := func(m domain.BrokerageMapping) string { return m.BrokerageCode }
	switch by {
	case MappingByMasterCode:
		key = domain.BrokerageMapping.MasterCode
	case MappingByBrokerage:
		key = domain.BrokerageMapping.BrokerageName
	}
	out := slices.Clone(mappings)
	slices.SortStableFunc(out, func(a, b domain.BrokerageMapping) int { return compareFold(key(a), key(b)) })
	return out
}

// Sectors prints sectors sorted by name with serial numbers assigned after sorting.
func Sectors(w io.Writer, sectors []domain.Sector) error {
	rows := lo.Map(SortSectors(sectors), func(s domain.Sector, i int) []string {
		return []string{strconv.Itoa(i + 1), strconv.Itoa(s.ID), s.Name}
	})
	return writeTable(w, []string{"S.NO", "ID", "NAME"}, rows)
}

// Masters prints stock masters with their sector label.
func Masters(w io.Writer, masters []domain.StockMaster) error {
	rows := lo.Map(masters, func(m domain.StockMaster, _ int) []string {
		return []string{strconv.Itoa(m.ID), m.Code, m.Name, m.SectorName()}
	})
	return writeTable(w, []string{"ID", "CODE", "NAME", "SECTOR"}, rows)
}

// Mappings prints brokerage mappings; unmapped rows show the placeholder code.
func Mappings(w io.Writer, mappings []domain.BrokerageMapping) error {
	rows := lo.Map(mappings, func(m domain.BrokerageMapping, _ int) []string {
		return []string{strconv.Itoa(m.ID), m.BrokerageCode, m.MasterCode(), m.BrokerageName(), m.SectorName()}
	})
	return writeTable(w, []string{"ID", "BROKERAGE CODE", "MASTER CODE", "BROKERAGE", "SECTOR"}, rows)
}

// Brokerages prints brokerages, marking the default with an asterisk.
func Brokerages(w io.Writer, brokerages []domain.Brokerage, def *domain.Brokerage) error {
	rows := lo.Map(brokerages, func(b domain.Brokerage, _ int) []string {
		mark := ""
		if def != nil && def.ID == b.ID {
			mark = "*"
		}
		return []string{strconv.Itoa(b.ID), b.Name, b.Code, mark}
	})
	return writeTable(w, []string{"ID", "NAME", "CODE", "DEFAULT"}, rows)
}

// Dates prints one uploaded date per line.
func Dates(w io.Writer, dates []domain.Date) error {
	if len(dates) == 0 {
		_, err := fmt.Fprintln(w, "No portfolio uploaded yet.")
		return err
	}
	for _, d := range dates {
		if _, err := fmt.Fprintln(w, d); err != nil {
			return err
		}
	}
	return nil
}

func compareFold(a, b string) int {
	return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Quotes prints manually entered prices.
func Quotes(w io.Writer, quotes []price.Quote, m Money) error {
	rows := lo.Map(quotes, func(q price.Quote, _ int) []string {
		return []string{q.Code, m.Format(q.Price), q.UpdatedAt.UTC().Format(time.DateTime)}
	})
	return writeTable(w, []string{"CODE", "PRICE", "UPDATED"}, rows)
}
