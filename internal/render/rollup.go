package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/aggregate"
	"github.com/mtlprog/folio/internal/domain"
)

var rollupHeaders = []string{"STOCK", "BROKERAGE CODE", "BROKERAGE", "QTY", "AVG COST", "TOTAL COST", "MARKET VALUE"}

// Rollup prints each group with its total invested and exposure, then its rows,
// then the grand total.
func Rollup(w io.Writer, date domain.Date, r aggregate.Rollup, m Money) error {
	if len(r.Groups) == 0 {
		_, err := fmt.Fprintf(w, "No holdings for %s.\n", date)
		return err
	}

	if _, err := fmt.Fprintf(w, "Portfolio %s by %s\n\n", date, r.Mode); err != nil {
		return err
	}
	for _, g := range r.Groups {
		if _, err := fmt.Fprintf(w, "%s  %s  (%s%%)\n", g.Key, m.Format(g.TotalInvested), domain.FormatAmount(r.Exposure(g.Key))); err != nil {
			return err
		}
		rows := lo.Map(g.Stocks, func(s aggregate.StockSummary, _ int) []string {
			avg := "-"
			if s.HasAvgCost() {
				avg = m.Format(s.AvgCost)
			}
			return []string{
				s.Name, s.BrokerageCode, s.BrokerageName, strconv.FormatInt(s.Qty, 10),
				avg, m.Format(s.TotalCost), m.Format(s.TotalValue),
			}
		})
		if err := writeTable(w, rollupHeaders, rows); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Total invested: %s\n", m.Format(r.TotalInvested))
	return err
}
