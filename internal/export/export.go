// Package export writes portfolio rollups to spreadsheets: a local XLSX file
// or a Google Sheets document.
package export

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/aggregate"
	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/portfolio"
)

// SummarySheet is the title of the per-group totals sheet.
const SummarySheet = "Summary"

var (
	holdingsHeader = []any{"Group", "Stock", "Brokerage Code", "Brokerage", "Qty", "Avg Cost", "Total Cost", "Market Value"}
	summaryHeader  = []any{"Date", "Mode", "Group", "Total Invested", "Exposure %"}
)

// Sheet is one titled table, header row first.
type Sheet struct {
	Title string
	Rows  [][]any
}

// SheetWriter writes sheets to a spreadsheet destination, replacing their previous contents.
type SheetWriter interface {
	Write(ctx context.Context, sheets []Sheet) error
}

// Rollups produces the reports to export.
type Rollups interface {
	Rollup(ctx context.Context, q portfolio.Query) (portfolio.Report, error)
}

// Service builds one report per grouping mode and delegates writing to a SheetWriter.
type Service struct {
	rollups Rollups
	writer  SheetWriter
}

// NewService creates a new export Service. All dependencies are required.
func NewService(rollups Rollups, writer SheetWriter) *Service {
	if rollups == nil {
		panic("export.NewService: rollups is nil")
	}
	if writer == nil {
		panic("export.NewService: writer is nil")
	}
	return &Service{rollups: rollups, writer: writer}
}

// Export writes the Sector, Brokerage and Stock rollups for date plus a summary sheet.
func (s *Service) Export(ctx context.Context, date domain.Date) error {
	reports := make([]portfolio.Report, 0, len(aggregate.Modes))
	for _, mode := range aggregate.Modes {
		report, err := s.rollups.Rollup(ctx, portfolio.Query{Date: date, Mode: mode})
		if err != nil {
			return fmt.Errorf("building %s rollup: %w", mode, err)
		}
		reports = append(reports, report)
	}
	return s.writer.Write(ctx, BuildSheets(reports))
}

// BuildSheets lays out one holdings sheet per report, titled by mode, followed by
// the summary sheet. Groups are ordered by total invested, largest first.
func BuildSheets(reports []portfolio.Report) []Sheet {
	sheets := make([]Sheet, 0, len(reports)+1)
	summary := Sheet{Title: SummarySheet, Rows: [][]any{summaryHeader}}

	for _, report := range reports {
		groups := slices.Clone(report.Rollup.Groups)
		aggregate.SortGroups(groups, true, true)

		sheet := Sheet{Title: string(report.Rollup.Mode), Rows: [][]any{holdingsHeader}}
		for _, g := range groups {
			sheet.Rows = append(sheet.Rows, lo.Map(g.Stocks, func(st aggregate.StockSummary, _ int) []any {
				return []any{
					g.Key, st.Name, st.BrokerageCode, st.BrokerageName, st.Qty,
					avgCost(st), toFloat(st.TotalCost), toFloat(st.TotalValue),
				}
			})...)

			summary.Rows = append(summary.Rows, []any{
				report.Date.String(), string(report.Rollup.Mode), g.Key,
				toFloat(g.TotalInvested), toFloat(report.Rollup.Exposure(g.Key).Round(2)),
			})
		}
		sheets = append(sheets, sheet)
	}

	return append(sheets, summary)
}

func avgCost(st aggregate.StockSummary) any {
	if !st.HasAvgCost() {
		return nil
	}
	return toFloat(st.AvgCost.Round(2))
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
