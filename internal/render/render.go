// Package render prints rollups and reference tables for the terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/domain"
)

// Format selects table or JSON output.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat parses an output format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q, must be one of: table, json", s)
	}
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Money formats amounts in one currency.
type Money struct {
	code string
	cur  *money.Currency
}

// NewMoney returns a formatter for an ISO currency code. Unknown or empty codes
// format as plain two-decimal numbers.
func NewMoney(code string) Money {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Money{}
	}
	return Money{code: code, cur: money.GetCurrency(code)}
}

// Format renders d with the currency symbol and grouping, rounded to minor units.
func (m Money) Format(d decimal.Decimal) string {
	if m.cur == nil {
		return domain.FormatAmount(d)
	}
	minor := d.Shift(int32(m.cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), m.code).Display()
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}
