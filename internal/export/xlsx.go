package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"
)

// XLSXWriter implements SheetWriter by saving a workbook to a local file.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates an XLSXWriter that overwrites path on every Write.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

func (w *XLSXWriter) Write(_ context.Context, data []Sheet) error {
	f, err := buildWorkbook(data)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}
	slog.Info("XLSXWriter: export written", "path", w.path, "sheets", len(data))
	return nil
}

// WriteXLSX streams a workbook built from data to out.
func WriteXLSX(out io.Writer, data []Sheet) error {
	f, err := buildWorkbook(data)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func buildWorkbook(data []Sheet) (*excelize.File, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("building workbook: no sheets")
	}

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	for i, s := range data {
		if err := addSheet(f, i, s, bold); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", s.Title, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func addSheet(f *excelize.File, index int, s Sheet, headerStyle int) error {
	if index == 0 {
		// A new workbook starts with one default sheet.
		if err := f.SetSheetName(f.GetSheetName(0), s.Title); err != nil {
			return err
		}
	} else if _, err := f.NewSheet(s.Title); err != nil {
		return err
	}

	for r, row := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.Title, cell, &row); err != nil {
			return err
		}
	}

	if len(s.Rows) == 0 || len(s.Rows[0]) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(s.Rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(s.Title, "A1", last, headerStyle)
}
