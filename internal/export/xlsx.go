package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/table"
)

// maxSheetName is Excel's limit on sheet name length.
const maxSheetName = 31

// XLSXWriter writes each table to its own worksheet of one workbook.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates a workbook writer for path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

// Export implements Exporter.
func (w *XLSXWriter) Export(ctx context.Context, tables []*table.Table) error {
	secs, err := sections(tables, maxSheetName)
	if err != nil {
		return err
	}
	if len(secs) == 0 {
		return fmt.Errorf("%w: nothing to export", common.ErrExportFailed)
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("Failed to close workbook", "error", cerr)
		}
	}()

	defaultSheet := f.GetSheetName(0)
	for _, sec := range secs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := f.NewSheet(sec.title); err != nil {
			return fmt.Errorf("%w: create sheet %q: %w", common.ErrExportFailed, sec.title, err)
		}
		if err := writeSheet(f, sec); err != nil {
			return fmt.Errorf("%w: sheet %q: %w", common.ErrExportFailed, sec.title, err)
		}
		slog.Debug("Wrote sheet", "sheet", sec.title, "rows", sec.table.Len())
	}

	if defaultSheet != "" && !hasSection(secs, defaultSheet) {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("%w: remove default sheet: %w", common.ErrExportFailed, err)
		}
	}
	f.SetActiveSheet(0)

	if err := os.MkdirAll(filepath.Dir(w.path), 0750); err != nil {
		return fmt.Errorf("%w: create output directory: %w", common.ErrExportFailed, err)
	}
	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("%w: save %s: %w", common.ErrExportFailed, w.path, err)
	}

	slog.Info("Exported workbook", "path", w.path, "sheets", len(secs))
	return nil
}

func writeSheet(f *excelize.File, sec section) error {
	if len(sec.table.Columns) == 0 {
		return nil
	}
	header := make([]any, len(sec.table.Columns))
	for i, c := range sec.table.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sec.title, "A1", &header); err != nil {
		return err
	}
	for i, row := range sec.table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = cellValue(v)
		}
		if err := f.SetSheetRow(sec.title, cell, &values); err != nil {
			return err
		}
	}
	return nil
}

// cellValue keeps numbers numeric so spreadsheet formulas work on them.
// Everything else is written as text.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int, int64, float64:
		return x
	case decimal.Decimal:
		return x.InexactFloat64()
	default:
		return table.FormatCell(v)
	}
}

func hasSection(secs []section, title string) bool {
	for _, s := range secs {
		if s.title == title {
			return true
		}
	}
	return false
}

// ReadXLSX loads every worksheet of a workbook as a table. The first row of a
// sheet is its header; an empty sheet yields a table without columns.
func ReadXLSX(path string) ([]*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("Failed to close workbook", "error", cerr)
		}
	}()

	var tables []*table.Table
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		t := table.New(name)
		if len(rows) > 0 {
			t.Columns = rows[0]
			for _, cells := range rows[1:] {
				t.Rows = append(t.Rows, padRow(cells, len(t.Columns)))
			}
		}
		tables = append(tables, t)
	}
	return tables, nil
}
