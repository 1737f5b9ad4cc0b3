package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/model"
)

// Options configures loading.
type Options struct {
	// Location is used for timestamps without a zone. Defaults to UTC.
	Location *time.Location
	// Sheet selects a workbook sheet. Empty means the first sheet.
	Sheet string
}

// Load reads transactions from path, choosing the reader by file extension.
func Load(ctx context.Context, path string, opts Options) ([]model.Transaction, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		return ReadCSV(ctx, f, opts)
	case ".xlsx", ".xlsm":
		return ReadXLSX(ctx, path, opts)
	default:
		return nil, fmt.Errorf("%w: unsupported input file type %q", common.ErrInvalidInput, filepath.Ext(path))
	}
}

// ReadCSV reads transactions from CSV with a header row.
func ReadCSV(ctx context.Context, r io.Reader, opts Options) ([]model.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", common.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", common.ErrInvalidInput, err)
	}
	h, err := parseHeader(first)
	if err != nil {
		return nil, err
	}

	var txns []model.Transaction
	for rowNum := 2; ; rowNum++ {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &common.RowError{Row: rowNum, Err: fmt.Errorf("%w: %w", common.ErrInvalidInput, err)}
		}
		if rowNum%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if blank(cells) {
			continue
		}
		txn, err := h.parseRow(cells, rowNum, opts.Location)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	slog.Info("Loaded transactions", "format", "csv", "rows", len(txns))
	return txns, nil
}

// ReadXLSX reads transactions from a workbook sheet with a header row.
func ReadXLSX(ctx context.Context, path string, opts Options) ([]model.Transaction, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", common.ErrInvalidInput)
		}
		sheet = sheets[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %w", common.ErrInvalidInput, sheet, err)
	}
	defer func() { _ = rows.Close() }()

	var (
		h      header
		txns   []model.Transaction
		rowNum int
	)
	for rows.Next() {
		rowNum++
		cells, err := rows.Columns()
		if err != nil {
			return nil, &common.RowError{Row: rowNum, Err: fmt.Errorf("%w: %w", common.ErrInvalidInput, err)}
		}
		if h == nil {
			if h, err = parseHeader(cells); err != nil {
				return nil, err
			}
			continue
		}
		if rowNum%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if blank(cells) {
			continue
		}
		txn, err := h.parseRow(cells, rowNum, opts.Location)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: sheet %q is empty", common.ErrInvalidInput, sheet)
	}

	slog.Info("Loaded transactions", "format", "xlsx", "sheet", sheet, "rows", len(txns))
	return txns, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
