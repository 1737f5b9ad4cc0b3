// Package ingest loads raw retail transactions from CSV files or Excel
// workbooks in the online_retail_II layout.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/model"
)

// Source column names.
const (
	ColInvoice     = "Invoice"
	ColStockCode   = "StockCode"
	ColDescription = "Description"
	ColQuantity    = "Quantity"
	ColInvoiceDate = "InvoiceDate"
	ColPrice       = "Price"
	ColCustomerID  = "Customer ID"
	ColCountry     = "Country"
)

// RequiredColumns must all be present in the header row.
var RequiredColumns = []string{
	ColInvoice, ColStockCode, ColDescription, ColQuantity,
	ColInvoiceDate, ColPrice, ColCustomerID, ColCountry,
}

// DateLayouts are tried in order when parsing InvoiceDate.
var DateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/06 15:04",
	"2006-01-02T15:04:05",
}

// header maps required column names to their positions.
type header map[string]int

func parseHeader(cells []string) (header, error) {
	h := make(header, len(cells))
	for i, c := range cells {
		name := strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", common.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return h, nil
}

func (h header) cell(cells []string, col string) string {
	i := h[col]
	if i >= len(cells) {
		return ""
	}
	return cells[i]
}

// parseRow converts one data row. rowNum is 1-based and counts the header.
func (h header) parseRow(cells []string, rowNum int, loc *time.Location) (model.Transaction, error) {
	txn := model.Transaction{
		Invoice:   h.cell(cells, ColInvoice),
		StockCode: h.cell(cells, ColStockCode),
		Country:   h.cell(cells, ColCountry),
	}

	rowErr := func(col, value string, err error) error {
		return &common.RowError{
			Row: rowNum,
			Err: fmt.Errorf("%w: column %s: %q: %v", common.ErrInvalidInput, col, value, err),
		}
	}

	if v := h.cell(cells, ColDescription); v != "" {
		txn.Description = model.StringPtr(v)
	}

	if v := strings.TrimSpace(h.cell(cells, ColQuantity)); v != "" {
		q, err := parseWhole(v)
		if err != nil {
			return txn, rowErr(ColQuantity, v, err)
		}
		txn.Quantity = model.Int64Ptr(q)
	}

	if v := strings.TrimSpace(h.cell(cells, ColPrice)); v != "" {
		p, err := decimal.NewFromString(v)
		if err != nil {
			return txn, rowErr(ColPrice, v, err)
		}
		txn.Price = model.DecimalPtr(p)
	}

	if v := strings.TrimSpace(h.cell(cells, ColCustomerID)); v != "" {
		id, err := parseWhole(v)
		if err != nil {
			return txn, rowErr(ColCustomerID, v, err)
		}
		txn.CustomerID = model.Int64Ptr(id)
	}

	if v := strings.TrimSpace(h.cell(cells, ColInvoiceDate)); v != "" {
		ts, err := ParseInvoiceDate(v, loc)
		if err != nil {
			return txn, rowErr(ColInvoiceDate, v, err)
		}
		txn.InvoiceDate = model.TimePtr(ts)
	}

	return txn, nil
}

// parseWhole parses an integer that may be written with a zero fraction, as
// spreadsheets export customer ids ("13085.0").
func parseWhole(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("not a whole number")
	}
	return d.IntPart(), nil
}

// ParseInvoiceDate parses s with the first matching layout in DateLayouts.
func ParseInvoiceDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range DateLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format")
}
