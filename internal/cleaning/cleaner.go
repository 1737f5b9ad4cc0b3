// Package cleaning turns raw transactions into the fixed-schema cleaned table:
// normalized text, dropped duplicates, reconciled descriptions and the derived
// flag columns.
package cleaning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/retail-flow/internal/model"
	"github.com/Veraticus/retail-flow/internal/reconcile"
	"github.com/Veraticus/retail-flow/internal/table"
)

// DefaultCancellationMarker marks cancelled invoices, e.g. "C489449".
const DefaultCancellationMarker = "C"

// TableName is the name of the cleaned section in exports.
const TableName = "cleaned_transactions"

// Options configures the cleaner.
type Options struct {
	CancellationMarker string
}

// Result is the outcome of a cleaning run.
type Result struct {
	Reconcile         *reconcile.Report
	Records           []model.CleanRecord
	InputRows         int
	DuplicatesDropped int
}

// Cleaner runs the cleaning steps over a whole table.
type Cleaner struct {
	reconciler *reconcile.Reconciler
	marker     string
}

// NewCleaner creates a cleaner. An empty marker falls back to the default.
func NewCleaner(reconciler *reconcile.Reconciler, opts Options) *Cleaner {
	marker := opts.CancellationMarker
	if marker == "" {
		marker = DefaultCancellationMarker
	}
	return &Cleaner{reconciler: reconciler, marker: marker}
}

// Clean produces cleaned records from txns without modifying them. A
// reconciliation failure aborts the run and no records are returned.
func (c *Cleaner) Clean(ctx context.Context, txns []model.Transaction) (*Result, error) {
	slog.Info("Cleaning transactions", "rows", len(txns))

	staged, cancelled := c.stage(txns)
	dropped := len(txns) - len(staged)
	if dropped > 0 {
		slog.Debug("Dropped duplicate rows", "count", dropped)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reconciled, report, err := c.reconciler.Reconcile(ctx, staged)
	if err != nil {
		return nil, fmt.Errorf("reconcile descriptions: %w", err)
	}

	records := make([]model.CleanRecord, len(reconciled))
	for i := range reconciled {
		rec := &reconciled[i]
		out := model.CleanRecord{
			Transaction:   rec.Transaction,
			Cancelled:     cancelled[i],
			IsIssue:       rec.IsIssue,
			IssueCategory: rec.IssueCategory,
		}
		if staged[i].Description != nil {
			out.OrigDescription = model.StringPtr(*staged[i].Description)
		}
		setFlags(&out)
		if out.InvoiceDate != nil {
			out.Date = out.InvoiceDate.Format(model.DateLayout)
			out.Time = out.InvoiceDate.Format(model.TimeLayout)
		}
		records[i] = out
	}

	return &Result{
		Records:           records,
		Reconcile:         report,
		InputRows:         len(txns),
		DuplicatesDropped: dropped,
	}, nil
}

// Annotations returns the issue annotations the reconciler would classify for
// txns, after the same staging Clean applies.
func (c *Cleaner) Annotations(ctx context.Context, txns []model.Transaction) ([]string, error) {
	staged, _ := c.stage(txns)
	return c.reconciler.Annotations(ctx, staged)
}

// stage uppercases stock codes, drops duplicates, marks cancellations and
// trims text fields. The input is not modified.
func (c *Cleaner) stage(txns []model.Transaction) ([]model.Transaction, []bool) {
	staged := make([]model.Transaction, len(txns))
	for i := range txns {
		staged[i] = txns[i].Clone()
		staged[i].StockCode = strings.ToUpper(staged[i].StockCode)
	}

	staged = DropDuplicates(staged)

	cancelled := make([]bool, len(staged))
	for i := range staged {
		t := &staged[i]
		cancelled[i] = strings.Contains(t.Invoice, c.marker)
		t.Invoice = strings.TrimSpace(t.Invoice)
		t.StockCode = strings.TrimSpace(t.StockCode)
		t.Country = strings.TrimSpace(t.Country)
		if t.Description != nil {
			t.Description = model.StringPtr(strings.TrimSpace(*t.Description))
		}
	}
	return staged, cancelled
}

// setFlags derives the quality flags. Missing values leave a flag false.
func setFlags(r *model.CleanRecord) {
	r.NoDescriptionOrPrice = r.Description == nil
	r.PriceIsCredit = r.Price != nil && r.Price.IsNegative()
	r.QuantityLeqZero = r.Quantity != nil && *r.Quantity <= 0
}

// DropDuplicates removes exact duplicate rows, keeping the last occurrence.
// Survivors stay in the order of their last occurrence.
func DropDuplicates(txns []model.Transaction) []model.Transaction {
	last := make(map[string]int, len(txns))
	for i := range txns {
		last[txns[i].Key()] = i
	}

	out := make([]model.Transaction, 0, len(last))
	for i := range txns {
		if last[txns[i].Key()] == i {
			out = append(out, txns[i])
		}
	}
	return out
}

// RecordsTable renders cleaned records in the fixed output schema.
func RecordsTable(records []model.CleanRecord) *table.Table {
	t := table.New(TableName, model.CleanColumns...)
	t.Rows = make([][]any, 0, len(records))
	for i := range records {
		t.Rows = append(t.Rows, records[i].Row())
	}
	return t
}

// Sources rebuilds the pre-reconciliation transactions of cleaned records.
func Sources(records []model.CleanRecord) []model.Transaction {
	out := make([]model.Transaction, len(records))
	for i := range records {
		out[i] = records[i].Source()
	}
	return out
}
