// Package modelling derives analytical result tables from cleaned records.
package modelling

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/retail-flow/internal/model"
	"github.com/Veraticus/retail-flow/internal/rfm"
	"github.com/Veraticus/retail-flow/internal/table"
)

// Result table names.
const (
	CustomersTable = "Customers"
	ProductsTable  = "Products"
)

// Result is a modelling run's output.
type Result struct {
	Tables    map[string]*table.Table
	Customers []model.CustomerRFM
}

// Modeller runs customer scoring over cleaned records.
type Modeller struct {
	scorer *rfm.Scorer
}

// NewModeller creates a modeller.
func NewModeller(scorer *rfm.Scorer) *Modeller {
	return &Modeller{scorer: scorer}
}

// Subset keeps the records eligible for customer scoring: not cancelled, with
// a customer id and an invoice date.
func Subset(records []model.CleanRecord) []model.CleanRecord {
	out := make([]model.CleanRecord, 0, len(records))
	for i := range records {
		r := &records[i]
		if r.Cancelled || r.CustomerID == nil || r.InvoiceDate == nil {
			continue
		}
		out = append(out, *r)
	}
	return out
}

// Run scores customers and returns the Customers table along with an empty
// Products table. Product tagging is not implemented.
func (m *Modeller) Run(ctx context.Context, records []model.CleanRecord) (*Result, error) {
	subset := Subset(records)
	slog.Info("Modelling customers", "eligible_rows", len(subset), "total_rows", len(records))

	customers, err := m.scorer.Score(ctx, subset)
	if err != nil {
		return nil, fmt.Errorf("score customers: %w", err)
	}

	return &Result{
		Customers: customers,
		Tables: map[string]*table.Table{
			CustomersTable: CustomersTableOf(customers),
			ProductsTable:  table.New(ProductsTable),
		},
	}, nil
}

// CustomersTableOf renders scored customers.
func CustomersTableOf(customers []model.CustomerRFM) *table.Table {
	t := table.New(CustomersTable, model.CustomerColumns...)
	t.Rows = make([][]any, 0, len(customers))
	for i := range customers {
		t.Rows = append(t.Rows, customers[i].Row())
	}
	return t
}
