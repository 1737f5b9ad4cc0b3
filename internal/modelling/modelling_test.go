package modelling

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/model"
	"github.com/Veraticus/retail-flow/internal/rfm"
	"github.com/Veraticus/retail-flow/internal/table"
)

var when = time.Date(2011, 12, 9, 12, 50, 0, 0, time.UTC)

func record(customer *int64, ts *time.Time, cancelled bool) model.CleanRecord {
	return model.CleanRecord{
		Transaction: model.Transaction{
			Invoice:     "581587",
			StockCode:   "22613",
			CustomerID:  customer,
			InvoiceDate: ts,
			Quantity:    model.Int64Ptr(12),
			Price:       model.DecimalPtr(decimal.RequireFromString("0.85")),
		},
		Cancelled: cancelled,
	}
}

func TestSubset(t *testing.T) {
	records := []model.CleanRecord{
		record(model.Int64Ptr(12680), model.TimePtr(when), false),
		record(model.Int64Ptr(12680), model.TimePtr(when), true),
		record(nil, model.TimePtr(when), false),
		record(model.Int64Ptr(12680), nil, false),
	}

	got := Subset(records)
	require.Len(t, got, 1)
	assert.False(t, got[0].Cancelled)
}

func TestModeller_Run(t *testing.T) {
	m := NewModeller(rfm.NewScorer())
	records := []model.CleanRecord{
		record(model.Int64Ptr(12680), model.TimePtr(when), false),
		record(model.Int64Ptr(12680), model.TimePtr(when), true),
	}

	result, err := m.Run(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, result.Tables, 2)
	customers := result.Tables[CustomersTable]
	require.NotNil(t, customers)
	assert.Equal(t, model.CustomerColumns, customers.Columns)
	require.Equal(t, 1, customers.Len())
	assert.Equal(t, int64(12680), customers.Rows[0][0])
	assert.Equal(t, "10.2", table.FormatCell(customers.Rows[0][customers.Column("TotalSpent(M)")]))
	assert.Equal(t, "411", customers.Rows[0][customers.Column("RFMScore")])

	products := result.Tables[ProductsTable]
	require.NotNil(t, products)
	assert.Empty(t, products.Columns)
	assert.Zero(t, products.Len())
}

func TestModeller_RunNoEligibleRows(t *testing.T) {
	m := NewModeller(rfm.NewScorer())

	_, err := m.Run(context.Background(), []model.CleanRecord{record(nil, nil, false)})
	assert.ErrorIs(t, err, common.ErrNoRecords)
}
