package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_Key(t *testing.T) {
	when := time.Date(2010, 12, 1, 8, 26, 0, 0, time.UTC)
	base := Transaction{
		Invoice:     "536365",
		StockCode:   "85123A",
		Description: StringPtr("WHITE HANGING HEART T-LIGHT HOLDER"),
		Quantity:    Int64Ptr(6),
		Price:       DecimalPtr(decimal.RequireFromString("2.55")),
		InvoiceDate: TimePtr(when),
		CustomerID:  Int64Ptr(17850),
		Country:     "United Kingdom",
	}

	tests := []struct {
		mutate   func(*Transaction)
		name     string
		wantSame bool
	}{
		{name: "identical rows", mutate: func(*Transaction) {}, wantSame: true},
		{name: "different quantity", mutate: func(t *Transaction) { t.Quantity = Int64Ptr(7) }},
		{name: "missing description differs from empty", mutate: func(t *Transaction) { t.Description = nil }},
		{name: "missing customer", mutate: func(t *Transaction) { t.CustomerID = nil }},
		{name: "different price", mutate: func(t *Transaction) { t.Price = DecimalPtr(decimal.RequireFromString("2.56")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base.Clone()
			tt.mutate(&other)
			if tt.wantSame {
				assert.Equal(t, base.Key(), other.Key())
			} else {
				assert.NotEqual(t, base.Key(), other.Key())
			}
		})
	}

	empty := base.Clone()
	empty.Description = StringPtr("")
	missing := base.Clone()
	missing.Description = nil
	assert.NotEqual(t, empty.Key(), missing.Key())
}

func TestTransaction_CloneIsDeep(t *testing.T) {
	orig := Transaction{Description: StringPtr("A"), Quantity: Int64Ptr(1)}
	clone := orig.Clone()
	*clone.Description = "B"
	*clone.Quantity = 2

	assert.Equal(t, "A", *orig.Description)
	assert.Equal(t, int64(1), *orig.Quantity)
}

func TestTransaction_TotalPrice(t *testing.T) {
	txn := Transaction{Quantity: Int64Ptr(-3), Price: DecimalPtr(decimal.RequireFromString("1.25"))}
	assert.True(t, decimal.RequireFromString("-3.75").Equal(txn.TotalPrice()))

	txn.Price = nil
	assert.True(t, txn.TotalPrice().IsZero())
}

func TestCleanRecord_SourceAndRow(t *testing.T) {
	rec := CleanRecord{
		Transaction: Transaction{
			Invoice:     "C536379",
			StockCode:   "D",
			Description: StringPtr("Discount"),
			Quantity:    Int64Ptr(-1),
			Country:     "United Kingdom",
		},
		OrigDescription: StringPtr("discount"),
		Cancelled:       true,
		QuantityLeqZero: true,
	}

	src := rec.Source()
	require.NotNil(t, src.Description)
	assert.Equal(t, "discount", *src.Description)
	assert.Equal(t, "Discount", *rec.Description)

	row := rec.Row()
	require.Len(t, row, len(CleanColumns))
	assert.Equal(t, "C536379", row[0])
	assert.Nil(t, row[4], "missing customer id renders as nil")
	assert.Nil(t, row[7], "missing price renders as nil")
	assert.Equal(t, true, row[11])
	assert.Equal(t, [5]bool{true, false, true, false, false}, rec.Flags())
}

func TestCustomerRFM_Row(t *testing.T) {
	c := CustomerRFM{
		CustomerID:            12346,
		DaysSinceLastPurchase: 25,
		NumberOfOrders:        2,
		TotalSpent:            decimal.NewFromInt(500),
		Recency:               4,
		Frequency:             1,
		Monetary:              1,
		RFMScore:              CompositeScore(4, 1, 1),
		Segment:               SegmentSmallSpender,
	}

	assert.Equal(t, "411", c.RFMScore)
	assert.Equal(t, 6, c.ScoreSum())
	assert.Len(t, c.Row(), len(CustomerColumns))
	assert.Equal(t, "Small Spender", c.Row()[8])
}
