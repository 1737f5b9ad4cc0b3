package rfm

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/model"
)

func TestBins_MonotonicAndTotal(t *testing.T) {
	tests := []struct {
		name       string
		bins       Bins
		lo, hi     int
		increasing bool
	}{
		{name: "recency", bins: RecencyBins(), lo: 0, hi: 800, increasing: false},
		{name: "frequency", bins: FrequencyBins(), lo: 0, hi: 300, increasing: true},
		{name: "monetary", bins: MonetaryBins(), lo: 0, hi: 1000000, increasing: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := max(1, (tt.hi-tt.lo)/5000)
			prev, ok := tt.bins.ScoreInt(tt.lo)
			require.True(t, ok)
			for v := tt.lo; v <= tt.hi; v += step {
				got, ok := tt.bins.ScoreInt(v)
				require.True(t, ok, "value %d must be scored", v)
				if tt.increasing {
					assert.GreaterOrEqual(t, got, prev, "value %d", v)
				} else {
					assert.LessOrEqual(t, got, prev, "value %d", v)
				}
				prev = got
			}

			_, ok = tt.bins.ScoreInt(tt.hi + 1)
			assert.False(t, ok)
			_, ok = tt.bins.ScoreInt(-1)
			assert.False(t, ok)
		})
	}
}

func TestBins_Edges(t *testing.T) {
	r := RecencyBins()
	for days, want := range map[int]int{0: 4, 30: 4, 31: 3, 90: 3, 91: 2, 360: 2, 361: 1, 800: 1} {
		got, ok := r.ScoreInt(days)
		require.True(t, ok)
		assert.Equal(t, want, got, "days %d", days)
	}

	m := MonetaryBins()
	got, ok := m.Score(decimal.RequireFromString("-0.5"))
	require.True(t, ok)
	assert.Equal(t, 1, got)
	got, ok = m.Score(decimal.RequireFromString("1000.01"))
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestAssign(t *testing.T) {
	rules := DefaultSegmentRules()

	tests := []struct {
		name    string
		r, f, m int
		want    model.Segment
	}{
		{name: "sum band bad", r: 2, f: 2, m: 2, want: model.SegmentBad},
		{name: "sum band average", r: 3, f: 3, m: 2, want: model.SegmentAverage},
		{name: "sum band good", r: 3, f: 3, m: 3, want: model.SegmentGood},
		{name: "lost overrides average", r: 1, f: 3, m: 3, want: model.SegmentLost},
		{name: "small spender overrides infrequent", r: 2, f: 1, m: 1, want: model.SegmentSmallSpender},
		{name: "worst", r: 1, f: 1, m: 1, want: model.SegmentWorst},
		{name: "recent overrides small spender", r: 4, f: 1, m: 1, want: model.SegmentRecent},
		{name: "big spender overrides lost", r: 1, f: 2, m: 4, want: model.SegmentBigSpender},
		{name: "best", r: 4, f: 4, m: 4, want: model.SegmentBest},
		{name: "frequent", r: 2, f: 4, m: 3, want: model.SegmentFrequent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Assign(rules, tt.r, tt.f, tt.m))
		})
	}

	assert.Equal(t, model.SegmentNone, Assign(nil, 2, 2, 2))
}

var maxDay = time.Date(2011, 12, 9, 12, 50, 0, 0, time.UTC)

func purchaseRecord(customer int64, ts time.Time, qty int64, price string) model.CleanRecord {
	return model.CleanRecord{
		Transaction: model.Transaction{
			Invoice:     "1",
			StockCode:   "A",
			CustomerID:  model.Int64Ptr(customer),
			InvoiceDate: model.TimePtr(ts),
			Quantity:    model.Int64Ptr(qty),
			Price:       model.DecimalPtr(decimal.RequireFromString(price)),
		},
	}
}

func TestScorer_Score(t *testing.T) {
	twentyFiveDaysBefore := maxDay.AddDate(0, 0, -25)
	records := []model.CleanRecord{
		// Sets the dataset's max date.
		purchaseRecord(20000, maxDay, 1, "10"),
		// Customer 12346: two distinct days, 500 spent, last purchase 25 days ago.
		purchaseRecord(12346, twentyFiveDaysBefore, 10, "20"),
		purchaseRecord(12346, twentyFiveDaysBefore.Add(-3*time.Hour), 5, "10"),
		purchaseRecord(12346, twentyFiveDaysBefore.AddDate(0, 0, -40), 25, "10"),
		// No customer id, ignored.
		{Transaction: model.Transaction{InvoiceDate: model.TimePtr(maxDay)}},
	}

	got, err := NewScorer().Score(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, got, 2)

	c := got[0]
	assert.Equal(t, int64(12346), c.CustomerID)
	assert.Equal(t, 25, c.DaysSinceLastPurchase)
	assert.Equal(t, 2, c.NumberOfOrders)
	assert.True(t, decimal.NewFromInt(500).Equal(c.TotalSpent), c.TotalSpent.String())
	assert.Equal(t, 4, c.Recency)
	assert.Equal(t, 1, c.Frequency)
	assert.Equal(t, 1, c.Monetary)
	assert.Equal(t, "411", c.RFMScore)
	assert.Equal(t, model.SegmentRecent, c.Segment)

	assert.Equal(t, int64(20000), got[1].CustomerID)
	assert.Equal(t, 0, got[1].DaysSinceLastPurchase)
}

func TestScorer_OutOfRange(t *testing.T) {
	records := []model.CleanRecord{
		purchaseRecord(1, maxDay, 1, "10"),
		purchaseRecord(2, maxDay.AddDate(0, 0, -900), 1, "10"),
	}

	_, err := NewScorer().Score(context.Background(), records)
	require.Error(t, err)
	assert.True(t, common.IsIntegrityKind(err, common.KindOutOfRange))

	records = []model.CleanRecord{purchaseRecord(1, maxDay, -5, "10")}
	_, err = NewScorer().Score(context.Background(), records)
	assert.True(t, common.IsIntegrityKind(err, common.KindOutOfRange))
}

func TestScorer_NoRecords(t *testing.T) {
	_, err := NewScorer().Score(context.Background(), nil)
	assert.ErrorIs(t, err, common.ErrNoRecords)
}

func TestScorer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScorer().Score(ctx, []model.CleanRecord{purchaseRecord(1, maxDay, 1, "1")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCountSegments(t *testing.T) {
	got := CountSegments([]model.CustomerRFM{
		{Segment: model.SegmentBest},
		{Segment: model.SegmentLost},
		{Segment: model.SegmentBest},
	})
	require.Len(t, got, 2)
	assert.Equal(t, SegmentCount{Segment: model.SegmentBest, Count: 2}, got[0])
	assert.Equal(t, SegmentCount{Segment: model.SegmentLost, Count: 1}, got[1])
}
