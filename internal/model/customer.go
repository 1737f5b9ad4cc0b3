package model

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Segment is the named customer group derived from an RFM score.
type Segment string

// Customer segments.
const (
	SegmentNone         Segment = ""
	SegmentBad          Segment = "Bad Customer"
	SegmentAverage      Segment = "Average Customer"
	SegmentGood         Segment = "Good Customer"
	SegmentLost         Segment = "Lost Customers"
	SegmentInfrequent   Segment = "Infrequent Shopper"
	SegmentSmallSpender Segment = "Small Spender"
	SegmentWorst        Segment = "Worst Customers"
	SegmentRecent       Segment = "Recent Customers"
	SegmentFrequent     Segment = "Frequent Shoppers"
	SegmentBigSpender   Segment = "Big Spenders"
	SegmentBest         Segment = "Best Customers"
)

// CustomerColumns is the column order of the Customers result table.
var CustomerColumns = []string{
	"Customer ID",
	"DaysSinceLastPurchase(R)",
	"NumberOfOrders(F)",
	"TotalSpent(M)",
	"Recency",
	"Frequency",
	"Monetary",
	"RFMScore",
	"Segment",
}

// CustomerRFM holds one customer's recency, frequency and monetary figures
// and the scores derived from them.
type CustomerRFM struct {
	TotalSpent            decimal.Decimal
	RFMScore              string
	Segment               Segment
	CustomerID            int64
	DaysSinceLastPurchase int
	NumberOfOrders        int
	Recency               int
	Frequency             int
	Monetary              int
}

// ScoreSum is the sum of the three ordinal scores.
func (c *CustomerRFM) ScoreSum() int {
	return c.Recency + c.Frequency + c.Monetary
}

// Row renders the customer in CustomerColumns order.
func (c *CustomerRFM) Row() []any {
	return []any{
		c.CustomerID,
		c.DaysSinceLastPurchase,
		c.NumberOfOrders,
		c.TotalSpent,
		c.Recency,
		c.Frequency,
		c.Monetary,
		c.RFMScore,
		string(c.Segment),
	}
}

// CompositeScore concatenates recency, frequency and monetary digits.
func CompositeScore(recency, frequency, monetary int) string {
	return strconv.Itoa(recency) + strconv.Itoa(frequency) + strconv.Itoa(monetary)
}
