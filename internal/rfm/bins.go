package rfm

import (
	"github.com/shopspring/decimal"
)

// Bin is the right-closed interval (Lower, Upper] and the score it assigns.
type Bin struct {
	Lower decimal.Decimal
	Upper decimal.Decimal
	Score int
}

// Contains reports whether v falls in the interval.
func (b Bin) Contains(v decimal.Decimal) bool {
	return v.GreaterThan(b.Lower) && v.LessThanOrEqual(b.Upper)
}

// Bins is an ordered set of adjacent intervals.
type Bins []Bin

// Score returns the score of the interval holding v. ok is false when v lies
// outside every interval.
func (bs Bins) Score(v decimal.Decimal) (score int, ok bool) {
	for _, b := range bs {
		if b.Contains(v) {
			return b.Score, true
		}
	}
	return 0, false
}

// ScoreInt is Score for integer values.
func (bs Bins) ScoreInt(v int) (int, bool) {
	return bs.Score(decimal.NewFromInt(int64(v)))
}

func makeBins(edges []int64, scores []int) Bins {
	bins := make(Bins, len(scores))
	for i, s := range scores {
		bins[i] = Bin{
			Lower: decimal.NewFromInt(edges[i]),
			Upper: decimal.NewFromInt(edges[i+1]),
			Score: s,
		}
	}
	return bins
}

// RecencyBins scores days since the last purchase. Recent customers score
// highest.
func RecencyBins() Bins {
	return makeBins([]int64{-1, 30, 90, 360, 800}, []int{4, 3, 2, 1})
}

// FrequencyBins scores the number of distinct purchase days.
func FrequencyBins() Bins {
	return makeBins([]int64{-1, 3, 8, 35, 300}, []int{1, 2, 3, 4})
}

// MonetaryBins scores total spend.
func MonetaryBins() Bins {
	return makeBins([]int64{-1, 1000, 10000, 100000, 1000000}, []int{1, 2, 3, 4})
}
