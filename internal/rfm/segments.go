package rfm

import (
	"sort"

	"github.com/Veraticus/retail-flow/internal/model"
)

// SegmentRule assigns a segment when Match holds for the three scores.
type SegmentRule struct {
	Match   func(recency, frequency, monetary int) bool
	Segment model.Segment
}

// DefaultSegmentRules returns the segmentation rules in evaluation order.
// Every matching rule replaces the segment set by earlier ones, so the broad
// score-sum bands come first and the specific patterns override them.
func DefaultSegmentRules() []SegmentRule {
	sumIn := func(lo, hi int) func(r, f, m int) bool {
		return func(r, f, m int) bool {
			s := r + f + m
			return s >= lo && s <= hi
		}
	}
	return []SegmentRule{
		{Segment: model.SegmentBad, Match: sumIn(4, 6)},
		{Segment: model.SegmentAverage, Match: sumIn(7, 9)},
		{Segment: model.SegmentGood, Match: sumIn(10, 13)},
		{Segment: model.SegmentLost, Match: func(r, _, _ int) bool { return r == 1 }},
		{Segment: model.SegmentInfrequent, Match: func(_, f, _ int) bool { return f == 1 }},
		{Segment: model.SegmentSmallSpender, Match: func(_, _, m int) bool { return m == 1 }},
		{Segment: model.SegmentWorst, Match: func(r, f, m int) bool { return r == 1 && f == 1 && m == 1 }},
		{Segment: model.SegmentRecent, Match: func(r, _, _ int) bool { return r == 4 }},
		{Segment: model.SegmentFrequent, Match: func(_, f, _ int) bool { return f == 4 }},
		{Segment: model.SegmentBigSpender, Match: func(_, _, m int) bool { return m == 4 }},
		{Segment: model.SegmentBest, Match: func(r, f, m int) bool { return r == 4 && f == 4 && m == 4 }},
	}
}

// Assign evaluates every rule in order; the last match wins.
func Assign(rules []SegmentRule, recency, frequency, monetary int) model.Segment {
	seg := model.SegmentNone
	for _, rule := range rules {
		if rule.Match(recency, frequency, monetary) {
			seg = rule.Segment
		}
	}
	return seg
}

// SegmentCount is the number of customers in a segment.
type SegmentCount struct {
	Segment model.Segment
	Count   int
}

// CountSegments tallies customers per segment, largest first.
func CountSegments(customers []model.CustomerRFM) []SegmentCount {
	counts := make(map[model.Segment]int)
	for i := range customers {
		counts[customers[i].Segment]++
	}
	out := make([]SegmentCount, 0, len(counts))
	for seg, n := range counts {
		out = append(out, SegmentCount{Segment: seg, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Segment < out[j].Segment
	})
	return out
}
