package similarity

import (
	"sort"
	"strings"
)

// Default suggestion settings. A zero limit scores every pair.
const (
	DefaultThreshold = 70
	DefaultLimit     = 0
)

// Options tunes Suggest.
type Options struct {
	// Threshold is the minimum score a pair needs to be reported.
	Threshold int
	// Limit caps how many best-scoring candidates are considered per label,
	// counting the label itself. Zero or less means no cap.
	Limit int
}

// DefaultOptions returns the settings used by the command line.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, Limit: DefaultLimit}
}

// Suggestion groups the candidates that matched a label with the same score.
type Suggestion struct {
	Label   string
	Matches []string
	Score   int
}

// Joined renders the matches the way they are shown to a reviewer.
func (s Suggestion) Joined() string {
	return strings.Join(s.Matches, ", ")
}

type candidate struct {
	label string
	score int
}

// Suggest scores every distinct label against every other and returns the
// pairs at or above the threshold. Each unordered pair is reported once, keyed
// by the lexicographically larger label. Results are ordered by score
// descending, then label.
func Suggest(labels []string, opts Options) []Suggestion {
	unique := dedupe(labels)

	type groupKey struct {
		label string
		score int
	}
	groups := make(map[groupKey]*Suggestion)
	var order []groupKey

	for _, x := range unique {
		for _, c := range topCandidates(x, unique, opts.Limit) {
			if c.score < opts.Threshold || c.label == x || x < c.label {
				continue
			}
			key := groupKey{label: x, score: c.score}
			s, ok := groups[key]
			if !ok {
				s = &Suggestion{Label: x, Score: c.score}
				groups[key] = s
				order = append(order, key)
			}
			s.Matches = append(s.Matches, c.label)
		}
	}

	out := make([]Suggestion, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// topCandidates returns the limit best matches for query, ties kept in input
// order. A limit of zero or less returns every label.
func topCandidates(query string, labels []string, limit int) []candidate {
	scored := make([]candidate, 0, len(labels))
	for _, l := range labels {
		scored = append(scored, candidate{label: l, score: TokenSortRatio(query, l)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func dedupe(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
