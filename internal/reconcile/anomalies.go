package reconcile

import "strings"

// Replacement is a literal substring fix applied to every description before
// grouping.
type Replacement struct {
	Old string
	New string
}

// Exclusion removes a description from canonical selection. An empty
// StockCode matches every code.
type Exclusion struct {
	Description string
	StockCode   string
}

// Matches reports whether the exclusion applies to the (code, description) pair.
func (e Exclusion) Matches(stockCode, description string) bool {
	if e.Description != description {
		return false
	}
	return e.StockCode == "" || e.StockCode == stockCode
}

// Correction forces a description for every row of a stock code.
type Correction struct {
	StockCode   string
	Description string
}

// KnownAnomalies collects the manually curated data fixes.
type KnownAnomalies struct {
	Replacements []Replacement
	Exclusions   []Exclusion
	Corrections  []Correction
}

// DefaultAnomalies returns the fixes discovered in the online retail data.
func DefaultAnomalies() KnownAnomalies {
	return KnownAnomalies{
		Replacements: []Replacement{
			{Old: "x40cm", New: "X40CM"},
			{Old: "x45cm", New: "X45CM"},
			{Old: "x30CM", New: "X30CM"},
			{Old: "x30cm", New: "X30CM"},
			{Old: "TRADITIONAl", New: "TRADITIONAL"},
			{Old: "No", New: "NO"},
		},
		Exclusions: []Exclusion{
			// Ties with the set description on 84968B; fixed by the correction below.
			{Description: "S/16 VINTAGE IVORY CUTLERY"},
			{Description: "found", StockCode: "35598C"},
		},
		Corrections: []Correction{
			{StockCode: "84968B", Description: "SET OF 16 VINTAGE IVORY CUTLERY"},
		},
	}
}

// Excluded reports whether any exclusion matches the pair.
func (a KnownAnomalies) Excluded(stockCode, description string) bool {
	for _, e := range a.Exclusions {
		if e.Matches(stockCode, description) {
			return true
		}
	}
	return false
}

// Normalize applies the replacements in order.
func (a KnownAnomalies) Normalize(description string) string {
	for _, r := range a.Replacements {
		if r.Old == "" {
			continue
		}
		description = strings.ReplaceAll(description, r.Old, r.New)
	}
	return description
}

// Correction returns the forced description for a stock code.
func (a KnownAnomalies) Correction(stockCode string) (string, bool) {
	for _, c := range a.Corrections {
		if c.StockCode == stockCode {
			return c.Description, true
		}
	}
	return "", false
}
