package reconcile

import (
	"fmt"
	"sort"
	"unicode"

	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/model"
)

// DuplicateGroup is the total quantity of one description of a stock code that
// has more than one distinct description.
type DuplicateGroup struct {
	StockCode     string
	Description   string
	TotalQuantity int64
}

type pairKey struct {
	stockCode   string
	description string
}

// BuildGroups sums quantity per (stock code, description) and keeps the codes
// with more than one description. Rows without a description are skipped and a
// missing quantity counts as zero. Groups are sorted by code, then description.
func BuildGroups(txns []model.Transaction) []DuplicateGroup {
	totals := make(map[pairKey]int64)
	for i := range txns {
		t := &txns[i]
		if t.Description == nil {
			continue
		}
		key := pairKey{stockCode: t.StockCode, description: *t.Description}
		var qty int64
		if t.Quantity != nil {
			qty = *t.Quantity
		}
		totals[key] += qty
	}
	return keepDuplicated(totals)
}

// regroup re-aggregates groups after renaming descriptions through mapping.
func regroup(groups []DuplicateGroup, mapping map[pairKey]string) []DuplicateGroup {
	totals := make(map[pairKey]int64, len(groups))
	for _, g := range groups {
		key := pairKey{stockCode: g.StockCode, description: g.Description}
		if to, ok := mapping[key]; ok {
			key.description = to
		}
		totals[key] += g.TotalQuantity
	}
	return keepDuplicated(totals)
}

func keepDuplicated(totals map[pairKey]int64) []DuplicateGroup {
	perCode := make(map[string]int)
	for key := range totals {
		perCode[key.stockCode]++
	}

	var groups []DuplicateGroup
	for key, qty := range totals {
		if perCode[key.stockCode] < 2 {
			continue
		}
		groups = append(groups, DuplicateGroup{
			StockCode:     key.stockCode,
			Description:   key.description,
			TotalQuantity: qty,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].StockCode != groups[j].StockCode {
			return groups[i].StockCode < groups[j].StockCode
		}
		return groups[i].Description < groups[j].Description
	})
	return groups
}

// Canonicals picks the maximal-quantity description of every grouped stock
// code, ignoring excluded pairs. A code whose maxima are all excluded has no
// canonical. A code left with more than one is a fatal tie.
func Canonicals(groups []DuplicateGroup, anomalies KnownAnomalies) (map[string]string, error) {
	maxQty := make(map[string]int64)
	for _, g := range groups {
		if q, ok := maxQty[g.StockCode]; !ok || g.TotalQuantity > q {
			maxQty[g.StockCode] = g.TotalQuantity
		}
	}

	candidates := make(map[string][]string)
	var codes []string
	for _, g := range groups {
		if g.TotalQuantity != maxQty[g.StockCode] || anomalies.Excluded(g.StockCode, g.Description) {
			continue
		}
		if _, seen := candidates[g.StockCode]; !seen {
			codes = append(codes, g.StockCode)
		}
		candidates[g.StockCode] = append(candidates[g.StockCode], g.Description)
	}
	sort.Strings(codes)

	canon := make(map[string]string, len(codes))
	for _, code := range codes {
		descs := candidates[code]
		if len(descs) > 1 {
			return nil, common.NewIntegrityError(common.KindAmbiguousCanonical, code,
				fmt.Sprintf("%d descriptions share the maximal quantity %d", len(descs), maxQty[code]),
				descs...)
		}
		canon[code] = descs[0]
	}
	return canon, nil
}

// IsUpper reports whether s has at least one cased letter and no lower-case
// ones. Digits and punctuation are ignored.
func IsUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r), unicode.IsTitle(r):
			return false
		case unicode.IsUpper(r):
			cased = true
		}
	}
	return cased
}
