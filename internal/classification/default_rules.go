package classification

import "github.com/Veraticus/retail-flow/internal/model"

// DefaultIssueRules returns the issue keyword table, in evaluation order. The
// keywords were curated from fuzzy-matching the annotations found in the
// online retail data; anything they miss stays Unclassified.
func DefaultIssueRules() []IssueRule {
	return []IssueRule{
		{
			Category: model.IssueDamaged,
			Keywords: []string{
				"damage", "dirty", "throw", "wet", "discolour", "faulty", "mouldy",
				"unsale", "crush", "crack", "broke", "damges", "rust",
			},
		},
		{
			Category: model.IssueWrongItem,
			Keywords: []string{"credit", "incorrect", "wrong"},
		},
		{
			Category: model.IssueOnline,
			Keywords: []string{"dotcom", "ebay", "amazon"},
		},
		{
			Category: model.IssueWrongEntry,
			Keywords: []string{"entry", "error"},
		},
		{
			Category: model.IssueMissingFromOrder,
			Keywords: []string{"lost", "missing"},
		},
		{
			Category: model.IssueMixUp,
			Keywords: []string{"wrongly", "mix up"},
		},
	}
}
