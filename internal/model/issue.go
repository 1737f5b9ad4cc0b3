package model

// IssueCategory is the closed set of order problems recorded in place of a
// product description.
type IssueCategory string

// Issue categories.
const (
	IssueDamaged          IssueCategory = "Damaged"
	IssueWrongItem        IssueCategory = "Wrong Item"
	IssueOnline           IssueCategory = "Online"
	IssueWrongEntry       IssueCategory = "Wrong Entry"
	IssueMissingFromOrder IssueCategory = "Missing from order"
	IssueMixUp            IssueCategory = "Mix up"
	IssueUnclassified     IssueCategory = "Unclassified"
)

// IssueClassification maps an issue annotation to its category.
type IssueClassification struct {
	Description string
	Category    IssueCategory
	IsIssue     bool
}
