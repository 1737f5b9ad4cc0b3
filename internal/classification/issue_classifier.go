// Package classification sorts issue annotations (free text recorded where a
// product description belongs) into a closed set of order problem categories.
package classification

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/retail-flow/internal/model"
)

// IssueRule pairs a category with the keywords that indicate it.
type IssueRule struct {
	Category model.IssueCategory
	Keywords []string
}

// IssueClassifier applies an ordered rule table. The first rule with a
// keyword contained in the text decides the category.
type IssueClassifier struct {
	rules []IssueRule
}

// NewIssueClassifier validates the rules and lower-cases their keywords.
func NewIssueClassifier(rules []IssueRule) (*IssueClassifier, error) {
	compiled := make([]IssueRule, 0, len(rules))

	for i, r := range rules {
		if r.Category == "" {
			return nil, fmt.Errorf("rule %d: category is required", i)
		}
		if r.Category == model.IssueUnclassified {
			return nil, fmt.Errorf("rule %d: %s is the fallback and cannot have keywords", i, model.IssueUnclassified)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("rule %d (%s): at least one keyword is required", i, r.Category)
		}

		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			// An empty keyword would match every annotation.
			if strings.TrimSpace(k) == "" {
				return nil, fmt.Errorf("rule %d (%s): empty keyword", i, r.Category)
			}
			keywords = append(keywords, strings.ToLower(k))
		}

		compiled = append(compiled, IssueRule{Category: r.Category, Keywords: keywords})
	}

	return &IssueClassifier{rules: compiled}, nil
}

// Classify returns the category of a single annotation.
func (c *IssueClassifier) Classify(text string) model.IssueClassification {
	lower := strings.ToLower(text)

	for _, rule := range c.rules {
		for _, k := range rule.Keywords {
			if strings.Contains(lower, k) {
				return model.IssueClassification{
					Description: text,
					Category:    rule.Category,
					IsIssue:     true,
				}
			}
		}
	}

	return model.IssueClassification{
		Description: text,
		Category:    model.IssueUnclassified,
		IsIssue:     true,
	}
}

// ClassifyAll classifies each distinct annotation once.
func (c *IssueClassifier) ClassifyAll(ctx context.Context, texts []string) (map[string]model.IssueClassification, error) {
	results := make(map[string]model.IssueClassification, len(texts))

	for _, text := range texts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if _, done := results[text]; done {
			continue
		}
		results[text] = c.Classify(text)
	}

	return results, nil
}

// RuleCount returns the number of loaded rules.
func (c *IssueClassifier) RuleCount() int {
	return len(c.rules)
}

// CategoryCount is the number of annotations in one category.
type CategoryCount struct {
	Category model.IssueCategory
	Count    int
}

// Summarize counts annotations per category, largest first.
func Summarize(classes map[string]model.IssueClassification) []CategoryCount {
	counts := make(map[model.IssueCategory]int)
	for _, c := range classes {
		counts[c.Category]++
	}

	out := make([]CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}
