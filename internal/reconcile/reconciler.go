// Package reconcile resolves stock codes that carry more than one description.
//
// Staff used the description column for two things: the product name and
// free-text notes about problems with an order ("damaged", "check", "lost").
// Reconciliation runs in two passes. The first maps "check" placeholders onto
// the code's canonical description. The second treats the remaining
// non-uppercase descriptions as issue annotations: it classifies and flags
// them, then overwrites every description of a grouped code with its canonical.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/retail-flow/internal/classification"
	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/model"
)

// CheckMarker identifies placeholder descriptions resolved in the first pass.
// Matching is case-sensitive.
const CheckMarker = "check"

// Record is a transaction with its reconciled description and issue flag.
type Record struct {
	IssueCategory model.IssueCategory
	model.Transaction
	IsIssue bool
}

// Report summarizes a reconciliation run.
type Report struct {
	Annotations       []model.IssueClassification
	DuplicateCodes    int
	ChecksOverwritten int
	RowsFlagged       int
	RowsOverwritten   int
	RowsCorrected     int
}

// Reconciler runs both passes with a fixed rule table and anomaly table.
type Reconciler struct {
	classifier *classification.IssueClassifier
	anomalies  KnownAnomalies
}

// NewReconciler creates a reconciler.
func NewReconciler(classifier *classification.IssueClassifier, anomalies KnownAnomalies) *Reconciler {
	return &Reconciler{
		classifier: classifier,
		anomalies:  anomalies,
	}
}

// state is the working copy after the first pass.
type state struct {
	records []Record
	groups  []DuplicateGroup
	report  Report
}

// Reconcile returns reconciled copies of txns. The input is not modified. Any
// ambiguity in canonical selection or check mapping aborts the run.
func (r *Reconciler) Reconcile(ctx context.Context, txns []model.Transaction) ([]Record, *Report, error) {
	st, err := r.firstPass(ctx, txns)
	if err != nil {
		return nil, nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	canon, err := Canonicals(st.groups, r.anomalies)
	if err != nil {
		return nil, nil, fmt.Errorf("issue pass: %w", err)
	}

	classes, err := r.classifier.ClassifyAll(ctx, annotations(st.groups))
	if err != nil {
		return nil, nil, err
	}
	st.report.Annotations = sortedClassifications(classes)

	overwrite := make(map[pairKey]string, len(st.groups))
	for _, g := range st.groups {
		if to, ok := canon[g.StockCode]; ok {
			overwrite[pairKey{stockCode: g.StockCode, description: g.Description}] = to
		}
	}

	for i := range st.records {
		rec := &st.records[i]
		if rec.Description != nil {
			desc := *rec.Description
			// Flagging matches on description alone, across stock codes.
			if c, ok := classes[desc]; ok {
				rec.IsIssue = true
				rec.IssueCategory = c.Category
				st.report.RowsFlagged++
			}
			if to, ok := overwrite[pairKey{stockCode: rec.StockCode, description: desc}]; ok && to != desc {
				rec.Description = model.StringPtr(to)
				st.report.RowsOverwritten++
			}
		}
		if to, ok := r.anomalies.Correction(rec.StockCode); ok {
			rec.Description = model.StringPtr(to)
			st.report.RowsCorrected++
		}
	}

	slog.Info("Reconciled descriptions",
		"duplicate_codes", st.report.DuplicateCodes,
		"checks_overwritten", st.report.ChecksOverwritten,
		"annotations", len(st.report.Annotations),
		"rows_flagged", st.report.RowsFlagged,
		"rows_overwritten", st.report.RowsOverwritten)

	return st.records, &st.report, nil
}

// Annotations runs the normalization and check passes and returns the issue
// annotations that the second pass would classify, sorted.
func (r *Reconciler) Annotations(ctx context.Context, txns []model.Transaction) ([]string, error) {
	st, err := r.firstPass(ctx, txns)
	if err != nil {
		return nil, err
	}
	return annotations(st.groups), nil
}

func (r *Reconciler) firstPass(ctx context.Context, txns []model.Transaction) (*state, error) {
	st := &state{records: make([]Record, len(txns))}
	for i := range txns {
		txn := txns[i].Clone()
		if txn.Description != nil {
			txn.Description = model.StringPtr(r.anomalies.Normalize(*txn.Description))
		}
		st.records[i] = Record{Transaction: txn}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	plain := make([]model.Transaction, len(st.records))
	for i := range st.records {
		plain[i] = st.records[i].Transaction
	}
	groups := BuildGroups(plain)
	st.report.DuplicateCodes = countCodes(groups)

	canon, err := Canonicals(groups, r.anomalies)
	if err != nil {
		return nil, fmt.Errorf("check pass: %w", err)
	}

	checks, err := checkMapping(groups, canon)
	if err != nil {
		return nil, err
	}

	for i := range st.records {
		rec := &st.records[i]
		if rec.Description == nil {
			continue
		}
		if to, ok := checks[pairKey{stockCode: rec.StockCode, description: *rec.Description}]; ok {
			rec.Description = model.StringPtr(to)
			st.report.ChecksOverwritten++
		}
	}

	st.groups = regroup(groups, checks)
	slog.Debug("Check pass complete",
		"groups_before", len(groups),
		"groups_after", len(st.groups),
		"check_descriptions", len(checks))

	return st, nil
}

// checkMapping maps every grouped "check" description onto its code's
// canonical. Each code may carry at most one check description. A code with no
// canonical keeps its check description, which the issue pass then classifies.
func checkMapping(groups []DuplicateGroup, canon map[string]string) (map[pairKey]string, error) {
	mapping := make(map[pairKey]string)
	perCode := make(map[string][]string)

	for _, g := range groups {
		if !strings.Contains(g.Description, CheckMarker) {
			continue
		}
		perCode[g.StockCode] = append(perCode[g.StockCode], g.Description)
		if len(perCode[g.StockCode]) > 1 {
			return nil, common.NewIntegrityError(common.KindCheckMapping, g.StockCode,
				"more than one check description", perCode[g.StockCode]...)
		}
		to, ok := canon[g.StockCode]
		if !ok {
			slog.Warn("Check description has no canonical to map onto",
				"stock_code", g.StockCode, "description", g.Description)
			continue
		}
		mapping[pairKey{stockCode: g.StockCode, description: g.Description}] = to
	}
	return mapping, nil
}

// annotations returns the distinct non-uppercase descriptions, sorted.
func annotations(groups []DuplicateGroup) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, g := range groups {
		if IsUpper(g.Description) {
			continue
		}
		if _, ok := seen[g.Description]; ok {
			continue
		}
		seen[g.Description] = struct{}{}
		out = append(out, g.Description)
	}
	sort.Strings(out)
	return out
}

func sortedClassifications(classes map[string]model.IssueClassification) []model.IssueClassification {
	out := make([]model.IssueClassification, 0, len(classes))
	for _, c := range classes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Description < out[j].Description
	})
	return out
}

func countCodes(groups []DuplicateGroup) int {
	codes := make(map[string]struct{})
	for _, g := range groups {
		codes[g.StockCode] = struct{}{}
	}
	return len(codes)
}
