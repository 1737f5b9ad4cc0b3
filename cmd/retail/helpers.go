package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/retail-flow/internal/classification"
	"github.com/Veraticus/retail-flow/internal/cleaning"
	"github.com/Veraticus/retail-flow/internal/cli"
	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/config"
	"github.com/Veraticus/retail-flow/internal/export"
	"github.com/Veraticus/retail-flow/internal/ingest"
	"github.com/Veraticus/retail-flow/internal/pipeline"
	"github.com/Veraticus/retail-flow/internal/reconcile"
	"github.com/Veraticus/retail-flow/internal/rfm"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("invalid configuration", err)
	}
	return cfg, nil
}

func newSource(cfg *config.Config) (pipeline.FileSource, error) {
	loc, err := cfg.Input.Location()
	if err != nil {
		return pipeline.FileSource{}, err
	}
	return pipeline.FileSource{
		Path:    cfg.Input.Path,
		Options: ingest.Options{Location: loc, Sheet: cfg.Input.Sheet},
	}, nil
}

func newReconciler() (*reconcile.Reconciler, error) {
	classifier, err := classification.NewIssueClassifier(classification.DefaultIssueRules())
	if err != nil {
		return nil, err
	}
	return reconcile.NewReconciler(classifier, reconcile.DefaultAnomalies()), nil
}

func newCleaner(cfg *config.Config) (*cleaning.Cleaner, error) {
	reconciler, err := newReconciler()
	if err != nil {
		return nil, err
	}
	return cleaning.NewCleaner(reconciler, cleaning.Options{
		CancellationMarker: cfg.Cleaning.CancellationMarker,
	}), nil
}

func newExporter(ctx context.Context, cfg *config.Config) (export.Exporter, error) {
	format, err := export.ParseFormat(cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	return export.New(ctx, format, cfg.Output.Path, cfg.Sheets.Export())
}

// buildPipeline assembles a pipeline and attaches a progress bar sized to its
// stages.
func buildPipeline(w io.Writer, source pipeline.Source, cleaner *cleaning.Cleaner, opts ...pipeline.Option) *pipeline.Pipeline {
	p := pipeline.New(source, cleaner, opts...)
	if noProgress {
		pipeline.WithProgress(stageTracker{})(p)
		return p
	}
	pipeline.WithProgress(cli.NewStageProgress(w, len(p.Stages()), interrupts.SetStage))(p)
	return p
}

// stageTracker keeps the interrupt handler informed without drawing a bar.
type stageTracker struct{}

func (stageTracker) StageStarted(stage string) { interrupts.SetStage(stage) }
func (stageTracker) StageDone(string)          {}

func segmentSummary(counts []rfm.SegmentCount) string {
	rows := make([][]string, 0, len(counts))
	total := 0
	for _, c := range counts {
		name := string(c.Segment)
		if name == "" {
			name = "(unsegmented)"
		}
		rows = append(rows, []string{name, strconv.Itoa(c.Count)})
		total += c.Count
	}
	rows = append(rows, []string{"Total", strconv.Itoa(total)})
	return cli.RenderTable([]string{"Segment", "Customers"}, rows)
}

func cleaningSummary(res *cleaning.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  • Input rows: %d\n", res.InputRows)
	fmt.Fprintf(&b, "  • Duplicates dropped: %d\n", res.DuplicatesDropped)
	fmt.Fprintf(&b, "  • Clean rows: %d\n", len(res.Records))
	if r := res.Reconcile; r != nil {
		fmt.Fprintf(&b, "  • Stock codes with several descriptions: %d\n", r.DuplicateCodes)
		fmt.Fprintf(&b, "  • Check rows overwritten: %d\n", r.ChecksOverwritten)
		fmt.Fprintf(&b, "  • Rows flagged as issues: %d\n", r.RowsFlagged)
		fmt.Fprintf(&b, "  • Descriptions overwritten: %d\n", r.RowsOverwritten)
		fmt.Fprintf(&b, "  • Descriptions corrected: %d", r.RowsCorrected)
	}
	return b.String()
}

func exportTarget(cfg *config.Config) string {
	if cfg.Output.Format == string(export.FormatSheets) {
		name := cfg.Sheets.SpreadsheetID
		if name == "" {
			name = cfg.Sheets.SpreadsheetName
		}
		return "Google Sheets (" + name + ")"
	}
	return cfg.Output.Path
}
