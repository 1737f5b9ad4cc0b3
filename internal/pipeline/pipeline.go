// Package pipeline runs the batch stages load, clean, model and export in
// order over a whole transaction table.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/retail-flow/internal/cleaning"
	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/export"
	"github.com/Veraticus/retail-flow/internal/ingest"
	"github.com/Veraticus/retail-flow/internal/model"
	"github.com/Veraticus/retail-flow/internal/modelling"
	"github.com/Veraticus/retail-flow/internal/table"
)

// Stage names.
const (
	StageLoad   = "Loading transactions"
	StageClean  = "Cleaning records"
	StageModel  = "Scoring customers"
	StageExport = "Exporting"
)

// Source supplies raw transactions.
type Source interface {
	Load(ctx context.Context) ([]model.Transaction, error)
}

// FileSource loads a CSV or XLSX file.
type FileSource struct {
	Path    string
	Options ingest.Options
}

// Load reads the file.
func (s FileSource) Load(ctx context.Context) ([]model.Transaction, error) {
	return ingest.Load(ctx, s.Path, s.Options)
}

// Progress is told when each stage starts and finishes.
type Progress interface {
	StageStarted(stage string)
	StageDone(stage string)
}

type noProgress struct{}

func (noProgress) StageStarted(string) {}
func (noProgress) StageDone(string)    {}

// Pipeline wires the stages together. A nil modeller skips scoring and a nil
// exporter skips the export.
type Pipeline struct {
	source   Source
	cleaner  *cleaning.Cleaner
	modeller *modelling.Modeller
	exporter export.Exporter
	progress Progress
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithModeller enables customer scoring.
func WithModeller(m *modelling.Modeller) Option {
	return func(p *Pipeline) { p.modeller = m }
}

// WithExporter enables the export stage.
func WithExporter(e export.Exporter) Option {
	return func(p *Pipeline) { p.exporter = e }
}

// WithProgress reports stage progress.
func WithProgress(pr Progress) Option {
	return func(p *Pipeline) { p.progress = pr }
}

// New creates a pipeline that always loads and cleans.
func New(source Source, cleaner *cleaning.Cleaner, opts ...Option) *Pipeline {
	p := &Pipeline{source: source, cleaner: cleaner, progress: noProgress{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stages lists the enabled stages in run order.
func (p *Pipeline) Stages() []string {
	stages := []string{StageLoad, StageClean}
	if p.modeller != nil {
		stages = append(stages, StageModel)
	}
	if p.exporter != nil {
		stages = append(stages, StageExport)
	}
	return stages
}

// Result collects each stage's output.
type Result struct {
	Clean    *cleaning.Result
	Model    *modelling.Result
	Tables   []*table.Table
	Duration time.Duration
}

// Run executes the enabled stages. Cancellation is checked before each stage;
// any failure stops the run before the export is written.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{}

	var txns []model.Transaction
	err := p.stage(ctx, StageLoad, func() error {
		var err error
		txns, err = p.source.Load(ctx)
		if err != nil {
			return err
		}
		if len(txns) == 0 {
			return fmt.Errorf("input: %w", common.ErrNoRecords)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageClean, func() error {
		var err error
		res.Clean, err = p.cleaner.Clean(ctx, txns)
		return err
	})
	if err != nil {
		return nil, err
	}

	tables := map[string]*table.Table{
		cleaning.TableName: cleaning.RecordsTable(res.Clean.Records),
	}

	if p.modeller != nil {
		err = p.stage(ctx, StageModel, func() error {
			var err error
			res.Model, err = p.modeller.Run(ctx, res.Clean.Records)
			return err
		})
		if err != nil {
			return nil, err
		}
		for name, t := range res.Model.Tables {
			tables[name] = t
		}
	}

	res.Tables = table.Sorted(tables)

	if p.exporter != nil {
		err = p.stage(ctx, StageExport, func() error {
			return p.exporter.Export(ctx, res.Tables)
		})
		if err != nil {
			return nil, err
		}
	}

	res.Duration = time.Since(start)
	common.LogInfo("Pipeline finished", common.Fields{
		"input_rows":  res.Clean.InputRows,
		"clean_rows":  len(res.Clean.Records),
		"tables":      len(res.Tables),
		"duration_ms": res.Duration.Milliseconds(),
	})
	return res, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	p.progress.StageStarted(name)
	slog.Debug("Stage started", "stage", name)
	if err := fn(); err != nil {
		common.LogError(err, "Stage failed", common.Fields{"stage": name})
		return fmt.Errorf("%s: %w", name, err)
	}
	p.progress.StageDone(name)
	return nil
}
