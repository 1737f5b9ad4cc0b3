package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/retail-flow/internal/cli"
	"github.com/Veraticus/retail-flow/internal/modelling"
	"github.com/Veraticus/retail-flow/internal/pipeline"
	"github.com/Veraticus/retail-flow/internal/rfm"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Clean transactions, score customers and export every table",
		Long: `Run the whole batch: load the transaction file, clean and reconcile
descriptions, score customers into RFM segments, and export the cleaned
transactions together with the Customers and Products tables.

Nothing is exported if any stage fails.`,
		Example: `  retail run -i online_retail_II.xlsx -o report.xlsx
  retail run -i retail.csv -f sqlite -o retail.db`,
		RunE: runRun,
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	source, err := newSource(cfg)
	if err != nil {
		return err
	}
	cleaner, err := newCleaner(cfg)
	if err != nil {
		return err
	}
	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return err
	}

	slog.Info("Starting run", "input", cfg.Input.Path, "format", cfg.Output.Format)
	p := buildPipeline(cmd.ErrOrStderr(), source, cleaner,
		pipeline.WithModeller(modelling.NewModeller(rfm.NewScorer())),
		pipeline.WithExporter(exporter),
	)
	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.RenderBox("Cleaning", cleaningSummary(res.Clean)))
	fmt.Fprintln(out, cli.RenderBox(cli.ChartIcon+" Customer Segments", segmentSummary(rfm.CountSegments(res.Model.Customers))))
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Exported %d sections to %s in %s",
		len(res.Tables), exportTarget(cfg), res.Duration.Round(time.Millisecond))))
	return nil
}
