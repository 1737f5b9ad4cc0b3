package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/retail-flow/internal/cli"
	"github.com/Veraticus/retail-flow/internal/pipeline"
)

func cleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Clean transactions and export the cleaned table only",
		Long: `Load the transaction file, flag cancelled orders and problem rows,
reconcile product descriptions, and export the cleaned table.`,
		RunE: runClean,
	}
}

func runClean(cmd *cobra.Command, _ []string) error {
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

	res, err := buildPipeline(cmd.ErrOrStderr(), source, cleaner, pipeline.WithExporter(exporter)).Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.RenderBox("Cleaning", cleaningSummary(res.Clean)))
	fmt.Fprintln(out, cli.FormatSuccess("Exported cleaned transactions to "+exportTarget(cfg)))
	return nil
}
