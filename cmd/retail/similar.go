package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/retail-flow/internal/cli"
	"github.com/Veraticus/retail-flow/internal/config"
	"github.com/Veraticus/retail-flow/internal/similarity"
)

func similarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Suggest near-duplicate issue annotations for keyword curation",
		Long: `List the free-text annotations that the reconciler would classify as
issues, and pair up the ones that look alike. Use the output to extend the
issue keyword table; the cleaning pipeline does not use these suggestions.`,
		RunE: runSimilar,
	}

	cmd.Flags().Int("threshold", similarity.DefaultThreshold, "minimum similarity score (0-100)")
	cmd.Flags().Int("limit", similarity.DefaultLimit, "cap on candidates considered per annotation (0 scores every pair)")

	_ = viper.BindPFlag(config.KeySimilarityThresh, cmd.Flags().Lookup("threshold"))
	_ = viper.BindPFlag(config.KeySimilarityLimit, cmd.Flags().Lookup("limit"))

	return cmd
}

func runSimilar(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	source, err := newSource(cfg)
	if err != nil {
		return err
	}
	txns, err := source.Load(ctx)
	if err != nil {
		return err
	}

	cleaner, err := newCleaner(cfg)
	if err != nil {
		return err
	}
	labels, err := cleaner.Annotations(ctx, txns)
	if err != nil {
		return err
	}

	suggestions := similarity.Suggest(labels, similarity.Options{
		Threshold: cfg.Similarity.Threshold,
		Limit:     cfg.Similarity.Limit,
	})

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d annotations, %d suggestions", len(labels), len(suggestions))))
	if len(suggestions) == 0 {
		return nil
	}

	rows := make([][]string, 0, len(suggestions))
	for _, s := range suggestions {
		rows = append(rows, []string{s.Label, s.Joined(), strconv.Itoa(s.Score)})
	}
	fmt.Fprintln(out, cli.RenderTable([]string{"Annotation", "Similar to", "Score"}, rows))
	return nil
}
