package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/retail-flow/internal/cli"
	"github.com/Veraticus/retail-flow/internal/modelling"
	"github.com/Veraticus/retail-flow/internal/pipeline"
	"github.com/Veraticus/retail-flow/internal/rfm"
)

func rfmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rfm",
		Short: "Score customers and print segment counts without exporting",
		RunE:  runRFM,
	}
	cmd.Flags().Int("customers", 0, "also list the first N scored customers")
	return cmd
}

func runRFM(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("customers")
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

	p := buildPipeline(cmd.ErrOrStderr(), source, cleaner,
		pipeline.WithModeller(modelling.NewModeller(rfm.NewScorer())))
	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	customers := res.Model.Customers
	fmt.Fprintln(out, cli.RenderBox(cli.ChartIcon+" Customer Segments", segmentSummary(rfm.CountSegments(customers))))

	if limit > 0 {
		rows := make([][]string, 0, limit)
		for i := 0; i < len(customers) && i < limit; i++ {
			c := customers[i]
			rows = append(rows, []string{
				strconv.FormatInt(c.CustomerID, 10),
				strconv.Itoa(c.DaysSinceLastPurchase),
				strconv.Itoa(c.NumberOfOrders),
				c.TotalSpent.StringFixed(2),
				c.RFMScore,
				string(c.Segment),
			})
		}
		fmt.Fprintln(out, cli.RenderTable([]string{"Customer", "R days", "F orders", "M spent", "RFM", "Segment"}, rows))
	}
	return nil
}
