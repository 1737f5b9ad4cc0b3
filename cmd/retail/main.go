package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/retail-flow/internal/cli"
	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/config"
)

var (
	cfgFile    string
	noProgress bool
	version    = "dev"
	interrupts = cli.NewInterruptHandler(os.Stderr)
	rootCmd    = &cobra.Command{
		Use:   "retail",
		Short: "🛒 Retail transaction cleaning and RFM segmentation",
		Long: `retail-flow cleans an online retail transaction export, reconciles
inconsistent product descriptions, scores customers on recency, frequency
and monetary value, and exports the results as a workbook, a SQLite file or
a Google Sheets spreadsheet.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

func init() {
	config.SetDefaults(viper.GetViper())

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/retail/config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.StringP("input", "i", "", "transaction file (.csv or .xlsx)")
	flags.String("sheet", "", "workbook sheet to read (default: first sheet)")
	flags.String("timezone", "UTC", "timezone of invoice timestamps")
	flags.StringP("format", "f", "xlsx", "export format (xlsx, sqlite, sheets)")
	flags.StringP("output", "o", "retail_output.xlsx", "export file path")
	flags.String("cancellation-marker", "C", "invoice substring marking a cancelled order")
	flags.BoolVar(&noProgress, "no-progress", false, "hide the stage progress bar")

	// Bind flags to viper
	_ = viper.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	_ = viper.BindPFlag(config.KeyInputPath, flags.Lookup("input"))
	_ = viper.BindPFlag(config.KeyInputSheet, flags.Lookup("sheet"))
	_ = viper.BindPFlag(config.KeyInputTimezone, flags.Lookup("timezone"))
	_ = viper.BindPFlag(config.KeyOutputFormat, flags.Lookup("format"))
	_ = viper.BindPFlag(config.KeyOutputPath, flags.Lookup("output"))
	_ = viper.BindPFlag(config.KeyCancellationMarker, flags.Lookup("cancellation-marker"))

	// Add commands
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(cleanCmd())
	rootCmd.AddCommand(rfmCmd())
	rootCmd.AddCommand(similarCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := interrupts.HandleInterrupts(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(errorMessage(err)))
		os.Exit(1)
	}
}

func errorMessage(err error) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return userErr.Error()
	}
	return err.Error()
}

func initConfig(_ *cobra.Command, _ []string) error {
	// Set up config file
	if cfgFile != "" {
		viper.SetConfigFile(config.ExpandPath(cfgFile))
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		viper.AddConfigPath(fmt.Sprintf("%s/.config/retail", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("RETAIL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	// Set up logging
	level, err := common.ParseLevel(viper.GetString(config.KeyLogLevel))
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if err := common.SetupLogger(os.Stderr, level, viper.GetString(config.KeyLogFormat)); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "retail version %s\n", version)
		},
	}
}
