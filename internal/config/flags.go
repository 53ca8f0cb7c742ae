package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "feedrig",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Load control flags
	flags.IntP("rate", "r", 0, "Feed reads per second across all virtual users (0 means unpaced)")
	flags.DurationP("duration", "d", 0, "How long to run (e.g. 30s, 1m)")
	flags.IntP("total", "t", 0, "Total number of feed reads before stopping (0 means unlimited)")
	flags.String("arrival-model", string(ArrivalModelUniform), "Pacing model for step invocations (uniform or poisson)")
	flags.Int64("seed", 0, "Seed for the poisson arrival sampler (0 means time-based)")

	// Quick single-feed flags (alternative to declaring feeds in the config file)
	flags.String("feed-path", "", "Path to a CSV, JSON or YAML data file for a single quick feed")
	flags.String("feed-format", "", "Data file format: csv, json or yaml (inferred from extension when empty)")
	flags.String("feed-strategy", string(StrategyCircular), "Read strategy for the quick feed (circular, constant or random)")
	flags.String("feed-name", "data", "Name of the quick feed")
	flags.Bool("feed-lazy", false, "Defer reading the data file until feed initialization")
	flags.Int("vus", 1, "Number of virtual users for the quick scenario")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.String("report-file", "", "Write the JSON run report to the specified file path")
	flags.StringSlice("threshold", nil, "Pass/fail criterion over run stats (e.g. 'read_duration:p99 < 500'); repeatable")

	// Tracing flags
	flags.String("trace-endpoint", "", "OTLP endpoint for span export (empty disables tracing)")
	flags.String("trace-service", "", "Service name reported on exported spans")

	// Config file
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	flags.BoolP("help", "h", false, "Show help information")
}

// displayHelp prints usage information for the command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "feedrig - data feed engine for load-test runs")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  feedrig --config run.yaml")
	fmt.Fprintln(out, "  feedrig --feed-path users.csv --vus 50 -d 30s")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Flags:")
	fmt.Fprint(out, cmd.Flags().FlagUsages())
}
