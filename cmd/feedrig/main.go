package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/feedrig/feedrig/internal/config"
	"github.com/feedrig/feedrig/internal/metrics"
	"github.com/feedrig/feedrig/internal/output"
	"github.com/feedrig/feedrig/internal/runner"
	"github.com/feedrig/feedrig/internal/threshold"
	"github.com/feedrig/feedrig/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Fail fast on threshold syntax before any data file is touched.
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	feeds, err := buildFeeds(cfg)
	if err != nil {
		return err
	}
	scenarios, err := buildScenarios(cfg, feeds)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "[feedrig] trace shutdown failed: %v\n", err)
		}
	}()

	collector := metrics.NewCollector()

	var tracer trace.Tracer
	if provider.Enabled() {
		tracer = provider.Tracer()
	}

	r := runner.New(runner.Options{
		Scenarios:     scenarios,
		Collector:     collector,
		TotalReads:    cfg.TotalReads,
		Duration:      cfg.Duration,
		RatePerSecond: cfg.Rate,
		ArrivalModel:  toRunnerArrivalModel(cfg.ArrivalModel),
		RandomSeed:    cfg.Seed,
		Tracer:        tracer,
	})

	var progress *output.ProgressReporter
	if !cfg.JSONOutput {
		progress = output.NewProgressReporter(collector, progressInterval, os.Stdout)
		progress.Start()
		defer func() {
			progress.Stop()
			fmt.Fprintln(os.Stdout)
		}()
	}

	// Mark the actual start time in the collector for accurate rate
	// calculation: the progress reporter above was created earlier.
	collector.Start()
	result, err := r.Run(ctx)
	if err != nil {
		return err
	}

	stats := collector.Stats(result.Duration)
	stats.RunID = result.RunID

	results := threshold.NewEvaluator(thresholds).Evaluate(stats)

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, stats)
		output.PrintThresholds(os.Stdout, results)
	}

	if cfg.ReportFile != "" {
		if err := output.WriteReportFile(cfg.ReportFile, stats); err != nil {
			return err
		}
	}

	if !threshold.AllPassed(results) {
		failed := 0
		for _, r := range results {
			if !r.Pass {
				failed++
			}
		}
		return fmt.Errorf("%d of %d thresholds failed", failed, len(results))
	}
	return nil
}

func toRunnerArrivalModel(model config.ArrivalModel) runner.ArrivalModel {
	switch strings.ToLower(string(model)) {
	case string(config.ArrivalModelPoisson):
		return runner.ArrivalModelPoisson
	default:
		return runner.ArrivalModelUniform
	}
}
