package main

import (
	"fmt"

	"github.com/feedrig/feedrig/internal/config"
	"github.com/feedrig/feedrig/internal/feed"
	"github.com/feedrig/feedrig/internal/loader"
	"github.com/feedrig/feedrig/internal/runner"
)

// buildFeeds constructs one feed instance per configured feed. Every
// step that names a feed shares the same instance, so per-identity
// cursors and initialization are shared across scenarios.
func buildFeeds(cfg *config.Config) (map[string]feed.Feed[loader.Record], error) {
	feeds := make(map[string]feed.Feed[loader.Record], len(cfg.Feeds))

	for _, fc := range cfg.Feeds {
		src, err := buildSource(fc)
		if err != nil {
			return nil, fmt.Errorf("feed %q: %w", fc.Name, err)
		}

		var f feed.Feed[loader.Record]
		switch fc.Strategy {
		case config.StrategyCircular:
			f = feed.NewCircular(fc.Name, src)
		case config.StrategyConstant:
			f = feed.NewConstant(fc.Name, src)
		case config.StrategyRandom:
			f = feed.NewRandom(fc.Name, src)
		default:
			return nil, fmt.Errorf("feed %q: unknown strategy %q", fc.Name, fc.Strategy)
		}
		feeds[fc.Name] = f
	}

	return feeds, nil
}

// buildSource resolves a feed's data source. Inline records and eager
// file feeds are read here, before the run starts; lazy feeds defer the
// file read to feed initialization.
func buildSource(fc config.FeedConfig) (feed.Source[loader.Record], error) {
	if len(fc.Inline) > 0 {
		records := make([]loader.Record, 0, len(fc.Inline))
		for _, row := range fc.Inline {
			records = append(records, loader.Record(row))
		}
		return feed.FromSlice(records), nil
	}

	format, err := loader.ParseFormat(fc.Format, fc.Path)
	if err != nil {
		return feed.Source[loader.Record]{}, err
	}

	if fc.Lazy {
		return feed.FromFunc(loader.Supplier(fc.Path, format, fc.Selector)), nil
	}

	records, err := loader.Load(fc.Path, format, fc.Selector)
	if err != nil {
		return feed.Source[loader.Record]{}, err
	}
	return feed.FromSlice(records), nil
}

// buildScenarios maps the validated config onto runner scenarios,
// resolving step feed references against the shared instances.
func buildScenarios(cfg *config.Config, feeds map[string]feed.Feed[loader.Record]) ([]runner.Scenario, error) {
	scenarios := make([]runner.Scenario, 0, len(cfg.Scenarios))

	for _, sc := range cfg.Scenarios {
		steps := make([]runner.Step, 0, len(sc.Steps))
		for _, st := range sc.Steps {
			f, ok := feeds[st.Feed]
			if !ok {
				return nil, fmt.Errorf("scenario %q step %q: references unknown feed %q", sc.Name, st.Name, st.Feed)
			}
			steps = append(steps, runner.Step{
				Name:  st.Name,
				Feed:  f,
				Body:  st.Body,
				Think: st.Think,
			})
		}
		scenarios = append(scenarios, runner.Scenario{
			Name:  sc.Name,
			VUs:   sc.VUs,
			Steps: steps,
		})
	}

	return scenarios, nil
}
