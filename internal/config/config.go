package config

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects how a feed hands records to virtual users.
type Strategy string

const (
	StrategyCircular Strategy = "circular"
	StrategyConstant Strategy = "constant"
	StrategyRandom   Strategy = "random"
)

// ArrivalModel selects how step invocations are paced.
type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// FeedConfig declares one named feed. A feed is backed either by a data
// file (Path) or by records written directly into the config (Inline).
type FeedConfig struct {
	Name     string              `mapstructure:"name"`
	Strategy Strategy            `mapstructure:"strategy"`
	Path     string              `mapstructure:"path"`
	Format   string              `mapstructure:"format"`   // csv, json or yaml; inferred from extension when empty
	Selector string              `mapstructure:"selector"` // gjson path to the record array inside a JSON document
	Lazy     bool                `mapstructure:"lazy"`     // defer the file read to feed initialization
	Inline   []map[string]string `mapstructure:"records"`
}

// StepConfig declares one step of a scenario. Each invocation pulls a
// record from the named feed and renders the body template with it.
type StepConfig struct {
	Name  string        `mapstructure:"name"`
	Feed  string        `mapstructure:"feed"`
	Body  string        `mapstructure:"body"`
	Think time.Duration `mapstructure:"think"`
}

// ScenarioConfig declares a scenario: a step sequence executed by a
// number of virtual users in a loop for the duration of the run.
type ScenarioConfig struct {
	Name  string       `mapstructure:"name"`
	VUs   int          `mapstructure:"vus"`
	Steps []StepConfig `mapstructure:"steps"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	Protocol    string  `mapstructure:"protocol"` // grpc or http
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Enabled reports whether span export is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

type Config struct {
	Rate         int              `mapstructure:"rate"`
	Duration     time.Duration    `mapstructure:"duration"`
	TotalReads   int              `mapstructure:"total"`
	ArrivalModel ArrivalModel     `mapstructure:"arrival_model"`
	Seed         int64            `mapstructure:"seed"`
	JSONOutput   bool             `mapstructure:"json_output"`
	ReportFile   string           `mapstructure:"report_file"`
	Thresholds   []string         `mapstructure:"thresholds"`
	Tracing      TracingConfig    `mapstructure:"tracing"`
	Feeds        []FeedConfig     `mapstructure:"feeds"`
	Scenarios    []ScenarioConfig `mapstructure:"scenarios"`
	ConfigFile   string           `mapstructure:"-"`
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.TotalReads < 0 {
		issues = append(issues, "total must be >= 0")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Duration == 0 && c.TotalReads == 0 {
		issues = append(issues, "either duration or total must be set, or the run never ends")
	}
	switch c.ArrivalModel {
	case "", ArrivalModelUniform, ArrivalModelPoisson:
	default:
		issues = append(issues, fmt.Sprintf("arrival_model %q is not supported (want uniform or poisson)", c.ArrivalModel))
	}

	issues = append(issues, validateFeeds(c.Feeds)...)
	issues = append(issues, validateScenarios(c.Scenarios, c.Feeds)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateFeeds(feeds []FeedConfig) []string {
	var issues []string
	seen := map[string]bool{}

	for i, f := range feeds {
		label := f.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			issues = append(issues, fmt.Sprintf("feed %s: name is required", label))
		}
		if seen[f.Name] && f.Name != "" {
			issues = append(issues, fmt.Sprintf("feed %q: duplicate name; step references would be ambiguous", f.Name))
		}
		seen[f.Name] = true

		switch f.Strategy {
		case StrategyCircular, StrategyConstant, StrategyRandom:
		case "":
			issues = append(issues, fmt.Sprintf("feed %q: strategy is required (circular, constant or random)", label))
		default:
			issues = append(issues, fmt.Sprintf("feed %q: unknown strategy %q", label, f.Strategy))
		}

		hasPath := strings.TrimSpace(f.Path) != ""
		hasInline := len(f.Inline) > 0
		if hasPath == hasInline {
			issues = append(issues, fmt.Sprintf("feed %q: exactly one of path or records must be set", label))
		}
		if f.Lazy && !hasPath {
			issues = append(issues, fmt.Sprintf("feed %q: lazy requires a file-backed source", label))
		}
		if f.Selector != "" && strings.ToLower(f.Format) != "json" && !strings.HasSuffix(f.Path, ".json") {
			issues = append(issues, fmt.Sprintf("feed %q: selector only applies to JSON sources", label))
		}
	}

	return issues
}

func validateScenarios(scenarios []ScenarioConfig, feeds []FeedConfig) []string {
	var issues []string

	if len(scenarios) == 0 {
		issues = append(issues, "at least one scenario is required")
	}

	feedNames := map[string]bool{}
	for _, f := range feeds {
		feedNames[f.Name] = true
	}

	seen := map[string]bool{}
	for i, s := range scenarios {
		label := s.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			issues = append(issues, fmt.Sprintf("scenario %s: name is required", label))
		}
		if seen[s.Name] && s.Name != "" {
			issues = append(issues, fmt.Sprintf("scenario %q: duplicate name", s.Name))
		}
		seen[s.Name] = true

		if s.VUs < 1 {
			issues = append(issues, fmt.Sprintf("scenario %q: vus must be >= 1", label))
		}
		if len(s.Steps) == 0 {
			issues = append(issues, fmt.Sprintf("scenario %q: at least one step is required", label))
		}
		for j, step := range s.Steps {
			stepLabel := step.Name
			if stepLabel == "" {
				stepLabel = fmt.Sprintf("#%d", j)
			}
			if step.Feed == "" {
				issues = append(issues, fmt.Sprintf("scenario %q step %s: feed is required", label, stepLabel))
			} else if !feedNames[step.Feed] {
				issues = append(issues, fmt.Sprintf("scenario %q step %s: references unknown feed %q", label, stepLabel, step.Feed))
			}
			if step.Think < 0 {
				issues = append(issues, fmt.Sprintf("scenario %q step %s: think must be >= 0", label, stepLabel))
			}
		}
	}

	return issues
}
