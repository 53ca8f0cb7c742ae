package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		ArrivalModel: ArrivalModelUniform,
		ConfigFile:   configPath,
		Tracing:      TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "duration"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Duration = dur
	}

	if raw, ok := lookupSetting(settings, "total"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("total: %w", err)
		}
		cfg.TotalReads = val
	}

	if raw, ok := lookupSetting(settings, "arrivalmodel", "arrival_model", "arrival-model"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("arrival_model: %w", err)
		}
		if val != "" {
			cfg.ArrivalModel = ArrivalModel(strings.ToLower(val))
		}
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asInt64(raw)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Seed = val
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("json_output: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "reportfile", "report_file", "report-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("report_file: %w", err)
		}
		cfg.ReportFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		vals, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = vals
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
	}

	if raw, ok := lookupSetting(settings, "feeds"); ok {
		feeds, err := parseFeedConfigs(raw)
		if err != nil {
			return fmt.Errorf("feeds: %w", err)
		}
		cfg.Feeds = feeds
	}

	if raw, ok := lookupSetting(settings, "scenarios"); ok {
		scenarios, err := parseScenarioConfigs(raw)
		if err != nil {
			return fmt.Errorf("scenarios: %w", err)
		}
		cfg.Scenarios = scenarios
	}

	return nil
}

func applyTracingSettings(tc *TracingConfig, raw interface{}) error {
	settings, err := asSettingsMap(raw)
	if err != nil {
		return err
	}

	if raw, ok := lookupSetting(settings, "endpoint"); ok {
		if tc.Endpoint, err = asString(raw); err != nil {
			return fmt.Errorf("endpoint: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		if tc.ServiceName, err = asString(raw); err != nil {
			return fmt.Errorf("service_name: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "protocol"); ok {
		if tc.Protocol, err = asString(raw); err != nil {
			return fmt.Errorf("protocol: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		if tc.SampleRate, err = asFloat(raw); err != nil {
			return fmt.Errorf("sample_rate: %w", err)
		}
	}
	if raw, ok := lookupSetting(settings, "insecure"); ok {
		if tc.Insecure, err = asBool(raw); err != nil {
			return fmt.Errorf("insecure: %w", err)
		}
	}
	return nil
}

func parseFeedConfigs(raw interface{}) ([]FeedConfig, error) {
	entries, err := asSettingsList(raw)
	if err != nil {
		return nil, err
	}

	feeds := make([]FeedConfig, 0, len(entries))
	for i, settings := range entries {
		fc := FeedConfig{}

		if raw, ok := lookupSetting(settings, "name"); ok {
			if fc.Name, err = asString(raw); err != nil {
				return nil, fmt.Errorf("feed %d name: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "strategy"); ok {
			s, err := asString(raw)
			if err != nil {
				return nil, fmt.Errorf("feed %d strategy: %w", i, err)
			}
			fc.Strategy = Strategy(strings.ToLower(s))
		}
		if raw, ok := lookupSetting(settings, "path"); ok {
			if fc.Path, err = asString(raw); err != nil {
				return nil, fmt.Errorf("feed %d path: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "format"); ok {
			if fc.Format, err = asString(raw); err != nil {
				return nil, fmt.Errorf("feed %d format: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "selector"); ok {
			if fc.Selector, err = asString(raw); err != nil {
				return nil, fmt.Errorf("feed %d selector: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "lazy"); ok {
			if fc.Lazy, err = asBool(raw); err != nil {
				return nil, fmt.Errorf("feed %d lazy: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "records"); ok {
			items, err := asSettingsList(raw)
			if err != nil {
				return nil, fmt.Errorf("feed %d records: %w", i, err)
			}
			for j, item := range items {
				record, err := asStringMap(item)
				if err != nil {
					return nil, fmt.Errorf("feed %d record %d: %w", i, j, err)
				}
				fc.Inline = append(fc.Inline, record)
			}
		}

		feeds = append(feeds, fc)
	}

	return feeds, nil
}

func parseScenarioConfigs(raw interface{}) ([]ScenarioConfig, error) {
	entries, err := asSettingsList(raw)
	if err != nil {
		return nil, err
	}

	scenarios := make([]ScenarioConfig, 0, len(entries))
	for i, settings := range entries {
		sc := ScenarioConfig{VUs: 1}

		if raw, ok := lookupSetting(settings, "name"); ok {
			if sc.Name, err = asString(raw); err != nil {
				return nil, fmt.Errorf("scenario %d name: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "vus"); ok {
			if sc.VUs, err = asInt(raw); err != nil {
				return nil, fmt.Errorf("scenario %d vus: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "steps"); ok {
			steps, err := parseStepConfigs(raw)
			if err != nil {
				return nil, fmt.Errorf("scenario %d steps: %w", i, err)
			}
			sc.Steps = steps
		}

		scenarios = append(scenarios, sc)
	}

	return scenarios, nil
}

func parseStepConfigs(raw interface{}) ([]StepConfig, error) {
	entries, err := asSettingsList(raw)
	if err != nil {
		return nil, err
	}

	steps := make([]StepConfig, 0, len(entries))
	for i, settings := range entries {
		st := StepConfig{}

		if raw, ok := lookupSetting(settings, "name"); ok {
			if st.Name, err = asString(raw); err != nil {
				return nil, fmt.Errorf("step %d name: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "feed"); ok {
			if st.Feed, err = asString(raw); err != nil {
				return nil, fmt.Errorf("step %d feed: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "body"); ok {
			if st.Body, err = asString(raw); err != nil {
				return nil, fmt.Errorf("step %d body: %w", i, err)
			}
		}
		if raw, ok := lookupSetting(settings, "think"); ok {
			if st.Think, err = asDuration(raw); err != nil {
				return nil, fmt.Errorf("step %d think: %w", i, err)
			}
		}

		steps = append(steps, st)
	}

	return steps, nil
}

// applyFlagOverrides lets CLI flags override file-derived settings. A
// run without a config file can still describe a single feed and a
// single one-step scenario entirely through flags.
func applyFlagOverrides(cfg *Config, flags *pflag.FlagSet) error {
	var flagErr error
	override := func(name string, apply func(f *pflag.Flag)) {
		if flagErr != nil {
			return
		}
		if f := flags.Lookup(name); f != nil && f.Changed {
			apply(f)
		}
	}

	override("rate", func(f *pflag.Flag) { cfg.Rate, flagErr = strconv.Atoi(f.Value.String()) })
	override("total", func(f *pflag.Flag) { cfg.TotalReads, flagErr = strconv.Atoi(f.Value.String()) })
	override("duration", func(f *pflag.Flag) { cfg.Duration, flagErr = time.ParseDuration(f.Value.String()) })
	override("seed", func(f *pflag.Flag) { cfg.Seed, flagErr = strconv.ParseInt(f.Value.String(), 10, 64) })
	override("arrival-model", func(f *pflag.Flag) { cfg.ArrivalModel = ArrivalModel(strings.ToLower(f.Value.String())) })
	override("json-output", func(f *pflag.Flag) { cfg.JSONOutput = f.Value.String() == "true" })
	override("report-file", func(f *pflag.Flag) { cfg.ReportFile = f.Value.String() })
	override("trace-endpoint", func(f *pflag.Flag) { cfg.Tracing.Endpoint = f.Value.String() })
	override("trace-service", func(f *pflag.Flag) { cfg.Tracing.ServiceName = f.Value.String() })

	if flagErr != nil {
		return flagErr
	}

	if thresholds, err := flags.GetStringSlice("threshold"); err == nil && len(thresholds) > 0 {
		cfg.Thresholds = thresholds
	}

	if err := applyQuickFeedFlags(cfg, flags); err != nil {
		return err
	}

	return nil
}

// applyQuickFeedFlags synthesizes a one-feed, one-scenario config from
// --feed-path and friends when the config file declares no feeds.
func applyQuickFeedFlags(cfg *Config, flags *pflag.FlagSet) error {
	path, _ := flags.GetString("feed-path")
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if len(cfg.Feeds) > 0 {
		return fmt.Errorf("--feed-path cannot be combined with feeds declared in the config file")
	}

	name, _ := flags.GetString("feed-name")
	format, _ := flags.GetString("feed-format")
	strategy, _ := flags.GetString("feed-strategy")
	lazy, _ := flags.GetBool("feed-lazy")
	vus, _ := flags.GetInt("vus")

	cfg.Feeds = []FeedConfig{{
		Name:     name,
		Strategy: Strategy(strings.ToLower(strategy)),
		Path:     path,
		Format:   format,
		Lazy:     lazy,
	}}
	cfg.Scenarios = []ScenarioConfig{{
		Name: "default",
		VUs:  vus,
		Steps: []StepConfig{{
			Name: "read",
			Feed: name,
		}},
	}}

	return nil
}
