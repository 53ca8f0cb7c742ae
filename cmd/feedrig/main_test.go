package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/feedrig/feedrig/internal/config"
	"github.com/feedrig/feedrig/internal/metrics"
	"github.com/feedrig/feedrig/internal/runner"
)

func TestRunHelp(t *testing.T) {
	if err := run([]string{"--help"}); err != nil {
		t.Errorf("run(--help) error = %v", err)
	}
}

func TestRunMissingConfigFile(t *testing.T) {
	err := run([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil {
		t.Error("run should fail for a missing config file")
	}
}

func TestRunQuickFeed(t *testing.T) {
	path := writeFile(t, "users.csv", "user\nalice\nbob\n")

	err := run([]string{
		"--feed-path", path,
		"--vus", "2",
		"-t", "20",
		"--json-output",
	})
	if err != nil {
		t.Errorf("run() error = %v", err)
	}
}

func TestRunConfigFileWritesReport(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "report.json")

	cfgYAML := `
total: 30
json_output: true
report_file: ` + report + `
feeds:
  - name: users
    strategy: circular
    records:
      - user: alice
      - user: bob
scenarios:
  - name: checkout
    vus: 2
    steps:
      - name: login
        feed: users
        body: "user={{user}}"
`
	cfgPath := filepath.Join(dir, "run.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	if err := run([]string{"--config", cfgPath}); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	data, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("reading report file: %v", err)
	}
	var stats metrics.Stats
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("report file is not valid JSON: %v", err)
	}
	if stats.TotalReads != 30 {
		t.Errorf("report TotalReads = %d, want 30", stats.TotalReads)
	}
	if stats.RunID == "" {
		t.Error("report should carry the run ID")
	}
}

func TestRunFailsOnFailedThreshold(t *testing.T) {
	path := writeFile(t, "users.csv", "user\nalice\n")

	err := run([]string{
		"--feed-path", path,
		"-t", "10",
		"--json-output",
		"--threshold", "reads:count > 100000",
	})
	if err == nil {
		t.Fatal("run should fail when a threshold fails")
	}
	if !strings.Contains(err.Error(), "threshold") {
		t.Errorf("error = %v, want a threshold failure", err)
	}
}

func TestRunRejectsInvalidThreshold(t *testing.T) {
	path := writeFile(t, "users.csv", "user\nalice\n")

	err := run([]string{
		"--feed-path", path,
		"-t", "10",
		"--threshold", "garbage",
	})
	if err == nil {
		t.Error("run should reject malformed threshold expressions")
	}
}

func TestRunRejectsMissingFeedFile(t *testing.T) {
	err := run([]string{
		"--feed-path", filepath.Join(t.TempDir(), "missing.csv"),
		"-t", "10",
	})
	if err == nil {
		t.Error("run should fail when the feed file does not exist")
	}
}

func TestToRunnerArrivalModel(t *testing.T) {
	if got := toRunnerArrivalModel(config.ArrivalModelPoisson); got != runner.ArrivalModelPoisson {
		t.Errorf("poisson mapped to %q", got)
	}
	if got := toRunnerArrivalModel(""); got != runner.ArrivalModelUniform {
		t.Errorf("empty model mapped to %q, want uniform", got)
	}
	if got := toRunnerArrivalModel("POISSON"); got != runner.ArrivalModelPoisson {
		t.Errorf("case-insensitive mapping failed: %q", got)
	}
}
