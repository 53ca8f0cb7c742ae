package threshold

import (
	"strings"
	"testing"

	"github.com/feedrig/feedrig/internal/metrics"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Threshold
		wantErr bool
	}{
		{
			name:  "latency percentile",
			input: "read_duration:p99 < 500",
			want:  Threshold{Metric: "read_duration", Aggregate: "p99", Operator: "<", Value: 500},
		},
		{
			name:  "read count",
			input: "reads:count >= 10000",
			want:  Threshold{Metric: "reads", Aggregate: "count", Operator: ">=", Value: 10000},
		},
		{
			name:  "read rate no spaces",
			input: "reads:rate>100.5",
			want:  Threshold{Metric: "reads", Aggregate: "rate", Operator: ">", Value: 100.5},
		},
		{
			name:  "init duration",
			input: "feed_init:max < 250",
			want:  Threshold{Metric: "feed_init", Aggregate: "max", Operator: "<", Value: 250},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "missing aggregate", input: "read_duration < 500", wantErr: true},
		{name: "unknown metric", input: "http_req_duration:p99 < 500", wantErr: true},
		{name: "unknown aggregate", input: "read_duration:p42 < 500", wantErr: true},
		{name: "bad operator", input: "read_duration:p99 ! 500", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got.Metric != tt.want.Metric || got.Aggregate != tt.want.Aggregate ||
				got.Operator != tt.want.Operator || got.Value != tt.want.Value {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if got.Raw != strings.TrimSpace(tt.input) {
				t.Errorf("Raw = %q, want trimmed input", got.Raw)
			}
		})
	}
}

func TestParseMultiple(t *testing.T) {
	ts, err := ParseMultiple([]string{"read_duration:p99 < 500", "reads:rate > 100"})
	if err != nil {
		t.Fatalf("ParseMultiple() error = %v", err)
	}
	if len(ts) != 2 {
		t.Errorf("parsed %d thresholds, want 2", len(ts))
	}

	if _, err := ParseMultiple([]string{"reads:rate > 100", "nope"}); err == nil {
		t.Error("ParseMultiple should report the invalid entry")
	}

	if ts, err := ParseMultiple(nil); err != nil || ts != nil {
		t.Errorf("ParseMultiple(nil) = %v, %v; want nil, nil", ts, err)
	}
}

func sampleStats() metrics.Stats {
	return metrics.Stats{
		TotalReads:    5000,
		ReadsPerSec:   250,
		MeanLatencyUs: 40,
		MinLatencyUs:  1,
		MaxLatencyUs:  900,
		P50LatencyUs:  30,
		P90LatencyUs:  80,
		P99LatencyUs:  400,
		InitMsByFeed:  map[string]float64{"users": 12, "orders": 48},
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		pass bool
	}{
		{"read_duration:p99 < 500", true},
		{"read_duration:p99 < 400", false},
		{"read_duration:p99 <= 400", true},
		{"read_duration:avg < 50", true},
		{"read_duration:max > 1000", false},
		{"read_duration:min >= 1", true},
		{"reads:count == 5000", true},
		{"reads:count > 5000", false},
		{"reads:rate >= 250", true},
		{"feed_init:max < 50", true},
		{"feed_init:max < 40", false},
		{"feed_init:avg == 30", true},
	}

	stats := sampleStats()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			th, err := Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.expr, err)
			}
			results := NewEvaluator([]Threshold{th}).Evaluate(stats)
			if len(results) != 1 {
				t.Fatalf("got %d results, want 1", len(results))
			}
			if results[0].Pass != tt.pass {
				t.Errorf("%q pass = %v, want %v (actual %.2f)", tt.expr, results[0].Pass, tt.pass, results[0].Actual)
			}
			if results[0].Message == "" {
				t.Error("result should carry a display message")
			}
		})
	}
}

func TestEvaluateEmpty(t *testing.T) {
	if results := NewEvaluator(nil).Evaluate(sampleStats()); results != nil {
		t.Errorf("Evaluate with no thresholds = %v, want nil", results)
	}
}

func TestEvaluateUnsupportedAggregateFails(t *testing.T) {
	// p50 parses as a valid aggregate but feed_init only supports max/avg.
	results := NewEvaluator([]Threshold{{
		Metric: "feed_init", Aggregate: "p50", Operator: "<", Value: 1, Raw: "feed_init:p50 < 1",
	}}).Evaluate(sampleStats())
	if results[0].Pass {
		t.Error("unsupported aggregate should fail the threshold")
	}
	if !strings.Contains(results[0].Message, "error") {
		t.Errorf("message = %q, want an error message", results[0].Message)
	}
}

func TestAllPassed(t *testing.T) {
	if !AllPassed([]Result{{Pass: true}, {Pass: true}}) {
		t.Error("AllPassed should be true when every result passes")
	}
	if AllPassed([]Result{{Pass: true}, {Pass: false}}) {
		t.Error("AllPassed should be false when any result fails")
	}
	if !AllPassed(nil) {
		t.Error("AllPassed(nil) should be true")
	}
}
