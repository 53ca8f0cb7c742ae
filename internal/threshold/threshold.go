package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/feedrig/feedrig/internal/metrics"
)

// Threshold represents a run assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g., "read_duration", "reads", "feed_init"
	Aggregate string  // e.g., "p90", "p99", "avg", "max", "rate"
	Operator  string  // e.g., "<", "<=", ">", ">=", "=="
	Value     float64 // The threshold value to compare against
	Raw       string  // Original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against collected metrics.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
	}
}

// Evaluate checks all thresholds against the provided stats.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, stats))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, stats metrics.Stats) Result {
	actual, err := extractMetricValue(t, stats)
	if err != nil {
		return Result{
			Threshold: t,
			Actual:    0,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}

	message := fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value)
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   message,
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "read_duration:p99 < 500"   (read latency percentile in microseconds)
// - "read_duration:avg < 100"   (average read latency in microseconds)
// - "read_duration:max < 2000"  (max read latency in microseconds)
// - "reads:count >= 10000"      (total reads completed)
// - "reads:rate > 500"          (reads per second)
// - "feed_init:max < 250"       (slowest feed initialization in ms)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	// Pattern: metric:aggregate operator value
	// e.g., "read_duration:p99 < 500"
	pattern := regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)
	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'read_duration:p99 < 500')", s)
	}

	metric := matches[1]
	aggregate := matches[2]
	operator := matches[3]
	valueStr := matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	if !isValidMetric(metric) {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: read_duration, reads, feed_init)", metric)
	}

	if !isValidAggregate(aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate: %q (supported: p50, p90, p99, avg, min, max, rate, count)", aggregate)
	}

	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}

	return result, nil
}

func isValidMetric(metric string) bool {
	switch metric {
	case "read_duration", "reads", "feed_init":
		return true
	}
	return false
}

func isValidAggregate(aggregate string) bool {
	switch aggregate {
	case "p50", "p90", "p99", "avg", "min", "max", "rate", "count":
		return true
	}
	return false
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func extractMetricValue(t Threshold, stats metrics.Stats) (float64, error) {
	switch t.Metric {
	case "read_duration":
		return extractLatencyMetric(t.Aggregate, stats)
	case "reads":
		return extractReadMetric(t.Aggregate, stats)
	case "feed_init":
		return extractInitMetric(t.Aggregate, stats)
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func extractLatencyMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "p50":
		return stats.P50LatencyUs, nil
	case "p90":
		return stats.P90LatencyUs, nil
	case "p99":
		return stats.P99LatencyUs, nil
	case "avg":
		return stats.MeanLatencyUs, nil
	case "min":
		return stats.MinLatencyUs, nil
	case "max":
		return stats.MaxLatencyUs, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for read_duration", aggregate)
	}
}

func extractReadMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "count":
		return float64(stats.TotalReads), nil
	case "rate":
		return stats.ReadsPerSec, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for reads (use 'count' or 'rate')", aggregate)
	}
}

func extractInitMetric(aggregate string, stats metrics.Stats) (float64, error) {
	switch aggregate {
	case "max":
		var max float64
		for _, ms := range stats.InitMsByFeed {
			if ms > max {
				max = ms
			}
		}
		return max, nil
	case "avg":
		if len(stats.InitMsByFeed) == 0 {
			return 0, nil
		}
		var sum float64
		for _, ms := range stats.InitMsByFeed {
			sum += ms
		}
		return sum / float64(len(stats.InitMsByFeed)), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for feed_init (use 'max' or 'avg')", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
