package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records per-read metrics in a thread-safe manner.
type Collector struct {
	mu              sync.Mutex
	hist            *hdrhistogram.Histogram
	reads           int64
	readsByFeed     map[string]int64
	readsByScenario map[string]int64
	initByFeed      map[string]time.Duration
	minLatency      time.Duration
	maxLatency      time.Duration
	sumLatency      time.Duration
	start           time.Time
}

// Stats represents aggregated run metrics.
type Stats struct {
	RunID       string        `json:"run_id,omitempty"`
	TotalReads  int64         `json:"total_reads"`
	Duration    time.Duration `json:"-"`
	ReadsPerSec float64       `json:"reads_per_sec"`
	MinLatency  time.Duration `json:"-"`
	MaxLatency  time.Duration `json:"-"`
	MeanLatency time.Duration `json:"-"`
	P50Latency  time.Duration `json:"-"`
	P90Latency  time.Duration `json:"-"`
	P99Latency  time.Duration `json:"-"`

	// JSON-friendly microsecond fields.
	DurationMs    float64 `json:"duration_ms"`
	MinLatencyUs  float64 `json:"min_latency_us"`
	MaxLatencyUs  float64 `json:"max_latency_us"`
	MeanLatencyUs float64 `json:"mean_latency_us"`
	P50LatencyUs  float64 `json:"p50_latency_us"`
	P90LatencyUs  float64 `json:"p90_latency_us"`
	P99LatencyUs  float64 `json:"p99_latency_us"`

	ReadsByFeed     map[string]int64   `json:"reads_by_feed,omitempty"`
	ReadsByScenario map[string]int64   `json:"reads_by_scenario,omitempty"`
	InitMsByFeed    map[string]float64 `json:"init_ms_by_feed,omitempty"`
}

func NewCollector() *Collector {
	// Track read latencies from 1ns up to 60s with 3 significant figures.
	// Feed reads are in-memory and routinely land under a microsecond.
	h := hdrhistogram.New(1, 60_000_000_000, 3)
	return &Collector{
		hist:            h,
		readsByFeed:     make(map[string]int64),
		readsByScenario: make(map[string]int64),
		initByFeed:      make(map[string]time.Duration),
		start:           time.Now(),
	}
}

// Start marks the beginning of the measured run window.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// RecordRead records a single feed read and its latency.
func (c *Collector) RecordRead(feedName, scenario string, latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if latency > 0 {
		ns := latency.Nanoseconds()
		if ns > c.hist.HighestTrackableValue() {
			ns = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(ns)
	}
	c.sumLatency += latency

	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	c.reads++
	c.readsByFeed[feedName]++
	c.readsByScenario[scenario]++
}

// RecordInit records how long a feed's initialization took.
func (c *Collector) RecordInit(feedName string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initByFeed[feedName] = d
}

// Elapsed returns time since the run window started.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		TotalReads: c.reads,
		Duration:   elapsed,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
	}

	if c.reads > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / c.reads)
	}

	if c.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50))
		stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90))
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99))
	}

	if elapsed > 0 {
		stats.ReadsPerSec = float64(c.reads) / elapsed.Seconds()
	}

	stats.DurationMs = float64(elapsed) / float64(time.Millisecond)
	stats.MinLatencyUs = float64(stats.MinLatency) / float64(time.Microsecond)
	stats.MaxLatencyUs = float64(stats.MaxLatency) / float64(time.Microsecond)
	stats.MeanLatencyUs = float64(stats.MeanLatency) / float64(time.Microsecond)
	stats.P50LatencyUs = float64(stats.P50Latency) / float64(time.Microsecond)
	stats.P90LatencyUs = float64(stats.P90Latency) / float64(time.Microsecond)
	stats.P99LatencyUs = float64(stats.P99Latency) / float64(time.Microsecond)

	stats.ReadsByFeed = make(map[string]int64, len(c.readsByFeed))
	for name, n := range c.readsByFeed {
		stats.ReadsByFeed[name] = n
	}
	stats.ReadsByScenario = make(map[string]int64, len(c.readsByScenario))
	for name, n := range c.readsByScenario {
		stats.ReadsByScenario[name] = n
	}
	if len(c.initByFeed) > 0 {
		stats.InitMsByFeed = make(map[string]float64, len(c.initByFeed))
		for name, d := range c.initByFeed {
			stats.InitMsByFeed[name] = float64(d) / float64(time.Millisecond)
		}
	}

	return stats
}
