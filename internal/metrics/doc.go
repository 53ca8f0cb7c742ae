// Package metrics collects run statistics for feed reads: latency
// distribution, per-feed and per-scenario read counts, and feed
// initialization timings.
package metrics
