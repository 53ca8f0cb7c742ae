package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/feedrig/feedrig/internal/feed"
	"github.com/feedrig/feedrig/internal/loader"
	"github.com/feedrig/feedrig/internal/metrics"
)

func records(values ...string) []loader.Record {
	out := make([]loader.Record, 0, len(values))
	for _, v := range values {
		out = append(out, loader.Record{"value": v})
	}
	return out
}

func TestRunStopsAtTotalReads(t *testing.T) {
	f := feed.NewCircular("data", feed.FromSlice(records("a", "b", "c")))

	r := New(Options{
		Scenarios: []Scenario{{
			Name:  "s",
			VUs:   4,
			Steps: []Step{{Name: "read", Feed: f}},
		}},
		TotalReads: 100,
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Reads != 100 {
		t.Errorf("Reads = %d, want 100", result.Reads)
	}
	if result.RunID == "" {
		t.Error("RunID should be populated")
	}
}

func TestRunInitializesSharedFeedOnce(t *testing.T) {
	var inits atomic.Int64
	shared := feed.NewCircular("users", feed.FromFunc(func(context.Context) ([]loader.Record, error) {
		inits.Add(1)
		return records("u1", "u2"), nil
	}))

	collector := metrics.NewCollector()
	r := New(Options{
		Scenarios: []Scenario{
			{
				Name: "checkout",
				VUs:  3,
				Steps: []Step{
					{Name: "login", Feed: shared},
					{Name: "pay", Feed: shared},
				},
			},
			{
				Name:  "browse",
				VUs:   2,
				Steps: []Step{{Name: "list", Feed: shared}},
			},
		},
		TotalReads: 50,
		Collector:  collector,
	})

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if n := inits.Load(); n != 1 {
		t.Errorf("shared feed initialized %d times, want 1", n)
	}

	stats := collector.Stats(time.Second)
	if stats.TotalReads != 50 {
		t.Errorf("collector TotalReads = %d, want 50", stats.TotalReads)
	}
	if _, ok := stats.InitMsByFeed["users"]; !ok {
		t.Error("collector should record the feed's init duration")
	}
}

func TestRunAbortsOnInitFailure(t *testing.T) {
	boom := errors.New("no such file")
	bad := feed.NewCircular("users", feed.FromFunc(func(context.Context) ([]loader.Record, error) {
		return nil, boom
	}))

	var steps atomic.Int64
	r := New(Options{
		Scenarios: []Scenario{{
			Name:  "s",
			VUs:   2,
			Steps: []Step{{Name: "read", Feed: bad}},
		}},
		TotalReads: 10,
		Sink:       func(StepResult) { steps.Add(1) },
	})

	_, err := r.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want wrapped %v", err, boom)
	}
	if steps.Load() != 0 {
		t.Error("no step should execute after a failed feed init")
	}
}

func TestRunVirtualUserSeesSourceOrder(t *testing.T) {
	f := feed.NewCircular("data", feed.FromSlice(records("a", "b", "c")))

	var mu sync.Mutex
	var seen []string
	r := New(Options{
		Scenarios: []Scenario{{
			Name:  "s",
			VUs:   1,
			Steps: []Step{{Name: "read", Feed: f}},
		}},
		TotalReads: 6,
		Sink: func(sr StepResult) {
			mu.Lock()
			seen = append(seen, sr.Record["value"])
			mu.Unlock()
		},
	})

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"a", "b", "c", "a", "b", "c"}
	if len(seen) != len(want) {
		t.Fatalf("saw %d reads, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("read %d = %q, want %q (sequence %v)", i, seen[i], want[i], seen)
		}
	}
}

func TestRunRendersBodyTemplates(t *testing.T) {
	f := feed.NewConstant("users", feed.FromSlice(records("alice")))

	var mu sync.Mutex
	var bodies []string
	r := New(Options{
		Scenarios: []Scenario{{
			Name: "checkout",
			VUs:  1,
			Steps: []Step{{
				Name: "login",
				Feed: f,
				Body: "user={{value}} scenario={{scenario}} vu={{vu}}",
			}},
		}},
		TotalReads: 2,
		Sink: func(sr StepResult) {
			mu.Lock()
			bodies = append(bodies, sr.Body)
			mu.Unlock()
		},
	})

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := "user=alice scenario=checkout vu=0"
	for i, body := range bodies {
		if body != want {
			t.Errorf("body %d = %q, want %q", i, body, want)
		}
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	f := feed.NewCircular("data", feed.FromSlice(records("a")))

	ctx, cancel := context.WithCancel(context.Background())
	r := New(Options{
		Scenarios: []Scenario{{
			Name:  "s",
			VUs:   2,
			Steps: []Step{{Name: "read", Feed: f, Think: time.Millisecond}},
		}},
		// No total and no duration: only cancellation ends the run.
	})

	done := make(chan Result, 1)
	go func() {
		result, _ := r.Run(ctx)
		done <- result
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case result := <-done:
		if result.Reads == 0 {
			t.Error("expected some reads before cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancellation")
	}
}

func TestRunDurationCap(t *testing.T) {
	f := feed.NewCircular("data", feed.FromSlice(records("a")))

	r := New(Options{
		Scenarios: []Scenario{{
			Name:  "s",
			VUs:   1,
			Steps: []Step{{Name: "read", Feed: f, Think: time.Millisecond}},
		}},
		Duration: 60 * time.Millisecond,
	})

	start := time.Now()
	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Run() took %v, should stop shortly after the 60ms cap", elapsed)
	}
	if result.Reads == 0 {
		t.Error("expected reads during the capped window")
	}
}

func TestRunEmitsScenarioAndInitSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})

	f := feed.NewCircular("users", feed.FromSlice(records("a", "b")))
	r := New(Options{
		Scenarios: []Scenario{
			{Name: "checkout", VUs: 2, Steps: []Step{{Name: "read", Feed: f}}},
			{Name: "browse", VUs: 1, Steps: []Step{{Name: "read", Feed: f}}},
		},
		TotalReads: 20,
		Tracer:     tp.Tracer("test"),
	})

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	names := make(map[string]int)
	for _, span := range exporter.GetSpans() {
		names[span.Name]++
	}
	if names["feed init users"] != 1 {
		t.Errorf("feed init spans = %d, want 1 (got %v)", names["feed init users"], names)
	}
	if names["scenario checkout"] != 1 || names["scenario browse"] != 1 {
		t.Errorf("expected one span per scenario, got %v", names)
	}
}

func TestRunPoissonArrival(t *testing.T) {
	f := feed.NewRandom("data", feed.FromSlice(records("a", "b")))

	r := New(Options{
		Scenarios: []Scenario{{
			Name:  "s",
			VUs:   2,
			Steps: []Step{{Name: "read", Feed: f}},
		}},
		TotalReads:     40,
		RatePerSecond:  100000,
		ArrivalModel:   ArrivalModelPoisson,
		PoissonSampler: func() float64 { return 0 },
	})

	result, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Reads != 40 {
		t.Errorf("Reads = %d, want 40", result.Reads)
	}
}
