package runner

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/feedrig/feedrig/internal/identity"
	"github.com/feedrig/feedrig/internal/loader"
	"github.com/feedrig/feedrig/internal/tracing"
	"github.com/feedrig/feedrig/internal/variables"
)

// Result captures execution summary.
type Result struct {
	RunID    string
	Reads    int64
	Duration time.Duration
}

// Runner coordinates concurrent scenario execution with rate limiting.
type Runner struct {
	opt     Options
	arrival arrivalController
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt, arrival: newArrivalController(opt)}
}

// Run initializes every referenced feed exactly once, then executes all
// scenarios until the duration elapses, the total-read cap is reached,
// or ctx is cancelled. A feed initialization failure aborts the run
// before any virtual user starts.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	runID := ulid.Make().String()
	start := time.Now()

	if r.opt.Tracer != nil {
		var span trace.Span
		ctx, span = r.opt.Tracer.Start(ctx, "feedrig run "+runID)
		defer span.End()
	}

	if err := r.initFeeds(ctx); err != nil {
		return Result{RunID: runID, Duration: time.Since(start)}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.opt.Duration > 0 {
		deadlineCtx, deadlineCancel := context.WithTimeout(ctx, r.opt.Duration)
		ctx = deadlineCtx
		defer deadlineCancel()
	}

	totalVUs := 0
	for _, sc := range r.opt.Scenarios {
		totalVUs += sc.VUs
	}
	permits := make(chan struct{}, totalVUs)

	// Scheduler: serializes rate limiting to avoid burst overshoot
	// across virtual users.
	var issued int64
	go func() {
		defer close(permits)
		for {
			if ctx.Err() != nil {
				return
			}
			current := atomic.LoadInt64(&issued)
			if r.opt.TotalReads > 0 && current >= int64(r.opt.TotalReads) {
				return
			}
			if err := r.arrival.Wait(ctx); err != nil {
				return
			}
			// Count before releasing the permit so virtual users only
			// consume allocated slots.
			atomic.AddInt64(&issued, 1)
			select {
			case permits <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var reads int64
	var wg sync.WaitGroup
	for _, sc := range r.opt.Scenarios {
		wg.Add(1)
		go func(sc Scenario) {
			defer wg.Done()
			r.runScenario(ctx, sc, permits, &reads)
		}(sc)
	}
	wg.Wait()

	return Result{
		RunID:    runID,
		Reads:    atomic.LoadInt64(&reads),
		Duration: time.Since(start),
	}, nil
}

// initFeeds registers every distinct feed instance with the registry
// before any read happens. Instance-level dedup means a feed shared by
// many steps initializes once while name collisions stay independent.
func (r *Runner) initFeeds(ctx context.Context) error {
	for _, f := range r.opt.feeds() {
		initCtx := ctx
		var span trace.Span
		if r.opt.Tracer != nil {
			initCtx, span = tracing.StartInitSpan(ctx, r.opt.Tracer, f.Name())
		}

		initStart := time.Now()
		err := r.opt.Registry.Ensure(initCtx, f)

		if span != nil {
			tracing.EndSpan(span, err)
		}
		if err != nil {
			return err
		}
		if r.opt.Collector != nil {
			r.opt.Collector.RecordInit(f.Name(), time.Since(initStart))
		}
	}
	return nil
}

// runScenario spawns the scenario's virtual users and, when tracing is
// on, wraps the whole group in one scenario span.
func (r *Runner) runScenario(ctx context.Context, sc Scenario, permits <-chan struct{}, reads *int64) {
	var span trace.Span
	if r.opt.Tracer != nil {
		ctx, span = tracing.StartScenarioSpan(ctx, r.opt.Tracer, sc.Name, sc.VUs)
	}

	var wg sync.WaitGroup
	for vu := 0; vu < sc.VUs; vu++ {
		wg.Add(1)
		go func(vu int) {
			defer wg.Done()
			r.runVirtualUser(ctx, sc, vu, permits, reads)
		}(vu)
	}
	wg.Wait()

	if span != nil {
		tracing.EndSpan(span, nil)
	}
}

func (r *Runner) runVirtualUser(ctx context.Context, sc Scenario, vu int, permits <-chan struct{}, reads *int64) {
	id := identity.New(sc.Name, vu)

	store := variables.NewStore()
	store.Set("scenario", sc.Name)
	store.Set("vu", strconv.Itoa(vu))

	for iteration := 0; ; iteration++ {
		store.Set("iteration", strconv.Itoa(iteration))

		for i := range sc.Steps {
			step := &sc.Steps[i]

			select {
			case _, ok := <-permits:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}

			readStart := time.Now()
			record := step.Feed.Next(id, nil)
			latency := time.Since(readStart)

			atomic.AddInt64(reads, 1)
			if r.opt.Collector != nil {
				r.opt.Collector.RecordRead(step.Feed.Name(), sc.Name, latency)
			}

			body := step.Body
			if body != "" {
				body = loader.RenderPlaceholders(body, store.Merge(record))
			}

			if r.opt.Sink != nil {
				r.opt.Sink(StepResult{
					Scenario: sc.Name,
					Step:     step.Name,
					VU:       vu,
					Record:   record,
					Body:     body,
				})
			}

			if step.Think > 0 && !sleepCtx(ctx, step.Think) {
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// sleepCtx sleeps for d unless ctx ends first; reports whether the full
// sleep completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
