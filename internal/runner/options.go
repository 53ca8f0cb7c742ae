package runner

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/feedrig/feedrig/internal/feed"
	"github.com/feedrig/feedrig/internal/loader"
	"github.com/feedrig/feedrig/internal/metrics"
)

// ArrivalModel selects how step invocations are paced across all
// virtual users.
type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// Step is one unit of work in a scenario: pull a record from a feed,
// optionally render a body template with it, optionally think.
type Step struct {
	Name  string
	Feed  feed.Feed[loader.Record]
	Body  string
	Think time.Duration
}

// Scenario is a step sequence executed in a loop by VUs virtual users.
type Scenario struct {
	Name  string
	VUs   int
	Steps []Step
}

// StepResult is handed to the optional Sink after every step invocation.
type StepResult struct {
	Scenario string
	Step     string
	VU       int
	Record   loader.Record
	Body     string
}

// Options configure the Runner.
type Options struct {
	Scenarios []Scenario

	Registry  *feed.Registry     // feed init dedup (required; New fills one in if nil)
	Collector *metrics.Collector // read metrics (optional)

	TotalReads    int           // total step invocations before stopping (0 means unlimited)
	Duration      time.Duration // overall time limit (0 means no duration cap)
	RatePerSecond int           // step invocations per second (0 means unpaced)
	ArrivalModel  ArrivalModel
	RandomSeed    int64

	Tracer trace.Tracer     // optional span emission
	Sink   func(StepResult) // optional per-step observer, mostly for tests

	PoissonSampler func() float64              // optional injection for tests
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Registry == nil {
		o.Registry = feed.NewRegistry()
	}
	if o.TotalReads < 0 {
		o.TotalReads = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelUniform
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

// feeds returns the distinct feed instances referenced by any step, in
// first-reference order. Distinct is by instance: the same feed wired
// into many steps appears once, while two instances sharing a name
// appear twice.
func (o *Options) feeds() []feed.Initializer {
	var ordered []feed.Initializer
	seen := make(map[feed.Initializer]bool)
	for _, sc := range o.Scenarios {
		for _, st := range sc.Steps {
			if st.Feed == nil || seen[st.Feed] {
				continue
			}
			seen[st.Feed] = true
			ordered = append(ordered, st.Feed)
		}
	}
	return ordered
}
