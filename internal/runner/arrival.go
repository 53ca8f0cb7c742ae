package runner

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type arrivalController interface {
	Wait(ctx context.Context) error
}

func newArrivalController(opt Options) arrivalController {
	switch opt.ArrivalModel {
	case ArrivalModelPoisson:
		var sampler func() float64
		if opt.PoissonSampler != nil {
			sampler = opt.PoissonSampler
		} else {
			seeded := rand.New(rand.NewSource(opt.RandomSeed))
			sampler = seeded.ExpFloat64
		}
		ctrl := &poissonArrival{sample: sampler}
		ctrl.setRate(float64(opt.RatePerSecond))
		return ctrl
	default:
		return &uniformArrival{limiter: opt.LimiterFactory(opt.RatePerSecond)}
	}
}

// uniformArrival delegates pacing to a rate.Limiter (uniform spacing).
type uniformArrival struct {
	limiter *rate.Limiter
}

func (u *uniformArrival) Wait(ctx context.Context) error {
	if u == nil || u.limiter == nil {
		return nil
	}
	return u.limiter.Wait(ctx)
}

// poissonArrival samples exponential inter-arrival times to approximate
// a Poisson process.
type poissonArrival struct {
	mu     sync.Mutex
	rate   float64
	sample func() float64
}

func (p *poissonArrival) Wait(ctx context.Context) error {
	delay := p.nextDelay()
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *poissonArrival) setRate(rps float64) {
	if rps < 0 {
		rps = 0
	}
	p.mu.Lock()
	p.rate = rps
	p.mu.Unlock()
}

func (p *poissonArrival) nextDelay() time.Duration {
	p.mu.Lock()
	rps := p.rate
	sample := p.sample
	p.mu.Unlock()

	if rps <= 0 || sample == nil {
		return 0
	}

	interval := sample() / rps
	if math.IsInf(interval, 0) || math.IsNaN(interval) {
		return 0
	}
	return time.Duration(interval * float64(time.Second))
}
