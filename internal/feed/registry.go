package feed

import (
	"context"
	"errors"
	"sync"
)

// Initializer is the strategy-agnostic face a feed shows the registry.
// Every Feed[T] satisfies it regardless of its record type.
type Initializer interface {
	Name() string
	Init(ctx context.Context) error
}

// Registry deduplicates feed initialization for one run. The dedup key
// is the feed instance itself: a feed referenced by any number of steps
// across any number of scenarios initializes exactly once, while two
// distinct instances that happen to share a name initialize
// independently.
//
// Failure policy: a feed whose Init fails stays failed; every current
// and future Ensure call for that instance returns the same error.
// Cancellation is the one exception: a cancelled Init leaves the feed
// unregistered so a later attempt may retry.
type Registry struct {
	mu      sync.Mutex
	entries map[Initializer]*initEntry
}

type initEntry struct {
	done chan struct{}
	err  error
}

// NewRegistry creates an empty registry scoped to one run.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Initializer]*initEntry)}
}

// Ensure initializes the feed if this is the first call for the
// instance, otherwise awaits the initialization already in flight.
// When Ensure returns nil the feed's state is fully built and Next is
// safe to call.
func (r *Registry) Ensure(ctx context.Context, f Initializer) error {
	r.mu.Lock()
	entry, ok := r.entries[f]
	if ok {
		r.mu.Unlock()
		select {
		case <-entry.done:
			return entry.err
		case <-ctx.Done():
			// The in-flight Init keeps running; only this caller gives up.
			return ctx.Err()
		}
	}

	entry = &initEntry{done: make(chan struct{})}
	r.entries[f] = entry
	r.mu.Unlock()

	err := f.Init(ctx)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		// Abandoned, not failed: forget the entry so the feed can be
		// initialized by a later run-up.
		r.mu.Lock()
		delete(r.entries, f)
		r.mu.Unlock()
	}

	entry.err = err
	close(entry.done)
	return err
}

// EnsureAll initializes every feed in order, stopping at the first
// failure. Used before run start so no step reads an uninitialized feed.
func (r *Registry) EnsureAll(ctx context.Context, feeds ...Initializer) error {
	for _, f := range feeds {
		if err := r.Ensure(ctx, f); err != nil {
			return err
		}
	}
	return nil
}
