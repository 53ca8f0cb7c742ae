// Package feed implements the data-feed engine: named, stateful data
// suppliers that hand per-virtual-user items to load-test steps.
//
// A feed is initialized once per run (see Registry) and then read
// concurrently by many virtual users. Reads never block on each other
// across identities and never exhaust: every strategy treats its finite
// backing data as an infinite generator.
package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/feedrig/feedrig/internal/identity"
)

// Feed supplies one item per call to a load-test step.
//
// Built-in strategies ignore aux; it is passed through untouched so
// user-defined feeds can make data-dependent decisions per call.
type Feed[T any] interface {
	// Name returns the feed's configured name. Informational only:
	// deduplication is by instance, never by name.
	Name() string

	// Init resolves the backing source and creates cursor state.
	// It may block on I/O and honors ctx cancellation. Drive it through
	// a Registry so shared instances initialize exactly once.
	Init(ctx context.Context) error

	// Next returns the next item for the given identity. It is
	// non-blocking, safe for concurrent use, and never fails: calling
	// it before a successful Init is a programming error and panics.
	Next(id identity.ID, aux any) T
}

// ErrEmptySource reports a source that resolved to zero records.
// Surfaced at Init time; reads never see it.
var ErrEmptySource = errors.New("feed source has no records")

// InitError wraps a failure to initialize a named feed. The feed name is
// the operator's handle for diagnosing misconfigured data, so it is
// always part of the message.
type InitError struct {
	Feed string
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialize feed %q: %v", e.Feed, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
