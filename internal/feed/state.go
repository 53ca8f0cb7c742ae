package feed

import (
	"context"
	"fmt"
	"sync/atomic"
)

// base carries the pieces every built-in strategy shares: the name, the
// unresolved source, and the snapshot taken at Init.
type base[T any] struct {
	name  string
	src   Source[T]
	items []T
	ready atomic.Bool
}

func (b *base[T]) Name() string {
	return b.name
}

// Init resolves the source exactly once and publishes the snapshot.
// Cancellation leaves the feed un-initialized; a later Init may retry.
func (b *base[T]) Init(ctx context.Context) error {
	items, err := b.src.resolve(ctx)
	if err != nil {
		return &InitError{Feed: b.name, Err: err}
	}
	b.items = items
	b.ready.Store(true)
	return nil
}

// snapshot returns the resolved backing data. Reading from a feed whose
// Init has not completed has no defined behavior, so this panics rather
// than guessing.
func (b *base[T]) snapshot() []T {
	if !b.ready.Load() {
		panic(fmt.Sprintf("feed %q: Next called before Init completed", b.name))
	}
	return b.items
}
