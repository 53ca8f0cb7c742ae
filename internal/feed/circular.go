package feed

import (
	"sync"
	"sync/atomic"

	"github.com/feedrig/feedrig/internal/identity"
)

// Circular hands out records in source order, one cursor per identity,
// wrapping around forever. Each identity sees the source's original
// order from the beginning, independent of every other identity.
type Circular[T any] struct {
	base[T]
	cursors sync.Map // identity.ID -> *atomic.Uint64
}

// NewCircular builds a circular feed over the given source.
func NewCircular[T any](name string, src Source[T]) *Circular[T] {
	return &Circular[T]{base: base[T]{name: name, src: src}}
}

// Next returns the record at this identity's cursor and advances it.
// A first-seen identity starts at offset zero. The cursor is a single
// atomic counter, so concurrent calls with the same identity cannot
// corrupt it and calls with different identities never contend.
func (f *Circular[T]) Next(id identity.ID, _ any) T {
	items := f.snapshot()

	cell, ok := f.cursors.Load(id)
	if !ok {
		cell, _ = f.cursors.LoadOrStore(id, new(atomic.Uint64))
	}

	n := cell.(*atomic.Uint64).Add(1) - 1
	return items[n%uint64(len(items))]
}
