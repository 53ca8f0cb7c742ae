package feed

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/feedrig/feedrig/internal/identity"
)

// Random draws a uniformly random record on every call. No per-identity
// state is kept: successive reads for one identity are independent. The
// generator is private to the instance, so two Random feeds over the
// same data produce unrelated sequences.
type Random[T any] struct {
	base[T]
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom builds a random feed over the given source.
func NewRandom[T any](name string, src Source[T]) *Random[T] {
	return &Random[T]{
		base: base[T]{name: name, src: src},
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// NewRandomLazy builds a random feed whose source is produced by the
// supplier at Init time. The supplier runs once; the snapshot it returns
// backs every read for the rest of the run.
func NewRandomLazy[T any](name string, supply func(ctx context.Context) ([]T, error)) *Random[T] {
	return NewRandom(name, FromFunc(supply))
}

// Next returns a uniformly random record from the source.
func (f *Random[T]) Next(_ identity.ID, _ any) T {
	items := f.snapshot()

	f.mu.Lock()
	n := f.rng.IntN(len(items))
	f.mu.Unlock()

	return items[n]
}
