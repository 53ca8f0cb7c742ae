package feed

import (
	"sync"

	"github.com/feedrig/feedrig/internal/identity"
)

// Constant pins each identity to one record for the life of the run.
// The offset is a deterministic function of the identity, fixed the
// first time the identity is seen and never advanced.
type Constant[T any] struct {
	base[T]
	offsets sync.Map // identity.ID -> int
}

// NewConstant builds a constant feed over the given source.
func NewConstant[T any](name string, src Source[T]) *Constant[T] {
	return &Constant[T]{base: base[T]{name: name, src: src}}
}

// Next returns the record assigned to this identity. Every call for the
// same identity returns the same record; distinct identities may land on
// the same record or different ones.
func (f *Constant[T]) Next(id identity.ID, _ any) T {
	items := f.snapshot()

	off, ok := f.offsets.Load(id)
	if !ok {
		assigned := int(id.Hash() % uint64(len(items)))
		off, _ = f.offsets.LoadOrStore(id, assigned)
	}

	return items[off.(int)]
}
