package feed

import "context"

// Source provides a feed's backing data, either eagerly (a slice fixed at
// construction) or lazily (a supplier invoked exactly once, at Init).
type Source[T any] struct {
	items  []T
	supply func(ctx context.Context) ([]T, error)
}

// FromSlice builds an eager source over the given records.
func FromSlice[T any](items []T) Source[T] {
	return Source[T]{items: items}
}

// FromFunc builds a lazy source. The supplier runs once, during feed
// initialization; its result is the authoritative snapshot for the whole
// run, even if the data it was derived from changes afterwards.
func FromFunc[T any](supply func(ctx context.Context) ([]T, error)) Source[T] {
	return Source[T]{supply: supply}
}

// resolve produces the backing slice. The returned slice is a private
// copy so later mutation of the caller's data cannot leak into reads.
func (s Source[T]) resolve(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := s.items
	if s.supply != nil {
		supplied, err := s.supply(ctx)
		if err != nil {
			return nil, err
		}
		items = supplied
	}

	if len(items) == 0 {
		return nil, ErrEmptySource
	}

	snapshot := make([]T, len(items))
	copy(snapshot, items)
	return snapshot, nil
}
