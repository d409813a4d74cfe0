// Package accounts hands out authenticated account handles in round-robin order.
package accounts

import (
	"errors"
	"sync"
)

// ErrNoAccountsAvailable is returned by Next when the pool is empty.
var ErrNoAccountsAvailable = errors.New("no accounts available")

// Rotator cycles through a fixed list of handles in configuration order.
// It is safe for concurrent use.
type Rotator[T any] struct {
	mu      sync.Mutex
	handles []T
	cursor  int
}

// NewRotator copies handles; later changes to the caller's slice are not seen.
func NewRotator[T any](handles []T) *Rotator[T] {
	cp := make([]T, len(handles))
	copy(cp, handles)
	return &Rotator[T]{handles: cp}
}

// Next returns the handle under the cursor and advances it.
func (r *Rotator[T]) Next() (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.handles) == 0 {
		var zero T
		return zero, ErrNoAccountsAvailable
	}
	h := r.handles[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.handles)
	return h, nil
}

// Len returns the number of handles in the pool.
func (r *Rotator[T]) Len() int {
	return len(r.handles)
}
