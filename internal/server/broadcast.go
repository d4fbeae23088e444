// ABOUTME: Latest-value-wins broadcast slot
// ABOUTME: One writer publishes snapshots; each receiver sees the newest one
package server

import (
	"context"
	"errors"
	"sync"
)

// ErrWatchClosed is returned by receivers once the watch is closed
var ErrWatchClosed = errors.New("watch closed")

// Watch holds one value and a version counter. Publishing replaces the
// value and wakes every waiting receiver; intermediate values may be skipped.
type Watch[T any] struct {
	mu      sync.Mutex
	value   T
	version uint64
	changed chan struct{}
	closed  bool
}

// NewWatch creates a watch holding initial
func NewWatch[T any](initial T) *Watch[T] {
	return &Watch[T]{value: initial, changed: make(chan struct{})}
}

// Publish stores v and wakes receivers
func (w *Watch[T]) Publish(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.value = v
	w.version++
	close(w.changed)
	w.changed = make(chan struct{})
}

// Close wakes every receiver with ErrWatchClosed
func (w *Watch[T]) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	close(w.changed)
}

// Subscribe returns a receiver that treats the current value as seen
func (w *Watch[T]) Subscribe() *Receiver[T] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return &Receiver[T]{watch: w, seen: w.version}
}

// Receiver tracks which version of a watch it has observed
type Receiver[T any] struct {
	watch *Watch[T]
	seen  uint64
}

// Changed blocks until a version newer than the last one seen is published
func (r *Receiver[T]) Changed(ctx context.Context) (T, error) {
	for {
		r.watch.mu.Lock()
		if r.watch.version != r.seen {
			r.seen = r.watch.version
			v := r.watch.value
			r.watch.mu.Unlock()
			return v, nil
		}
		if r.watch.closed {
			r.watch.mu.Unlock()
			var zero T
			return zero, ErrWatchClosed
		}
		changed := r.watch.changed
		r.watch.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}
