// Package ringbuf provides a fixed-capacity ring buffer that keeps the most
// recent N values, evicting the oldest on overflow. It is the storage
// primitive behind candle history, swing levels, recent signals, and the
// closed-trade archive.
//
// Ring is not goroutine safe; owners that share one across goroutines must
// synchronize externally (market state does this under its own mutex).
package ringbuf

// Ring is a bounded FIFO that overwrites its oldest element when full.
type Ring[T any] struct {
	buf   []T
	head  int // next write position
	count int
}

// New creates a ring with the given capacity. Capacity must be positive.
func New[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends a value, evicting the oldest if the ring is full.
func (r *Ring[T]) Push(v T) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Len returns the number of stored values.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// At returns the i-th stored value, 0 being the oldest.
// Panics if i is out of range, same as a slice index.
func (r *Ring[T]) At(i int) T {
	if i < 0 || i >= r.count {
		panic("ringbuf: index out of range")
	}
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	return r.buf[(start+i)%len(r.buf)]
}

// Last returns the most recently pushed value. The second return is false
// when the ring is empty.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.count == 0 {
		return zero, false
	}
	return r.At(r.count - 1), true
}

// Snapshot returns a copy of the contents, oldest first. The copy is safe
// to hand to readers outside the owner's critical section.
func (r *Ring[T]) Snapshot() []T {
	out := make([]T, r.count)
	for i := 0; i < r.count; i++ {
		out[i] = r.At(i)
	}
	return out
}

// Tail returns a copy of the last n values, oldest first. If n exceeds the
// stored count, the full contents are returned.
func (r *Ring[T]) Tail(n int) []T {
	if n > r.count {
		n = r.count
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.At(r.count - n + i)
	}
	return out
}
