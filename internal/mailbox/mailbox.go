package mailbox

import "context"

// Mailbox is a single-slot buffer where the latest value always wins.
// It is NOT a queue: pass requests that pile up while a pass is running
// collapse into one.
type Mailbox[T any] struct {
	slot chan T
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{slot: make(chan T, 1)}
}

// Put stores v, replacing any pending value. It never blocks.
func (m *Mailbox[T]) Put(v T) {
	for {
		select {
		case m.slot <- v:
			return
		default:
		}
		// Full: drop the stale value and retry.
		select {
		case <-m.slot:
		default:
		}
	}
}

// Take blocks until a value is available or ctx is done.
func (m *Mailbox[T]) Take(ctx context.Context) (T, bool) {
	select {
	case v := <-m.slot:
		return v, true
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// TryTake returns the pending value if there is one. It never blocks.
func (m *Mailbox[T]) TryTake() (T, bool) {
	select {
	case v := <-m.slot:
		return v, true
	default:
		var zero T
		return zero, false
	}
}
