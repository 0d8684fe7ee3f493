// Package content carries data from producer goroutines (input hooks, timers,
// network readers) to the draw callback without blocking either side.
package content

// Mailbox is a single-slot, last-write-wins handoff. Producers overwrite the
// pending value; the consumer drains it from the render thread once per
// frame. Neither side ever blocks, so a slow frame cannot stall an input hook
// and a burst of updates collapses to the newest one.
type Mailbox[T any] struct {
	ch chan T
}

func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{ch: make(chan T, 1)}
}

// Put deposits v, replacing any value not yet taken.
func (m *Mailbox[T]) Put(v T) {
	for {
		select {
		case m.ch <- v:
			return
		default:
		}
		// Slot occupied; evict the stale value and retry.
		select {
		case <-m.ch:
		default:
		}
	}
}

// Take removes and returns the pending value, if any.
func (m *Mailbox[T]) Take() (T, bool) {
	select {
	case v := <-m.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}
