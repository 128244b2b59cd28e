package orchestrator

import (
	"context"
	"sync"
)

// Run is the handle for one asynchronous generation or deep-dive request.
// Consumers range over Events() until it closes, then read Terminal().
type Run struct {
	ID string

	events chan Event
	done   chan struct{}
	cancel context.CancelFunc

	mu       sync.Mutex
	terminal *Event
	finished bool
}

func newRun(id string, cancel context.CancelFunc) *Run {
	return &Run{
		ID:     id,
		events: make(chan Event, 32),
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Events yields progress events. The channel closes once the run settles.
func (r *Run) Events() <-chan Event { return r.events }

// Done closes when the run has settled.
func (r *Run) Done() <-chan struct{} { return r.done }

// Terminal returns the final event once the run has settled.
func (r *Run) Terminal() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminal == nil {
		return Event{}, false
	}
	return *r.terminal, true
}

// Cancel requests cancellation. The run still settles with a terminal event;
// it never hangs silently.
func (r *Run) Cancel() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Wait blocks until the run settles or ctx expires.
func (r *Run) Wait(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case <-r.done:
		ev, _ := r.Terminal()
		return ev, nil
	}
}

// progress emits a progress event, dropping it if the consumer is behind.
// Progress is advisory; terminal events are never dropped.
func (r *Run) progress(step string, p float64) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	select {
	case r.events <- Event{Type: EventProgress, Step: step, Progress: p}:
	default:
	}
}

// finish records the terminal event and closes the channels. Safe to call
// once; later calls are ignored.
func (r *Run) finish(ev Event) {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.terminal = &ev
	r.mu.Unlock()

	// Drain slot is guaranteed: capacity 32 and progress sends are dropped
	// once finished is set, so this send cannot block forever in practice.
	select {
	case r.events <- ev:
	default:
	}
	close(r.events)
	close(r.done)
}
