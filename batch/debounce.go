package batch

import (
	"sync"
	"time"
)

// Debouncer delays calls to a function until a quiet period has elapsed.
type Debouncer[A any] struct {
	mu        sync.Mutex
	wait      time.Duration
	fn        func(A)
	immediate bool
	timer     *time.Timer
	gen       uint64 // identifies the pending timer
	last      A
}

// Debounce returns a Debouncer calling fn once wait has elapsed since the
// last Call, with the arguments of that last Call. Every Call resets the
// timer.
//
// In immediate mode, the first Call of a quiet period runs fn synchronously
// and the following calls are dropped until wait has elapsed since the most
// recent one.
func Debounce[A any](wait time.Duration, fn func(A), immediate bool) *Debouncer[A] {
	return &Debouncer[A]{wait: wait, fn: fn, immediate: immediate}
}

// Call schedules fn.
func (d *Debouncer[A]) Call(arg A) {
	d.mu.Lock()
	callNow := d.immediate && d.timer == nil
	if d.timer != nil {
		d.timer.Stop()
	}
	d.last = arg
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
	d.mu.Unlock()

	if callNow {
		d.fn(arg)
	}
}

func (d *Debouncer[A]) fire(gen uint64) {
	d.mu.Lock()
	if d.timer == nil || d.gen != gen {
		// superseded by a later Call
		d.mu.Unlock()
		return
	}
	d.timer = nil
	arg := d.last
	d.mu.Unlock()

	if !d.immediate {
		d.fn(arg)
	}
}

// Stop cancels a pending call.
func (d *Debouncer[A]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
