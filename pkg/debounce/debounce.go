// Package debounce rate-limits invocation of caller-supplied actions.
// Debounced actions collapse a burst into one trailing execution;
// throttled actions allow at most one leading execution per interval.
package debounce

import (
	"sync"
	"time"
)

// Func is a rate-limited action. Arguments are captured at call time;
// execution is fire-and-forget.
type Func func(args ...any)

// Debounced wraps an action so only the last call of a burst executes,
// delayed by wait. Each call cancels any pending execution and
// reschedules with its own arguments.
type Debounced struct {
	mu    sync.Mutex
	fn    Func
	wait  time.Duration
	timer *time.Timer

	// seq identifies the latest schedule. A fired callback whose seq no
	// longer matches was superseded by a Call or Stop that raced with the
	// timer firing, and must not run.
	seq uint64
}

func NewDebounced(fn Func, wait time.Duration) *Debounced {
	return &Debounced{fn: fn, wait: wait}
}

func (d *Debounced) Call(args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.wait, func() {
		d.mu.Lock()
		if seq != d.seq {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.fn(args...)
	})
}

// Stop cancels a pending execution, if any.
func (d *Debounced) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether an execution is scheduled.
func (d *Debounced) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Throttled wraps an action so the first call in a window executes
// immediately and the rest are dropped. The window resets only on an
// executed call.
type Throttled struct {
	mu       sync.Mutex
	fn       Func
	interval time.Duration
	lastRun  time.Time
}

func NewThrottled(fn Func, interval time.Duration) *Throttled {
	return &Throttled{fn: fn, interval: interval}
}

func (t *Throttled) Call(args ...any) {
	t.mu.Lock()
	now := time.Now()
	if !t.lastRun.IsZero() && now.Sub(t.lastRun) < t.interval {
		t.mu.Unlock()
		return
	}
	t.lastRun = now
	t.mu.Unlock()

	t.fn(args...)
}

// Pending reports whether calls are currently being dropped.
func (t *Throttled) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.lastRun.IsZero() && time.Since(t.lastRun) < t.interval
}

// Debounce is a convenience wrapper around NewDebounced.
func Debounce(fn Func, wait time.Duration) Func {
	d := NewDebounced(fn, wait)
	return d.Call
}

// Throttle is a convenience wrapper around NewThrottled.
func Throttle(fn Func, interval time.Duration) Func {
	t := NewThrottled(fn, interval)
	return t.Call
}
