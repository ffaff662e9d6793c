package framework

import (
	"sync"
	"time"
)

// DelayedWork is a one-shot deferred task.
// At most one execution is pending at any time, and executions never overlap.
// The task runs on its own goroutine, so it may block briefly or re-arm
// itself with Reschedule.
type DelayedWork struct {
	fn func()

	lock    sync.Mutex
	runLock sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
}

// NewDelayedWork creates a DelayedWork running fn.
func NewDelayedWork(fn func()) *DelayedWork {
	return &DelayedWork{fn: fn}
}

// Schedule arms the work to run after delay if it is not pending yet.
// It returns false when the work was already pending, leaving the
// existing deadline untouched.
func (w *DelayedWork) Schedule(delay time.Duration) bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.pending {
		return false
	}
	w.armLocked(delay)
	return true
}

// Reschedule arms the work to run after delay, replacing any pending deadline.
func (w *DelayedWork) Reschedule(delay time.Duration) {
	w.lock.Lock()
	w.armLocked(delay)
	w.lock.Unlock()
}

// Cancel cancels the pending execution, returns true if one was pending.
func (w *DelayedWork) Cancel() bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	pending := w.pending
	w.gen++
	w.pending = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	return pending
}

// Pending indicates an execution is armed.
func (w *DelayedWork) Pending() bool {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.pending
}

func (w *DelayedWork) armLocked(delay time.Duration) {
	w.gen++
	gen := w.gen
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = true
	w.timer = time.AfterFunc(delay, func() { w.fire(gen) })
}

func (w *DelayedWork) fire(gen uint64) {
	w.lock.Lock()
	if gen != w.gen || !w.pending {
		w.lock.Unlock()
		return
	}
	w.pending = false
	w.timer = nil
	w.lock.Unlock()

	w.runLock.Lock()
	defer w.runLock.Unlock()
	w.fn()
}
