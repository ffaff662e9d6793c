package uart

import "sync/atomic"

// retryRx runs on the delayed work goroutine after an allocation failure.
func (t *Transport) retryRx() {
	atomic.AddInt64(&t.retries, 1)
	t.rx.lock.Lock()
	defer t.rx.lock.Unlock()
	if t.rx.closing || t.rx.state != RxAwaitingBuffer {
		return
	}
	t.enableRxLocked()
}
