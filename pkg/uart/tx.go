package uart

import (
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/tinyrc/pkg/buffer"
)

type txSession struct {
	lock       sync.Mutex
	current    *buffer.Buffer
	aborted    *buffer.Buffer
	abortedLen int
}

// TxIdle indicates nothing is being transmitted.
func (t *Transport) TxIdle() bool {
	t.tx.lock.Lock()
	defer t.tx.lock.Unlock()
	return t.tx.current == nil
}

// Put transfers buf for transmission, it never blocks.
// Empty buffers are released without being sent. When the TX queue is full
// the buffer is released and the error returned.
func (t *Transport) Put(buf *buffer.Buffer) error {
	if buf == nil {
		return nil
	}
	if buf.Len == 0 {
		t.Pool.Release(buf)
		return nil
	}
	t.tx.lock.Lock()
	defer t.tx.lock.Unlock()
	if t.tx.current != nil {
		if err := t.TxQueue.Put(buf); err != nil {
			t.Pool.Release(buf)
			return fmt.Errorf("tx: %w", err)
		}
		return nil
	}
	t.tx.current = buf
	if err := t.Peripheral.Tx(buf, 0); err != nil {
		t.tx.current = nil
		t.Pool.Release(buf)
		return fmt.Errorf("tx: %w", err)
	}
	return nil
}

func (t *Transport) handleTxDone(ev Event) {
	if ev.Buf == nil {
		return
	}
	t.tx.lock.Lock()
	defer t.tx.lock.Unlock()
	if t.tx.current == nil {
		glog.Warningf("uart: tx done while idle")
		return
	}
	t.finishTxLocked()
}

func (t *Transport) handleTxAborted(ev Event) {
	t.tx.lock.Lock()
	defer t.tx.lock.Unlock()
	cur := t.tx.current
	if cur == nil {
		return
	}
	if ev.Err != nil {
		glog.Errorf("uart: tx failed, %d bytes dropped: %v", cur.Len-t.tx.abortedLen, ev.Err)
		t.finishTxLocked()
		return
	}
	if t.tx.aborted == nil {
		t.tx.aborted, t.tx.abortedLen = cur, 0
	}
	t.tx.abortedLen += ev.Len
	if t.tx.abortedLen >= cur.Len {
		t.finishTxLocked()
		return
	}
	glog.V(2).Infof("uart: tx resume at %d/%d", t.tx.abortedLen, cur.Len)
	if err := t.Peripheral.Tx(cur, t.tx.abortedLen); err != nil {
		glog.Errorf("uart: tx resume failed: %v", err)
		t.finishTxLocked()
	}
}

// finishTxLocked releases the current buffer and starts the next one.
func (t *Transport) finishTxLocked() {
	t.Pool.Release(t.tx.current)
	t.tx.current, t.tx.aborted, t.tx.abortedLen = nil, nil, 0
	for {
		next := t.TxQueue.TryGet()
		if next == nil {
			return
		}
		t.tx.current = next
		err := t.Peripheral.Tx(next, 0)
		if err == nil {
			return
		}
		glog.Errorf("uart: tx failed: %v", err)
		t.tx.current = nil
		t.Pool.Release(next)
	}
}
