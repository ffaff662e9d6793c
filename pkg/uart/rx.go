package uart

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/tinyrc/pkg/buffer"
)

// RxState is the state of the receive session.
type RxState int

// Receive session states.
const (
	// RxAwaitingBuffer means reception is off until a buffer is available.
	RxAwaitingBuffer RxState = iota
	// RxReceiving means the peripheral is filling a buffer.
	RxReceiving
	// RxDisabling means a line completed and reception is being restarted.
	RxDisabling
)

// String implements Stringer.
func (s RxState) String() string {
	switch s {
	case RxAwaitingBuffer:
		return "AwaitingBuffer"
	case RxReceiving:
		return "Receiving"
	case RxDisabling:
		return "Disabling"
	}
	return "Unknown"
}

type rxSession struct {
	lock       sync.Mutex
	state      RxState
	active     *buffer.Buffer
	disableReq bool
	abandon    bool
	closing    bool
}

// RxState returns the current receive state.
func (t *Transport) RxState() RxState {
	t.rx.lock.Lock()
	defer t.rx.lock.Unlock()
	return t.rx.state
}

func (t *Transport) handleRxReady(ev Event) {
	buf := ev.Buf
	if buf == nil {
		return
	}
	t.rx.lock.Lock()
	defer t.rx.lock.Unlock()
	t.rx.active = buf
	if n := buf.Extend(ev.Len); n < ev.Len {
		glog.Warningf("uart: rx overflow, %d bytes dropped", ev.Len-n)
	}
	if t.rx.disableReq || t.rx.abandon || ev.Len == 0 {
		return
	}
	if c, ok := buf.LastByte(); ok && buffer.IsTerminator(c) {
		t.rx.disableReq = true
		t.rx.state = RxDisabling
		// ErrNotEnabled: the peripheral already stopped on a full buffer.
		if err := t.Peripheral.RxDisable(); err != nil && !errors.Is(err, ErrNotEnabled) {
			glog.Errorf("uart: rx disable failed: %v", err)
		}
	}
}

func (t *Transport) handleRxBufRequest() {
	t.rx.lock.Lock()
	closing := t.rx.closing
	t.rx.lock.Unlock()
	if closing {
		return
	}
	buf, err := t.Pool.Acquire()
	if err != nil {
		glog.Warningf("uart: no next rx buffer: %v", err)
		return
	}
	if err := t.Peripheral.RxBufRsp(buf); err != nil {
		glog.Warningf("uart: rx buffer response failed: %v", err)
		t.Pool.Release(buf)
	}
}

func (t *Transport) handleRxBufReleased(ev Event) {
	buf := ev.Buf
	if buf == nil {
		return
	}
	t.rx.lock.Lock()
	abandon := t.rx.abandon
	if t.rx.active == buf {
		t.rx.active = nil
	}
	t.rx.lock.Unlock()

	// a lone terminator, e.g. the '\n' of CRLF, is not a line
	if abandon || buf.Blank() {
		t.Pool.Release(buf)
		return
	}
	buf.TerminateLine()
	glog.V(2).Infof("uart: line %q", buf.String())
	if err := t.Lines.Put(buf); err != nil {
		atomic.AddInt64(&t.droppedLines, 1)
		glog.Warningf("uart: line dropped: %v", err)
		t.Pool.Release(buf)
	}
}

func (t *Transport) handleRxDisabled() {
	t.rx.lock.Lock()
	defer t.rx.lock.Unlock()
	t.rx.disableReq, t.rx.abandon = false, false
	t.rx.state = RxAwaitingBuffer
	t.rx.active = nil
	if t.rx.closing {
		return
	}
	t.enableRxLocked()
}

func (t *Transport) handleRxStopped(ev Event) {
	glog.Errorf("uart: rx stopped: %v", ev.Err)
	t.rx.lock.Lock()
	t.rx.abandon = true
	t.rx.lock.Unlock()
}

// enableRxLocked restarts reception with a fresh buffer, or arms the retry.
func (t *Transport) enableRxLocked() error {
	buf, err := t.Pool.Acquire()
	if err != nil {
		glog.Warningf("uart: no rx buffer, retry in %v: %v", t.RetryDelay, err)
		t.retry.Reschedule(t.RetryDelay)
		return err
	}
	if err := t.Peripheral.RxEnable(buf); err != nil {
		t.Pool.Release(buf)
		if errors.Is(err, ErrClosed) {
			return err
		}
		glog.Errorf("uart: rx enable failed, retry in %v: %v", t.RetryDelay, err)
		t.retry.Reschedule(t.RetryDelay)
		return err
	}
	t.rx.state = RxReceiving
	t.rx.active = buf
	return nil
}
