// Package adapter provides a uart.Peripheral over a blocking serial port.
//
// A reader goroutine feeds received bytes into a bounded backlog, a writer
// goroutine performs transmissions, and the Run loop delivers all events
// from a single goroutine, playing the role of the UART interrupt handler.
package adapter

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/tinyrc/pkg/buffer"
	"github.com/robotalks/tinyrc/pkg/uart"
)

// Defaults of Adapter.
const (
	DefaultBacklog  = 256
	DefaultReadSize = 64
)

type txRequest struct {
	buf    *buffer.Buffer
	offset int
}

// Adapter implements uart.Peripheral.
type Adapter struct {
	Port io.ReadWriter
	// Backlog bounds the received bytes kept while no buffer accepts them.
	Backlog int
	// ReadSize is the size of a single Read.
	ReadSize int

	lock      sync.Mutex
	handler   uart.EventHandler
	events    eventList
	backlog   []byte
	rxBuf     *buffer.Buffer
	rxNext    *buffer.Buffer
	rxOff     int
	rxEnabled bool
	txBusy    bool
	closed    bool

	wakeCh   chan struct{}
	txCh     chan txRequest
	overruns int64
}

// New creates an Adapter over port.
func New(port io.ReadWriter) *Adapter {
	return &Adapter{
		Port:     port,
		Backlog:  DefaultBacklog,
		ReadSize: DefaultReadSize,
		wakeCh:   make(chan struct{}, 1),
		txCh:     make(chan txRequest, 1),
	}
}

// Overruns returns the number of received bytes dropped on a full backlog.
func (a *Adapter) Overruns() int {
	return int(atomic.LoadInt64(&a.overruns))
}

// SetHandler implements uart.Peripheral.
func (a *Adapter) SetHandler(h uart.EventHandler) {
	a.lock.Lock()
	a.handler = h
	a.lock.Unlock()
}

// Tx implements uart.Peripheral.
func (a *Adapter) Tx(buf *buffer.Buffer, offset int) error {
	a.lock.Lock()
	if a.closed {
		a.lock.Unlock()
		return uart.ErrClosed
	}
	if a.txBusy {
		a.lock.Unlock()
		return uart.ErrBusy
	}
	a.txBusy = true
	a.lock.Unlock()
	a.txCh <- txRequest{buf: buf, offset: offset}
	return nil
}

// RxEnable implements uart.Peripheral.
func (a *Adapter) RxEnable(buf *buffer.Buffer) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.closed {
		return uart.ErrClosed
	}
	if a.rxEnabled {
		return uart.ErrBusy
	}
	a.rxEnabled = true
	a.rxBuf, a.rxNext, a.rxOff = buf, nil, buf.Len
	a.pushLocked(uart.Event{Type: uart.EventRxBufRequest})
	return nil
}

// RxBufRsp implements uart.Peripheral.
func (a *Adapter) RxBufRsp(buf *buffer.Buffer) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if !a.rxEnabled {
		return uart.ErrNotEnabled
	}
	if a.rxNext != nil {
		return uart.ErrBusy
	}
	a.rxNext = buf
	return nil
}

// RxDisable implements uart.Peripheral.
func (a *Adapter) RxDisable() error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if !a.rxEnabled {
		return uart.ErrNotEnabled
	}
	a.stopRxLocked()
	return nil
}

// Run delivers events until ctx is done or the port fails to read.
// A Read blocked in the port is only interrupted by closing the port.
func (a *Adapter) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	readCh, errCh := make(chan []byte), make(chan error, 1)
	go a.readLoop(ctx, readCh, errCh)
	go a.writeLoop(ctx)
	for {
		for a.step() {
		}
		select {
		case <-ctx.Done():
			a.shutdown()
			return ctx.Err()
		case err := <-errCh:
			a.shutdown()
			return err
		case data := <-readCh:
			a.receive(data)
		case <-a.wakeCh:
		}
	}
}

// step delivers one pending event or one run of received bytes.
func (a *Adapter) step() bool {
	a.lock.Lock()
	if ev, ok := a.events.pop(); ok {
		h := a.handler
		a.lock.Unlock()
		if h != nil {
			h.HandleEvent(ev)
		}
		return true
	}
	defer a.lock.Unlock()
	if !a.rxEnabled || len(a.backlog) == 0 {
		return false
	}
	buf, off := a.rxBuf, a.rxOff
	room := buf.Data()[off:buf.Limit()]
	n := runLength(a.backlog, len(room))
	copy(room, a.backlog[:n])
	a.backlog = a.backlog[n:]
	a.rxOff += n
	a.events.push(uart.Event{Type: uart.EventRxReady, Buf: buf, Offset: off, Len: n})
	if a.rxOff >= buf.Limit() {
		a.events.push(uart.Event{Type: uart.EventRxBufReleased, Buf: buf})
		if next := a.rxNext; next != nil {
			a.rxBuf, a.rxNext, a.rxOff = next, nil, next.Len
			a.events.push(uart.Event{Type: uart.EventRxBufRequest})
		} else {
			a.rxEnabled, a.rxBuf = false, nil
			a.events.push(uart.Event{Type: uart.EventRxDisabled})
		}
	}
	return true
}

// runLength returns the bytes up to and including the first terminator.
func runLength(data []byte, max int) int {
	if len(data) < max {
		max = len(data)
	}
	for i := 0; i < max; i++ {
		if buffer.IsTerminator(data[i]) {
			return i + 1
		}
	}
	return max
}

func (a *Adapter) receive(data []byte) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if room := a.Backlog - len(a.backlog); a.Backlog > 0 && len(data) > room {
		if room < 0 {
			room = 0
		}
		atomic.AddInt64(&a.overruns, int64(len(data)-room))
		glog.Warningf("uart: rx overrun, %d bytes dropped", len(data)-room)
		data = data[:room]
	}
	a.backlog = append(a.backlog, data...)
}

func (a *Adapter) readLoop(ctx context.Context, readCh chan<- []byte, errCh chan<- error) {
	size := a.ReadSize
	if size <= 0 {
		size = DefaultReadSize
	}
	buf := make([]byte, size)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := a.Port.Read(buf)
		if n > 0 {
			select {
			case readCh <- append([]byte(nil), buf[:n]...):
			case <-ctx.Done():
				return
			}
		}
		if err != nil && !os.IsTimeout(err) {
			errCh <- err
			return
		}
	}
}

func (a *Adapter) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-a.txCh:
			data := req.buf.Bytes()[req.offset:]
			n, err := a.Port.Write(data)
			ev := uart.Event{Type: uart.EventTxDone, Buf: req.buf, Offset: req.offset, Len: n}
			if err != nil || n < len(data) {
				ev.Type = uart.EventTxAborted
				if n == 0 {
					// nothing written is a failure, resuming would spin
					if ev.Err = err; ev.Err == nil {
						ev.Err = io.ErrShortWrite
					}
				}
				glog.V(2).Infof("uart: tx stopped at %d/%d: %v", n, len(data), err)
			}
			a.lock.Lock()
			a.txBusy = false
			a.pushLocked(ev)
			a.lock.Unlock()
		}
	}
}

func (a *Adapter) shutdown() {
	a.lock.Lock()
	a.closed = true
	if a.rxEnabled {
		a.stopRxLocked()
	}
	a.lock.Unlock()
	for a.step() {
	}
}

func (a *Adapter) stopRxLocked() {
	a.events.push(uart.Event{Type: uart.EventRxBufReleased, Buf: a.rxBuf})
	if a.rxNext != nil {
		a.events.push(uart.Event{Type: uart.EventRxBufReleased, Buf: a.rxNext})
	}
	a.events.push(uart.Event{Type: uart.EventRxDisabled})
	a.rxEnabled = false
	a.rxBuf, a.rxNext, a.rxOff = nil, nil, 0
	a.wakeUp()
}

func (a *Adapter) pushLocked(ev uart.Event) {
	a.events.push(ev)
	a.wakeUp()
}

func (a *Adapter) wakeUp() {
	select {
	case a.wakeCh <- struct{}{}:
	default:
	}
}

type eventItem struct {
	ev   uart.Event
	next *eventItem
}

type eventList struct {
	head *eventItem
	tail *eventItem
}

func (l *eventList) push(ev uart.Event) {
	it := &eventItem{ev: ev}
	if l.tail == nil {
		l.head = it
	} else {
		l.tail.next = it
	}
	l.tail = it
}

func (l *eventList) pop() (ev uart.Event, ok bool) {
	it := l.head
	if it == nil {
		return
	}
	if l.head = it.next; l.head == nil {
		l.tail = nil
	}
	return it.ev, true
}
