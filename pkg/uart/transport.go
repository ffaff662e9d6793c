package uart

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/tinyrc/pkg/buffer"
	fx "github.com/robotalks/tinyrc/pkg/framework"
	"github.com/robotalks/tinyrc/pkg/queue"
)

// DefaultRetryDelay is the delay before retrying to allocate a receive buffer.
const DefaultRetryDelay = 50 * time.Millisecond

// Transport moves lines over a Peripheral.
type Transport struct {
	Peripheral Peripheral
	Pool       *buffer.Pool
	RetryDelay time.Duration
	// Lines receives completed lines.
	Lines *queue.Queue
	// TxQueue holds buffers waiting for transmission.
	TxQueue *queue.Queue
	// Banner is transmitted once reception is started.
	Banner string

	rx    rxSession
	tx    txSession
	retry *fx.DelayedWork

	retries      int64
	droppedLines int64
}

// NewTransport creates a Transport with default settings.
func NewTransport(p Peripheral, pool *buffer.Pool) *Transport {
	t := &Transport{
		Peripheral: p,
		Pool:       pool,
		RetryDelay: DefaultRetryDelay,
		Lines:      queue.New(queue.DefaultCapacity),
		TxQueue:    queue.New(queue.DefaultCapacity),
	}
	t.retry = fx.NewDelayedWork(t.retryRx)
	return t
}

// Start installs the event handler and enables reception.
// If reception can't be enabled yet, it starts when the retry succeeds.
func (t *Transport) Start() error {
	t.Peripheral.SetHandler(t)
	t.rx.lock.Lock()
	t.rx.state = RxAwaitingBuffer
	err := t.enableRxLocked()
	t.rx.lock.Unlock()
	if errors.Is(err, ErrClosed) {
		t.retry.Cancel()
		return fmt.Errorf("enable rx: %w", err)
	}
	if t.Banner != "" {
		if err := t.Printf("%s", t.Banner); err != nil {
			glog.Warningf("uart: banner not sent: %v", err)
		}
	}
	return nil
}

// Close stops reception, cancels a pending retry and discards queued output.
// Get returns lines completed before Close, then queue.ErrClosed.
func (t *Transport) Close() error {
	t.rx.lock.Lock()
	t.rx.closing = true
	receiving := t.rx.state != RxAwaitingBuffer
	t.rx.lock.Unlock()
	t.retry.Cancel()
	var err error
	if receiving {
		err = t.Peripheral.RxDisable()
	}
	t.Lines.Close()
	t.TxQueue.Drain(t.Pool.Release)
	return err
}

// Run implements Runnable.
func (t *Transport) Run(ctx context.Context) error {
	if err := t.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	t.Close()
	return ctx.Err()
}

// Get waits for the next completed line.
// The caller owns the returned buffer and must release it to Pool.
func (t *Transport) Get(ctx context.Context) (*buffer.Buffer, error) {
	return t.Lines.Get(ctx)
}

// Printf formats a message into a pooled buffer and transmits it.
// Output longer than the buffer is truncated.
func (t *Transport) Printf(format string, args ...interface{}) error {
	buf, err := t.Pool.Acquire()
	if err != nil {
		return err
	}
	fmt.Fprintf(buf, format, args...)
	return t.Put(buf)
}

// Write implements io.Writer, transmitting p in buffer sized chunks.
func (t *Transport) Write(p []byte) (int, error) {
	var written int
	for written < len(p) {
		buf, err := t.Pool.Acquire()
		if err != nil {
			return written, err
		}
		n, _ := buf.Write(p[written:])
		if n == 0 {
			t.Pool.Release(buf)
			return written, buffer.ErrNoSpace
		}
		if err := t.Put(buf); err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// Retries returns how many times the delayed rx retry ran.
func (t *Transport) Retries() int {
	return int(atomic.LoadInt64(&t.retries))
}

// DroppedLines returns the number of completed lines dropped on a full queue.
func (t *Transport) DroppedLines() int {
	return int(atomic.LoadInt64(&t.droppedLines))
}

// HandleEvent implements EventHandler.
func (t *Transport) HandleEvent(ev Event) {
	if glog.V(4) {
		glog.Infof("uart event %s off=%d len=%d err=%v", ev.Type, ev.Offset, ev.Len, ev.Err)
	}
	switch ev.Type {
	case EventTxDone:
		t.handleTxDone(ev)
	case EventTxAborted:
		t.handleTxAborted(ev)
	case EventRxReady:
		t.handleRxReady(ev)
	case EventRxBufRequest:
		t.handleRxBufRequest()
	case EventRxBufReleased:
		t.handleRxBufReleased(ev)
	case EventRxDisabled:
		t.handleRxDisabled()
	case EventRxStopped:
		t.handleRxStopped(ev)
	default:
		glog.Warningf("uart: unknown event %s", ev.Type)
	}
}
