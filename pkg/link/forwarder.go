package link

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/tinyrc/pkg/buffer"
	"github.com/robotalks/tinyrc/pkg/queue"
)

// Forwarder sends queued buffers over a Link, one at a time.
type Forwarder struct {
	Queue *queue.Queue
	Link  Link
	Pool  *buffer.Pool

	sent   int64
	failed int64
}

// NewForwarder creates a Forwarder.
func NewForwarder(q *queue.Queue, l Link, pool *buffer.Pool) *Forwarder {
	return &Forwarder{Queue: q, Link: l, Pool: pool}
}

// Sent returns the number of payloads sent.
func (f *Forwarder) Sent() int {
	return int(atomic.LoadInt64(&f.sent))
}

// Failed returns the number of payloads the Link failed to send.
func (f *Forwarder) Failed() int {
	return int(atomic.LoadInt64(&f.failed))
}

// Run implements Runnable.
// Every buffer taken from the queue is released, whether sent or not.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		buf, err := f.Queue.Get(ctx)
		if err == queue.ErrClosed {
			return nil
		}
		if err != nil {
			return err
		}
		f.forward(buf)
	}
}

func (f *Forwarder) forward(buf *buffer.Buffer) {
	defer f.Pool.Release(buf)
	if buf.Len == 0 {
		return
	}
	if err := f.Link.Send(buf.Bytes()); err != nil {
		atomic.AddInt64(&f.failed, 1)
		glog.Warningf("link: failed to send %d bytes: %v", buf.Len, err)
		return
	}
	atomic.AddInt64(&f.sent, 1)
}
