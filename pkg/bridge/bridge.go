// Package bridge dispatches command lines from the serial console and the
// wireless link to the shell, and reports failures back to the origin.
package bridge

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/golang/glog"

	"github.com/robotalks/tinyrc/pkg/buffer"
	"github.com/robotalks/tinyrc/pkg/link"
	"github.com/robotalks/tinyrc/pkg/queue"
)

// Executor runs a command line.
type Executor interface {
	Execute(line string) error
}

// ExecuteFunc is the func form of Executor.
type ExecuteFunc func(string) error

// Execute implements Executor.
func (f ExecuteFunc) Execute(line string) error {
	return f(line)
}

// Wired is the serial console, e.g. uart.Transport.
type Wired interface {
	// Get waits for the next completed line.
	Get(context.Context) (*buffer.Buffer, error)
	// Put transmits a buffer, taking its ownership even on failure.
	Put(*buffer.Buffer) error
}

// Bridge connects the serial console and the wireless link to an Executor.
type Bridge struct {
	Wired    Wired
	Link     link.Link
	Outbound *queue.Queue
	Pool     *buffer.Pool
	Executor Executor
	// ForwardWired relays serial lines to the wireless link instead of
	// executing them.
	ForwardWired bool

	executed int64
	failed   int64
	dropped  int64
}

// New creates a Bridge and installs it as the receiver of l.
func New(wired Wired, l link.Link, outbound *queue.Queue, pool *buffer.Pool, exec Executor) *Bridge {
	b := &Bridge{
		Wired:    wired,
		Link:     l,
		Outbound: outbound,
		Pool:     pool,
		Executor: exec,
	}
	if l != nil {
		l.SetReceiver(b)
	}
	return b
}

// Executed returns the number of successful commands.
func (b *Bridge) Executed() int {
	return int(atomic.LoadInt64(&b.executed))
}

// Failed returns the number of failed commands.
func (b *Bridge) Failed() int {
	return int(atomic.LoadInt64(&b.failed))
}

// Dropped returns the number of messages dropped for lack of buffers or
// queue space.
func (b *Bridge) Dropped() int {
	return int(atomic.LoadInt64(&b.dropped))
}

// Run implements Runnable, consuming lines from the serial console.
func (b *Bridge) Run(ctx context.Context) error {
	for {
		buf, err := b.Wired.Get(ctx)
		if err == queue.ErrClosed {
			return nil
		}
		if err != nil {
			return err
		}
		if b.ForwardWired {
			b.forward(buf)
			continue
		}
		b.execute(buf, b.Wired.Put)
	}
}

// HandlePayload implements link.Receiver.
// Payloads longer than a buffer are truncated.
func (b *Bridge) HandlePayload(payload []byte) {
	buf, err := b.Pool.Acquire()
	if err != nil {
		atomic.AddInt64(&b.dropped, 1)
		glog.Warningf("bridge: wireless command dropped: %v", err)
		return
	}
	if n, _ := buf.Write(payload); n < len(payload) {
		glog.Warningf("bridge: wireless command truncated to %d bytes", n)
	}
	buf.TerminateLine()
	b.execute(buf, b.putOutbound)
}

// Notify mirrors shell output to the wireless link when connected.
func (b *Bridge) Notify(msg string) {
	if b.Link == nil || !b.Link.Connected() {
		return
	}
	buf, err := b.Pool.Acquire()
	if err != nil {
		atomic.AddInt64(&b.dropped, 1)
		return
	}
	buf.Write([]byte(msg))
	if err := b.putOutbound(buf); err != nil {
		atomic.AddInt64(&b.dropped, 1)
	}
}

func (b *Bridge) forward(buf *buffer.Buffer) {
	if err := b.putOutbound(buf); err != nil {
		atomic.AddInt64(&b.dropped, 1)
		glog.Warningf("bridge: line not forwarded: %v", err)
	}
}

func (b *Bridge) putOutbound(buf *buffer.Buffer) error {
	if err := b.Outbound.Put(buf); err != nil {
		b.Pool.Release(buf)
		return err
	}
	return nil
}

// execute runs the line in buf and releases buf.
// A failure is reported through reply.
func (b *Bridge) execute(buf *buffer.Buffer, reply func(*buffer.Buffer) error) {
	line := CommandLine(buf.Bytes())
	b.Pool.Release(buf)
	if line == "" {
		return
	}
	glog.V(1).Infof("exec %q", line)
	err := b.Executor.Execute(line)
	if err == nil {
		atomic.AddInt64(&b.executed, 1)
		return
	}
	atomic.AddInt64(&b.failed, 1)
	glog.Warningf("bridge: command %q failed: %v", line, err)

	status, aerr := b.Pool.Acquire()
	if aerr != nil {
		atomic.AddInt64(&b.dropped, 1)
		glog.Warningf("bridge: status dropped: %v", aerr)
		return
	}
	status.Write([]byte(StatusMessage(err, status.Limit())))
	if err := reply(status); err != nil {
		atomic.AddInt64(&b.dropped, 1)
		glog.Warningf("bridge: status dropped: %v", err)
	}
}

// CommandLine extracts the command from a received line: bytes after a NUL
// are ignored, surrounding whitespace and terminators are removed.
func CommandLine(p []byte) string {
	if n := bytes.IndexByte(p, 0); n >= 0 {
		p = p[:n]
	}
	return strings.TrimSpace(string(p))
}

// StatusMessage formats the failure report of a command, at most max bytes
// including the trailing "\r\n".
func StatusMessage(err error, max int) string {
	msg := fmt.Sprintf("Invalid cmd: %v", err)
	if limit := max - 2; len(msg) > limit {
		if limit < 0 {
			limit = 0
		}
		msg = msg[:limit]
	}
	return msg + "\r\n"
}
