package adapter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/tinyrc/pkg/buffer"
	"github.com/robotalks/tinyrc/pkg/uart"
)

type testPort struct {
	readCh   chan []byte
	pending  []byte
	lock     sync.Mutex
	written  bytes.Buffer
	maxWrite int
	stalled  bool
	writes   int
}

func newTestPort() *testPort {
	return &testPort{readCh: make(chan []byte)}
}

func (p *testPort) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		data, ok := <-p.readCh
		if !ok {
			return 0, io.EOF
		}
		p.pending = data
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *testPort) Write(b []byte) (int, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.writes++
	if p.stalled {
		return 0, nil
	}
	n := len(b)
	if p.maxWrite > 0 && n > p.maxWrite {
		n = p.maxWrite
	}
	p.written.Write(b[:n])
	return n, nil
}

func (p *testPort) output() string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.written.String()
}

type adapterTestCtx struct {
	t      *testing.T
	port   *testPort
	tr     *uart.Transport
	cancel func()
	errCh  chan error
}

func startAdapter(t *testing.T, capacity int) *adapterTestCtx {
	c := &adapterTestCtx{t: t, port: newTestPort(), errCh: make(chan error, 1)}
	a := New(c.port)
	c.tr = uart.NewTransport(a, buffer.NewPool(capacity, 0))
	require.NoError(t, c.tr.Start())
	var ctx context.Context
	ctx, c.cancel = context.WithCancel(context.Background())
	go func() {
		c.errCh <- a.Run(ctx)
	}()
	return c
}

func (c *adapterTestCtx) inject(s string) *adapterTestCtx {
	select {
	case c.port.readCh <- []byte(s):
	case <-time.After(500 * time.Millisecond):
		c.t.Fatal("inject timeout")
	}
	return c
}

func (c *adapterTestCtx) expectLine(expect string) *adapterTestCtx {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	buf, err := c.tr.Get(ctx)
	require.NoError(c.t, err)
	require.Equal(c.t, expect, buf.String())
	c.tr.Pool.Release(buf)
	return c
}

func (c *adapterTestCtx) expectNoLine(wait time.Duration) *adapterTestCtx {
	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	buf, err := c.tr.Get(ctx)
	if err == nil {
		c.tr.Pool.Release(buf)
		c.t.Fatalf("unexpected line %q", buf.String())
	}
	return c
}

func (c *adapterTestCtx) stop() {
	c.cancel()
	select {
	case err := <-c.errCh:
		require.Equal(c.t, context.Canceled, err)
	case <-time.After(500 * time.Millisecond):
		c.t.Fatal("adapter stop timeout")
	}
}

func TestAdapterLines(t *testing.T) {
	c := startAdapter(t, 64)
	defer c.stop()
	c.inject("on 3 ").inject("50\r").expectLine("on 3 50\r\n")
	c.inject("s\nm f 10\n").expectLine("s\n").expectLine("m f 10\n")
	c.inject("l on\r\n").expectLine("l on\r\n").expectNoLine(200 * time.Millisecond)
	c.inject("\r\n\n").expectNoLine(200 * time.Millisecond)
	c.inject("s\r\n").expectLine("s\r\n").expectNoLine(200 * time.Millisecond)
	require.Zero(t, c.tr.DroppedLines())
}

func TestAdapterLongLine(t *testing.T) {
	c := startAdapter(t, 8)
	defer c.stop()
	c.inject("abcdefghij\n").expectLine("abcdefg").expectLine("hij\n")
	// the terminator lands alone in the next buffer
	c.inject("abcdefg\r").expectLine("abcdefg").expectNoLine(200 * time.Millisecond)
}

func TestAdapterTx(t *testing.T) {
	c := startAdapter(t, 64)
	defer c.stop()
	c.port.lock.Lock()
	c.port.maxWrite = 3
	c.port.lock.Unlock()
	require.NoError(t, c.tr.Printf("hello\r\n"))
	require.NoError(t, c.tr.Printf("world\r\n"))
	require.Eventually(t, func() bool {
		return c.port.output() == "hello\r\nworld\r\n"
	}, 500*time.Millisecond, time.Millisecond)
	require.Eventually(t, c.tr.TxIdle, 500*time.Millisecond, time.Millisecond)
}

func TestAdapterTxStalledPort(t *testing.T) {
	c := startAdapter(t, 64)
	defer c.stop()
	// the rx buffer and its successor
	rxHeld := func() bool { return c.tr.Pool.Outstanding() == 2 }
	require.Eventually(t, rxHeld, 500*time.Millisecond, time.Millisecond)
	c.port.lock.Lock()
	c.port.stalled = true
	c.port.lock.Unlock()
	require.NoError(t, c.tr.Printf("hello\r\n"))
	require.NoError(t, c.tr.Printf("world\r\n"))
	writes := func() int {
		c.port.lock.Lock()
		defer c.port.lock.Unlock()
		return c.port.writes
	}
	require.Eventually(t, func() bool {
		return writes() == 2 && c.tr.TxIdle() && rxHeld()
	}, 500*time.Millisecond, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 2, writes())
	require.Empty(t, c.port.output())
}

func TestAdapterStopReleasesBuffers(t *testing.T) {
	c := startAdapter(t, 64)
	c.stop()
	require.Zero(t, c.tr.Lines.Len())
	c.tr.Close()
	require.Zero(t, c.tr.Pool.Outstanding())
}

func TestAdapterReadError(t *testing.T) {
	port := newTestPort()
	a := New(port)
	close(port.readCh)
	err := a.Run(context.Background())
	require.True(t, errors.Is(err, io.EOF))
}

func TestAdapterBacklogOverrun(t *testing.T) {
	a := New(newTestPort())
	a.Backlog = 4
	a.receive([]byte("123"))
	a.receive([]byte("456"))
	require.Equal(t, 2, a.Overruns())
	require.Equal(t, "1234", string(a.backlog))
}

func TestAdapterRequestErrors(t *testing.T) {
	a := New(newTestPort())
	buf := buffer.New(16)
	require.Equal(t, uart.ErrNotEnabled, a.RxBufRsp(buf))
	require.Equal(t, uart.ErrNotEnabled, a.RxDisable())
	require.NoError(t, a.RxEnable(buf))
	require.Equal(t, uart.ErrBusy, a.RxEnable(buf))
	require.NoError(t, a.RxBufRsp(buffer.New(16)))
	require.Equal(t, uart.ErrBusy, a.RxBufRsp(buffer.New(16)))
	buf.Write([]byte("x"))
	require.NoError(t, a.Tx(buf, 0))
	require.Equal(t, uart.ErrBusy, a.Tx(buf, 0))
}

func TestRunLength(t *testing.T) {
	cases := []struct {
		data   string
		max    int
		expect int
	}{
		{"abc", 10, 3},
		{"ab\ncd", 10, 3},
		{"\r\n", 10, 1},
		{"abcdef", 4, 4},
		{"", 4, 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.expect, runLength([]byte(tc.data), tc.max), "data=%q", tc.data)
	}
}
