package bridge

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/tinyrc/pkg/buffer"
	"github.com/robotalks/tinyrc/pkg/queue"
	"github.com/robotalks/tinyrc/pkg/uart"
)

// scriptedPeripheral hands out rx buffers and records transmissions.
type scriptedPeripheral struct {
	lock    sync.Mutex
	rxBuf   *buffer.Buffer
	txData  []string
	handler uart.EventHandler
}

func (p *scriptedPeripheral) SetHandler(h uart.EventHandler) { p.handler = h }

func (p *scriptedPeripheral) Tx(buf *buffer.Buffer, offset int) error {
	p.lock.Lock()
	p.txData = append(p.txData, string(buf.Bytes()[offset:]))
	p.lock.Unlock()
	return nil
}

func (p *scriptedPeripheral) RxEnable(buf *buffer.Buffer) error {
	p.lock.Lock()
	p.rxBuf = buf
	p.lock.Unlock()
	return nil
}

func (p *scriptedPeripheral) RxBufRsp(*buffer.Buffer) error { return uart.ErrBusy }

func (p *scriptedPeripheral) RxDisable() error { return nil }

func (p *scriptedPeripheral) feed(s string) {
	p.lock.Lock()
	buf := p.rxBuf
	p.lock.Unlock()
	off := buf.Len
	n := copy(buf.Data()[off:buf.Limit()], s)
	p.handler.HandleEvent(uart.Event{Type: uart.EventRxReady, Buf: buf, Offset: off, Len: n})
	if c, ok := buf.LastByte(); ok && buffer.IsTerminator(c) {
		p.handler.HandleEvent(uart.Event{Type: uart.EventRxBufReleased, Buf: buf})
		p.handler.HandleEvent(uart.Event{Type: uart.EventRxDisabled})
	}
}

func TestSerialCommandExecutedOnce(t *testing.T) {
	p := &scriptedPeripheral{}
	pool := buffer.NewPool(64, 0)
	tr := uart.NewTransport(p, pool)
	require.NoError(t, tr.Start())
	exec := &fakeExecutor{}
	b := New(tr, nil, queue.New(1), pool, exec)

	c := &bridgeTestCtx{t: t, bridge: b}
	c.run(func() {
		p.feed("on 3 ")
		p.feed("50\r")
		p.feed("bad\n")
		require.Eventually(t, func() bool {
			return b.Failed() == 1
		}, 500*time.Millisecond, time.Millisecond)
	})
	require.Equal(t, []string{"on 3 50", "bad"}, exec.executed())
	p.lock.Lock()
	require.Equal(t, []string{"Invalid cmd: unknown command\r\n"}, p.txData)
	p.lock.Unlock()
	// the active rx buffer and the status being transmitted
	require.Equal(t, 2, pool.Outstanding())
}
