package uart

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/tinyrc/pkg/buffer"
)

type txCall struct {
	buf    *buffer.Buffer
	offset int
	data   string
}

// fakePeripheral records requests, events are fed by the test.
type fakePeripheral struct {
	lock      sync.Mutex
	handler   EventHandler
	txs       []txCall
	enabled   []*buffer.Buffer
	rsps      []*buffer.Buffer
	disables  int
	txErr     error
	enableErr error
}

func (p *fakePeripheral) SetHandler(h EventHandler) {
	p.lock.Lock()
	p.handler = h
	p.lock.Unlock()
}

func (p *fakePeripheral) Tx(buf *buffer.Buffer, offset int) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.txErr != nil {
		return p.txErr
	}
	p.txs = append(p.txs, txCall{buf: buf, offset: offset, data: string(buf.Bytes()[offset:])})
	return nil
}

func (p *fakePeripheral) RxEnable(buf *buffer.Buffer) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.enableErr; err != nil {
		p.enableErr = nil
		return err
	}
	p.enabled = append(p.enabled, buf)
	return nil
}

func (p *fakePeripheral) RxBufRsp(buf *buffer.Buffer) error {
	p.lock.Lock()
	p.rsps = append(p.rsps, buf)
	p.lock.Unlock()
	return nil
}

func (p *fakePeripheral) RxDisable() error {
	p.lock.Lock()
	p.disables++
	p.lock.Unlock()
	return nil
}

func (p *fakePeripheral) enabledBufs() []*buffer.Buffer {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]*buffer.Buffer(nil), p.enabled...)
}

func (p *fakePeripheral) txCalls() []txCall {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]txCall(nil), p.txs...)
}

func (p *fakePeripheral) disableCount() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.disables
}

func newTestTransport(capacity, limit int) (*Transport, *fakePeripheral) {
	p := &fakePeripheral{}
	return NewTransport(p, buffer.NewPool(capacity, limit)), p
}

// receive simulates the peripheral writing s into buf.
func receive(tr *Transport, buf *buffer.Buffer, s string) {
	off := buf.Len
	n := copy(buf.Data()[off:buf.Limit()], s)
	tr.HandleEvent(Event{Type: EventRxReady, Buf: buf, Offset: off, Len: n})
}

// completeLine simulates the peripheral finishing a disable request.
func completeLine(tr *Transport, buf *buffer.Buffer) {
	tr.HandleEvent(Event{Type: EventRxBufReleased, Buf: buf})
	tr.HandleEvent(Event{Type: EventRxDisabled})
}

func mustStart(t *testing.T, tr *Transport, p *fakePeripheral) *buffer.Buffer {
	require.NoError(t, tr.Start())
	bufs := p.enabledBufs()
	require.NotEmpty(t, bufs)
	require.Equal(t, RxReceiving, tr.RxState())
	return bufs[len(bufs)-1]
}

func mkbuf(t *testing.T, tr *Transport, s string) *buffer.Buffer {
	buf, err := tr.Pool.Acquire()
	require.NoError(t, err)
	_, err = buf.Write([]byte(s))
	require.NoError(t, err)
	return buf
}
