package link

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	fx "github.com/robotalks/tinyrc/pkg/framework"
)

// Pipe is a Link over a PacketReadWriter.
type Pipe struct {
	ReadWriter PacketReadWriter

	receiver atomic.Value
	running  int32
	sendLock sync.Mutex
}

// NewPipe creates a Pipe with given PacketReadWriter.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{ReadWriter: rw}
}

// SetReceiver implements Link.
func (p *Pipe) SetReceiver(r Receiver) {
	p.receiver.Store(&r)
}

// Send implements Link.
func (p *Pipe) Send(payload []byte) error {
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	return p.ReadWriter.WritePacket(payload)
}

// Connected implements Link.
// Without a connection state from the ReadWriter, a running Pipe is connected.
func (p *Pipe) Connected() bool {
	if c, ok := p.ReadWriter.(interface{ Connected() bool }); ok {
		return c.Connected()
	}
	return atomic.LoadInt32(&p.running) != 0
}

// Run implements Runnable.
// It returns nil when the ReadWriter reaches EOF.
func (p *Pipe) Run(ctx context.Context) error {
	atomic.StoreInt32(&p.running, 1)
	defer atomic.StoreInt32(&p.running, 0)
	err := fx.RunWithContextCloser(ctx, p, p.readLoop)
	if err == io.EOF {
		return nil
	}
	return err
}

func (p *Pipe) readLoop() error {
	for {
		pkt, err := p.ReadWriter.ReadPacket()
		if err != nil {
			return err
		}
		if r, ok := p.receiver.Load().(*Receiver); ok && *r != nil {
			(*r).HandlePayload(pkt)
		}
	}
}

// Close implements io.Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
