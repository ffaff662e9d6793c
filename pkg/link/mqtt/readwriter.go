package mqtt

import (
	"context"
	"io"
	"time"

	"github.com/robotalks/tinyrc/pkg/link"
)

// DefaultPublishTimeout bounds waiting for a publish to complete.
const DefaultPublishTimeout = time.Second

// ReadWriter implements PacketReadWriter over a pair of topics.
type ReadWriter struct {
	Client         *Client
	SubTopic       string
	PubTopic       string
	PublishTimeout time.Duration

	packetCh chan []byte
	doneCh   chan struct{}
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(c *Client) *ReadWriter {
	return &ReadWriter{
		Client:         c,
		PublishTimeout: DefaultPublishTimeout,
		packetCh:       make(chan []byte, 1),
		doneCh:         make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForVehicle sets topics used by the vehicle:
// SubTopic = TYPE/ID/rx
// PubTopic = TYPE/ID/tx
func (p *ReadWriter) ForVehicle(ref link.Ref) *ReadWriter {
	prefix := ref.Name()
	return p.WithTopics(prefix+"/rx", prefix+"/tx")
}

// ForOperator sets topics used to talk to a vehicle:
// SubTopic = TYPE/ID/tx
// PubTopic = TYPE/ID/rx
func (p *ReadWriter) ForOperator(ref link.Ref) *ReadWriter {
	prefix := ref.Name()
	return p.WithTopics(prefix+"/tx", prefix+"/rx")
}

// Connected reports the broker connection state.
func (p *ReadWriter) Connected() bool {
	return p.Client.Connected()
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.doneCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if !p.Client.Connected() {
		return link.ErrNotConnected
	}
	token := p.Client.Pub(p.PubTopic, append([]byte(nil), pkt...))
	if !token.WaitTimeout(p.PublishTimeout) {
		return context.DeadlineExceeded
	}
	return token.Error()
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Client.Sub(p.SubTopic, Handler(p.handleMsg))
	defer sub.Close()
	defer close(p.doneCh)
	<-ctx.Done()
	return ctx.Err()
}

// Close implements io.Closer, the subscription is cancelled by Run.
func (p *ReadWriter) Close() error {
	return nil
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.doneCh:
	}
}
