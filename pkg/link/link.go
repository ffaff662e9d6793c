// Package link defines the wireless link carrying opaque payloads between
// the vehicle and an operator, and the task forwarding queued buffers to it.
package link

import "errors"

// ErrNotConnected indicates the link has no peer.
var ErrNotConnected = errors.New("link not connected")

// Ref identifies a vehicle on a shared link.
type Ref struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Name returns the string representation of the ref.
func (r Ref) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid determines if ref is valid.
func (r Ref) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// Meta is announced while advertising.
type Meta struct {
	Description string   `json:"description,omitempty"`
	Commands    []string `json:"commands,omitempty"`
}

// Receiver consumes payloads received from the link.
// The payload is only valid during the call.
type Receiver interface {
	HandlePayload([]byte)
}

// HandlePayloadFunc is the func form of Receiver.
type HandlePayloadFunc func([]byte)

// HandlePayload implements Receiver.
func (f HandlePayloadFunc) HandlePayload(p []byte) {
	f(p)
}

// Link is a wireless transport.
type Link interface {
	// Send transmits payload. payload is not retained after Send returns.
	Send(payload []byte) error
	// SetReceiver installs the consumer of received payloads.
	SetReceiver(Receiver)
	// Connected indicates a peer may receive sent payloads.
	Connected() bool
}

// Advertiser announces the presence of the vehicle on the link.
type Advertiser interface {
	StartAdvertising() error
	StopAdvertising() error
}

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}
