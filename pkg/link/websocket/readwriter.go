// Package websocket carries link packets as websocket binary messages.
package websocket

import (
	"fmt"
	"net/url"

	"golang.org/x/net/websocket"

	"github.com/robotalks/tinyrc/pkg/link"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a ws:// or wss:// URL and returns a Link.
func Dial(wsURL string) (*link.Pipe, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}
	origin := "http://" + u.Host + "/"
	if u.Scheme == "wss" {
		origin = "https://" + u.Host + "/"
	}
	conn, err := websocket.Dial(wsURL, "", origin)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", wsURL, err)
	}
	return link.NewPipe(New(conn)), nil
}

// Handler accepts websocket connections and passes each as a Link to fn.
// The connection closes when fn returns.
func Handler(fn func(*link.Pipe)) websocket.Handler {
	return func(conn *websocket.Conn) {
		fn(link.NewPipe(New(conn)))
	}
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}
