package uart

import (
	"fmt"

	"github.com/robotalks/tinyrc/pkg/buffer"
)

// EventType identifies an asynchronous peripheral event.
type EventType int

// Events reported by a Peripheral.
const (
	// EventTxDone reports Len bytes of Buf were transmitted completely.
	EventTxDone EventType = iota
	// EventTxAborted reports a transmission stopped after Len bytes.
	// A non-nil Err means the peripheral failed and the buffer can't be resumed.
	EventTxAborted
	// EventRxReady reports Len new bytes written into Buf at Offset.
	EventRxReady
	// EventRxBufRequest asks for the next receive buffer.
	EventRxBufRequest
	// EventRxBufReleased hands Buf back, the peripheral no longer writes to it.
	EventRxBufReleased
	// EventRxDisabled reports reception is fully stopped.
	EventRxDisabled
	// EventRxStopped reports reception stopped on Err. Releasing and
	// disabling events follow.
	EventRxStopped
)

var eventNames = []string{
	"TxDone",
	"TxAborted",
	"RxReady",
	"RxBufRequest",
	"RxBufReleased",
	"RxDisabled",
	"RxStopped",
}

// String implements Stringer.
func (t EventType) String() string {
	if t >= 0 && int(t) < len(eventNames) {
		return eventNames[t]
	}
	return fmt.Sprintf("Event(%d)", int(t))
}

// Event is a peripheral event.
type Event struct {
	Type   EventType
	Buf    *buffer.Buffer
	Offset int
	Len    int
	Err    error
}

// EventHandler handles peripheral events.
type EventHandler interface {
	HandleEvent(Event)
}

// HandleEventFunc is the func form of EventHandler.
type HandleEventFunc func(Event)

// HandleEvent implements EventHandler.
func (f HandleEventFunc) HandleEvent(ev Event) {
	f(ev)
}

// Peripheral is the non-blocking UART API.
type Peripheral interface {
	// SetHandler installs the receiver of all events.
	SetHandler(EventHandler)
	// Tx starts transmitting buf.Bytes()[offset:].
	// It fails with ErrBusy if a transmission is in progress.
	Tx(buf *buffer.Buffer, offset int) error
	// RxEnable starts receiving into buf.
	RxEnable(buf *buffer.Buffer) error
	// RxBufRsp provides the next buffer after EventRxBufRequest.
	RxBufRsp(buf *buffer.Buffer) error
	// RxDisable stops receiving. Pending buffers are released and
	// EventRxDisabled follows.
	RxDisable() error
}
