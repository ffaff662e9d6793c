// Package buffer provides the fixed-capacity byte buffers shared by the
// serial transport, the command bridge and the wireless forwarder.
package buffer

import "errors"

// DefaultCapacity is the default number of bytes a Buffer holds.
const DefaultCapacity = 64

// ErrNoSpace indicates a write exceeds the accumulation space of a Buffer.
var ErrNoSpace = errors.New("no space in buffer")

// Buffer is a fixed-capacity byte container.
// The last byte of the capacity is reserved for a line terminator appended
// when a line is finalized, so accumulation stops at Cap()-1 bytes.
// A Buffer has exactly one owner at a time: the pool, a peripheral, a queue
// or a task; handing it over transfers ownership.
type Buffer struct {
	// Len is the number of valid bytes.
	Len int

	data  []byte
	inUse bool
}

// New creates a standalone Buffer with the given capacity.
func New(capacity int) *Buffer {
	if capacity < 2 {
		capacity = 2
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Cap returns the capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Limit returns the maximum number of bytes accumulated before finalizing.
func (b *Buffer) Limit() int {
	return len(b.data) - 1
}

// Bytes returns the valid bytes.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.Len]
}

// String returns valid bytes as a string.
func (b *Buffer) String() string {
	return string(b.data[:b.Len])
}

// Data exposes the whole backing array for writers filling it in place.
func (b *Buffer) Data() []byte {
	return b.data
}

// Space returns the unused accumulation space.
func (b *Buffer) Space() []byte {
	if b.Len >= b.Limit() {
		return nil
	}
	return b.data[b.Len:b.Limit()]
}

// Extend accounts for n bytes written in place after the valid bytes.
// It returns the number actually accounted, bounded by Limit.
func (b *Buffer) Extend(n int) int {
	if room := b.Limit() - b.Len; n > room {
		n = room
	}
	if n < 0 {
		n = 0
	}
	b.Len += n
	return n
}

// Write implements io.Writer, appending into the accumulation space.
// A short write returns ErrNoSpace.
func (b *Buffer) Write(p []byte) (int, error) {
	n := copy(b.Space(), p)
	b.Len += n
	if n < len(p) {
		return n, ErrNoSpace
	}
	return n, nil
}

// Reset discards valid bytes.
func (b *Buffer) Reset() {
	b.Len = 0
}

// LastByte returns the last valid byte, ok is false if empty.
func (b *Buffer) LastByte() (c byte, ok bool) {
	if b.Len == 0 {
		return 0, false
	}
	return b.data[b.Len-1], true
}

// IsTerminator returns true for the bytes ending a line.
func IsTerminator(c byte) bool {
	return c == '\n' || c == '\r'
}

// Blank tells whether the valid bytes hold nothing but line terminators.
func (b *Buffer) Blank() bool {
	for _, c := range b.Bytes() {
		if !IsTerminator(c) {
			return false
		}
	}
	return true
}

// TerminateLine normalizes the line ending.
// A line ending with '\r' gets '\n' appended, using the reserved byte if
// needed. Lines ending with '\n' or not terminated at all are untouched, so
// calling it again has no effect.
func (b *Buffer) TerminateLine() {
	if c, ok := b.LastByte(); ok && c == '\r' && b.Len < len(b.data) {
		b.data[b.Len] = '\n'
		b.Len++
	}
}
