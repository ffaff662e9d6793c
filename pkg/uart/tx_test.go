package uart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/tinyrc/pkg/buffer"
	"github.com/robotalks/tinyrc/pkg/queue"
)

func TestTxOrder(t *testing.T) {
	tr, p := newTestTransport(64, 0)
	for _, s := range []string{"one\r\n", "two\r\n", "three\r\n"} {
		require.NoError(t, tr.Put(mkbuf(t, tr, s)))
	}
	require.Len(t, p.txCalls(), 1)
	require.Equal(t, 2, tr.TxQueue.Len())
	for i := 0; i < 3; i++ {
		calls := p.txCalls()
		require.Len(t, calls, i+1)
		last := calls[i]
		tr.HandleEvent(Event{Type: EventTxDone, Buf: last.buf, Len: len(last.data)})
	}
	var sent []string
	for _, call := range p.txCalls() {
		sent = append(sent, call.data)
	}
	require.Equal(t, []string{"one\r\n", "two\r\n", "three\r\n"}, sent)
	require.True(t, tr.TxIdle())
	require.Zero(t, tr.Pool.Outstanding())
}

func TestTxAbortResume(t *testing.T) {
	const msg = "hello world"
	cases := []struct {
		name     string
		aborts   []int
		finished bool
	}{
		{"no abort", nil, false},
		{"single abort", []int{4}, false},
		{"repeated aborts", []int{4, 3, 1}, false},
		{"zero length abort", []int{0, 5}, false},
		{"abort covers rest", []int{4, 7}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr, p := newTestTransport(64, 0)
			buf := mkbuf(t, tr, msg)
			require.NoError(t, tr.Put(buf))
			sent := ""
			for _, n := range tc.aborts {
				calls := p.txCalls()
				last := calls[len(calls)-1]
				sent += last.data[:n]
				tr.HandleEvent(Event{Type: EventTxAborted, Buf: buf, Len: n})
			}
			if !tc.finished {
				calls := p.txCalls()
				last := calls[len(calls)-1]
				require.Equal(t, len(sent), last.offset)
				sent += last.data
				tr.HandleEvent(Event{Type: EventTxDone, Buf: buf, Len: len(last.data)})
			}
			require.Equal(t, msg, sent)
			require.True(t, tr.TxIdle())
			require.Zero(t, tr.Pool.Outstanding())
		})
	}
}

func TestTxAbortThenNext(t *testing.T) {
	tr, p := newTestTransport(64, 0)
	first := mkbuf(t, tr, "first")
	require.NoError(t, tr.Put(first))
	require.NoError(t, tr.Put(mkbuf(t, tr, "second")))
	tr.HandleEvent(Event{Type: EventTxAborted, Buf: first, Len: 2})
	calls := p.txCalls()
	require.Len(t, calls, 2)
	require.Equal(t, "rst", calls[1].data)
	tr.HandleEvent(Event{Type: EventTxDone, Buf: first, Len: 3})
	calls = p.txCalls()
	require.Len(t, calls, 3)
	require.Equal(t, "second", calls[2].data)
	require.Zero(t, calls[2].offset)
}

func TestTxPeripheralError(t *testing.T) {
	tr, p := newTestTransport(64, 0)
	first := mkbuf(t, tr, "first")
	require.NoError(t, tr.Put(first))
	require.NoError(t, tr.Put(mkbuf(t, tr, "second")))
	tr.HandleEvent(Event{Type: EventTxAborted, Buf: first, Len: 1, Err: errors.New("fault")})
	calls := p.txCalls()
	require.Len(t, calls, 2)
	require.Equal(t, "second", calls[1].data)
	require.Equal(t, 1, tr.Pool.Outstanding())

	p.txErr = errors.New("fault")
	tr.HandleEvent(Event{Type: EventTxDone, Buf: calls[1].buf, Len: 6})
	require.True(t, tr.TxIdle())
	err := tr.Put(mkbuf(t, tr, "third"))
	require.Error(t, err)
	require.True(t, tr.TxIdle())
	require.Zero(t, tr.Pool.Outstanding())
}

func TestTxSkipsEmptyBuffer(t *testing.T) {
	tr, p := newTestTransport(64, 0)
	require.NoError(t, tr.Put(mkbuf(t, tr, "")))
	require.NoError(t, tr.Put(nil))
	require.Empty(t, p.txCalls())
	require.True(t, tr.TxIdle())
	require.Zero(t, tr.Pool.Outstanding())
}

func TestTxQueueFull(t *testing.T) {
	tr, p := newTestTransport(64, 0)
	tr.TxQueue = queue.New(1)
	require.NoError(t, tr.Put(mkbuf(t, tr, "a")))
	require.NoError(t, tr.Put(mkbuf(t, tr, "b")))
	err := tr.Put(mkbuf(t, tr, "c"))
	require.True(t, errors.Is(err, queue.ErrFull))
	require.Len(t, p.txCalls(), 1)
	require.Equal(t, 2, tr.Pool.Outstanding())
}

func TestPrintfAndBanner(t *testing.T) {
	tr, p := newTestTransport(16, 0)
	tr.Banner = "ready\r\n"
	mustStart(t, tr, p)
	calls := p.txCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "ready\r\n", calls[0].data)
	tr.HandleEvent(Event{Type: EventTxDone, Buf: calls[0].buf, Len: 7})

	require.NoError(t, tr.Printf("value %d is too long to fit", 42))
	calls = p.txCalls()
	require.Len(t, calls, 2)
	require.Equal(t, "value 42 is too", calls[1].data)
}

func TestWriteChunks(t *testing.T) {
	tr, p := newTestTransport(8, 0)
	n, err := tr.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)
	require.Equal(t, 16, n)
	var sent []string
	for i := 0; i < 3; i++ {
		calls := p.txCalls()
		require.Len(t, calls, i+1)
		last := calls[i]
		sent = append(sent, last.data)
		tr.HandleEvent(Event{Type: EventTxDone, Buf: last.buf, Len: len(last.data)})
	}
	require.Equal(t, []string{"0123456", "789abcd", "ef"}, sent)
	require.True(t, tr.TxIdle())
	require.Zero(t, tr.Pool.Outstanding())
}

func TestWriteAllocationFailure(t *testing.T) {
	tr, _ := newTestTransport(8, 1)
	n, err := tr.Write([]byte("0123456789"))
	require.True(t, errors.Is(err, buffer.ErrAllocation))
	require.Equal(t, 7, n)
}
