package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/tinyrc/pkg/buffer"
)

func bufOf(s string) *buffer.Buffer {
	b := buffer.New(buffer.DefaultCapacity)
	b.Write([]byte(s))
	return b
}

func TestQueueOrder(t *testing.T) {
	q := New(0)
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, q.Put(bufOf(s)))
	}
	require.Equal(t, 3, q.Len())
	var got []string
	for i := 0; i < 3; i++ {
		buf, err := q.Get(context.Background())
		require.NoError(t, err)
		got = append(got, buf.String())
	}
	require.Equal(t, []string{"a", "b", "c"}, got)
	require.Nil(t, q.TryGet())
}

func TestQueueFull(t *testing.T) {
	q := New(2)
	require.NoError(t, q.Put(bufOf("1")))
	require.NoError(t, q.Put(bufOf("2")))
	require.Equal(t, ErrFull, q.Put(bufOf("3")))
	require.Equal(t, "1", q.TryGet().String())
	require.NoError(t, q.Put(bufOf("3")))
	require.Equal(t, 2, q.Len())
}

func TestQueueGetBlocks(t *testing.T) {
	q := New(1)
	resCh := make(chan *buffer.Buffer, 1)
	go func() {
		buf, err := q.Get(context.Background())
		require.NoError(t, err)
		resCh <- buf
	}()
	select {
	case <-resCh:
		t.Fatal("Get returned on empty queue")
	case <-time.After(20 * time.Millisecond):
	}
	require.NoError(t, q.Put(bufOf("x")))
	select {
	case buf := <-resCh:
		require.Equal(t, "x", buf.String())
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Get timeout")
	}
}

func TestQueueGetCancel(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Get(ctx)
	require.Equal(t, context.Canceled, err)
}

func TestQueueClose(t *testing.T) {
	q := New(0)
	require.NoError(t, q.Put(bufOf("last")))
	q.Close()
	require.Equal(t, ErrClosed, q.Put(bufOf("late")))
	buf, err := q.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "last", buf.String())
	_, err = q.Get(context.Background())
	require.Equal(t, ErrClosed, err)
}

func TestQueueDrain(t *testing.T) {
	q := New(0)
	q.Put(bufOf("a"))
	q.Put(bufOf("b"))
	var drained []string
	q.Drain(func(b *buffer.Buffer) { drained = append(drained, b.String()) })
	require.Equal(t, []string{"a", "b"}, drained)
	require.Zero(t, q.Len())
	require.NoError(t, q.Put(bufOf("c")))
	require.Equal(t, "c", q.TryGet().String())
}
