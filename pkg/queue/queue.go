// Package queue provides the bounded FIFO handing buffers between the
// serial transport, the command bridge and the wireless forwarder.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/robotalks/tinyrc/pkg/buffer"
)

// DefaultCapacity is the default number of buffers a Queue holds.
const DefaultCapacity = 16

var (
	// ErrFull indicates the queue reached its capacity.
	// The producer keeps ownership of the rejected buffer.
	ErrFull = errors.New("queue full")
	// ErrClosed indicates the queue is closed.
	ErrClosed = errors.New("queue closed")
)

type item struct {
	buf  *buffer.Buffer
	next *item
}

// Queue is a FIFO of buffers.
// Put never blocks, Get blocks until a buffer is available.
type Queue struct {
	capacity int

	lock   sync.Mutex
	head   *item
	tail   *item
	size   int
	closed bool
	wakeCh chan struct{}
}

// New creates a Queue with capacity, 0 for unbounded.
func New(capacity int) *Queue {
	return &Queue{
		capacity: capacity,
		wakeCh:   make(chan struct{}, 1),
	}
}

// Capacity returns the capacity, 0 for unbounded.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Len returns the number of queued buffers.
func (q *Queue) Len() int {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.size
}

// Put appends buf and transfers its ownership to the queue.
func (q *Queue) Put(buf *buffer.Buffer) error {
	q.lock.Lock()
	if q.closed {
		q.lock.Unlock()
		return ErrClosed
	}
	if q.capacity > 0 && q.size >= q.capacity {
		q.lock.Unlock()
		return ErrFull
	}
	it := &item{buf: buf}
	if q.tail == nil {
		q.head = it
	} else {
		q.tail.next = it
	}
	q.tail = it
	q.size++
	q.lock.Unlock()
	q.wakeUp()
	return nil
}

// TryGet removes the head buffer, or returns nil if empty.
func (q *Queue) TryGet() *buffer.Buffer {
	q.lock.Lock()
	defer q.lock.Unlock()
	return q.popLocked()
}

// Get removes the head buffer, waiting until one is available.
// Buffers queued before Close are still delivered.
func (q *Queue) Get(ctx context.Context) (*buffer.Buffer, error) {
	for {
		q.lock.Lock()
		buf := q.popLocked()
		closed := q.closed
		q.lock.Unlock()
		if buf != nil {
			return buf, nil
		}
		if closed {
			return nil, ErrClosed
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wakeCh:
		}
	}
}

// Close rejects further Puts and wakes up waiting Gets.
func (q *Queue) Close() {
	q.lock.Lock()
	q.closed = true
	q.lock.Unlock()
	q.wakeUp()
}

// Drain removes all buffers and passes them to fn, e.g. Pool.Release.
func (q *Queue) Drain(fn func(*buffer.Buffer)) {
	q.lock.Lock()
	head := q.head
	q.head, q.tail, q.size = nil, nil, 0
	q.lock.Unlock()
	for it := head; it != nil; it = it.next {
		fn(it.buf)
	}
}

func (q *Queue) popLocked() *buffer.Buffer {
	it := q.head
	if it == nil {
		return nil
	}
	if q.head = it.next; q.head == nil {
		q.tail = nil
	}
	q.size--
	if q.size > 0 || q.closed {
		q.wakeUp()
	}
	return it.buf
}

func (q *Queue) wakeUp() {
	select {
	case q.wakeCh <- struct{}{}:
	default:
	}
}
