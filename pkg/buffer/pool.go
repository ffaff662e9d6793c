package buffer

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
)

// ErrAllocation indicates the pool has no memory for a new Buffer.
// It is recoverable: retry after buffers are released.
var ErrAllocation = errors.New("buffer allocation failure")

// Pool allocates Buffers of a single capacity.
// A Limit models the backing memory; 0 means unlimited.
type Pool struct {
	capacity    int
	limit       int64
	outstanding int64
	freeList    sync.Pool
	lock        sync.Mutex
}

// NewPool creates a Pool for Buffers with capacity bytes.
func NewPool(capacity, limit int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	p := &Pool{capacity: capacity, limit: int64(limit)}
	p.freeList.New = func() interface{} { return New(p.capacity) }
	return p
}

// Capacity returns the capacity of Buffers from this pool.
func (p *Pool) Capacity() int {
	return p.capacity
}

// SetLimit changes the maximum number of outstanding Buffers.
func (p *Pool) SetLimit(limit int) {
	atomic.StoreInt64(&p.limit, int64(limit))
}

// Outstanding returns the number of acquired and unreleased Buffers.
func (p *Pool) Outstanding() int {
	return int(atomic.LoadInt64(&p.outstanding))
}

// Acquire allocates an empty Buffer.
func (p *Pool) Acquire() (*Buffer, error) {
	for {
		n := atomic.LoadInt64(&p.outstanding)
		if limit := atomic.LoadInt64(&p.limit); limit > 0 && n >= limit {
			return nil, ErrAllocation
		}
		if atomic.CompareAndSwapInt64(&p.outstanding, n, n+1) {
			break
		}
	}
	buf := p.freeList.Get().(*Buffer)
	buf.Len = 0
	p.lock.Lock()
	buf.inUse = true
	p.lock.Unlock()
	return buf, nil
}

// Release returns a Buffer to the pool.
// nil and already released Buffers are ignored.
func (p *Pool) Release(buf *Buffer) {
	if buf == nil {
		return
	}
	if buf.Cap() != p.capacity {
		glog.Warningf("release foreign buffer of capacity %d", buf.Cap())
		return
	}
	p.lock.Lock()
	inUse := buf.inUse
	buf.inUse = false
	p.lock.Unlock()
	if !inUse {
		glog.Warningf("buffer released twice")
		return
	}
	atomic.AddInt64(&p.outstanding, -1)
	buf.Len = 0
	p.freeList.Put(buf)
}
