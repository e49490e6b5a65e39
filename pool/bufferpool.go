// File: pool/bufferpool.go
// Package pool provides a simple, reusable byte-buffer pool used to back
// request-body accumulation (HTTP Interceptor).
// Author: momentics <momentics@gmail.com>
//
// Grounded on the teacher's pool/base_bufferpool.go: a size-classed pool of
// channels acting as free lists, falling back to direct allocation on a miss.
// The NUMA-node keying the teacher used to pick among per-node pools is
// dropped; this dispatch core has no NUMA placement concern (see DESIGN.md).

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/mediadispatch/api"
)

// defaultPoolCapacity bounds how many buffers of a given size class are kept
// on the free list before surplus Puts are simply dropped.
const defaultPoolCapacity = 1024

// BufferPool is a class-bucketed pool of byte slices.
type BufferPool struct {
	mu      sync.Mutex
	classes map[int]chan api.Buffer

	alloc int64
	free  int64
	inUse int64
}

// NewBufferPool constructs an empty pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{classes: make(map[int]chan api.Buffer)}
}

// classFor buckets a requested size into a power-of-two size class so that
// buffers of similar size are reused across callers.
func classFor(size int) int {
	class := 64
	for class < size {
		class <<= 1
	}
	return class
}

func (p *BufferPool) channelFor(class int) chan api.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.classes[class]
	if !ok {
		ch = make(chan api.Buffer, defaultPoolCapacity)
		p.classes[class] = ch
	}
	return ch
}

// Get returns a Buffer with at least size bytes of capacity.
func (p *BufferPool) Get(size int) api.Buffer {
	class := classFor(size)
	ch := p.channelFor(class)
	select {
	case buf := <-ch:
		atomic.AddInt64(&p.inUse, 1)
		return api.Buffer{Data: buf.Data[:size], Pool: p, Class: class}
	default:
		atomic.AddInt64(&p.alloc, 1)
		atomic.AddInt64(&p.inUse, 1)
		return api.Buffer{Data: make([]byte, size, class), Pool: p, Class: class}
	}
}

// Put returns a buffer to its size-class free list. Buffers whose capacity no
// longer matches a known class (or whose class list is full) are dropped.
func (p *BufferPool) Put(b api.Buffer) {
	if b.Class == 0 || cap(b.Data) < b.Class {
		return
	}
	atomic.AddInt64(&p.free, 1)
	atomic.AddInt64(&p.inUse, -1)
	ch := p.channelFor(b.Class)
	full := api.Buffer{Data: b.Data[:0:b.Class], Pool: p, Class: b.Class}
	select {
	case ch <- full:
	default:
	}
}

// Stats reports coarse pool usage counters.
func (p *BufferPool) Stats() api.BufferPoolStats {
	return api.BufferPoolStats{
		TotalAlloc: atomic.LoadInt64(&p.alloc),
		TotalFree:  atomic.LoadInt64(&p.free),
		InUse:      atomic.LoadInt64(&p.inUse),
	}
}
