// File: api/buffer.go
// Package api defines Buffer and BufferPool.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Buffer represents a reusable memory slice checked out from a BufferPool.
// Converted to a struct to avoid interface boxing, matching the teacher's
// zero-copy buffer shape.
type Buffer struct {
	Data  []byte
	Pool  Releaser
	Class int
}

// Releaser interface to decouple pool dependency.
type Releaser interface {
	Put(Buffer)
}

// Bytes returns the full byte slice backing this Buffer.
func (b Buffer) Bytes() []byte { return b.Data }

// Copy returns a copy of the buffer data.
func (b Buffer) Copy() []byte {
	dup := make([]byte, len(b.Data))
	copy(dup, b.Data)
	return dup
}

// Slice returns a new Buffer view sharing the same underlying memory.
func (b Buffer) Slice(from, to int) Buffer {
	if from < 0 || to > len(b.Data) || from > to {
		return Buffer{Class: b.Class, Pool: b.Pool}
	}
	return Buffer{
		Data:  b.Data[from:to],
		Pool:  b.Pool,
		Class: b.Class,
	}
}

// Release returns the buffer to its pool.
func (b Buffer) Release() {
	if b.Pool != nil {
		b.Pool.Put(b)
	}
}

// Capacity returns the capacity of the underlying slice.
func (b Buffer) Capacity() int {
	return cap(b.Data)
}

// BufferPool provides pooled byte-slice allocation for request bodies.
type BufferPool interface {
	Get(size int) Buffer
	Put(b Buffer)
	Stats() BufferPoolStats
}

// BufferPoolStats summarizes pool usage.
type BufferPoolStats struct {
	TotalAlloc int64
	TotalFree  int64
	InUse      int64
}
