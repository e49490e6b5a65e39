// File: internal/queueutil/broadcast.go
// Package queueutil provides a small ordered-queue helper used by the
// WebSocket Interceptor's Ping Ticker broadcast.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's internal/concurrency/executor.go, which backs
// its task dispatch with github.com/eapache/queue instead of a slice so the
// underlying ring buffer can grow without a full reallocation+copy on every
// append. The Ping Ticker builds a short-lived batch once per tick and
// drains it immediately, which is exactly the queue's growable-ring-buffer
// use case.

package queueutil

import "github.com/eapache/queue"

// Broadcast is a typed FIFO batch built once and drained once.
type Broadcast struct {
	q *queue.Queue
}

// NewBroadcast returns an empty Broadcast.
func NewBroadcast() *Broadcast {
	return &Broadcast{q: queue.New()}
}

// Add appends v to the end of the batch.
func (b *Broadcast) Add(v any) {
	b.q.Add(v)
}

// Len reports the number of queued elements.
func (b *Broadcast) Len() int {
	return b.q.Length()
}

// Drain removes and returns every queued element in FIFO order.
func (b *Broadcast) Drain() []any {
	out := make([]any, 0, b.q.Length())
	for b.q.Length() > 0 {
		out = append(out, b.q.Remove())
	}
	return out
}
