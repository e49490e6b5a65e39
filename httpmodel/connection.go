// File: httpmodel/connection.go
// Package httpmodel — per-connection state shared across the pipeline.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpmodel

import (
	"net"
	"sync"
)

// Disposition is the result an interceptor (or the pipeline acting on its
// behalf) returns for each event.
type Disposition int

const (
	// Keep means the connection stays open awaiting further events.
	Keep Disposition = iota
	// Disconnect means the pipeline should close the socket once any final
	// response bytes are flushed.
	Disconnect
)

// Connection owns exactly one Request/Response pair plus the mutable
// interceptor selection for its lifetime, per §3's data model. A unique,
// stable ID is allocated at accept time (§9's "Client Table keying" design
// note) rather than keying on the Request's identity.
type Connection struct {
	ID     uint64
	Remote net.Addr
	Type   ConnType

	Request  *Request
	Response *Response

	mu         sync.Mutex
	selected   string // name of the sticky interceptor, empty until bound
	disconnect bool
}

// NewConnection allocates a Connection with a fresh Request/Response pair.
func NewConnection(id uint64, remote net.Addr) *Connection {
	return &Connection{
		ID:       id,
		Remote:   remote,
		Request:  &Request{Headers: make(map[string]string)},
		Response: NewResponse(),
	}
}

// BindInterceptor records the sticky interceptor name for this connection's
// lifetime. Returns false if an interceptor is already bound (callers must
// not attempt re-selection; see invariant 2).
func (c *Connection) BindInterceptor(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected != "" {
		return false
	}
	c.selected = name
	return true
}

// BoundInterceptor returns the name of the sticky interceptor, or "" if none
// has been selected yet.
func (c *Connection) BoundInterceptor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// MarkDisconnect records that the bound interceptor returned Disconnect for
// the most recent event. The listener checks ShouldDisconnect after each
// event is dispatched to decide whether to close the socket once any
// response bytes have been flushed.
func (c *Connection) MarkDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnect = true
}

// ShouldDisconnect reports whether MarkDisconnect has been called.
func (c *Connection) ShouldDisconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnect
}
