// File: registry/handle.go
// Package registry — refcounted Server handle.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// §9's "Reference-counted server release" design note: the spec's own
// release(server) operation (registry.go) still exists unchanged and still
// unconditionally stops the listener, per §4.1. Handle is an additional,
// safer entry point: owners that share one Handle (each extra owner calling
// AddRef) only stop the listener when the last of them calls Release. The
// count lives in the Handle, not in the Registry: two separate Acquire
// calls for the same Server give two independent Handles, and releasing
// either one stops the listener. Release does not remove the Server from
// the Registry.

package registry

import "sync"

// Handle is a refcounted reference to a Server obtained from a Registry.
type Handle struct {
	mu     sync.Mutex
	server *Server
	sr     *Registry
	refs   int
}

// Acquire wraps srv in a new Handle with one outstanding reference. Each
// call returns a separate Handle with its own count; further owners of the
// same Server share the returned *Handle and call AddRef.
func (r *Registry) Acquire(srv *Server) *Handle {
	return &Handle{server: srv, sr: r, refs: 1}
}

// AddRef increments the handle's reference count, for a second owner that
// learned about the same Server out of band.
func (h *Handle) AddRef() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refs++
}

// Server returns the underlying Server, or nil once fully released.
func (h *Handle) Server() *Server {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.server
}

// Release decrements the reference count. At zero, it calls the registry's
// release(server) — stopping the listener — exactly once.
func (h *Handle) Release() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.server == nil {
		return true // already released
	}
	h.refs--
	if h.refs > 0 {
		return true
	}
	ok := h.sr.Release(h.server)
	h.server = nil
	return ok
}
