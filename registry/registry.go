// File: registry/registry.go
// Package registry — Server Registry (SR), §4.1: a process-wide keyed
// mapping from listen address to a live HTTP or HTTPS server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's server/server.go NewServer/Run lifecycle
// (construct, start listener, hand off to a worker pool), generalized from
// a single-variant constructor into the §4.1 reuse/merge rules across
// Plain and Secure variants under one mutex.

package registry

import (
	"log"
	"sync"
)

// HandlerFactory builds the EventHandler a freshly-created Server's
// Listener should invoke for every connection event. It is supplied by the
// Connection Pipeline (package pipeline), which is the component that knows
// how to turn raw events into interceptor dispatch over srv.Interceptors().
type HandlerFactory func(srv *Server) EventHandler

// Registry is the single exclusive-mutex-guarded table from Endpoint to
// Server, per §5 ("SR table — single exclusive mutex across the whole
// create/release critical section").
type Registry struct {
	mu       sync.Mutex
	servers  map[Endpoint]*Server
	listener ListenerFactory
	handler  HandlerFactory
}

// New constructs an empty Registry. listenerFactory supplies a fresh,
// unstarted Listener implementation per Server variant (see listener.go);
// handlerFactory supplies the EventHandler a new Server's listener should
// drive.
func New(listenerFactory ListenerFactory, handlerFactory HandlerFactory) *Registry {
	return &Registry{
		servers:  make(map[Endpoint]*Server),
		listener: listenerFactory,
		handler:  handlerFactory,
	}
}

// CreatePlain implements create_plain, §4.1.
func (r *Registry) CreatePlain(name string, ep Endpoint, workerHint int) *Server {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.servers[ep]
	if !ok {
		return r.createLocked(name, ep, KindPlain, workerHint)
	}
	if existing.Kind != KindPlain {
		log.Printf("[registry] endpoint %s: variant conflict (existing=%s, requested=plain)", ep, existing.Kind)
		return nil
	}
	if workerHint != DefaultWorkerHint && workerHint != existing.Listener.WorkerCount() {
		log.Printf("[registry] endpoint %s: ignoring worker_hint=%d, keeping existing count=%d (first writer wins)",
			ep, workerHint, existing.Listener.WorkerCount())
	}
	return existing
}

// CreateSecure implements create_secure, §4.1.
func (r *Registry) CreateSecure(name string, ep Endpoint, cert Certificate, workerHint int) *Server {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.servers[ep]
	if !ok {
		srv := r.createLocked(name, ep, KindSecure, workerHint)
		if srv != nil {
			srv.setCertificate(cert)
		}
		return srv
	}
	if existing.Kind != KindSecure {
		log.Printf("[registry] endpoint %s: variant conflict (existing=%s, requested=secure)", ep, existing.Kind)
		return nil
	}
	if !existing.setCertificate(cert) {
		log.Printf("[registry] endpoint %s: certificate mismatch on reuse", ep)
		return nil
	}
	return existing
}

// CreateSecureFromVHosts implements create_secure_from_vhosts, §4.1: the
// first virtual host's certificate is used (no SNI); an empty list fails.
func (r *Registry) CreateSecureFromVHosts(name string, ep Endpoint, vhosts []VirtualHost, workerHint int) *Server {
	if len(vhosts) == 0 {
		return nil
	}
	return r.CreateSecure(name, ep, vhosts[0].Certificate, workerHint)
}

// createLocked constructs and starts a brand-new Server. Caller holds r.mu.
func (r *Registry) createLocked(name string, ep Endpoint, kind Kind, workerHint int) *Server {
	listener := r.listener(kind)
	srv := &Server{Name: name, Kind: kind, Endpoint: ep, Listener: listener}

	if !listener.Start(ep, workerHint, r.handler(srv)) {
		log.Printf("[registry] endpoint %s: listener start failed", ep)
		return nil
	}
	r.servers[ep] = srv
	return srv
}

// Release implements release(server), §4.1: stops the listener and returns
// its success flag. The registry entry is intentionally not removed — a
// documented limitation (§9) superseded for safe callers by Handle
// (handle.go).
func (r *Registry) Release(srv *Server) bool {
	return srv.Listener.Stop()
}

// Lookup returns the Server currently registered at ep, if any. Exposed for
// tests and debug probes; not part of the spec's operation set.
func (r *Registry) Lookup(ep Endpoint) (*Server, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	srv, ok := r.servers[ep]
	return srv, ok
}
