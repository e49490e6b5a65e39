// File: pipeline/pipeline.go
// Package pipeline implements the Connection Pipeline (CP), §4.2: per
// connection it owns the Request/Response pair and the server's ordered
// interceptor list, selecting one interceptor for the connection's whole
// lifetime and delivering prepare/data/error/close events to it in order.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's lowlevel/server/handler_chain.go (ordered
// middleware composition over api.Handler) and the event-ordering shape of
// protocol/connection.go's recvLoop/handleControl split — reworked here
// into the registry.EventHandler contract so the Connection Pipeline has no
// dependency on any one transport's connection type.

package pipeline

import (
	"log"

	"github.com/momentics/mediadispatch/httpmodel"
	"github.com/momentics/mediadispatch/interceptor"
	"github.com/momentics/mediadispatch/registry"
)

// Pipeline drives one server's connections through its ordered interceptor
// list.
type Pipeline struct {
	server *registry.Server
}

// New constructs a Pipeline bound to srv. Use Handler as the
// registry.HandlerFactory passed to registry.New.
func New(srv *registry.Server) *Pipeline {
	return &Pipeline{server: srv}
}

// Handler satisfies registry.HandlerFactory: it returns an EventHandler
// that drives conn through this server's interceptor list.
func Handler(srv *registry.Server) registry.EventHandler {
	p := New(srv)
	return p.dispatch
}

// dispatch implements the §4.2 event sequence. A *Disconnect* result from
// the bound interceptor marks the connection (Connection.MarkDisconnect);
// the pipeline still forwards any later event it is given, and the caller
// (the Listener implementation) is expected to deliver EventClose and close
// the socket once any buffered response bytes are flushed.
func (p *Pipeline) dispatch(conn *httpmodel.Connection, kind registry.Event, chunk []byte, status int, reason string) {
	switch kind {
	case registry.EventPrepare:
		p.onPrepare(conn)
	case registry.EventData:
		p.onData(conn, chunk)
	case registry.EventError:
		p.onError(conn, status)
	case registry.EventClose:
		p.onClose(conn, reason)
	}
}

// onPrepare selects the first interceptor whose IsInterceptorForRequest
// returns true and binds it for the connection's lifetime (invariant 2:
// "once bound, every subsequent event for that connection targets the same
// interceptor" — no re-selection ever occurs).
func (p *Pipeline) onPrepare(conn *httpmodel.Connection) {
	for _, i := range p.server.Interceptors() {
		if !i.IsInterceptorForRequest(conn) {
			continue
		}
		if !conn.BindInterceptor(i.Name()) {
			log.Printf("[pipeline] connection %d: interceptor already bound, ignoring re-selection attempt", conn.ID)
			return
		}
		p.invoke(conn, i.OnHttpPrepare(conn))
		return
	}
	// No interceptor claimed the connection: nothing to bind, nothing to do.
	// This only happens if a server is misconfigured with an incomplete
	// interceptor chain (no catch-all HTTP interceptor mounted).
	log.Printf("[pipeline] connection %d: no interceptor claimed the request", conn.ID)
}

func (p *Pipeline) onData(conn *httpmodel.Connection, chunk []byte) {
	i := p.bound(conn)
	if i == nil {
		return
	}
	p.invoke(conn, i.OnHttpData(conn, chunk))
}

func (p *Pipeline) onError(conn *httpmodel.Connection, status int) {
	if i := p.bound(conn); i != nil {
		i.OnHttpError(conn, status)
	}
}

func (p *Pipeline) onClose(conn *httpmodel.Connection, reason string) {
	if i := p.bound(conn); i != nil {
		i.OnHttpClosed(conn, reason)
	}
}

// bound resolves the connection's sticky interceptor by name.
func (p *Pipeline) bound(conn *httpmodel.Connection) interceptor.Interceptor {
	name := conn.BoundInterceptor()
	if name == "" {
		return nil
	}
	for _, i := range p.server.Interceptors() {
		if i.Name() == name {
			return i
		}
	}
	return nil
}

// invoke records a Disconnect disposition for the listener to act on; the
// pipeline itself never touches the socket (§9: "the interceptor is
// responsible for writing responses, never the handler plumbing" extends
// symmetrically to the pipeline, which only flags intent via
// Connection.MarkDisconnect).
func (p *Pipeline) invoke(conn *httpmodel.Connection, d httpmodel.Disposition) {
	if d == httpmodel.Disconnect {
		conn.MarkDisconnect()
	}
}
