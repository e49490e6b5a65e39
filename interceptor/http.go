// File: interceptor/http.go
// Package interceptor — HTTP Interceptor (HI), §4.3.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's highlevel/server.go request-to-handler dispatch
// (findHandler/isMethodAllowed, generalized here into pattern.Registry.Walk).
// No middleware chain wraps dispatch; diagnostics are plain log.Printf calls.

package interceptor

import (
	"log"
	"net/url"
	"sync"

	"github.com/momentics/mediadispatch/api"
	"github.com/momentics/mediadispatch/httpmodel"
	"github.com/momentics/mediadispatch/pattern"
)

// MaxBodySize is the fixed body ceiling from §1's Non-goals ("No request
// body exceeding a fixed byte ceiling") and §4.3's Prepare rule.
const MaxBodySize = 1 << 20 // 1 MiB

// HTTPInterceptor accumulates a streaming request body up to MaxBodySize,
// then walks a Pattern Registry to dispatch. It is the default interceptor,
// one per mounted subtree.
type HTTPInterceptor struct {
	name     string
	registry *pattern.Registry
	pool     api.BufferPool

	mu      sync.Mutex
	pending map[uint64]api.Buffer // conn.ID -> pooled body buffer awaiting release
}

// NewHTTPInterceptor constructs an HI bound to registry, with pool used to
// reserve body-buffer capacity (may be nil, in which case append grows the
// slice directly).
func NewHTTPInterceptor(name string, registry *pattern.Registry, pool api.BufferPool) *HTTPInterceptor {
	return &HTTPInterceptor{name: name, registry: registry, pool: pool, pending: make(map[uint64]api.Buffer)}
}

// Name implements Interceptor.
func (h *HTTPInterceptor) Name() string { return h.name }

// IsInterceptorForRequest implements Interceptor: HI is the fallback
// interceptor, claiming any connection that is not a WebSocket upgrade.
func (h *HTTPInterceptor) IsInterceptorForRequest(conn *httpmodel.Connection) bool {
	return conn.Type != httpmodel.ConnWebSocket
}

// OnHttpPrepare implements Interceptor. Rejects oversized declared bodies
// and reserves buffer capacity for the rest, per §4.3.
func (h *HTTPInterceptor) OnHttpPrepare(conn *httpmodel.Connection) httpmodel.Disposition {
	req := conn.Request
	if req.ContentLength > MaxBodySize {
		return httpmodel.Disconnect
	}
	if req.ContentLength > 0 {
		if h.pool != nil {
			buf := h.pool.Get(int(req.ContentLength))
			req.Body = buf.Bytes()[:0]
			h.mu.Lock()
			h.pending[conn.ID] = buf
			h.mu.Unlock()
		} else {
			req.Body = make([]byte, 0, req.ContentLength)
		}
	}
	if req.ContentLength == 0 {
		// §8 boundary 11: zero content length completes dispatch immediately
		// at the Prepare boundary, no data event required.
		return h.dispatch(conn)
	}
	return httpmodel.Keep
}

// OnHttpData implements Interceptor: accumulate, truncating overflow, then
// dispatch once the declared body is fully buffered.
func (h *HTTPInterceptor) OnHttpData(conn *httpmodel.Connection, chunk []byte) httpmodel.Disposition {
	req := conn.Request
	current := int64(len(req.Body))

	if current >= req.ContentLength {
		// Protocol violation: more bytes arrived than were declared and
		// already fully consumed. Per §9's Open Question, do not dispatch
		// whatever was already buffered; just disconnect.
		return httpmodel.Disconnect
	}

	remaining := req.ContentLength - current
	if int64(len(chunk)) > remaining {
		chunk = chunk[:remaining]
	}
	req.Body = append(req.Body, chunk...)

	if int64(len(req.Body)) >= req.ContentLength {
		return h.dispatch(conn)
	}
	return httpmodel.Keep
}

// dispatch parses the request URI, walks the Pattern Registry, and sets the
// final response status, per §4.3.
func (h *HTTPInterceptor) dispatch(conn *httpmodel.Connection) httpmodel.Disposition {
	defer h.releaseBody(conn.ID)

	req := conn.Request
	parsed, err := url.ParseRequestURI(req.URI)
	if err != nil {
		return httpmodel.Disconnect
	}
	req.Path = parsed.Path

	result := h.registry.Walk(conn, req.Method, req.Path)
	if result.HandlerHits == 0 {
		if result.RegexFound {
			conn.Response.Status = 405
		} else {
			conn.Response.Status = 404
		}
	}
	return httpmodel.Disconnect
}

// releaseBody returns the connection's pooled body buffer, if any, to its
// BufferPool. Safe to call more than once or for a connection with no
// pending buffer.
func (h *HTTPInterceptor) releaseBody(id uint64) {
	h.mu.Lock()
	buf, ok := h.pending[id]
	if ok {
		delete(h.pending, id)
	}
	h.mu.Unlock()
	if ok {
		buf.Release()
	}
}

// OnHttpError implements Interceptor.
func (h *HTTPInterceptor) OnHttpError(conn *httpmodel.Connection, status int) {
	h.releaseBody(conn.ID)
	conn.Response.Status = status
	log.Printf("[http] connection %d error status=%d", conn.ID, status)
}

// OnHttpClosed implements Interceptor.
func (h *HTTPInterceptor) OnHttpClosed(conn *httpmodel.Connection, reason string) {
	h.releaseBody(conn.ID)
	log.Printf("[http] connection %d closed: %s", conn.ID, reason)
}

var _ Interceptor = (*HTTPInterceptor)(nil)
