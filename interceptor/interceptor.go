// File: interceptor/interceptor.go
// Package interceptor defines the pluggable per-connection event contract
// (§9: "model as ... a trait/interface {is_for_request, on_prepare, on_data,
// on_error, on_closed} for interceptors") and implements the two concrete
// interceptors: HTTP (HI) and WebSocket (WI).
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package interceptor

import "github.com/momentics/mediadispatch/httpmodel"

// Interceptor is the per-connection event contract every interceptor
// (HTTP or WebSocket) implements. The Authentication Gate is not an
// Interceptor; it runs as a pattern.Handler inside the HTTP Interceptor.
type Interceptor interface {
	// Name identifies the interceptor for sticky-selection bookkeeping and
	// debug probes.
	Name() string

	// IsInterceptorForRequest reports whether this interceptor claims the
	// connection based on its Prepare-time Request state.
	IsInterceptorForRequest(conn *httpmodel.Connection) bool

	// OnHttpPrepare runs once headers are complete, before any body bytes
	// are available.
	OnHttpPrepare(conn *httpmodel.Connection) httpmodel.Disposition

	// OnHttpData runs once per inbound body/frame chunk.
	OnHttpData(conn *httpmodel.Connection, chunk []byte) httpmodel.Disposition

	// OnHttpError runs when the pipeline detects a protocol-level error.
	OnHttpError(conn *httpmodel.Connection, status int)

	// OnHttpClosed runs on socket close or explicit Disconnect, after which
	// the listener closes the socket and drops the connection.
	OnHttpClosed(conn *httpmodel.Connection, reason string)
}
