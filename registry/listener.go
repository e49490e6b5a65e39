// File: registry/listener.go
// Package registry implements the Server Registry (SR), §4.1, and declares
// the Listener abstraction it consumes (§6, "treated as an external
// collaborator").
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's lowlevel/server/listener.go (Accept-driven
// handshake-then-handoff shape) and transport/tcp/listener.go
// (ListenerConfig/StartTCPListener), generalized from the teacher's
// WebSocket-only accept loop into the plain event-callback contract §6
// requires: start/stop/worker_count plus ordered prepare|data|error|close
// callbacks, so the same Listener works for both the HTTP and the
// WebSocket interceptor.

package registry

import "github.com/momentics/mediadispatch/httpmodel"

// Event discriminates the four event kinds the Connection Pipeline is
// notified about, in the order defined by §5 ("Prepare → Data* → (Error |
// Close)").
type Event int

const (
	EventPrepare Event = iota
	EventData
	EventError
	EventClose
)

// EventHandler receives one event per Connection, in §5 order. chunk is
// populated only for EventData; status only for EventError; reason only
// for EventClose.
type EventHandler func(conn *httpmodel.Connection, kind Event, chunk []byte, status int, reason string)

// DefaultWorkerHint is the sentinel meaning "use default", per §6.
const DefaultWorkerHint = -1

// Listener is the "physical port" abstraction §1 and §6 place out of this
// core's scope. A concrete implementation (e.g. transport.TCPListener)
// accepts raw connections and turns them into httpmodel.Connection events.
type Listener interface {
	// Start begins accepting connections on endpoint. workerHint requests a
	// worker count; DefaultWorkerHint means "use default". Returns false on
	// bind failure.
	Start(endpoint Endpoint, workerHint int, handler EventHandler) bool

	// Stop halts the listener. Returns its success flag.
	Stop() bool

	// WorkerCount reports the listener's current worker count.
	WorkerCount() int
}

// ListenerFactory constructs a fresh, unstarted Listener for a given
// Server variant. The Registry is parameterized over this factory so it
// never imports a concrete transport package itself (§1 Non-goals: the
// physical port is an external collaborator).
type ListenerFactory func(kind Kind) Listener
