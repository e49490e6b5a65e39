// File: auth/gate.go
// Package auth implements the Authentication Gate (AG), §4.5: a
// pre-interceptor mounted on the API subtree, matching all methods at
// ".+", guarding access with HTTP Basic authentication.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's adapters/handler_adapter.go middleware-chain
// shape (a function wrapping the next handler), here expressed instead as
// the first pattern.Entry registered on the API subtree's pattern.Registry,
// per §4.5 ("registered before all other handlers on the root controller").

package auth

import (
	"encoding/base64"
	"strings"
	"sync/atomic"

	"github.com/momentics/mediadispatch/control"
	"github.com/momentics/mediadispatch/httpmodel"
	"github.com/momentics/mediadispatch/pattern"
)

// Debug build tag toggling is resolved at compile time by isDebugBuild in
// debug_build.go / release_build.go (build-tag pair), per §9's Open
// Question: "In release builds, empty token... fail-closed."

// Gate holds the configured access token.
type Gate struct {
	metrics *control.MetricsRegistry
	token   func() string

	passes int64
	fails  int64
}

// New constructs a Gate reading its access token from tokenFn on every
// check (so a hot-reloaded ConfigStore value takes effect without
// re-registering the handler).
func New(tokenFn func() string, metrics *control.MetricsRegistry) *Gate {
	return &Gate{token: tokenFn, metrics: metrics}
}

// Mount registers the gate as the first Pattern Entry on registry, matching
// every method at ".+", per §4.5.
func (g *Gate) Mount(registry *pattern.Registry) bool {
	return registry.Register(pattern.NewMethodSet(pattern.MethodAll), ".+", g.check)
}

// MountNotFound registers the catch-all fallback entry, matching every
// method at ".+". It must be registered last, after every other handler on
// the subtree, so it only ever runs once nothing more specific matched; per
// §4.5 it answers 404 "Controller not found".
func MountNotFound(registry *pattern.Registry) bool {
	return registry.Register(pattern.NewMethodSet(pattern.MethodAll), ".+", notFound)
}

func notFound(conn *httpmodel.Connection, match []string) pattern.HandlerResult {
	conn.Response.Status = 404
	conn.Response.Body = []byte(reasonControllerNotFound)
	return pattern.DoNotCall
}

// Reason strings, in check order, per §4.5.
const (
	reasonMissingHeader      = "Authorization header is required to call API"
	reasonInvalidHeader      = "Invalid authorization header"
	reasonUnsupported        = "Not supported credential type: "
	reasonInvalidFormat      = "Invalid credential format"
	reasonInvalidCred        = "Invalid credential"
	reasonControllerNotFound = "Controller not found"
)

func (g *Gate) check(conn *httpmodel.Connection, match []string) pattern.HandlerResult {
	token := g.token()
	if token == "" && isDebugBuild {
		g.countPass()
		return pattern.Call
	}
	// In release builds (or any build where isDebugBuild is false), an
	// empty configured token rejects every request: fail-closed, per §9's
	// resolved Open Question. The empty-token branch falls through to the
	// same Basic-auth check below, which an empty token can never satisfy.

	header := conn.Request.Header("authorization")
	if header == "" {
		return g.reject(conn, reasonMissingHeader)
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return g.reject(conn, reasonInvalidHeader)
	}
	scheme, credential := parts[0], parts[1]
	if !strings.EqualFold(scheme, "basic") {
		return g.reject(conn, reasonUnsupported+scheme)
	}

	decoded, err := base64.StdEncoding.DecodeString(credential)
	if err != nil {
		return g.reject(conn, reasonInvalidFormat)
	}
	if string(decoded) != token {
		return g.reject(conn, reasonInvalidCred)
	}

	g.countPass()
	return pattern.Call
}

// reject sends a 403 Forbidden with reason as the plain-text body and stops
// the walk, per §4.5 and §6's "Error response body" rule.
func (g *Gate) reject(conn *httpmodel.Connection, reason string) pattern.HandlerResult {
	conn.Response.Status = 403
	conn.Response.Body = []byte(reason)
	g.countFail()
	return pattern.DoNotCall
}

func (g *Gate) countPass() {
	if g.metrics != nil {
		g.metrics.Set("auth_gate.pass", atomic.AddInt64(&g.passes, 1))
	}
}

func (g *Gate) countFail() {
	if g.metrics != nil {
		g.metrics.Set("auth_gate.fail", atomic.AddInt64(&g.fails, 1))
	}
}
