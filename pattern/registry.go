// File: pattern/registry.go
// Package pattern implements the Pattern Registry: an ordered list of
// (method-set, compiled-pattern, handler) tuples, pure data per §3/§4.3.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's highlevel/server.go routing (HandleFuncWithMethods,
// findHandler, isMethodAllowed), reworked from the teacher's map-keyed,
// exact-match-first scheme into the ordered-slice, always-anchored-regex
// scheme the specification requires: match precedence is insertion order,
// not exact-match-first, and every pattern is compiled as
// "^<prefix><user-pattern>$" rather than stored raw.

package pattern

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/momentics/mediadispatch/httpmodel"
)

// Method is an HTTP method name, or MethodAll to match every method.
type Method string

const MethodAll Method = "*"

// MethodSet is the set of methods a Pattern Entry accepts.
type MethodSet map[Method]struct{}

// NewMethodSet builds a MethodSet from a list of methods.
func NewMethodSet(methods ...Method) MethodSet {
	set := make(MethodSet, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return set
}

// Allows reports whether method is accepted by this set.
func (s MethodSet) Allows(method string) bool {
	if _, ok := s[MethodAll]; ok {
		return true
	}
	_, ok := s[Method(method)]
	return ok
}

// HandlerResult is the disposition a handler returns after running: whether
// the registry should continue walking later entries.
type HandlerResult int

const (
	// Call tells the registry to keep walking later Pattern Entries after
	// this handler ran.
	Call HandlerResult = iota
	// DoNotCall terminates the walk immediately after this handler ran.
	DoNotCall
)

// Handler processes a matched request. match holds the regex capture groups
// (match[0] is the whole match, per regexp.FindStringSubmatch convention).
// Per §9's "Handler callables" design note, the handler is a boxed callable
// that writes directly to conn.Response rather than returning a value the
// caller must translate into a wire response.
type Handler func(conn *httpmodel.Connection, match []string) HandlerResult

// Entry is one compiled (method-set, pattern, handler) tuple.
type Entry struct {
	Methods       MethodSet
	Pattern       *regexp.Regexp
	Handler       Handler
	DebugPatttern string
}

// Registry is the ordered list of Pattern Entries for one mounted subtree.
// Built at configuration time and read-only after startup per §5 ("Pattern
// Entry list — built at configuration time; read-only after startup (no
// lock)"); the mutex below guards registration and the read of the entry
// slice at the start of each Walk, not the matching or handler calls.
type Registry struct {
	mu      sync.Mutex
	entries []*Entry
	prefix  string
}

// New constructs a Registry whose every compiled pattern is anchored with
// the given subtree prefix.
func New(prefix string) *Registry {
	return &Registry{prefix: prefix}
}

// Register compiles "^<prefix><userPattern>$" and appends a new Entry.
// Returns false (and does not alter the list) on a nil handler or a regex
// compilation failure, per §4.3.
func (r *Registry) Register(methods MethodSet, userPattern string, handler Handler) bool {
	if handler == nil {
		return false
	}
	anchored := fmt.Sprintf("^%s%s$", r.prefix, userPattern)
	compiled, err := regexp.Compile(anchored)
	if err != nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &Entry{
		Methods:       methods,
		Pattern:       compiled,
		Handler:       handler,
		DebugPatttern: anchored,
	})
	return true
}

// WalkResult summarizes the outcome of a Walk over the path for diagnostics
// and status-code selection (§4.3: 405 iff a path matched but no method
// did, else 404).
type WalkResult struct {
	RegexFound  bool
	HandlerHits int
}

// Walk matches path against every Entry in registration order. For every
// matching pattern it records RegexFound; if the entry's method set also
// accepts method, the handler is invoked with the capture groups. A handler
// returning DoNotCall stops the walk immediately; Call continues to later
// entries. A regex that is valid at compile time but errors at match time
// (not reachable with Go's regexp package, which never errors at match
// time, but kept for parity with the source's contract) is treated as a
// non-match and skipped silently.
func (r *Registry) Walk(conn *httpmodel.Connection, method, path string) WalkResult {
	var result WalkResult
	for _, entry := range r.snapshot() {
		matches := entry.Pattern.FindStringSubmatch(path)
		if matches == nil {
			continue
		}
		result.RegexFound = true
		if !entry.Methods.Allows(method) {
			continue
		}
		result.HandlerHits++
		conn.Request.Match = matches
		if entry.Handler(conn, matches) == DoNotCall {
			break
		}
	}
	return result
}

// snapshot returns the current entry slice. Registration is expected to
// complete before traffic starts, but the lock keeps concurrent Register
// calls (e.g. from dynamically mounted controllers) safe.
func (r *Registry) snapshot() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries
}

// Len reports the number of registered entries, chiefly for tests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
