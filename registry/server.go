// File: registry/server.go
// Package registry — Server variants (§3): Plain or Secure, never both.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package registry

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/momentics/mediadispatch/interceptor"
)

// Kind discriminates the two Server variants. Invariant (§3): a Server's
// Kind is fixed for the listen endpoint's lifetime.
type Kind int

const (
	KindPlain Kind = iota
	KindSecure
)

func (k Kind) String() string {
	if k == KindSecure {
		return "secure"
	}
	return "plain"
}

// Endpoint is the (host, port) pair keying the Server Registry, §3. Host is
// canonicalized (ASCII lower-cased) before comparison/storage.
type Endpoint struct {
	Host string
	Port int
}

func canonicalizeHost(host string) string {
	// A minimal canonical form: the comparison the spec requires is on
	// "canonicalized host form"; lower-casing is sufficient for the DNS
	// names and IP literals this core's endpoints are built from.
	out := make([]byte, 0, len(host))
	for i := 0; i < len(host); i++ {
		c := host[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// NewEndpoint builds a canonicalized Endpoint.
func NewEndpoint(host string, port int) Endpoint {
	return Endpoint{Host: canonicalizeHost(host), Port: port}
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Certificate is an opaque TLS certificate handle (§6, "consumed"). This
// core only needs byte-equality over its encoded form.
type Certificate []byte

// Equal reports byte-for-byte equality, per §3's "byte-equal to the current
// one" certificate-replacement rule.
func (c Certificate) Equal(other Certificate) bool {
	return bytes.Equal(c, other)
}

// VirtualHost is one entry of a virtual-host list supplied to
// create_secure_from_vhosts, §4.1.
type VirtualHost struct {
	Name        string
	Certificate Certificate
}

// Server is one live HTTP or HTTPS server bound to exactly one Endpoint.
// Plain and Secure share this struct; Secure additionally carries a
// Certificate. Invariant (§3): at most one Server exists per endpoint, and
// its Kind never changes.
type Server struct {
	Name     string
	Kind     Kind
	Endpoint Endpoint
	Listener Listener

	mu           sync.Mutex
	cert         Certificate // nil for Plain
	interceptors []interceptor.Interceptor
}

// MountInterceptor appends i to the server's ordered interceptor list.
// Interceptors are read-only after startup per §5; callers must mount
// everything before traffic starts.
func (s *Server) MountInterceptor(i interceptor.Interceptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interceptors = append(s.interceptors, i)
}

// Interceptors returns the server's ordered interceptor list.
func (s *Server) Interceptors() []interceptor.Interceptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]interceptor.Interceptor, len(s.interceptors))
	copy(out, s.interceptors)
	return out
}

// setCertificate implements the §3/§4.1 secure-reuse rule: a second
// certificate succeeds only if byte-equal to the current one.
func (s *Server) setCertificate(cert Certificate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cert == nil {
		s.cert = cert
		return true
	}
	return s.cert.Equal(cert)
}

// Certificate returns the server's current certificate (nil for Plain).
func (s *Server) Certificate() Certificate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cert
}
