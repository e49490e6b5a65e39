package registry

import (
	"testing"

	"github.com/momentics/mediadispatch/httpmodel"
)

// fakeListener is an in-memory Listener stub for exercising SR's reuse and
// conflict rules without a real socket.
type fakeListener struct {
	workers int
	started bool
	stopped bool
	failStart bool
}

func (f *fakeListener) Start(ep Endpoint, workerHint int, h EventHandler) bool {
	if f.failStart {
		return false
	}
	if workerHint != DefaultWorkerHint {
		f.workers = workerHint
	} else {
		f.workers = 4
	}
	f.started = true
	return true
}

func (f *fakeListener) Stop() bool {
	f.stopped = true
	return true
}

func (f *fakeListener) WorkerCount() int { return f.workers }

func newTestRegistry() *Registry {
	return New(
		func(kind Kind) Listener { return &fakeListener{} },
		func(srv *Server) EventHandler {
			return func(conn *httpmodel.Connection, kind Event, chunk []byte, status int, reason string) {}
		},
	)
}

func TestCreatePlainReusesExistingServer(t *testing.T) {
	r := newTestRegistry()
	ep := NewEndpoint("localhost", 8080)

	s1 := r.CreatePlain("a", ep, DefaultWorkerHint)
	if s1 == nil {
		t.Fatalf("expected first create to succeed")
	}
	s2 := r.CreatePlain("b", ep, DefaultWorkerHint)
	if s2 != s1 {
		t.Fatalf("expected second create to reuse the same server")
	}
}

func TestCreateSecureAfterPlainConflicts(t *testing.T) {
	r := newTestRegistry()
	ep := NewEndpoint("localhost", 8080)

	if r.CreatePlain("a", ep, DefaultWorkerHint) == nil {
		t.Fatalf("expected plain create to succeed")
	}
	if r.CreateSecure("b", ep, Certificate("cert"), DefaultWorkerHint) != nil {
		t.Fatalf("expected secure create on a plain endpoint to fail")
	}
}

func TestSecureReuseWithMismatchedCertificateFails(t *testing.T) {
	r := newTestRegistry()
	ep := NewEndpoint("localhost", 8443)

	if r.CreateSecure("a", ep, Certificate("cert-a"), DefaultWorkerHint) == nil {
		t.Fatalf("expected first secure create to succeed")
	}
	if r.CreateSecure("b", ep, Certificate("cert-b"), DefaultWorkerHint) != nil {
		t.Fatalf("expected mismatched certificate reuse to fail")
	}
	if r.CreateSecure("c", ep, Certificate("cert-a"), DefaultWorkerHint) == nil {
		t.Fatalf("expected equal-certificate reuse to succeed")
	}
}

func TestCreateSecureFromVHostsEmptyListFails(t *testing.T) {
	r := newTestRegistry()
	ep := NewEndpoint("localhost", 9443)
	if r.CreateSecureFromVHosts("a", ep, nil, DefaultWorkerHint) != nil {
		t.Fatalf("expected empty vhost list to fail")
	}
}

func TestCreateSecureFromVHostsUsesFirstCertificate(t *testing.T) {
	r := newTestRegistry()
	ep := NewEndpoint("localhost", 9443)
	vhosts := []VirtualHost{
		{Name: "a.example.com", Certificate: Certificate("cert-a")},
		{Name: "b.example.com", Certificate: Certificate("cert-b")},
	}
	srv := r.CreateSecureFromVHosts("a", ep, vhosts, DefaultWorkerHint)
	if srv == nil {
		t.Fatalf("expected create to succeed")
	}
	if !srv.Certificate().Equal(Certificate("cert-a")) {
		t.Fatalf("expected first vhost's certificate to be used")
	}
}

func TestHandleStopsListenerOnlyAtLastRelease(t *testing.T) {
	r := newTestRegistry()
	ep := NewEndpoint("localhost", 8080)
	srv := r.CreatePlain("a", ep, DefaultWorkerHint)

	h := r.Acquire(srv)
	h.AddRef()

	fl := srv.Listener.(*fakeListener)

	h.Release()
	if fl.stopped {
		t.Fatalf("expected listener still running after first release")
	}
	h.Release()
	if !fl.stopped {
		t.Fatalf("expected listener stopped after last release")
	}
}

func TestEndpointHostCanonicalization(t *testing.T) {
	a := NewEndpoint("Example.COM", 80)
	b := NewEndpoint("example.com", 80)
	if a != b {
		t.Fatalf("expected canonicalized endpoints to be equal: %v != %v", a, b)
	}
}
