package pattern

import (
	"testing"

	"github.com/momentics/mediadispatch/httpmodel"
)

func testConn() *httpmodel.Connection {
	return httpmodel.NewConnection(1, nil)
}

func TestRegisterAndWalkOrder(t *testing.T) {
	r := New("/v1")
	var calls []int

	ok := r.Register(NewMethodSet("GET"), "/app$", func(conn *httpmodel.Connection, match []string) HandlerResult {
		calls = append(calls, 1)
		return Call
	})
	if !ok {
		t.Fatalf("expected first Register to succeed")
	}
	ok = r.Register(NewMethodSet("GET"), "/app$", func(conn *httpmodel.Connection, match []string) HandlerResult {
		calls = append(calls, 2)
		return Call
	})
	if !ok {
		t.Fatalf("expected second Register to succeed")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", r.Len())
	}

	result := r.Walk(testConn(), "GET", "/v1/app")
	if result.HandlerHits != 2 {
		t.Fatalf("expected both handlers invoked, got %d hits", result.HandlerHits)
	}
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Fatalf("expected in-order invocation, got %v", calls)
	}
}

func TestMethodMismatchYields405Signal(t *testing.T) {
	r := New("/v1")
	r.Register(NewMethodSet("POST"), "/app$", func(conn *httpmodel.Connection, match []string) HandlerResult {
		return Call
	})

	result := r.Walk(testConn(), "GET", "/v1/app")
	if !result.RegexFound {
		t.Fatalf("expected path to match regex")
	}
	if result.HandlerHits != 0 {
		t.Fatalf("expected no handler invoked on method mismatch")
	}
}

func TestUnmatchedPathYields404Signal(t *testing.T) {
	r := New("/v1")
	r.Register(NewMethodSet("GET"), "/app$", func(conn *httpmodel.Connection, match []string) HandlerResult {
		return Call
	})

	result := r.Walk(testConn(), "GET", "/v1/other")
	if result.RegexFound {
		t.Fatalf("expected no pattern to match")
	}
	if result.HandlerHits != 0 {
		t.Fatalf("expected no handler invoked")
	}
}

func TestDoNotCallStopsWalk(t *testing.T) {
	r := New("")
	var calls []int
	r.Register(NewMethodSet(MethodAll), "/x$", func(conn *httpmodel.Connection, match []string) HandlerResult {
		calls = append(calls, 1)
		return DoNotCall
	})
	r.Register(NewMethodSet(MethodAll), "/x$", func(conn *httpmodel.Connection, match []string) HandlerResult {
		calls = append(calls, 2)
		return Call
	})

	r.Walk(testConn(), "GET", "/x")
	if len(calls) != 1 {
		t.Fatalf("expected walk to stop after DoNotCall, got %v", calls)
	}
}

func TestNilHandlerRejectedAtRegistration(t *testing.T) {
	r := New("")
	if r.Register(NewMethodSet("GET"), "/x$", nil) {
		t.Fatalf("expected nil handler to be rejected")
	}
	if r.Len() != 0 {
		t.Fatalf("expected list unchanged after rejected registration")
	}
}

func TestCompileFailureRejectedAtRegistration(t *testing.T) {
	r := New("")
	ok := r.Register(NewMethodSet("GET"), "/x[", func(conn *httpmodel.Connection, match []string) HandlerResult {
		return Call
	})
	if ok {
		t.Fatalf("expected invalid regex to be rejected")
	}
	if r.Len() != 0 {
		t.Fatalf("expected list unchanged after rejected registration")
	}
}
