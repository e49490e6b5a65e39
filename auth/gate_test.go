package auth

import (
	"encoding/base64"
	"testing"

	"github.com/momentics/mediadispatch/httpmodel"
	"github.com/momentics/mediadispatch/pattern"
)

func newGateRegistry(token string) (*Gate, *pattern.Registry) {
	g := New(func() string { return token }, nil)
	reg := pattern.New("/v1")
	g.Mount(reg)
	return g, reg
}

func TestMissingAuthorizationHeaderRejected(t *testing.T) {
	_, reg := newGateRegistry("ometest")
	conn := httpmodel.NewConnection(1, nil)
	conn.Request.Method = "GET"
	conn.Request.Path = "/v1/stats"

	reg.Walk(conn, "GET", "/v1/stats")

	if conn.Response.Status != 403 {
		t.Fatalf("expected 403, got %d", conn.Response.Status)
	}
	if string(conn.Response.Body) != reasonMissingHeader {
		t.Fatalf("expected reason %q, got %q", reasonMissingHeader, conn.Response.Body)
	}
}

func TestValidCredentialPasses(t *testing.T) {
	_, reg := newGateRegistry("ometest")
	conn := httpmodel.NewConnection(1, nil)
	conn.Request.Headers["authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte("ometest"))

	reg.Walk(conn, "GET", "/v1/stats")

	if conn.Response.Status == 403 {
		t.Fatalf("expected gate to pass, got 403: %s", conn.Response.Body)
	}
}

func TestBase64RoundTripMatchesConfiguredToken(t *testing.T) {
	const token = "ometest"
	encoded := base64.StdEncoding.EncodeToString([]byte(token))
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if string(decoded) != token {
		t.Fatalf("expected round trip to yield %q, got %q", token, decoded)
	}
}

func TestUnsupportedSchemeRejected(t *testing.T) {
	_, reg := newGateRegistry("ometest")
	conn := httpmodel.NewConnection(1, nil)
	conn.Request.Headers["authorization"] = "Digest deadbeef"

	reg.Walk(conn, "GET", "/v1/stats")

	if conn.Response.Status != 403 {
		t.Fatalf("expected 403, got %d", conn.Response.Status)
	}
	want := reasonUnsupported + "Digest"
	if string(conn.Response.Body) != want {
		t.Fatalf("expected reason %q, got %q", want, conn.Response.Body)
	}
}

func TestInvalidCredentialRejected(t *testing.T) {
	_, reg := newGateRegistry("ometest")
	conn := httpmodel.NewConnection(1, nil)
	conn.Request.Headers["authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte("wrong"))

	reg.Walk(conn, "GET", "/v1/stats")

	if conn.Response.Status != 403 {
		t.Fatalf("expected 403, got %d", conn.Response.Status)
	}
	if string(conn.Response.Body) != reasonInvalidCred {
		t.Fatalf("expected reason %q, got %q", reasonInvalidCred, conn.Response.Body)
	}
}

func TestAuthenticatedUnknownRouteFallsThroughToNotFound(t *testing.T) {
	_, reg := newGateRegistry("ometest")
	MountNotFound(reg)
	conn := httpmodel.NewConnection(1, nil)
	conn.Request.Headers["authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte("ometest"))

	reg.Walk(conn, "GET", "/v1/does-not-exist")

	if conn.Response.Status != 404 {
		t.Fatalf("expected 404, got %d", conn.Response.Status)
	}
	if string(conn.Response.Body) != reasonControllerNotFound {
		t.Fatalf("expected reason %q, got %q", reasonControllerNotFound, conn.Response.Body)
	}
}

func TestEmptyTokenFailsClosedInReleaseBuild(t *testing.T) {
	if isDebugBuild {
		t.Skip("this test targets release-build semantics; run without -tags debug")
	}
	_, reg := newGateRegistry("")
	conn := httpmodel.NewConnection(1, nil)

	reg.Walk(conn, "GET", "/v1/stats")
	if conn.Response.Status != 403 {
		t.Fatalf("expected fail-closed 403 for empty token in release build, got %d", conn.Response.Status)
	}
}
