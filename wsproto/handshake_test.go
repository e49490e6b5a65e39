// File: wsproto/handshake_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package wsproto

import (
	"bytes"
	"strings"
	"testing"
)

// TestComputeAcceptKeyCanonicalExample checks the worked example from
// RFC 6455 §1.3.
func TestComputeAcceptKeyCanonicalExample(t *testing.T) {
	const want = "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got := ComputeAcceptKey("dGhlIHNhbXBsZSBub25jZQ=="); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func validUpgradeHeaders() map[string]string {
	return map[string]string{
		HeaderConnection:      "Upgrade",
		HeaderUpgrade:         "websocket",
		HeaderSecWebSocketKey: "dGhlIHNhbXBsZSBub25jZQ==",
	}
}

func TestValidateUpgradeHeadersAccepts(t *testing.T) {
	if err := ValidateUpgradeHeaders(validUpgradeHeaders()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUpgradeHeadersAcceptsMultiValuedConnection(t *testing.T) {
	h := validUpgradeHeaders()
	h[HeaderConnection] = "keep-alive, Upgrade"
	if err := ValidateUpgradeHeaders(h); err != nil {
		t.Fatalf("unexpected error for comma-separated Connection header: %v", err)
	}
}

func TestValidateUpgradeHeadersRejectsMissingConnection(t *testing.T) {
	h := validUpgradeHeaders()
	delete(h, HeaderConnection)
	if err := ValidateUpgradeHeaders(h); err != ErrInvalidUpgradeHeaders {
		t.Fatalf("expected ErrInvalidUpgradeHeaders, got %v", err)
	}
}

func TestValidateUpgradeHeadersRejectsWrongConnectionToken(t *testing.T) {
	h := validUpgradeHeaders()
	h[HeaderConnection] = "keep-alive"
	if err := ValidateUpgradeHeaders(h); err != ErrInvalidUpgradeHeaders {
		t.Fatalf("expected ErrInvalidUpgradeHeaders, got %v", err)
	}
}

func TestValidateUpgradeHeadersRejectsWrongUpgradeToken(t *testing.T) {
	h := validUpgradeHeaders()
	h[HeaderUpgrade] = "h2c"
	if err := ValidateUpgradeHeaders(h); err != ErrInvalidUpgradeHeaders {
		t.Fatalf("expected ErrInvalidUpgradeHeaders, got %v", err)
	}
}

func TestValidateUpgradeHeadersRejectsMissingKey(t *testing.T) {
	h := validUpgradeHeaders()
	delete(h, HeaderSecWebSocketKey)
	if err := ValidateUpgradeHeaders(h); err != ErrMissingWebSocketKey {
		t.Fatalf("expected ErrMissingWebSocketKey, got %v", err)
	}
}

func TestContainsTokenCaseAndWhitespaceInsensitive(t *testing.T) {
	if !containsToken(" Upgrade , keep-alive", "upgrade") {
		t.Fatalf("expected token match despite case/whitespace variation")
	}
	if containsToken("keep-alive", "upgrade") {
		t.Fatalf("expected no match when token absent")
	}
}

func TestWriteSwitchingProtocolsWritesStatusLineAndHeaders(t *testing.T) {
	hdr := AcceptResponseHeaders("dGhlIHNhbXBsZSBub25jZQ==", "")
	var buf bytes.Buffer
	if err := WriteSwitchingProtocols(&buf, hdr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "HTTP/1.1 101 Switching Protocols\r\n") {
		t.Fatalf("expected 101 status line, got %q", out)
	}
	if !strings.Contains(out, "Sec-Websocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n") &&
		!strings.Contains(out, "Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n") {
		t.Fatalf("expected accept header in output, got %q", out)
	}
	if !strings.HasSuffix(out, "\r\n\r\n") {
		t.Fatalf("expected response to end with a blank line, got %q", out)
	}
}

func TestAcceptResponseHeadersOmitsEmptySubprotocol(t *testing.T) {
	hdr := AcceptResponseHeaders("dGhlIHNhbXBsZSBub25jZQ==", "")
	if hdr.Get("Sec-WebSocket-Protocol") != "" {
		t.Fatalf("expected no Sec-WebSocket-Protocol header when subprotocol is empty")
	}
}

func TestAcceptResponseHeadersIncludesSubprotocol(t *testing.T) {
	hdr := AcceptResponseHeaders("dGhlIHNhbXBsZSBub25jZQ==", "chat")
	if hdr.Get("Sec-WebSocket-Protocol") != "chat" {
		t.Fatalf("expected Sec-WebSocket-Protocol %q, got %q", "chat", hdr.Get("Sec-WebSocket-Protocol"))
	}
}
