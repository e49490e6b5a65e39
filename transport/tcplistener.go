// File: transport/tcplistener.go
// Package transport provides the "physical port" Listener implementation
// left out of scope by §1/§6 ("the physical port ... is an external
// collaborator"): a concrete net.Listener-backed acceptor that turns raw
// TCP connections into httpmodel.Connection events driven through a
// registry.EventHandler.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's transport/tcp/listener.go (accept loop reading
// a request line and headers with bufio.Reader, then handing the
// connection off) and reactor/reactor_linux.go (golang.org/x/sys/unix use
// for raw socket control), here applied to SO_REUSEADDR on the listening
// socket via net.ListenConfig.Control instead of epoll registration, since
// this core does not own an event reactor of its own.

package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/momentics/mediadispatch/api"
	"github.com/momentics/mediadispatch/httpmodel"
	"github.com/momentics/mediadispatch/registry"
	"github.com/momentics/mediadispatch/wsproto"
)

// MaxHeaderLines bounds the number of header lines read per request,
// mirroring the HTTP Interceptor's own bounded-accumulation stance (§4.2)
// at the socket layer.
const MaxHeaderLines = 256

// reasonInterceptorDisconnect is the EventClose reason delivered when the
// bound interceptor itself asked to disconnect (Connection.MarkDisconnect),
// as opposed to a raw socket read error.
const reasonInterceptorDisconnect = "interceptor requested disconnect"

var _ registry.Listener = (*TCPListener)(nil)

// TCPListener implements registry.Listener over a real net.Listener.
type TCPListener struct {
	mu       sync.Mutex
	ln       net.Listener
	workers  int32
	stopped  bool
	nextConn uint64
	conns    map[uint64]net.Conn
}

// NewTCPListener constructs an unstarted TCPListener. kind is accepted for
// symmetry with registry.ListenerFactory; this core treats Plain and
// Secure endpoints identically at the socket layer (TLS termination is an
// external collaborator's concern, per §1 Non-goals).
func NewTCPListener(kind registry.Kind) *TCPListener {
	return &TCPListener{conns: make(map[uint64]net.Conn)}
}

// Start binds endpoint and runs the accept loop in a background goroutine.
// workerHint is recorded as the reported worker count; this implementation
// always accepts on a single goroutine and fans out per-connection
// goroutines, so any positive hint is accepted as advisory.
func (t *TCPListener) Start(endpoint registry.Endpoint, workerHint int, handler registry.EventHandler) bool {
	lc := net.ListenConfig{Control: setReuseAddr}
	ln, err := lc.Listen(context.Background(), "tcp", endpoint.String())
	if err != nil {
		fmt.Printf("transport: listen %s failed: %v\n", endpoint, err)
		return false
	}

	t.mu.Lock()
	t.ln = ln
	if workerHint > 0 {
		t.workers = int32(workerHint)
	} else {
		t.workers = 1
	}
	t.mu.Unlock()

	go t.acceptLoop(handler)
	return true
}

func (t *TCPListener) acceptLoop(handler registry.EventHandler) {
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			t.mu.Lock()
			stopped := t.stopped
			t.mu.Unlock()
			if stopped {
				return
			}
			fmt.Printf("transport: accept error: %v\n", err)
			continue
		}
		id := atomic.AddUint64(&t.nextConn, 1)
		go t.serve(id, conn, handler)
	}
}

// Stop closes the listening socket. In-flight connections are left to
// drain on their own.
func (t *TCPListener) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ln == nil || t.stopped {
		return false
	}
	t.stopped = true
	return t.ln.Close() == nil
}

// WorkerCount reports the worker hint this listener was started with.
func (t *TCPListener) WorkerCount() int {
	return int(atomic.LoadInt32(&t.workers))
}

// serve reads one request's headers, fires EventPrepare, then streams any
// body (or raw WebSocket frames) as EventData until the bound interceptor
// signals Disconnect or the peer closes the socket.
func (t *TCPListener) serve(id uint64, conn net.Conn, handler registry.EventHandler) {
	t.mu.Lock()
	t.conns[id] = conn
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.conns, id)
		t.mu.Unlock()
		conn.Close()
	}()

	br := bufio.NewReader(conn)
	req, err := readRequestHead(br)
	if err != nil {
		return
	}

	c := httpmodel.NewConnection(id, conn.RemoteAddr())
	c.Request = req
	if req.IsWebSocketUpgrade() {
		c.Type = httpmodel.ConnWebSocket
	}

	handler(c, registry.EventPrepare, nil, 0, "")
	writeResponse(conn, c)
	if c.ShouldDisconnect() {
		handler(c, registry.EventClose, nil, 0, reasonInterceptorDisconnect)
		return
	}

	if c.Type == httpmodel.ConnWebSocket {
		t.pumpFrames(conn, c, handler)
		return
	}
	t.pumpBody(br, conn, c, handler)
}

// pumpBody streams the remaining request body (if any) to the HTTP
// Interceptor in chunks, per §4.2's streaming accumulation model.
func (t *TCPListener) pumpBody(br *bufio.Reader, conn net.Conn, c *httpmodel.Connection, handler registry.EventHandler) {
	const chunkSize = 4096
	remaining := c.Request.ContentLength
	buf := make([]byte, chunkSize)
	for remaining > 0 {
		n := chunkSize
		if int64(n) > remaining {
			n = int(remaining)
		}
		read, err := br.Read(buf[:n])
		if read > 0 {
			handler(c, registry.EventData, buf[:read], 0, "")
			writeResponse(conn, c)
			if c.ShouldDisconnect() {
				handler(c, registry.EventClose, nil, 0, reasonInterceptorDisconnect)
				return
			}
		}
		if err != nil {
			handler(c, registry.EventClose, nil, 0, err.Error())
			return
		}
		remaining -= int64(read)
	}
}

// pumpFrames reads raw bytes off the wire and forwards them to the
// WebSocket Interceptor as EventData chunks; frame boundary detection is
// the interceptor's job (wsproto.DecodeFrame), not the transport's.
func (t *TCPListener) pumpFrames(conn net.Conn, c *httpmodel.Connection, handler registry.EventHandler) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			handler(c, registry.EventData, buf[:n], 0, "")
			writeResponse(conn, c)
			if c.ShouldDisconnect() {
				handler(c, registry.EventClose, nil, 0, reasonInterceptorDisconnect)
				return
			}
		}
		if err != nil {
			handler(c, registry.EventClose, nil, 0, err.Error())
			return
		}
	}
}

// SendFrame encodes and writes a single unmasked WebSocket frame to the
// connection identified by conn.ID, satisfying the sendFrame hook
// interceptor.NewWebSocketInterceptor requires for its Ping Ticker and
// reply frames (§4.3). Server-to-client frames are sent unmasked per RFC
// 6455 §5.1.
func (t *TCPListener) SendFrame(conn *httpmodel.Connection, frame *wsproto.Frame) error {
	t.mu.Lock()
	raw, ok := t.conns[conn.ID]
	t.mu.Unlock()
	if !ok {
		return api.ErrTransportClosed
	}
	dst, err := wsproto.EncodeFrame(nil, frame, false)
	if err != nil {
		return err
	}
	_, err = raw.Write(dst)
	return err
}

// readRequestHead parses the request line and header block, bounded at
// MaxHeaderLines, mirroring the teacher's bufio.Reader-based line scan.
func readRequestHead(br *bufio.Reader) (*httpmodel.Request, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, err
	}
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return nil, fmt.Errorf("transport: malformed request line %q", line)
	}
	req := &httpmodel.Request{
		Method:  parts[0],
		URI:     parts[1],
		Headers: make(map[string]string),
	}
	if u, err := url.ParseRequestURI(parts[1]); err == nil {
		req.Path = u.Path
	} else {
		req.Path = parts[1]
	}

	for i := 0; i < MaxHeaderLines; i++ {
		hline, err := br.ReadString('\n')
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimRight(hline, "\r\n")
		if trimmed == "" {
			break
		}
		sep := strings.IndexByte(trimmed, ':')
		if sep <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(trimmed[:sep]))
		val := strings.TrimSpace(trimmed[sep+1:])
		req.Headers[key] = val
	}

	if cl := req.Headers["content-length"]; cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			req.ContentLength = n
		}
	}
	return req, nil
}

// writeResponse flushes conn.Response once, on its first non-empty write
// after an event, matching the HTTP Interceptor's "dispatch after complete
// body" / WebSocket Interceptor's "101 then frames" response timing.
func writeResponse(conn net.Conn, c *httpmodel.Connection) {
	resp := c.Response
	if resp.Sent || (resp.Status == 200 && len(resp.Body) == 0 && len(resp.Headers) == 0) {
		return
	}
	resp.Sent = true

	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.1 %d %s\r\n", resp.Status, statusText(resp.Status))
	for k, v := range resp.Headers {
		fmt.Fprintf(&b, "%s: %s\r\n", k, v)
	}
	if _, ok := resp.Headers["Content-Length"]; !ok {
		fmt.Fprintf(&b, "Content-Length: %d\r\n", len(resp.Body))
	}
	b.WriteString("\r\n")
	conn.Write([]byte(b.String()))
	if len(resp.Body) > 0 {
		conn.Write(resp.Body)
	}
}

func statusText(code int) string {
	switch code {
	case 101:
		return "Switching Protocols"
	case 200:
		return "OK"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 500:
		return "Internal Server Error"
	default:
		return "Status"
	}
}
