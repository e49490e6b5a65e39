// File: cmd/dispatchd/main.go
// dispatchd wires the Server Registry, Connection Pipeline, HTTP
// Interceptor, WebSocket Interceptor and Authentication Gate into a running
// process: one plain endpoint serving a small stats API plus WebSocket
// upgrades whose events are logged.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's examples/highlevel/basic_server/main.go
// (construct pool + registries, mount a couple of routes, block forever)
// generalized to this core's SR/CP/HI/WI/AG composition.

package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/momentics/mediadispatch/adapters"
	"github.com/momentics/mediadispatch/api"
	"github.com/momentics/mediadispatch/auth"
	"github.com/momentics/mediadispatch/httpmodel"
	"github.com/momentics/mediadispatch/interceptor"
	"github.com/momentics/mediadispatch/pattern"
	"github.com/momentics/mediadispatch/pipeline"
	"github.com/momentics/mediadispatch/pool"
	"github.com/momentics/mediadispatch/registry"
	"github.com/momentics/mediadispatch/transport"
	"github.com/momentics/mediadispatch/wsproto"
)

func main() {
	addr := flag.String("addr", "127.0.0.1", "listen host")
	port := flag.Int("port", 9000, "listen port")
	token := flag.String("token", "", "API access token (empty fails closed outside debug builds)")
	flag.Parse()

	startedAt := time.Now()
	ctl := adapters.NewControlAdapter()
	ctl.RegisterDebugProbe("service", func() any {
		return api.ServiceInfo{Name: "dispatchd", Version: "0.1.0", StartedAt: startedAt}
	})
	ctl.SetConfig(map[string]any{"api.token": *token})
	tokenFn := func() string {
		v, _ := ctl.GetConfig()["api.token"].(string)
		return v
	}

	bufPool := pool.NewBufferPool()

	apiRegistry := pattern.New("/api")
	gate := auth.New(tokenFn, ctl.Metrics())
	gate.Mount(apiRegistry)
	mountStatsRoute(apiRegistry, ctl)
	auth.MountNotFound(apiRegistry)

	reg := registry.New(func(kind registry.Kind) registry.Listener {
		return transport.NewTCPListener(kind)
	}, pipeline.Handler)

	ep := registry.NewEndpoint(*addr, *port)
	srv := reg.CreatePlain("dispatchd", ep, registry.DefaultWorkerHint)
	if srv == nil {
		log.Fatalf("dispatchd: failed to bind %s", ep)
	}
	tl, ok := srv.Listener.(*transport.TCPListener)
	if !ok {
		log.Fatalf("dispatchd: unexpected listener type %T", srv.Listener)
	}

	httpInterceptor := interceptor.NewHTTPInterceptor("http", apiRegistry, bufPool)
	wsInterceptor := interceptor.NewWebSocketInterceptor("ws", loggingCallbacks(), tl.SendFrame)
	ctl.RegisterDebugProbe("sessions", func() any { return wsInterceptor.Snapshot() })

	srv.MountInterceptor(wsInterceptor)
	srv.MountInterceptor(httpInterceptor)

	handle := reg.Acquire(srv)
	defer handle.Release()

	log.Printf("dispatchd: listening on %s", ep)
	select {}
}

// mountStatsRoute registers GET /api/stats returning the adapter's merged
// config/metrics/debug snapshot as a flat plain-text body, demonstrating
// the Pattern Registry's handler-writes-directly-to-response contract.
func mountStatsRoute(reg *pattern.Registry, ctl *adapters.ControlAdapter) {
	reg.Register(pattern.NewMethodSet("GET"), "/stats$", func(conn *httpmodel.Connection, match []string) pattern.HandlerResult {
		conn.Response.Status = 200
		conn.Response.SetHeader("Content-Type", "text/plain; charset=utf-8")
		body := ""
		for k, v := range ctl.Stats() {
			body += fmt.Sprintf("%s=%v\n", k, v)
		}
		conn.Response.Body = []byte(body)
		return pattern.DoNotCall
	})
}

// loggingCallbacks builds a minimal WebSocket Interceptor callback set that
// logs connect/message/error/close events; a real application would swap
// this for its own message handling, using the client handle to target
// replies through the interceptor's sendFrame hook.
func loggingCallbacks() interceptor.Callbacks {
	return interceptor.Callbacks{
		OnConnect: func(client interceptor.ClientHandle) httpmodel.Disposition {
			log.Printf("dispatchd: ws client %d connected", client)
			return httpmodel.Keep
		},
		OnMessage: func(client interceptor.ClientHandle, frame *wsproto.Frame) httpmodel.Disposition {
			log.Printf("dispatchd: ws client %d sent %d bytes", client, len(frame.Payload))
			return httpmodel.Keep
		},
		OnError: func(client interceptor.ClientHandle, status int) {
			log.Printf("dispatchd: ws client %d error %d", client, status)
		},
		OnClose: func(client interceptor.ClientHandle, reason string) {
			log.Printf("dispatchd: ws client %d closed: %s", client, reason)
		},
	}
}
