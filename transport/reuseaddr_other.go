//go:build !linux

// File: transport/reuseaddr_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "syscall"

// setReuseAddr is a no-op on platforms without the Linux SO_REUSEADDR
// wiring in reuseaddr_linux.go.
func setReuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}
