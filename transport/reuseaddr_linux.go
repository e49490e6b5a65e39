//go:build linux

// File: transport/reuseaddr_linux.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's reactor/reactor_linux.go use of
// golang.org/x/sys/unix for raw socket syscalls, applied here to
// SO_REUSEADDR on the listening socket so a restarted dispatcher can
// rebind an endpoint still in TIME_WAIT.

package transport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

func setReuseAddr(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
