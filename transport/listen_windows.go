//go:build windows

package transport

import (
	"net"
)

// SO_REUSEPORT does not exist on Windows; reuse is ignored.
func listen(addr string, reuse bool) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
