//go:build !windows

package transport

import (
	"net"

	reuseport "github.com/kavu/go_reuseport"
)

func listen(addr string, reuse bool) (net.Listener, error) {
	if reuse {
		return reuseport.Listen("tcp", addr)
	}

	return net.Listen("tcp", addr)
}
