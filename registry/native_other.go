//go:build !windows

package registry

import (
	"errors"
	"runtime"
)

var ErrNoNativeRegistry = errors.New("registry: no native registry on " + runtime.GOOS)

// OpenNative fails everywhere but Windows. Use NewMemory instead.
func OpenNative() (Backend, error) {
	return nil, ErrNoNativeRegistry
}
