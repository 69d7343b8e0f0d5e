package transport

import (
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultHost is the only address the bridge talks on.
	DefaultHost = "127.0.0.1"

	DefaultDialTimeout = 10 * time.Second
)

type Options struct {
	// Host to dial or listen on. Defaults to DefaultHost.
	Host string

	// Port to dial or listen on. Zero lets Listen pick a free port.
	Port int

	// Reuseport controls setting SO_REUSEPORT on listeners. It has no
	// effect on Windows.
	Reuseport bool

	// Trace will hex dump every chunk sent and received at debug level.
	// This is only useful in local debugging
	Trace bool

	// DialTimeout bounds Dial. Defaults to DefaultDialTimeout.
	DialTimeout time.Duration

	Log *zap.Logger
}

func (o Options) host() string {
	if o.Host == "" {
		return DefaultHost
	}

	return o.Host
}

func (o Options) dialTimeout() time.Duration {
	if o.DialTimeout <= 0 {
		return DefaultDialTimeout
	}

	return o.DialTimeout
}

func (o Options) logger() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}

	return o.Log
}
