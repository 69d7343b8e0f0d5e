package client

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/regbridge/transport"
)

const DefaultAcceptTimeout = 10 * time.Second

type LaunchOptions struct {
	// Executable is the bridge binary.
	Executable string

	// Args go before the -p flag Launch appends.
	Args []string

	// AcceptTimeout bounds the wait for the bridge to dial back.
	AcceptTimeout time.Duration

	// Reuseport sets SO_REUSEPORT on the listener the bridge dials.
	Reuseport bool
	Trace     bool

	Log *zap.Logger
}

// Launch listens on a loopback port, starts the bridge with -p pointing at
// it and waits for the bridge to connect and greet. Closing the returned Conn
// also waits for the bridge to exit.
func Launch(ctx context.Context, options LaunchOptions) (*Conn, error) {
	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	timeout := options.AcceptTimeout
	if timeout <= 0 {
		timeout = DefaultAcceptTimeout
	}

	listener, err := transport.Listen(transport.Options{
		Reuseport: options.Reuseport,
		Trace:     options.Trace,
		Log:       log.Named("transport"),
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Warn("Failed to close listener", zap.Error(err))
		}
	}()

	args := append(append([]string(nil), options.Args...), "-p", strconv.Itoa(listener.Port()))
	cmd := exec.Command(options.Executable, args...)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting bridge: %w", err)
	}

	log.Info("Bridge launched",
		zap.String("executable", options.Executable),
		zap.Int("pid", cmd.Process.Pid),
		zap.Int("port", listener.Port()))

	acceptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stream, err := listener.Accept(acceptCtx)
	if err != nil {
		return nil, multierr.Combine(
			fmt.Errorf("waiting for bridge: %w", err),
			cmd.Process.Kill(),
			ignoreExit(cmd.Wait()))
	}

	conn, err := NewConn(stream, log)
	if err != nil {
		return nil, multierr.Combine(err, stream.Close(), cmd.Process.Kill(), ignoreExit(cmd.Wait()))
	}

	conn.wait = cmd.Wait
	return conn, nil
}

// ignoreExit drops the exit status of a bridge that was killed on purpose.
func ignoreExit(err error) error {
	if _, ok := err.(*exec.ExitError); ok {
		return nil
	}

	return err
}
