package transport

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Listener is the caller side of the bootstrap: it waits for a bridge to
// connect back.
type Listener struct {
	ln      net.Listener
	options Options
	log     *zap.Logger
}

// Listen opens a listener on the loopback interface. With Port zero the
// system picks a free port; see Port.
func Listen(options Options) (*Listener, error) {
	addr := net.JoinHostPort(options.host(), strconv.Itoa(options.Port))

	ln, err := listen(addr, options.Reuseport)
	if err != nil {
		return nil, classify("listen", err)
	}

	log := options.logger()
	log.Debug("Listening", zap.Stringer("addr", ln.Addr()))

	return &Listener{ln: ln, options: options, log: log}, nil
}

func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Port is the port the listener is bound to.
func (l *Listener) Port() int {
	if addr, ok := l.ln.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}

	return 0
}

// Accept waits for one connection or for ctx to end.
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	tl, ok := l.ln.(*net.TCPListener)
	if ok {
		if deadline, has := ctx.Deadline(); has {
			tl.SetDeadline(deadline)
		}

		stop := make(chan struct{})
		defer close(stop)

		go func() {
			select {
			case <-ctx.Done():
				// Unblock the pending Accept
				tl.SetDeadline(time.Unix(1, 0))
			case <-stop:
			}
		}()
	}

	conn, err := l.ln.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, context.DeadlineExceeded
		}

		return nil, classify("accept", err)
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			return nil, multierr.Append(classify("setsockopt", err), conn.Close())
		}
	}

	l.log.Debug("Accepted", zap.Stringer("remote", conn.RemoteAddr()))

	return NewConn(conn, l.options), nil
}

func (l *Listener) Close() error {
	return l.ln.Close()
}
