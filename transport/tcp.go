package transport

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// SendChunk is the most SendAll hands to the socket in one write.
const SendChunk = 1500

// Conn moves whole buffers over a stream. It has no internal buffering and
// is not safe for concurrent use: each call blocks until it is done.
type Conn struct {
	conn  net.Conn
	log   *zap.Logger
	trace bool
}

// NewConn wraps an established stream.
func NewConn(conn net.Conn, options Options) *Conn {
	return &Conn{
		conn:  conn,
		log:   options.logger().With(zap.Stringer("remote", conn.RemoteAddr())),
		trace: options.Trace,
	}
}

// Dial connects to the caller's listener on the loopback interface, with
// Nagle disabled.
func Dial(ctx context.Context, options Options) (*Conn, error) {
	addr := net.JoinHostPort(options.host(), strconv.Itoa(options.Port))

	dialer := net.Dialer{Timeout: options.dialTimeout()}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, classify("dial", err)
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		if err := tcp.SetNoDelay(true); err != nil {
			conn.Close()
			return nil, classify("setsockopt", err)
		}
	}

	options.logger().Debug("Connected", zap.String("addr", addr))

	return NewConn(conn, options), nil
}

// ReceiveExact reads exactly n bytes.
func (c *Conn) ReceiveExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidSize
	}

	if n == 0 {
		return nil, nil
	}

	p := make([]byte, n)
	if err := c.ReceiveInto(p); err != nil {
		return nil, err
	}

	return p, nil
}

// ReceiveInto fills p, looping over short reads.
func (c *Conn) ReceiveInto(p []byte) error {
	for got := 0; got < len(p); {
		n, err := c.conn.Read(p[got:])
		if n > 0 {
			c.dump("recv", p[got:got+n])
			got += n
		}

		switch {
		case err == io.EOF && got < len(p):
			return &ConnectionError{Op: "recv", Err: io.ErrUnexpectedEOF}
		case err != nil && err != io.EOF:
			return classify("recv", err)
		case err == nil && n == 0:
			return &ConnectionError{Op: "recv", Err: io.ErrNoProgress}
		}
	}

	return nil
}

// SendAll writes all of p in chunks of at most SendChunk bytes.
func (c *Conn) SendAll(p []byte) error {
	for len(p) > 0 {
		chunk := p
		if len(chunk) > SendChunk {
			chunk = chunk[:SendChunk]
		}

		n, err := c.conn.Write(chunk)
		if n > 0 {
			c.dump("send", chunk[:n])
		}

		if err != nil {
			return classify("send", err)
		}

		if n == 0 {
			return &ConnectionError{Op: "send", Err: io.ErrShortWrite}
		}

		p = p[n:]
	}

	return nil
}

func (c *Conn) dump(op string, b []byte) {
	if c.trace {
		c.log.Debug(fmt.Sprintf("%s %d bytes", op, len(b)), zap.String("hex", hex.Dump(b)))
	}
}

func (c *Conn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Conn) Close() error {
	return c.conn.Close()
}
