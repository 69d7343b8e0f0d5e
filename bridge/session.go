package bridge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/luma/regbridge/protocol"
	"github.com/luma/regbridge/registry"
	"github.com/luma/regbridge/transport"
)

// DefaultMaxBuffer bounds any single buffer a command may need, in bytes.
const DefaultMaxBuffer = 256 << 20

// Conn is the stream a session serves. *transport.Conn implements it.
type Conn interface {
	protocol.Receiver
	SendAll(p []byte) error
	Close() error
}

type Options struct {
	// API receives every command.
	API registry.API

	// Messages describes failure statuses. When nil and API also
	// implements registry.MessageLookup, API is used.
	Messages registry.MessageLookup

	// MaxBuffer is the largest buffer, in bytes, a command may allocate
	// or receive. Larger needs fail with ERROR_OUTOFMEMORY. Zero means
	// DefaultMaxBuffer.
	MaxBuffer int

	// Stats, when set, collects per opcode counters.
	Stats *Stats

	Log *zap.Logger
}

// Session serves one caller over one stream, one command at a time.
type Session struct {
	conn      Conn
	reader    *protocol.Reader
	writer    *protocol.Writer
	api       registry.API
	messages  registry.MessageLookup
	maxBuffer int
	stats     *Stats
	log       *zap.Logger
}

func NewSession(conn Conn, options Options) *Session {
	maxBuffer := options.MaxBuffer
	if maxBuffer <= 0 {
		maxBuffer = DefaultMaxBuffer
	}

	messages := options.Messages
	if messages == nil {
		messages, _ = options.API.(registry.MessageLookup)
	}

	stats := options.Stats
	if stats == nil {
		stats = NewStats()
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Session{
		conn:      conn,
		reader:    protocol.NewReader(conn, maxBuffer),
		writer:    protocol.NewWriter(),
		api:       options.API,
		messages:  messages,
		maxBuffer: maxBuffer,
		stats:     stats,
		log:       log,
	}
}

func (s *Session) Stats() *Stats {
	return s.stats
}

// Serve sends the greeting and then answers commands until the stream ends.
//
// A peer that disconnects, or ctx ending, is a normal end and returns nil.
// Any other transport failure is returned. Registry failures never end the
// session; they are reported to the caller.
func (s *Session) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-ctx.Done():
			// Unblock the pending read
			s.conn.Close()
		case <-stop:
		}
	}()

	s.log.Info("Session started")

	if err := s.conn.SendAll([]byte(protocol.Greeting)); err != nil {
		return s.end(ctx, err)
	}

	for {
		op, err := s.reader.Byte()
		if err != nil {
			return s.end(ctx, err)
		}

		if err := s.dispatch(protocol.Opcode(op)); err != nil {
			return s.end(ctx, err)
		}
	}
}

func (s *Session) end(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		s.log.Info("Session stopped", zap.Error(ctx.Err()))
		return nil

	case transport.IsConnectionError(err):
		s.log.Info("Session ended by peer")
		return nil

	default:
		s.log.Warn("Session failed", zap.Error(err))
		return err
	}
}

// dispatch runs one command. Only transport failures are returned.
func (s *Session) dispatch(op protocol.Opcode) error {
	newHandler, ok := handlers[op]
	if !ok {
		s.stats.ignore()
		s.log.Debug("Ignoring opcode", zap.Stringer("opcode", op))
		return nil
	}

	start := time.Now()
	h := newHandler()

	if err := h.request().Decode(s.reader); err != nil {
		return err
	}

	st := s.reader.Status()
	if st.OK() {
		st = h.run(s)
	}

	resp := h.response()
	if !st.OK() {
		// Replies keep their shape on failure, with every field zeroed.
		resp = newHandler().response()
	}

	result := protocol.Result{Status: st}
	if !st.OK() {
		result.Message = s.describe(st)
	}

	s.writer.Reset()
	resp.Encode(s.writer)
	result.Encode(s.writer)

	s.stats.record(op, st)
	s.log.Debug("Command",
		zap.Stringer("opcode", op),
		zap.Uint32("status", uint32(st)),
		zap.Duration("took", time.Since(start)))

	return s.conn.SendAll(s.writer.Bytes())
}

// limit converts MaxBuffer to a count of elements of the given size.
func (s *Session) limit(elemSize int) int {
	return s.maxBuffer / elemSize
}
