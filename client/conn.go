package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/regbridge/protocol"
	"github.com/luma/regbridge/registry"
	"github.com/luma/regbridge/transport"
)

// Stream is the connection a Conn talks over. *transport.Conn implements it.
type Stream interface {
	protocol.Receiver
	SendAll(p []byte) error
	SetDeadline(t time.Time) error
	Close() error
}

// Conn issues commands to a bridge, one at a time.
type Conn struct {
	mu     sync.Mutex
	stream Stream
	reader *protocol.Reader
	writer *protocol.Writer

	// wait, when set, reaps the bridge process after the stream closes.
	wait func() error

	log *zap.Logger
}

// NewConn reads and checks the greeting on stream.
func NewConn(stream Stream, log *zap.Logger) (*Conn, error) {
	if log == nil {
		log = zap.NewNop()
	}

	c := &Conn{
		stream: stream,
		reader: protocol.NewReader(stream, 0),
		writer: protocol.NewWriter(),
		log:    log,
	}

	greeting := make([]byte, len(protocol.Greeting))
	if err := stream.ReceiveInto(greeting); err != nil {
		return nil, fmt.Errorf("reading greeting: %w", err)
	}

	if string(greeting) != protocol.Greeting {
		return nil, fmt.Errorf("%w: %q", ErrBadGreeting, greeting)
	}

	log.Debug("Bridge ready", zap.String("greeting", protocol.Greeting))
	return c, nil
}

// Close ends the session and, for a launched bridge, waits for it to exit.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.stream.Close()
	if c.wait != nil {
		err = multierr.Append(err, c.wait())
		c.wait = nil
	}

	return err
}

// roundTrip sends one command and reads its reply into resp. A non-zero
// status comes back as *Error, with resp holding the zeroed fields the
// bridge sent alongside it.
func (c *Conn) roundTrip(ctx context.Context, op protocol.Opcode, req protocol.Request, resp protocol.Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.stream.SetDeadline(deadline); err != nil {
			return err
		}
		defer c.stream.SetDeadline(time.Time{})
	}

	c.writer.Reset()
	c.writer.Byte(byte(op))
	req.Encode(c.writer)

	if err := c.stream.SendAll(c.writer.Bytes()); err != nil {
		return err
	}

	if err := resp.Decode(c.reader); err != nil {
		return err
	}

	var result protocol.Result
	if err := result.Decode(c.reader); err != nil {
		return err
	}

	c.log.Debug("Command",
		zap.Stringer("opcode", op),
		zap.Uint32("status", uint32(result.Status)))

	if !result.Status.OK() {
		return &Error{Op: op, Status: result.Status, Message: result.Message}
	}

	return nil
}

// Abort sends ABORT, which the bridge ignores without replying.
func (c *Conn) Abort() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stream.SendAll([]byte{byte(protocol.OpAbort)})
}

func (c *Conn) CloseKey(ctx context.Context, key registry.Handle) error {
	return c.roundTrip(ctx, protocol.OpCloseKey, &protocol.KeyRequest{Key: key}, protocol.NoResponse{})
}

func (c *Conn) ConnectRegistry(ctx context.Context, machine string, key registry.Handle) (registry.Handle, error) {
	var in input
	req := &protocol.ConnectRegistryRequest{Key: key, Machine: in.wide(machine)}
	if err := in.err; err != nil {
		return registry.NoKey, err
	}

	var resp protocol.HandleResponse
	err := c.roundTrip(ctx, protocol.OpConnectRegistry, req, &resp)
	return resp.Key, err
}

func (c *Conn) CreateKey(ctx context.Context, key registry.Handle, subKey string) (registry.Handle, error) {
	var in input
	req := &protocol.KeyNameRequest{Key: key, Name: in.wide(subKey)}
	if err := in.err; err != nil {
		return registry.NoKey, err
	}

	var resp protocol.HandleResponse
	err := c.roundTrip(ctx, protocol.OpCreateKey, req, &resp)
	return resp.Key, err
}

func (c *Conn) CreateKeyEx(ctx context.Context, key registry.Handle, subKey string, access registry.Access) (registry.Handle, error) {
	var in input
	req := &protocol.KeyAccessRequest{Key: key, Access: access, SubKey: in.wide(subKey)}
	if err := in.err; err != nil {
		return registry.NoKey, err
	}

	var resp protocol.HandleResponse
	err := c.roundTrip(ctx, protocol.OpCreateKeyEx, req, &resp)
	return resp.Key, err
}

func (c *Conn) DeleteKey(ctx context.Context, key registry.Handle, subKey string) error {
	var in input
	req := &protocol.KeyNameRequest{Key: key, Name: in.wide(subKey)}
	if err := in.err; err != nil {
		return err
	}

	return c.roundTrip(ctx, protocol.OpDeleteKey, req, protocol.NoResponse{})
}

func (c *Conn) DeleteKeyEx(ctx context.Context, key registry.Handle, subKey string, access registry.Access) error {
	var in input
	req := &protocol.KeyAccessRequest{Key: key, Access: access, SubKey: in.wide(subKey)}
	if err := in.err; err != nil {
		return err
	}

	return c.roundTrip(ctx, protocol.OpDeleteKeyEx, req, protocol.NoResponse{})
}

func (c *Conn) DeleteValue(ctx context.Context, key registry.Handle, name string) error {
	var in input
	req := &protocol.KeyNameRequest{Key: key, Name: in.wide(name)}
	if err := in.err; err != nil {
		return err
	}

	return c.roundTrip(ctx, protocol.OpDeleteValue, req, protocol.NoResponse{})
}

// EnumKey names the index-th subkey of key. Past the last subkey it fails
// with ERROR_NO_MORE_ITEMS.
func (c *Conn) EnumKey(ctx context.Context, key registry.Handle, index uint32) (string, error) {
	var resp protocol.StringResponse
	err := c.roundTrip(ctx, protocol.OpEnumKey, &protocol.EnumRequest{Key: key, Index: index}, &resp)
	return resp.Value, err
}

// EnumValue returns the name and contents of the index-th value of key.
func (c *Conn) EnumValue(ctx context.Context, key registry.Handle, index uint32) (string, registry.Value, error) {
	var resp protocol.EnumValueResponse
	err := c.roundTrip(ctx, protocol.OpEnumValue, &protocol.EnumRequest{Key: key, Index: index}, &resp)
	return resp.Name, registry.Value{Type: resp.Type, Data: resp.Data}, err
}

func (c *Conn) ExpandEnvironmentStrings(ctx context.Context, s string) (string, error) {
	var in input
	req := &protocol.ExpandRequest{Source: in.wide(s)}
	if err := in.err; err != nil {
		return "", err
	}

	var resp protocol.StringResponse
	err := c.roundTrip(ctx, protocol.OpExpandEnvironmentStrings, req, &resp)
	return resp.Value, err
}

func (c *Conn) FlushKey(ctx context.Context, key registry.Handle) error {
	return c.roundTrip(ctx, protocol.OpFlushKey, &protocol.KeyRequest{Key: key}, protocol.NoResponse{})
}

func (c *Conn) LoadKey(ctx context.Context, key registry.Handle, subKey, file string) error {
	var in input
	req := &protocol.LoadKeyRequest{Key: key, SubKey: in.wide(subKey), File: in.wide(file)}
	if err := in.err; err != nil {
		return err
	}

	return c.roundTrip(ctx, protocol.OpLoadKey, req, &protocol.HandleResponse{})
}

func (c *Conn) OpenKey(ctx context.Context, key registry.Handle, subKey string, access registry.Access) (registry.Handle, error) {
	return c.openKey(ctx, protocol.OpOpenKey, key, subKey, access)
}

func (c *Conn) OpenKeyEx(ctx context.Context, key registry.Handle, subKey string, access registry.Access) (registry.Handle, error) {
	return c.openKey(ctx, protocol.OpOpenKeyEx, key, subKey, access)
}

func (c *Conn) openKey(ctx context.Context, op protocol.Opcode, key registry.Handle, subKey string, access registry.Access) (registry.Handle, error) {
	var in input
	req := &protocol.KeyAccessRequest{Key: key, Access: access, SubKey: in.wide(subKey)}
	if err := in.err; err != nil {
		return registry.NoKey, err
	}

	var resp protocol.HandleResponse
	err := c.roundTrip(ctx, op, req, &resp)
	return resp.Key, err
}

// KeyInfo is what QUERY_INFO_KEY reports about a key.
type KeyInfo struct {
	SubKeys   uint32
	Values    uint32
	LastWrite time.Time
}

func (c *Conn) QueryInfoKey(ctx context.Context, key registry.Handle) (KeyInfo, error) {
	var resp protocol.QueryInfoKeyResponse
	if err := c.roundTrip(ctx, protocol.OpQueryInfoKey, &protocol.KeyRequest{Key: key}, &resp); err != nil {
		return KeyInfo{}, err
	}

	return KeyInfo{
		SubKeys:   resp.SubKeys,
		Values:    resp.Values,
		LastWrite: filetimeToTime(resp.LastWriteTime),
	}, nil
}

// QueryValue reads the default value of key\subKey, which must be a string.
func (c *Conn) QueryValue(ctx context.Context, key registry.Handle, subKey string) (string, error) {
	var in input
	req := &protocol.KeyNameRequest{Key: key, Name: in.wide(subKey)}
	if err := in.err; err != nil {
		return "", err
	}

	var resp protocol.StringResponse
	err := c.roundTrip(ctx, protocol.OpQueryValue, req, &resp)
	return resp.Value, err
}

func (c *Conn) QueryValueEx(ctx context.Context, key registry.Handle, name string) (registry.Value, error) {
	var in input
	req := &protocol.KeyNameRequest{Key: key, Name: in.wide(name)}
	if err := in.err; err != nil {
		return registry.Value{}, err
	}

	var resp protocol.ValueResponse
	err := c.roundTrip(ctx, protocol.OpQueryValueEx, req, &resp)
	return registry.Value{Type: resp.Type, Data: resp.Data}, err
}

func (c *Conn) SaveKey(ctx context.Context, key registry.Handle, file string) error {
	var in input
	req := &protocol.KeyNameRequest{Key: key, Name: in.wide(file)}
	if err := in.err; err != nil {
		return err
	}

	return c.roundTrip(ctx, protocol.OpSaveKey, req, &protocol.HandleResponse{})
}

// SetValue sets the default value of key\subKey to a REG_SZ, creating the
// subkey when needed.
func (c *Conn) SetValue(ctx context.Context, key registry.Handle, subKey, value string) error {
	var in input
	req := &protocol.SetValueRequest{Key: key, SubKey: in.wide(subKey), Value: in.wide(value)}
	if err := in.err; err != nil {
		return err
	}

	return c.roundTrip(ctx, protocol.OpSetValue, req, protocol.NoResponse{})
}

func (c *Conn) SetValueEx(ctx context.Context, key registry.Handle, name string, value registry.Value) error {
	var in input
	req := &protocol.SetValueExRequest{Key: key, Type: value.Type, Name: in.wide(name), Data: value.Data}
	if err := in.err; err != nil {
		return err
	}

	return c.roundTrip(ctx, protocol.OpSetValueEx, req, protocol.NoResponse{})
}

func (c *Conn) DisableReflectionKey(ctx context.Context, key registry.Handle) error {
	return c.roundTrip(ctx, protocol.OpDisableReflectionKey, &protocol.KeyRequest{Key: key}, protocol.NoResponse{})
}

func (c *Conn) EnableReflectionKey(ctx context.Context, key registry.Handle) error {
	return c.roundTrip(ctx, protocol.OpEnableReflectionKey, &protocol.KeyRequest{Key: key}, protocol.NoResponse{})
}

// QueryReflectionKey reports whether reflection is disabled for key.
func (c *Conn) QueryReflectionKey(ctx context.Context, key registry.Handle) (bool, error) {
	var resp protocol.BoolResponse
	err := c.roundTrip(ctx, protocol.OpQueryReflectionKey, &protocol.KeyRequest{Key: key}, &resp)
	return resp.Value, err
}

// input converts the strings of one request, keeping the first failure.
type input struct {
	err error
}

// wide maps the empty string to an absent one, which is how the wire carries
// both.
func (in *input) wide(s string) registry.Wide {
	if s == "" || in.err != nil {
		return nil
	}

	w, err := registry.NewWide(s)
	if err != nil {
		in.err = fmt.Errorf("converting %q: %w", s, err)
	}

	return w
}

// filetimeEpoch is 1970-01-01 in 100ns units since 1601-01-01.
const filetimeEpoch = 116444736000000000

func filetimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}

	return time.Unix(0, (int64(ft)-filetimeEpoch)*100).UTC()
}

var _ Stream = (*transport.Conn)(nil)
