package protocol

import (
	"encoding/binary"
	"io"

	"github.com/luma/regbridge/registry"
)

// drainChunk bounds the scratch buffer used to skip oversized payloads.
const drainChunk = 4096

// Receiver is the blocking input a Reader consumes. ReceiveInto fills p
// completely or fails.
type Receiver interface {
	ReceiveInto(p []byte) error
}

type ioReceiver struct {
	r io.Reader
}

func (i ioReceiver) ReceiveInto(p []byte) error {
	_, err := io.ReadFull(i.r, p)
	return err
}

// Reader decodes the little endian fields of a request or response.
//
// Errors returned by its methods come from the Receiver and mean the stream
// is gone. A length-prefixed payload larger than the configured maximum is
// not an error of that kind: its bytes are consumed and discarded, an empty
// value is returned and ErrorOutOfMemory is recorded for Status. The stream
// therefore stays aligned on the next field.
type Reader struct {
	src        Receiver
	maxPayload int
	status     registry.Status
	scratch    [8]byte
}

// NewReader reads from src. A maxPayload of zero or less disables the
// payload limit.
func NewReader(src Receiver, maxPayload int) *Reader {
	return &Reader{src: src, maxPayload: maxPayload}
}

// ReaderFrom adapts a plain io.Reader.
func ReaderFrom(r io.Reader, maxPayload int) *Reader {
	return NewReader(ioReceiver{r}, maxPayload)
}

// Status returns the first payload failure recorded since the last call and
// clears it.
func (r *Reader) Status() registry.Status {
	st := r.status
	r.status = registry.ErrorSuccess
	return st
}

func (r *Reader) fail(st registry.Status) {
	if r.status.OK() {
		r.status = st
	}
}

func (r *Reader) fixed(n int) ([]byte, error) {
	b := r.scratch[:n]
	if err := r.src.ReceiveInto(b); err != nil {
		return nil, err
	}

	return b, nil
}

func (r *Reader) Byte() (byte, error) {
	b, err := r.fixed(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (r *Reader) Uint32() (uint32, error) {
	b, err := r.fixed(4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) Uint64() (uint64, error) {
	b, err := r.fixed(8)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) Handle() (registry.Handle, error) {
	v, err := r.Uint64()
	return registry.HandleFromUint64(v), err
}

// Blob reads a 4-byte length followed by that many bytes. A zero length
// yields nil.
func (r *Reader) Blob() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil || n == 0 {
		return nil, err
	}

	if r.maxPayload > 0 && uint64(n) > uint64(r.maxPayload) {
		r.fail(registry.ErrorOutOfMemory)
		return nil, r.drain(int64(n))
	}

	b := make([]byte, n)
	if err := r.src.ReceiveInto(b); err != nil {
		return nil, err
	}

	return b, nil
}

// Text reads a length-prefixed string in wire encoding. The bytes are not
// validated here; see Widen.
func (r *Reader) Text() (string, error) {
	b, err := r.Blob()
	return string(b), err
}

func (r *Reader) drain(n int64) error {
	buf := make([]byte, drainChunk)
	for n > 0 {
		chunk := buf
		if n < int64(len(chunk)) {
			chunk = chunk[:n]
		}

		if err := r.src.ReceiveInto(chunk); err != nil {
			return err
		}
		n -= int64(len(chunk))
	}

	return nil
}
