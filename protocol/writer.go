package protocol

import (
	"bytes"
	"encoding/binary"

	"github.com/luma/regbridge/registry"
)

// Writer accumulates one message so it can be sent with a single call.
type Writer struct {
	buf     bytes.Buffer
	scratch [8]byte
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

func (w *Writer) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(w.scratch[:4], v)
	w.buf.Write(w.scratch[:4])
}

func (w *Writer) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(w.scratch[:8], v)
	w.buf.Write(w.scratch[:8])
}

func (w *Writer) Handle(h registry.Handle) {
	w.Uint64(h.Uint64())
}

// Blob writes a 4-byte length followed by b.
func (w *Writer) Blob(b []byte) {
	w.Uint32(uint32(len(b)))
	w.buf.Write(b)
}

// Text writes s as a length-prefixed string. The empty string is sent as a
// bare zero length.
func (w *Writer) Text(s string) {
	w.Uint32(uint32(len(s)))
	w.buf.WriteString(s)
}

// Raw appends b without a length prefix.
func (w *Writer) Raw(b []byte) {
	w.buf.Write(b)
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) Len() int {
	return w.buf.Len()
}

func (w *Writer) Reset() {
	w.buf.Reset()
}
