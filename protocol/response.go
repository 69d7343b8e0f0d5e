package protocol

import (
	"github.com/luma/regbridge/registry"
)

// Response is the typed part of a reply, written before the Result envelope.
// Every field is present whatever the status; on failure the fields hold
// zero values.
type Response interface {
	Encode(w *Writer)
	Decode(r *Reader) error
}

// NoResponse is the body of commands that reply with the envelope alone.
type NoResponse struct{}

func (NoResponse) Encode(w *Writer)       {}
func (NoResponse) Decode(r *Reader) error { return nil }

// HandleResponse carries the key produced by an open, create or connect. For
// LOAD_KEY and SAVE_KEY it is always zero.
type HandleResponse struct {
	Key registry.Handle
}

func (p *HandleResponse) Encode(w *Writer) {
	w.Handle(p.Key)
}

func (p *HandleResponse) Decode(r *Reader) (err error) {
	p.Key, err = r.Handle()
	return err
}

// StringResponse carries a key name, an expanded string or a default value.
type StringResponse struct {
	Value string
}

func (p *StringResponse) Encode(w *Writer) {
	w.Text(p.Value)
}

func (p *StringResponse) Decode(r *Reader) (err error) {
	p.Value, err = r.Text()
	return err
}

type EnumValueResponse struct {
	Name string
	Data []byte
	Type registry.ValueType
}

func (p *EnumValueResponse) Encode(w *Writer) {
	w.Text(p.Name)
	w.Blob(p.Data)
	w.Uint32(uint32(p.Type))
}

func (p *EnumValueResponse) Decode(r *Reader) (err error) {
	if p.Name, err = r.Text(); err != nil {
		return err
	}

	if p.Data, err = r.Blob(); err != nil {
		return err
	}

	typ, err := r.Uint32()
	p.Type = registry.ValueType(typ)
	return err
}

type QueryInfoKeyResponse struct {
	SubKeys uint32
	Values  uint32

	// LastWriteTime is a FILETIME.
	LastWriteTime uint64
}

func (p *QueryInfoKeyResponse) Encode(w *Writer) {
	w.Uint32(p.SubKeys)
	w.Uint32(p.Values)
	w.Uint64(p.LastWriteTime)
}

func (p *QueryInfoKeyResponse) Decode(r *Reader) (err error) {
	if p.SubKeys, err = r.Uint32(); err != nil {
		return err
	}

	if p.Values, err = r.Uint32(); err != nil {
		return err
	}

	p.LastWriteTime, err = r.Uint64()
	return err
}

// ValueResponse is the reply to QUERY_VALUE_EX.
type ValueResponse struct {
	Data []byte
	Type registry.ValueType
}

func (p *ValueResponse) Encode(w *Writer) {
	w.Blob(p.Data)
	w.Uint32(uint32(p.Type))
}

func (p *ValueResponse) Decode(r *Reader) (err error) {
	if p.Data, err = r.Blob(); err != nil {
		return err
	}

	typ, err := r.Uint32()
	p.Type = registry.ValueType(typ)
	return err
}

// BoolResponse is a single byte, 1 for true.
type BoolResponse struct {
	Value bool
}

func (p *BoolResponse) Encode(w *Writer) {
	if p.Value {
		w.Byte(1)
	} else {
		w.Byte(0)
	}
}

func (p *BoolResponse) Decode(r *Reader) error {
	b, err := r.Byte()
	p.Value = b != 0
	return err
}

var (
	_ Response = NoResponse{}
	_ Response = (*HandleResponse)(nil)
	_ Response = (*StringResponse)(nil)
	_ Response = (*EnumValueResponse)(nil)
	_ Response = (*QueryInfoKeyResponse)(nil)
	_ Response = (*ValueResponse)(nil)
	_ Response = (*BoolResponse)(nil)
)
