package protocol

import (
	"github.com/luma/regbridge/registry"
)

// Request is the body of a command, the bytes that follow its opcode.
//
// Decode consumes exactly the bytes Encode produces, even when a string in
// the body cannot be converted: such failures land on the Reader's Status so
// the stream stays in step with the caller.
type Request interface {
	Encode(w *Writer)
	Decode(r *Reader) error
}

// KeyRequest carries a lone handle: CLOSE_KEY, FLUSH_KEY, QUERY_INFO_KEY and
// the reflection commands.
type KeyRequest struct {
	Key registry.Handle
}

func (q *KeyRequest) Encode(w *Writer) {
	w.Handle(q.Key)
}

func (q *KeyRequest) Decode(r *Reader) (err error) {
	q.Key, err = r.Handle()
	return err
}

// KeyNameRequest is a handle followed by one string. Depending on the
// command the string is a subkey, a value name or a file name.
type KeyNameRequest struct {
	Key  registry.Handle
	Name registry.Wide
}

func (q *KeyNameRequest) Encode(w *Writer) {
	w.Handle(q.Key)
	w.WideString(q.Name, len(q.Name))
}

func (q *KeyNameRequest) Decode(r *Reader) (err error) {
	if q.Key, err = r.Handle(); err != nil {
		return err
	}

	q.Name, err = r.WideString()
	return err
}

type ConnectRegistryRequest struct {
	Key     registry.Handle
	Machine registry.Wide
}

func (q *ConnectRegistryRequest) Encode(w *Writer) {
	w.Handle(q.Key)
	w.WideString(q.Machine, len(q.Machine))
}

func (q *ConnectRegistryRequest) Decode(r *Reader) (err error) {
	if q.Key, err = r.Handle(); err != nil {
		return err
	}

	q.Machine, err = r.WideString()
	return err
}

// KeyAccessRequest is shared by CREATE_KEY_EX, DELETE_KEY_EX, OPEN_KEY and
// OPEN_KEY_EX.
type KeyAccessRequest struct {
	Key      registry.Handle
	Reserved uint32
	Access   registry.Access
	SubKey   registry.Wide
}

func (q *KeyAccessRequest) Encode(w *Writer) {
	w.Handle(q.Key)
	w.Uint32(q.Reserved)
	w.Uint32(uint32(q.Access))
	w.WideString(q.SubKey, len(q.SubKey))
}

func (q *KeyAccessRequest) Decode(r *Reader) error {
	var err error
	if q.Key, err = r.Handle(); err != nil {
		return err
	}

	if q.Reserved, err = r.Uint32(); err != nil {
		return err
	}

	access, err := r.Uint32()
	if err != nil {
		return err
	}
	q.Access = registry.Access(access)

	q.SubKey, err = r.WideString()
	return err
}

// EnumRequest selects the index-th subkey or value.
type EnumRequest struct {
	Key   registry.Handle
	Index uint32
}

func (q *EnumRequest) Encode(w *Writer) {
	w.Handle(q.Key)
	w.Uint32(q.Index)
}

func (q *EnumRequest) Decode(r *Reader) (err error) {
	if q.Key, err = r.Handle(); err != nil {
		return err
	}

	q.Index, err = r.Uint32()
	return err
}

type ExpandRequest struct {
	Source registry.Wide
}

func (q *ExpandRequest) Encode(w *Writer) {
	w.WideString(q.Source, len(q.Source))
}

func (q *ExpandRequest) Decode(r *Reader) (err error) {
	q.Source, err = r.WideString()
	return err
}

type LoadKeyRequest struct {
	Key    registry.Handle
	SubKey registry.Wide
	File   registry.Wide
}

func (q *LoadKeyRequest) Encode(w *Writer) {
	w.Handle(q.Key)
	w.WideString(q.SubKey, len(q.SubKey))
	w.WideString(q.File, len(q.File))
}

func (q *LoadKeyRequest) Decode(r *Reader) (err error) {
	if q.Key, err = r.Handle(); err != nil {
		return err
	}

	if q.SubKey, err = r.WideString(); err != nil {
		return err
	}

	q.File, err = r.WideString()
	return err
}

type SetValueRequest struct {
	Key    registry.Handle
	SubKey registry.Wide
	Value  registry.Wide
}

func (q *SetValueRequest) Encode(w *Writer) {
	w.Handle(q.Key)
	w.WideString(q.SubKey, len(q.SubKey))
	w.WideString(q.Value, len(q.Value))
}

func (q *SetValueRequest) Decode(r *Reader) (err error) {
	if q.Key, err = r.Handle(); err != nil {
		return err
	}

	if q.SubKey, err = r.WideString(); err != nil {
		return err
	}

	q.Value, err = r.WideString()
	return err
}

type SetValueExRequest struct {
	Key  registry.Handle
	Type registry.ValueType
	Name registry.Wide
	Data []byte
}

func (q *SetValueExRequest) Encode(w *Writer) {
	w.Handle(q.Key)
	w.Uint32(uint32(q.Type))
	w.WideString(q.Name, len(q.Name))
	w.Blob(q.Data)
}

func (q *SetValueExRequest) Decode(r *Reader) error {
	var err error
	if q.Key, err = r.Handle(); err != nil {
		return err
	}

	typ, err := r.Uint32()
	if err != nil {
		return err
	}
	q.Type = registry.ValueType(typ)

	if q.Name, err = r.WideString(); err != nil {
		return err
	}

	q.Data, err = r.Blob()
	return err
}

var (
	_ Request = (*KeyRequest)(nil)
	_ Request = (*KeyNameRequest)(nil)
	_ Request = (*ConnectRegistryRequest)(nil)
	_ Request = (*KeyAccessRequest)(nil)
	_ Request = (*EnumRequest)(nil)
	_ Request = (*ExpandRequest)(nil)
	_ Request = (*LoadKeyRequest)(nil)
	_ Request = (*SetValueRequest)(nil)
	_ Request = (*SetValueExRequest)(nil)
)
