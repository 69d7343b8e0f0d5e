package registry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// ValueType is the REG_* tag stored alongside registry value data.
type ValueType uint32

const (
	TypeNone                     ValueType = 0
	TypeString                   ValueType = 1
	TypeExpandString             ValueType = 2
	TypeBinary                   ValueType = 3
	TypeDword                    ValueType = 4
	TypeDwordBigEndian           ValueType = 5
	TypeLink                     ValueType = 6
	TypeMultiString              ValueType = 7
	TypeResourceList             ValueType = 8
	TypeFullResourceDescriptor   ValueType = 9
	TypeResourceRequirementsList ValueType = 10
	TypeQword                    ValueType = 11
)

var typeNames = map[ValueType]string{
	TypeNone:                     "REG_NONE",
	TypeString:                   "REG_SZ",
	TypeExpandString:             "REG_EXPAND_SZ",
	TypeBinary:                   "REG_BINARY",
	TypeDword:                    "REG_DWORD",
	TypeDwordBigEndian:           "REG_DWORD_BIG_ENDIAN",
	TypeLink:                     "REG_LINK",
	TypeMultiString:              "REG_MULTI_SZ",
	TypeResourceList:             "REG_RESOURCE_LIST",
	TypeFullResourceDescriptor:   "REG_FULL_RESOURCE_DESCRIPTOR",
	TypeResourceRequirementsList: "REG_RESOURCE_REQUIREMENTS_LIST",
	TypeQword:                    "REG_QWORD",
}

func (t ValueType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("REG_TYPE(%d)", uint32(t))
}

// Access is a REGSAM access mask.
type Access uint32

const (
	KeyQueryValue       Access = 0x0001
	KeySetValue         Access = 0x0002
	KeyCreateSubKey     Access = 0x0004
	KeyEnumerateSubKeys Access = 0x0008
	KeyNotify           Access = 0x0010
	KeyCreateLink       Access = 0x0020
	KeyWow6464Key       Access = 0x0100
	KeyWow6432Key       Access = 0x0200
	KeyWrite            Access = 0x20006
	KeyRead             Access = 0x20019
	KeyExecute          Access = 0x20019
	KeyAllAccess        Access = 0xf003f
)

var (
	ErrValueType = errors.New("registry: value has a different type")
	ErrValueSize = errors.New("registry: value data is too short for its type")
)

// Value is raw registry data together with its type tag.
type Value struct {
	Type ValueType
	Data []byte
}

// StringValue encodes s as a NUL terminated REG_SZ.
func StringValue(s string) (Value, error) {
	return stringValue(TypeString, s)
}

// ExpandStringValue encodes s as a NUL terminated REG_EXPAND_SZ.
func ExpandStringValue(s string) (Value, error) {
	return stringValue(TypeExpandString, s)
}

// MustStringValue is StringValue for literals known to be valid.
func MustStringValue(s string) Value {
	return mustValue(StringValue(s))
}

// MustExpandStringValue is ExpandStringValue for literals known to be valid.
func MustExpandStringValue(s string) Value {
	return mustValue(ExpandStringValue(s))
}

func mustValue(v Value, err error) Value {
	if err != nil {
		panic(err)
	}

	return v
}

func stringValue(t ValueType, s string) (Value, error) {
	w, err := NewWide(s)
	if err != nil {
		return Value{}, err
	}

	return Value{Type: t, Data: Wide(w.Terminated()).Bytes()}, nil
}

// MultiStringValue encodes ss as REG_MULTI_SZ: each string NUL terminated,
// followed by an empty string.
func MultiStringValue(ss []string) (Value, error) {
	var data []byte
	for _, s := range ss {
		w, err := NewWide(s)
		if err != nil {
			return Value{}, err
		}
		data = append(data, Wide(w.Terminated()).Bytes()...)
	}

	data = append(data, 0, 0)
	return Value{Type: TypeMultiString, Data: data}, nil
}

func DwordValue(v uint32) Value {
	data := make([]byte, 4)
	binary.LittleEndian.PutUint32(data, v)
	return Value{Type: TypeDword, Data: data}
}

func QwordValue(v uint64) Value {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, v)
	return Value{Type: TypeQword, Data: data}
}

func BinaryValue(data []byte) Value {
	return Value{Type: TypeBinary, Data: data}
}

// Text decodes REG_SZ, REG_EXPAND_SZ and REG_LINK data. The string ends at
// the first NUL.
func (v Value) Text() (string, error) {
	switch v.Type {
	case TypeString, TypeExpandString, TypeLink:
	default:
		return "", fmt.Errorf("%w: %s is not a string", ErrValueType, v.Type)
	}

	return WideFromBytes(v.Data).CutNul().UTF8()
}

// Strings decodes REG_MULTI_SZ data.
func (v Value) Strings() ([]string, error) {
	if v.Type != TypeMultiString {
		return nil, fmt.Errorf("%w: %s is not a string list", ErrValueType, v.Type)
	}

	s, err := WideFromBytes(v.Data).UTF8()
	if err != nil {
		return nil, err
	}

	s = strings.TrimRight(s, "\x00")
	if s == "" {
		return []string{}, nil
	}

	return strings.Split(s, "\x00"), nil
}

// Uint32 decodes REG_DWORD and REG_DWORD_BIG_ENDIAN data. Empty data reads
// as zero.
func (v Value) Uint32() (uint32, error) {
	if v.Type != TypeDword && v.Type != TypeDwordBigEndian {
		return 0, fmt.Errorf("%w: %s is not a dword", ErrValueType, v.Type)
	}

	switch {
	case len(v.Data) == 0:
		return 0, nil
	case len(v.Data) < 4:
		return 0, ErrValueSize
	case v.Type == TypeDwordBigEndian:
		return binary.BigEndian.Uint32(v.Data), nil
	default:
		return binary.LittleEndian.Uint32(v.Data), nil
	}
}

// Uint64 decodes REG_QWORD data. Empty data reads as zero.
func (v Value) Uint64() (uint64, error) {
	if v.Type != TypeQword {
		return 0, fmt.Errorf("%w: %s is not a qword", ErrValueType, v.Type)
	}

	switch {
	case len(v.Data) == 0:
		return 0, nil
	case len(v.Data) < 8:
		return 0, ErrValueSize
	default:
		return binary.LittleEndian.Uint64(v.Data), nil
	}
}
