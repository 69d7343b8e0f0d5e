package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// HiveVersion is written into every saved hive and checked on load.
const HiveVersion = 1

var ErrBadHive = errors.New("storage: malformed hive")

// Value is a single registry value inside a saved hive.
type Value struct {
	Name string
	Type uint32
	Data []byte
}

// Key is a registry key and everything under it, as written by SaveKey.
type Key struct {
	Name string

	// LastWrite is a FILETIME.
	LastWrite uint64

	Values  []Value
	SubKeys []*Key
}

// Marshal renders a hive as a JSON document. Value data is base64 encoded.
func Marshal(k *Key) ([]byte, error) {
	doc, err := sjson.SetBytes([]byte("{}"), "version", HiveVersion)
	if err != nil {
		return nil, err
	}

	raw, err := marshalKey(k)
	if err != nil {
		return nil, err
	}

	return sjson.SetRawBytes(doc, "root", raw)
}

func marshalKey(k *Key) (doc []byte, err error) {
	doc = []byte(`{"values":[],"subkeys":[]}`)

	if doc, err = sjson.SetBytes(doc, "name", k.Name); err != nil {
		return nil, err
	}

	if doc, err = sjson.SetBytes(doc, "lastWrite", strconv.FormatUint(k.LastWrite, 10)); err != nil {
		return nil, err
	}

	for _, v := range k.Values {
		value := []byte("{}")
		if value, err = sjson.SetBytes(value, "name", v.Name); err != nil {
			return nil, err
		}
		if value, err = sjson.SetBytes(value, "type", v.Type); err != nil {
			return nil, err
		}
		if value, err = sjson.SetBytes(value, "data", base64.StdEncoding.EncodeToString(v.Data)); err != nil {
			return nil, err
		}

		if doc, err = sjson.SetRawBytes(doc, "values.-1", value); err != nil {
			return nil, err
		}
	}

	for _, sub := range k.SubKeys {
		raw, err := marshalKey(sub)
		if err != nil {
			return nil, err
		}

		if doc, err = sjson.SetRawBytes(doc, "subkeys.-1", raw); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

// Unmarshal parses a document produced by Marshal.
func Unmarshal(data []byte) (*Key, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrBadHive)
	}

	doc := gjson.ParseBytes(data)
	if v := doc.Get("version").Int(); v != HiveVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadHive, v)
	}

	root := doc.Get("root")
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: missing root key", ErrBadHive)
	}

	return unmarshalKey(root)
}

func unmarshalKey(r gjson.Result) (*Key, error) {
	lastWrite, err := strconv.ParseUint(r.Get("lastWrite").String(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: last write time: %v", ErrBadHive, err)
	}

	k := &Key{
		Name:      r.Get("name").String(),
		LastWrite: lastWrite,
	}

	r.Get("values").ForEach(func(_, v gjson.Result) bool {
		var data []byte
		data, err = base64.StdEncoding.DecodeString(v.Get("data").String())
		if err != nil {
			err = fmt.Errorf("%w: value %q: %v", ErrBadHive, v.Get("name").String(), err)
			return false
		}

		k.Values = append(k.Values, Value{
			Name: v.Get("name").String(),
			Type: uint32(v.Get("type").Uint()),
			Data: data,
		})
		return true
	})
	if err != nil {
		return nil, err
	}

	r.Get("subkeys").ForEach(func(_, s gjson.Result) bool {
		var sub *Key
		sub, err = unmarshalKey(s)
		if err != nil {
			return false
		}

		k.SubKeys = append(k.SubKeys, sub)
		return true
	})
	if err != nil {
		return nil, err
	}

	return k, nil
}
