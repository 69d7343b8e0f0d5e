package registry

import (
	"encoding/binary"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Wide is a string in the registry API's native UTF-16 encoding, one element
// per code unit and without a terminator. A nil Wide means "no string", which
// is distinct from an empty one.
type Wide []uint16

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// NewWide converts a UTF-8 string to its UTF-16 form. Input that is not valid
// UTF-8 fails with ErrorNoUnicodeTranslation instead of being patched with
// replacement characters.
func NewWide(s string) (Wide, error) {
	if !utf8.ValidString(s) {
		return nil, ErrorNoUnicodeTranslation
	}

	b, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, ErrorNoUnicodeTranslation
	}

	return WideFromBytes(b), nil
}

// MustWide is NewWide for literals known to be valid.
func MustWide(s string) Wide {
	w, err := NewWide(s)
	if err != nil {
		panic(err)
	}

	return w
}

// WideFromBytes reinterprets little endian UTF-16 bytes. A trailing odd byte
// is ignored.
func WideFromBytes(b []byte) Wide {
	w := make(Wide, len(b)/2)
	for i := range w {
		w[i] = binary.LittleEndian.Uint16(b[2*i:])
	}

	return w
}

// Bytes returns the little endian encoding of w.
func (w Wide) Bytes() []byte {
	b := make([]byte, 2*len(w))
	for i, u := range w {
		binary.LittleEndian.PutUint16(b[2*i:], u)
	}

	return b
}

// UTF8 converts w back to UTF-8. Unpaired surrogates become U+FFFD, matching
// what the platform converter does without strict flags.
func (w Wide) UTF8() (string, error) {
	if len(w) == 0 {
		return "", nil
	}

	b, err := utf16le.NewDecoder().Bytes(w.Bytes())
	if err != nil {
		return "", ErrorNoUnicodeTranslation
	}

	return string(b), nil
}

// Terminated returns a NUL terminated copy for APIs taking LPCWSTR.
func (w Wide) Terminated() []uint16 {
	out := make([]uint16, len(w)+1)
	copy(out, w)
	return out
}

// CutNul truncates w at its first NUL code unit.
func (w Wide) CutNul() Wide {
	for i, u := range w {
		if u == 0 {
			return w[:i]
		}
	}

	return w
}

// Equal compares two wide strings code unit by code unit.
func (w Wide) Equal(o Wide) bool {
	if len(w) != len(o) {
		return false
	}

	for i := range w {
		if w[i] != o[i] {
			return false
		}
	}

	return true
}
