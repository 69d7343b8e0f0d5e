package protocol

import (
	"github.com/luma/regbridge/registry"
)

// Widen converts a wire string to the registry's native form. The empty wire
// string means "no string" and yields nil, not an empty Wide. Input that is
// not valid UTF-8 yields ErrorNoUnicodeTranslation.
func Widen(s string) (registry.Wide, registry.Status) {
	if s == "" {
		return nil, registry.ErrorSuccess
	}

	w, err := registry.NewWide(s)
	if err != nil {
		st, _ := registry.AsStatus(err)
		return nil, st
	}

	return w, registry.ErrorSuccess
}

// Narrow converts the first n code units of s to the wire encoding. n is
// clamped to the length of s, since the count usually comes from the
// registry rather than from s itself.
func Narrow(s registry.Wide, n int) (string, registry.Status) {
	if n > len(s) {
		n = len(s)
	}

	if n <= 0 {
		return "", registry.ErrorSuccess
	}

	out, err := s[:n].UTF8()
	if err != nil {
		return "", registry.ErrorNoUnicodeTranslation
	}

	return out, registry.ErrorSuccess
}

// WideString sends the first n code units of s as a length-prefixed wire
// string. When s cannot be converted a zero length is sent and the failure
// is returned for the result envelope.
func (w *Writer) WideString(s registry.Wide, n int) registry.Status {
	out, st := Narrow(s, n)
	w.Text(out)
	return st
}

// WideString reads a length-prefixed wire string and converts it. Transport
// failures come back as the error; conversion and size failures are
// recorded on the Reader's Status and yield nil.
func (r *Reader) WideString() (registry.Wide, error) {
	s, err := r.Text()
	if err != nil {
		return nil, err
	}

	w, st := Widen(s)
	r.fail(st)

	return w, nil
}
