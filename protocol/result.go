package protocol

import (
	"github.com/luma/regbridge/registry"
)

// Result is the envelope that ends every reply. Message is only sent when
// Status is not ErrorSuccess.
type Result struct {
	Status  registry.Status
	Message string
}

func (res *Result) Encode(w *Writer) {
	w.Uint32(uint32(res.Status))
	if !res.Status.OK() {
		w.Text(res.Message)
	}
}

func (res *Result) Decode(r *Reader) error {
	st, err := r.Uint32()
	if err != nil {
		return err
	}

	res.Status = registry.Status(st)
	res.Message = ""
	if res.Status.OK() {
		return nil
	}

	res.Message, err = r.Text()
	return err
}
