package protocol_test

import (
	"bytes"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/types"

	"github.com/luma/regbridge/protocol"
	"github.com/luma/regbridge/registry"
)

func roundTrip(s string) (registry.Wide, registry.Status) {
	w, st := protocol.Widen(s)
	Expect(st).To(Equal(registry.ErrorSuccess))

	out := protocol.NewWriter()
	Expect(out.WideString(w, len(w))).To(Equal(registry.ErrorSuccess))

	r := protocol.ReaderFrom(bytes.NewReader(out.Bytes()), 0)
	back, err := r.WideString()
	Expect(err).To(Succeed())

	return back, r.Status()
}

func beWide(s string) types.GomegaMatcher {
	return WithTransform(func(w registry.Wide) string {
		out, err := w.UTF8()
		Expect(err).To(Succeed())
		return out
	}, Equal(s))
}

var _ = Describe("Codec", func() {
	It("round trips multibyte content", func() {
		for _, s := range []string{"a", `Software\Microsoft`, "日本語", "emoji \U0001F600 key"} {
			back, st := roundTrip(s)
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(back).To(beWide(s))
			Expect(back).To(HaveLen(len(registry.MustWide(s))))
		}
	})

	It("represents the empty string as absent", func() {
		w, st := protocol.Widen("")
		Expect(st).To(Equal(registry.ErrorSuccess))
		Expect(w).To(BeNil())

		back, st := roundTrip("")
		Expect(st).To(Equal(registry.ErrorSuccess))
		Expect(back).To(BeNil())
	})

	It("reports strings that are not UTF-8", func() {
		_, st := protocol.Widen("\xc3\x28")
		Expect(st).To(Equal(registry.ErrorNoUnicodeTranslation))
	})

	It("sends only the requested number of code units", func() {
		out := protocol.NewWriter()
		Expect(out.WideString(registry.Wide{'a', 'b', 0, 'z'}, 2)).To(Equal(registry.ErrorSuccess))

		Expect(out.Bytes()).To(Equal([]byte{2, 0, 0, 0, 'a', 'b'}))
	})

	It("clamps the count to the string", func() {
		s, st := protocol.Narrow(registry.Wide{'a'}, 10)
		Expect(st).To(Equal(registry.ErrorSuccess))
		Expect(s).To(Equal("a"))

		s, _ = protocol.Narrow(nil, 3)
		Expect(s).To(BeEmpty())
	})
})

var _ = Describe("Result", func() {
	It("sends nothing after a zero status", func() {
		w := protocol.NewWriter()
		(&protocol.Result{Status: registry.ErrorSuccess, Message: "ignored"}).Encode(w)

		Expect(w.Bytes()).To(Equal([]byte{0, 0, 0, 0}))
	})

	It("sends the message after a failure", func() {
		w := protocol.NewWriter()
		(&protocol.Result{Status: registry.ErrorFileNotFound, Message: "gone"}).Encode(w)

		Expect(w.Bytes()).To(Equal([]byte{2, 0, 0, 0, 4, 0, 0, 0, 'g', 'o', 'n', 'e'}))

		var res protocol.Result
		Expect(res.Decode(protocol.ReaderFrom(bytes.NewReader(w.Bytes()), 0))).To(Succeed())
		Expect(res).To(Equal(protocol.Result{Status: registry.ErrorFileNotFound, Message: "gone"}))
	})
})

var _ = Describe("Requests", func() {
	It("lays out SET_VALUE_EX as handle, type, name, data", func() {
		w := protocol.NewWriter()
		(&protocol.SetValueExRequest{
			Key:  registry.HandleFromUint64(0x104),
			Type: registry.TypeDword,
			Name: registry.MustWide("n"),
			Data: []byte{1, 0, 0, 0},
		}).Encode(w)

		Expect(w.Bytes()).To(Equal([]byte{
			0x04, 0x01, 0, 0, 0, 0, 0, 0,
			4, 0, 0, 0,
			1, 0, 0, 0, 'n',
			4, 0, 0, 0, 1, 0, 0, 0,
		}))

		var req protocol.SetValueExRequest
		Expect(req.Decode(protocol.ReaderFrom(bytes.NewReader(w.Bytes()), 0))).To(Succeed())
		Expect(req.Key).To(Equal(registry.HandleFromUint64(0x104)))
		Expect(req.Name).To(beWide("n"))
		Expect(req.Data).To(Equal([]byte{1, 0, 0, 0}))
	})

	It("lays out the *_EX key commands as handle, reserved, access, subkey", func() {
		w := protocol.NewWriter()
		(&protocol.KeyAccessRequest{
			Key:      registry.CurrentUser,
			Reserved: 0,
			Access:   registry.KeyRead,
			SubKey:   registry.MustWide("S"),
		}).Encode(w)

		Expect(w.Bytes()).To(Equal([]byte{
			0x01, 0, 0, 0x80, 0, 0, 0, 0,
			0, 0, 0, 0,
			0x19, 0, 0x02, 0,
			1, 0, 0, 0, 'S',
		}))
	})

	It("decodes QUERY_INFO_KEY replies", func() {
		w := protocol.NewWriter()
		(&protocol.QueryInfoKeyResponse{SubKeys: 2, Values: 3, LastWriteTime: 1 << 40}).Encode(w)
		Expect(w.Len()).To(Equal(16))

		var resp protocol.QueryInfoKeyResponse
		Expect(resp.Decode(protocol.ReaderFrom(bytes.NewReader(w.Bytes()), 0))).To(Succeed())
		Expect(resp.LastWriteTime).To(Equal(uint64(1 << 40)))
	})
})
