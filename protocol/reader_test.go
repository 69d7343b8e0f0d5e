package protocol_test

import (
	"bytes"
	"io"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/regbridge/protocol"
	"github.com/luma/regbridge/registry"
)

var _ = Describe("Reader", func() {
	It("decodes little endian fields", func() {
		r := protocol.ReaderFrom(bytes.NewReader([]byte{
			0x07,
			0x01, 0x02, 0x03, 0x04,
			0x02, 0x00, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00,
		}), 0)

		Expect(r.Byte()).To(Equal(byte(7)))
		Expect(r.Uint32()).To(Equal(uint32(0x04030201)))
		Expect(r.Handle()).To(Equal(registry.LocalMachine))
	})

	It("returns nil for a zero length blob", func() {
		r := protocol.ReaderFrom(bytes.NewReader([]byte{0, 0, 0, 0}), 0)

		b, err := r.Blob()
		Expect(err).To(Succeed())
		Expect(b).To(BeNil())
	})

	It("fails with the transport error when the stream ends early", func() {
		r := protocol.ReaderFrom(bytes.NewReader([]byte{5, 0, 0, 0, 'a', 'b'}), 0)

		_, err := r.Text()
		Expect(err).To(MatchError(io.ErrUnexpectedEOF))
	})

	Describe("oversized payloads", func() {
		It("skips the payload and records out of memory", func() {
			w := protocol.NewWriter()
			w.Blob(bytes.Repeat([]byte{'x'}, 10000))
			w.Uint32(42)

			r := protocol.ReaderFrom(bytes.NewReader(w.Bytes()), 16)

			b, err := r.Blob()
			Expect(err).To(Succeed())
			Expect(b).To(BeNil())

			By("staying aligned on the next field")
			Expect(r.Uint32()).To(Equal(uint32(42)))

			Expect(r.Status()).To(Equal(registry.ErrorOutOfMemory))
			Expect(r.Status()).To(Equal(registry.ErrorSuccess))
		})

		It("keeps the first failure", func() {
			w := protocol.NewWriter()
			w.Text("\xff\xfe")
			w.Blob(make([]byte, 64))

			r := protocol.ReaderFrom(bytes.NewReader(w.Bytes()), 16)

			_, err := r.WideString()
			Expect(err).To(Succeed())
			_, err = r.Blob()
			Expect(err).To(Succeed())

			Expect(r.Status()).To(Equal(registry.ErrorNoUnicodeTranslation))
		})
	})
})

var _ = Describe("Writer", func() {
	It("frames strings with a length prefix", func() {
		w := protocol.NewWriter()
		w.Text("abc")

		Expect(w.Bytes()).To(Equal([]byte{3, 0, 0, 0, 'a', 'b', 'c'}))
	})

	It("sends the empty string as a bare zero length", func() {
		w := protocol.NewWriter()
		w.Text("")
		w.Blob(nil)

		Expect(w.Bytes()).To(Equal([]byte{0, 0, 0, 0, 0, 0, 0, 0}))
	})

	It("can be reset between messages", func() {
		w := protocol.NewWriter()
		w.Uint64(1)
		w.Reset()

		Expect(w.Len()).To(Equal(0))
	})
})
