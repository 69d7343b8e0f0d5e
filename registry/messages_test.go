package registry_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/regbridge/registry"
)

var _ = Describe("registry / message buffers", func() {
	// message fills buf only when all of text fits.
	message := func(text string, sizes *[]int) func(buf []uint16) (int, registry.Status) {
		w := registry.MustWide(text)

		return func(buf []uint16) (int, registry.Status) {
			*sizes = append(*sizes, len(buf))
			if len(buf) < len(w) {
				return 0, registry.ErrorInsufficientBuffer
			}

			return copy(buf, w), registry.ErrorSuccess
		}
	}

	It("fits short messages in the first buffer", func() {
		var sizes []int

		msg, ok := registry.FormatGrowing(message("Access is denied.\r\n", &sizes))
		Expect(ok).To(BeTrue())
		Expect(msg.UTF8()).To(Equal("Access is denied.\r\n"))
		Expect(sizes).To(Equal([]int{512}))
	})

	It("grows the buffer for long messages", func() {
		var sizes []int
		long := make([]rune, 1500)
		for i := range long {
			long[i] = 'x'
		}

		msg, ok := registry.FormatGrowing(message(string(long), &sizes))
		Expect(ok).To(BeTrue())
		Expect(msg).To(HaveLen(1500))
		Expect(sizes).To(Equal([]int{512, 1024, 2048}))
	})

	It("gives up on other failures and past the largest buffer", func() {
		_, ok := registry.FormatGrowing(func([]uint16) (int, registry.Status) {
			return 0, registry.ErrorInvalidParameter
		})
		Expect(ok).To(BeFalse())

		calls := 0
		_, ok = registry.FormatGrowing(func([]uint16) (int, registry.Status) {
			calls++
			return 0, registry.ErrorInsufficientBuffer
		})
		Expect(ok).To(BeFalse())
		Expect(calls).To(Equal(8))
	})
})
