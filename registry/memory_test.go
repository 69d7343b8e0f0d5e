package registry_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/regbridge/registry"
	"github.com/luma/regbridge/storage"
)

var _ = Describe("registry / Memory", func() {
	var (
		reg *registry.Memory
		env map[string]string
	)

	w := registry.MustWide

	BeforeEach(func() {
		env = map[string]string{"HOME": `C:\Users\me`}
		reg = registry.NewMemory(
			registry.WithEnv(func(name string) (string, bool) {
				v, ok := env[name]
				return v, ok
			}),
			registry.WithClock(func() time.Time { return time.Unix(0, 0) }),
		)
	})

	Describe("keys", func() {
		It("creates intermediate keys and opens them case-insensitively", func() {
			h, st := reg.CreateKey(registry.CurrentUser, w(`Software\Vendor\App`))
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(h.IsZero()).To(BeFalse())
			Expect(h.Predefined()).To(BeFalse())

			o, st := reg.OpenKeyEx(registry.CurrentUser, w(`software\VENDOR`), 0, registry.KeyRead)
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(o).NotTo(Equal(h))
		})

		It("reports missing keys", func() {
			_, st := reg.OpenKeyEx(registry.CurrentUser, w(`Nope`), 0, registry.KeyRead)
			Expect(st).To(Equal(registry.ErrorFileNotFound))
		})

		It("rejects unknown handles and reserved options", func() {
			Expect(reg.CloseKey(registry.HandleFromUint64(0x9999))).To(Equal(registry.ErrorInvalidHandle))

			_, st := reg.CreateKeyEx(registry.CurrentUser, w("x"), 1, registry.KeyAllAccess)
			Expect(st).To(Equal(registry.ErrorInvalidParameter))
		})

		It("closes handles once", func() {
			h, _ := reg.CreateKey(registry.CurrentUser, w("x"))
			Expect(reg.CloseKey(h)).To(Equal(registry.ErrorSuccess))
			Expect(reg.CloseKey(h)).To(Equal(registry.ErrorInvalidHandle))
			Expect(reg.CloseKey(registry.CurrentUser)).To(Equal(registry.ErrorSuccess))
		})

		It("deletes leaf keys only and invalidates their handles", func() {
			h, _ := reg.CreateKey(registry.CurrentUser, w(`a\b`))

			Expect(reg.DeleteKey(registry.CurrentUser, w("a"))).To(Equal(registry.ErrorAccessDenied))
			Expect(reg.DeleteKey(registry.CurrentUser, w(`a\b`))).To(Equal(registry.ErrorSuccess))
			Expect(reg.FlushKey(h)).To(Equal(registry.ErrorKeyDeleted))
			Expect(reg.DeleteKeyEx(registry.CurrentUser, w("a"), registry.KeyWow6464Key, 0)).To(Equal(registry.ErrorSuccess))
		})

		It("enumerates subkeys in creation order", func() {
			reg.CreateKey(registry.CurrentUser, w("first"))
			reg.CreateKey(registry.CurrentUser, w("second"))

			name := make([]uint16, 257)
			n, st := reg.EnumKey(registry.CurrentUser, 1, name)
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(registry.Wide(name[:n]).UTF8()).To(Equal("second"))

			_, st = reg.EnumKey(registry.CurrentUser, 2, name)
			Expect(st).To(Equal(registry.ErrorNoMoreItems))

			_, st = reg.EnumKey(registry.CurrentUser, 0, make([]uint16, 3))
			Expect(st).To(Equal(registry.ErrorMoreData))
		})

		It("connects to the local machine only", func() {
			h, st := reg.ConnectRegistry(nil, registry.LocalMachine)
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(h.IsZero()).To(BeFalse())

			_, st = reg.ConnectRegistry(w(`\\faraway`), registry.LocalMachine)
			Expect(st).To(Equal(registry.ErrorBadNetPath))

			_, st = reg.ConnectRegistry(nil, registry.CurrentUser)
			Expect(st).To(Equal(registry.ErrorInvalidHandle))
		})
	})

	Describe("values", func() {
		var key registry.Handle

		BeforeEach(func() {
			var st registry.Status
			key, st = reg.CreateKey(registry.CurrentUser, w("Values"))
			Expect(st).To(Equal(registry.ErrorSuccess))
		})

		It("stores and reads typed data", func() {
			Expect(reg.SetValueEx(key, w("n"), registry.TypeDword, []byte{1, 0, 0, 0})).To(Equal(registry.ErrorSuccess))

			typ, size, st := reg.QueryValueEx(key, w("N"), nil)
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(typ).To(Equal(registry.TypeDword))
			Expect(size).To(Equal(4))

			_, _, st = reg.QueryValueEx(key, w("n"), make([]byte, 2))
			Expect(st).To(Equal(registry.ErrorMoreData))

			data := make([]byte, 8)
			_, size, st = reg.QueryValueEx(key, w("n"), data)
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(data[:size]).To(Equal([]byte{1, 0, 0, 0}))
		})

		It("deletes values", func() {
			reg.SetValueEx(key, w("gone"), registry.TypeBinary, []byte{1})
			Expect(reg.DeleteValue(key, w("gone"))).To(Equal(registry.ErrorSuccess))
			Expect(reg.DeleteValue(key, w("gone"))).To(Equal(registry.ErrorFileNotFound))
		})

		It("enumerates values and asks for more room when short", func() {
			reg.SetValueEx(key, w("blob"), registry.TypeBinary, make([]byte, 300))

			info, st := reg.EnumValue(key, 0, make([]uint16, 5), make([]byte, 256))
			Expect(st).To(Equal(registry.ErrorMoreData))
			Expect(info.DataLen).To(Equal(300))

			name := make([]uint16, 5)
			info, st = reg.EnumValue(key, 0, name, make([]byte, 512))
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(info.NameLen).To(Equal(4))
			Expect(info.Type).To(Equal(registry.TypeBinary))

			_, st = reg.EnumValue(key, 1, name, nil)
			Expect(st).To(Equal(registry.ErrorNoMoreItems))
		})

		It("sets and reads default values through subkeys", func() {
			Expect(reg.SetValue(key, w("child"), w("hello"))).To(Equal(registry.ErrorSuccess))

			size, st := reg.QueryValue(key, w("child"), nil)
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(size).To(Equal(12))

			buf := make([]uint16, 6)
			_, st = reg.QueryValue(key, w("child"), buf)
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(registry.Wide(buf).CutNul().UTF8()).To(Equal("hello"))

			size, st = reg.QueryValue(key, w(""), nil)
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(size).To(Equal(2))
		})

		It("summarizes the key", func() {
			reg.SetValueEx(key, w("abc"), registry.TypeBinary, make([]byte, 10))
			reg.CreateKey(key, w("sub"))

			info, st := reg.QueryInfoKey(key)
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(info.SubKeys).To(Equal(uint32(1)))
			Expect(info.Values).To(Equal(uint32(1)))
			Expect(info.MaxValueNameLen).To(Equal(uint32(3)))
			Expect(info.MaxValueLen).To(Equal(uint32(10)))
			Expect(info.LastWriteTime).To(Equal(uint64(116444736000000000)))
		})
	})

	Describe("ExpandEnvironmentStrings()", func() {
		expand := func(s string) string {
			n, st := reg.ExpandEnvironmentStrings(w(s), nil)
			Expect(st).To(Equal(registry.ErrorSuccess))

			dst := make([]uint16, n)
			_, st = reg.ExpandEnvironmentStrings(w(s), dst)
			Expect(st).To(Equal(registry.ErrorSuccess))

			out, err := registry.Wide(dst).CutNul().UTF8()
			Expect(err).To(Succeed())
			return out
		}

		It("expands known variables and keeps unknown ones", func() {
			Expect(expand(`%HOME%\docs`)).To(Equal(`C:\Users\me\docs`))
			Expect(expand(`%NOPE%`)).To(Equal(`%NOPE%`))
			Expect(expand(`100% %HOME%`)).To(Equal(`100% C:\Users\me`))
		})

		It("asks for more room when the buffer is short", func() {
			n, st := reg.ExpandEnvironmentStrings(w("%HOME%"), make([]uint16, 4))
			Expect(st).To(Equal(registry.ErrorMoreData))
			Expect(n).To(Equal(12))
		})
	})

	Describe("reflection", func() {
		It("remembers the flag per key", func() {
			h, _ := reg.CreateKey(registry.LocalMachine, w("Software"))
			Expect(reg.DisableReflectionKey(h)).To(Equal(registry.ErrorSuccess))

			disabled, st := reg.QueryReflectionKey(h)
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(disabled).To(BeTrue())

			Expect(reg.EnableReflectionKey(h)).To(Equal(registry.ErrorSuccess))
			Expect(reg.QueryReflectionKey(h)).To(BeFalse())
		})
	})

	Describe("SaveKey() / LoadKey()", func() {
		It("saves a key tree and loads it under another root", func() {
			store := storage.NewInmemoryStore()
			reg = registry.NewMemory(registry.WithStore(store))

			h, _ := reg.CreateKey(registry.CurrentUser, w(`Saved\Inner`))
			reg.SetValueEx(h, w("v"), registry.TypeDword, []byte{9, 0, 0, 0})
			saved, _ := reg.OpenKeyEx(registry.CurrentUser, w("Saved"), 0, registry.KeyRead)

			Expect(reg.SaveKey(saved, w("hive"))).To(Equal(registry.ErrorSuccess))
			Expect(reg.SaveKey(saved, w("hive"))).To(Equal(registry.ErrorAlreadyExists))

			Expect(reg.LoadKey(registry.Users, w("Loaded"), w("hive"))).To(Equal(registry.ErrorSuccess))
			Expect(reg.LoadKey(registry.Users, w("Loaded"), w("hive"))).To(Equal(registry.ErrorAccessDenied))
			Expect(reg.LoadKey(registry.CurrentUser, w("X"), w("hive"))).To(Equal(registry.ErrorInvalidParameter))
			Expect(reg.LoadKey(registry.Users, w("Y"), w("missing"))).To(Equal(registry.ErrorFileNotFound))

			inner, st := reg.OpenKeyEx(registry.Users, w(`Loaded\Inner`), 0, registry.KeyRead)
			Expect(st).To(Equal(registry.ErrorSuccess))

			data := make([]byte, 4)
			typ, _, st := reg.QueryValueEx(inner, w("v"), data)
			Expect(st).To(Equal(registry.ErrorSuccess))
			Expect(typ).To(Equal(registry.TypeDword))
			Expect(data).To(Equal([]byte{9, 0, 0, 0}))
		})
	})

	Describe("FormatMessage()", func() {
		It("returns system style text", func() {
			msg, ok := reg.FormatMessage(registry.ErrorNoMoreItems)
			Expect(ok).To(BeTrue())
			Expect(msg.UTF8()).To(Equal("No more data is available.\r\n"))

			_, ok = reg.FormatMessage(registry.Status(0xdead))
			Expect(ok).To(BeFalse())
		})
	})
})
