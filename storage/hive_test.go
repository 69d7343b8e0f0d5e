package storage_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/luma/regbridge/storage"
)

func sampleHive() *storage.Key {
	return &storage.Key{
		Name:      "Software",
		LastWrite: 132537600000000000,
		Values: []storage.Value{
			{Name: "", Type: 1, Data: []byte{'h', 0, 'i', 0, 0, 0}},
			{Name: "Count", Type: 4, Data: []byte{7, 0, 0, 0}},
		},
		SubKeys: []*storage.Key{
			{Name: "Vendor", LastWrite: 1},
			{
				Name: "Tools",
				SubKeys: []*storage.Key{
					{Name: "Nested", Values: []storage.Value{{Name: "Blob", Type: 3, Data: []byte{0xff, 0x00}}}},
				},
			},
		},
	}
}

var _ = Describe("storage / hive", func() {
	It("round trips a key tree", func() {
		data, err := storage.Marshal(sampleHive())
		Expect(err).To(Succeed())

		k, err := storage.Unmarshal(data)
		Expect(err).To(Succeed())
		Expect(k.Name).To(Equal("Software"))
		Expect(k.LastWrite).To(Equal(uint64(132537600000000000)))
		Expect(k.Values).To(Equal(sampleHive().Values))
		Expect(k.SubKeys).To(HaveLen(2))
		Expect(k.SubKeys[1].SubKeys[0].Values[0].Data).To(Equal([]byte{0xff, 0x00}))
	})

	It("keeps subkey order", func() {
		data, err := storage.Marshal(sampleHive())
		Expect(err).To(Succeed())

		k, err := storage.Unmarshal(data)
		Expect(err).To(Succeed())
		Expect(k.SubKeys[0].Name).To(Equal("Vendor"))
		Expect(k.SubKeys[1].Name).To(Equal("Tools"))
	})

	It("rejects documents that are not hives", func() {
		_, err := storage.Unmarshal([]byte(`not json`))
		Expect(err).To(MatchError(storage.ErrBadHive))

		_, err = storage.Unmarshal([]byte(`{"version":99,"root":{}}`))
		Expect(err).To(MatchError(storage.ErrBadHive))

		_, err = storage.Unmarshal([]byte(`{"version":1}`))
		Expect(err).To(MatchError(storage.ErrBadHive))
	})

	It("rejects corrupt value data", func() {
		_, err := storage.Unmarshal([]byte(`{"version":1,"root":{"name":"x","lastWrite":"0","values":[{"name":"v","type":3,"data":"!!"}],"subkeys":[]}}`))
		Expect(err).To(MatchError(storage.ErrBadHive))
	})
})
