package types_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/k8snetworkplumbingwg/tc-shaper/pkg/tc/types"
)

var _ = Describe("Handle tests", func() {
	Describe("ParseHandle", func() {
		DescribeTable("parses valid handles", func(in string, major, minor uint16) {
			h, err := types.ParseHandle(in)
			Expect(err).ToNot(HaveOccurred())
			Expect(h.Major).To(Equal(major))
			Expect(h.Minor).To(Equal(minor))
		},
			Entry("major and minor", "1:1", uint16(1), uint16(1)),
			Entry("major with empty minor", "5:", uint16(5), uint16(0)),
			Entry("major only", "8", uint16(8), uint16(0)),
			Entry("explicit zero minor", "1:0", uint16(1), uint16(0)),
			Entry("hexadecimal fields", "10:1", uint16(0x10), uint16(0x1)),
			Entry("hex digits", "ffff:fff1", uint16(0xffff), uint16(0xfff1)),
			Entry("0x prefixed major", "0xa4", uint16(0xa4), uint16(0)),
			Entry("0X prefixed fields", "0X1F:0x2", uint16(0x1f), uint16(0x2)),
		)

		DescribeTable("rejects invalid handles", func(in string) {
			_, err := types.ParseHandle(in)
			Expect(err).To(HaveOccurred())
			Expect(err).To(MatchError(types.ErrInvalidHandle))
		},
			Entry("empty string", ""),
			Entry("empty major", ":1"),
			Entry("lone colon", ":"),
			Entry("too many fields", "1:2:3"),
			Entry("major out of range", "10000:0"),
			Entry("major out of range with empty minor", "ffff0:"),
			Entry("minor out of range", "1:10000"),
			Entry("non hex major", "zz:1"),
			Entry("negative field", "-1:0"),
			Entry("embedded space", "1 :0"),
		)

		It("keeps partial and hex forms distinct", func() {
			partial := types.MustParseHandle("5:")
			hexForm := types.MustParseHandle("0xa4")
			Expect(partial).To(Equal(types.NewHandle(5, 0)))
			Expect(hexForm).To(Equal(types.NewHandle(0xa4, 0)))
			Expect(partial.Equals(hexForm)).To(BeFalse())
		})
	})

	Describe("String", func() {
		DescribeTable("formats canonical major:minor", func(h types.Handle, expected string) {
			Expect(h.String()).To(Equal(expected))
		},
			Entry("root handle", types.NewHandle(1, 0), "1:0"),
			Entry("class handle", types.NewHandle(1, 10), "1:a"),
			Entry("max fields", types.NewHandle(0xffff, 0xfff1), "ffff:fff1"),
		)

		DescribeTable("round-trips through ParseHandle", func(h types.Handle) {
			parsed, err := types.ParseHandle(h.String())
			Expect(err).ToNot(HaveOccurred())
			Expect(parsed).To(Equal(h))
		},
			Entry("zero", types.Handle{}),
			Entry("typical", types.NewHandle(1, 1)),
			Entry("hex digits", types.NewHandle(0xa4, 0x1f)),
			Entry("max", types.NewHandle(0xffff, 0xffff)),
		)
	})

	Describe("IsRoot", func() {
		It("is true only for a zero minor", func() {
			Expect(types.NewHandle(1, 0).IsRoot()).To(BeTrue())
			Expect(types.NewHandle(1, 1).IsRoot()).To(BeFalse())
		})
	})
})
