package fixture_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/fixture"
)

var _ = Describe("ParseBulk", func() {
	It("should pair action lines with document bodies", func() {
		actions, err := fixture.ParseBulk(strings.NewReader(`
{"index":{"_index":".siren","_type":"config","_id":"kibi"}}
{"buildNum":1,"dateFormat":"YYYY"}

{"index":{"_index":".siren","_type":"dashboard","_id":"d1"}}
{"title":"Overview"}
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(actions).To(HaveLen(2))

		Expect(actions[0].Index).To(Equal(".siren"))
		Expect(actions[0].Document.ID).To(Equal("kibi"))
		Expect(actions[0].Document.Type).To(Equal(savedobjects.TypeConfig))
		Expect(actions[0].Document.Attributes).To(HaveKeyWithValue("buildNum", float64(1)))

		Expect(actions[1].Document.Type).To(Equal(savedobjects.TypeDashboard))
		Expect(actions[1].Document.Attributes).To(HaveKeyWithValue("title", "Overview"))
	})

	It("should accept an empty source", func() {
		actions, err := fixture.ParseBulk(strings.NewReader("\n\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(actions).To(BeEmpty())
	})

	DescribeTable("should reject malformed sources",
		func(source, message string) {
			_, err := fixture.ParseBulk(strings.NewReader(source))
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring(message))
		},
		Entry("missing body", `{"index":{"_type":"config","_id":"kibi"}}`, "has no document body"),
		Entry("unsupported action", `{"delete":{"_id":"kibi"}}`+"\n{}", "unsupported action"),
		Entry("missing id", `{"index":{"_type":"config"}}`+"\n{}", "missing _id"),
		Entry("unknown type", `{"index":{"_type":"widget","_id":"w"}}`+"\n{}", "unknown document type"),
		Entry("invalid action json", "{oops\n{}", "invalid action"),
		Entry("invalid body", `{"index":{"_type":"config","_id":"kibi"}}`+"\n[1,2", "invalid document body"),
		Entry("body is not an object", `{"index":{"_type":"config","_id":"kibi"}}`+"\nnull", "not an object"),
	)
})
