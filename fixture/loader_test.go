package fixture_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/fixture"
	"github.com/getpup/pupsourcing-savedobjects/store"
	"github.com/getpup/pupsourcing-savedobjects/store/memory"
)

var _ = Describe("Loader", func() {
	var (
		ctx    context.Context
		fs     afero.Fs
		mem    *memory.Store
		loader *fixture.Loader
	)

	writeFile := func(path, content string) {
		Expect(afero.WriteFile(fs, path, []byte(content), 0o644)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		fs = afero.NewMemMapFs()
		mem = memory.New()
		loader = fixture.NewLoader(fixture.LoaderConfig{
			Fs:     fs,
			Stores: map[string]store.DocumentStore{".siren": mem},
		})
	})

	Describe("LoadScenario", func() {
		It("should parse a YAML manifest", func() {
			writeFile("/s/scenario.yml", "name: a\nentries:\n  - indexName: .siren\n    source: data.ndjson\n")

			s, err := fixture.LoadScenario(fs, "/s/scenario.yml")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Name).To(Equal("a"))
			Expect(s.Dir).To(Equal("/s"))
			Expect(s.Entries).To(ConsistOf(fixture.Entry{IndexName: ".siren", Source: "data.ndjson"}))
		})

		It("should parse a JSON manifest", func() {
			writeFile("/s/scenario.json", `{"entries":[{"indexName":".siren","source":"d.ndjson","haltOnFailure":true}]}`)

			s, err := fixture.LoadScenario(fs, "/s/scenario.json")
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Entries[0].HaltOnFailure).To(BeTrue())
		})

		DescribeTable("should reject invalid manifests",
			func(content string) {
				writeFile("/s/bad.yml", content)
				_, err := fixture.LoadScenario(fs, "/s/bad.yml")
				Expect(err).To(HaveOccurred())
			},
			Entry("empty", ""),
			Entry("no entries", "name: x\n"),
			Entry("missing index name", "entries:\n  - source: a\n"),
			Entry("missing source", "entries:\n  - indexName: a\n"),
		)

		It("should fail on a missing file", func() {
			_, err := fixture.LoadScenario(fs, "/nope.yml")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Load", func() {
		It("should index every document of the source", func() {
			writeFile("/s/scenario.yml", "entries:\n  - indexName: .siren\n    source: data.ndjson\n")
			writeFile("/s/data.ndjson", `{"index":{"_index":".siren","_type":"config","_id":"kibi"}}
{"buildNum":2}
{"index":{"_type":"search","_id":"s1"}}
{"title":"errors"}
`)

			result, err := loader.LoadFile(ctx, "/s/scenario.yml")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(fixture.LoadResult{Indexed: 2}))
			Expect(mem.Len()).To(Equal(2))

			doc, err := mem.Get(ctx, "s1")
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Type).To(Equal(savedobjects.TypeSearch))
		})

		It("should reject an unknown index", func() {
			_, err := loader.Load(ctx, fixture.Scenario{Entries: []fixture.Entry{{IndexName: "other", Source: "x"}}})
			Expect(err).To(MatchError(ContainSubstring(`no store for index "other"`)))
		})

		Context("with an index definition", func() {
			BeforeEach(func() {
				writeFile("/s/index.yml", "types: [config]\n")
				writeFile("/s/data.ndjson", `{"index":{"_type":"config","_id":"kibi"}}
{}
{"index":{"_type":"dashboard","_id":"d1"}}
{}
`)
			})

			It("should halt on an undeclared type when the entry halts", func() {
				_, err := loader.Load(ctx, fixture.Scenario{Dir: "/s", Entries: []fixture.Entry{
					{IndexName: ".siren", IndexDefinition: "index.yml", Source: "data.ndjson", HaltOnFailure: true},
				}})
				Expect(err).To(MatchError(ContainSubstring("not declared by the index")))
				Expect(mem.Len()).To(Equal(0))
			})

			It("should skip an undeclared type otherwise", func() {
				result, err := loader.Load(ctx, fixture.Scenario{Dir: "/s", Entries: []fixture.Entry{
					{IndexName: ".siren", IndexDefinition: "index.yml", Source: "data.ndjson"},
				}})
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(Equal(fixture.LoadResult{Indexed: 1, Failed: 1}))
			})

			It("should reject a definition naming an unknown type", func() {
				writeFile("/s/index.yml", "types: [widget]\n")
				_, err := loader.Load(ctx, fixture.Scenario{Dir: "/s", Entries: []fixture.Entry{
					{IndexName: ".siren", IndexDefinition: "index.yml", Source: "data.ndjson"},
				}})
				Expect(err).To(MatchError(ContainSubstring("invalid index definition")))
			})
		})

		Context("when the store rejects documents", func() {
			var mock *store.MockDocumentStore

			BeforeEach(func() {
				mock = store.NewMockDocumentStore()
				mock.BulkIndexFunc = func(ctx context.Context, docs []savedobjects.Document) ([]store.BulkItem, error) {
					items := make([]store.BulkItem, len(docs))
					for i, d := range docs {
						items[i] = store.BulkItem{ID: d.ID, Version: 1}
						if d.ID == "bad" {
							items[i] = store.BulkItem{ID: d.ID, Err: errors.New("mapper_parsing_exception")}
						}
					}
					return items, nil
				}
				loader = fixture.NewLoader(fixture.LoaderConfig{Fs: fs, Stores: map[string]store.DocumentStore{".siren": mock}})
				writeFile("/s/data.ndjson", `{"index":{"_type":"config","_id":"bad"}}
{}
{"index":{"_type":"config","_id":"good"}}
{}
`)
			})

			It("should halt when the entry halts", func() {
				result, err := loader.Load(ctx, fixture.Scenario{Dir: "/s", Entries: []fixture.Entry{
					{IndexName: ".siren", Source: "data.ndjson", HaltOnFailure: true},
				}})
				Expect(err).To(MatchError(ContainSubstring("mapper_parsing_exception")))
				Expect(result.Failed).To(Equal(1))
			})

			It("should count the failure otherwise", func() {
				result, err := loader.Load(ctx, fixture.Scenario{Dir: "/s", Entries: []fixture.Entry{
					{IndexName: ".siren", Source: "data.ndjson"},
				}})
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(Equal(fixture.LoadResult{Indexed: 1, Failed: 1}))
			})

			It("should fail when the store is down", func() {
				mock.BulkIndexFunc = func(ctx context.Context, docs []savedobjects.Document) ([]store.BulkItem, error) {
					return nil, store.Unavailable("bulk index", errors.New("connection refused"))
				}
				_, err := loader.Load(ctx, fixture.Scenario{Dir: "/s", Entries: []fixture.Entry{
					{IndexName: ".siren", Source: "data.ndjson"},
				}})
				Expect(errors.Is(err, savedobjects.ErrStoreUnavailable)).To(BeTrue())
			})
		})
	})
})
