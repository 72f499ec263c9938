package fixture_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"github.com/getpup/pupsourcing-savedobjects"
	"github.com/getpup/pupsourcing-savedobjects/builtin"
	"github.com/getpup/pupsourcing-savedobjects/coordinator"
	"github.com/getpup/pupsourcing-savedobjects/executor"
	"github.com/getpup/pupsourcing-savedobjects/fixture"
	"github.com/getpup/pupsourcing-savedobjects/marker"
	"github.com/getpup/pupsourcing-savedobjects/registry"
	"github.com/getpup/pupsourcing-savedobjects/scanner"
	"github.com/getpup/pupsourcing-savedobjects/store"
	"github.com/getpup/pupsourcing-savedobjects/store/memory"
	"github.com/getpup/pupsourcing-savedobjects/store/sqlstore"
)

type backend struct {
	name string
	open func() store.DocumentStore
}

var backends = []backend{
	{"memory", func() store.DocumentStore { return memory.New() }},
	{"sqlite", func() store.DocumentStore {
		db, err := sqlstore.Open(sqlstore.SQLite, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)
		s, err := sqlstore.New(db, sqlstore.SQLite)
		Expect(err).NotTo(HaveOccurred())
		return s
	}},
	{"duckdb", func() store.DocumentStore {
		db, err := sqlstore.Open(sqlstore.DuckDB, ":memory:")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)
		s, err := sqlstore.New(db, sqlstore.DuckDB)
		Expect(err).NotTo(HaveOccurred())
		return s
	}},
}

var _ = Describe("Scenarios", func() {
	for _, b := range backends {
		Context("on the "+b.name+" store", func() {
			var (
				ctx context.Context
				st  store.DocumentStore
			)

			load := func(path string) {
				loader := fixture.NewLoader(fixture.LoaderConfig{
					Fs:     afero.NewBasePathFs(afero.NewOsFs(), "testdata"),
					Stores: map[string]store.DocumentStore{".siren": st},
				})
				_, err := loader.LoadFile(ctx, path)
				Expect(err).NotTo(HaveOccurred())
			}

			run := func(ms ...savedobjects.Migration) (savedobjects.RunReport, error) {
				r, err := registry.New(ms...)
				Expect(err).NotTo(HaveOccurred())
				return coordinator.New(coordinator.Config{Store: st, Registry: r, BatchSize: 1}).Run(ctx)
			}

			get := func(id string) savedobjects.Document {
				doc, err := st.Get(ctx, id)
				Expect(err).NotTo(HaveOccurred())
				return doc
			}

			readMarker := func() int {
				v, err := marker.New(marker.Config{Store: st}).Read(ctx)
				Expect(err).NotTo(HaveOccurred())
				return v
			}

			BeforeEach(func() {
				ctx = context.Background()
				st = b.open()
			})

			It("should replace blank relations and advance the marker", func() {
				load("relations/scenario.yml")

				report, err := run(builtin.RelationsDefaults())
				Expect(err).NotTo(HaveOccurred())
				Expect(report.State).To(Equal(savedobjects.RunStateDone))
				Expect(report.Applied).To(Equal([]int{builtin.RelationsDefaultsID}))

				doc := get(savedobjects.ConfigSentinelID)
				Expect(doc.Attributes).NotTo(HaveKeyWithValue(builtin.RelationsAttribute, ""))
				Expect(doc.Attributes).To(HaveKeyWithValue(builtin.RelationsAttribute, builtin.DefaultRelations))
				Expect(doc.Attributes).To(HaveKeyWithValue("dateFormat:tz", "UTC"))
				Expect(readMarker()).To(Equal(builtin.RelationsDefaultsID))
			})

			It("should normalize source filtering and be a no-op when rerun", func() {
				load("sourcefiltering/scenario.yml")

				_, err := run(builtin.SourceFiltering())
				Expect(err).NotTo(HaveOccurred())

				shapes := map[string]any{}
				for _, id := range []string{"logs-strings", "logs-arrays"} {
					doc := get(id)
					var filters map[string]any
					Expect(json.Unmarshal([]byte(doc.Attributes[builtin.SourceFilteringAttribute].(string)), &filters)).To(Succeed())
					shapes[id] = filters
				}
				Expect(shapes["logs-strings"]).To(Equal(shapes["logs-arrays"]))
				Expect(shapes["logs-strings"]).To(Equal(map[string]any{
					"all": map[string]any{"include": []any{"message"}, "exclude": []any{}},
				}))

				before := map[string]int64{"logs-strings": get("logs-strings").Version, "logs-arrays": get("logs-arrays").Version}
				m := builtin.SourceFiltering()
				m.ID = builtin.SourceFilteringID + 10
				src := scanner.New(scanner.Config{Store: st})
				result, err := executor.New(executor.Config{Store: st}).Apply(ctx, m, src.Scan(ctx, m.Types...))
				Expect(err).NotTo(HaveOccurred())
				Expect(result.Applied).To(Equal(0))
				for id, v := range before {
					Expect(get(id).Version).To(Equal(v))
				}
			})

			It("should consolidate legacy configuration onto the sentinel document", func() {
				load("consolidation/scenario.yml")

				report, err := run(builtin.All()...)
				Expect(err).NotTo(HaveOccurred())
				Expect(report.ToVersion).To(Equal(builtin.ConsolidateConfigID))

				sentinel := get(savedobjects.ConfigSentinelID)
				Expect(sentinel.Attributes).To(HaveKeyWithValue("dateFormat", "YYYY-MM-DD"))
				Expect(sentinel.Attributes).To(HaveKeyWithValue("defaultIndex", "legacy-logs"))
				Expect(sentinel.Attributes).To(HaveKeyWithValue("theme", "legacy"))
				Expect(readMarker()).To(Equal(builtin.ConsolidateConfigID))

				legacy := get("4.6.3")
				Expect(legacy.Attributes).To(HaveKeyWithValue(builtin.ConsolidatedIntoAttribute, savedobjects.ConfigSentinelID))

				again, err := run(builtin.All()...)
				Expect(err).NotTo(HaveOccurred())
				Expect(again.Applied).To(BeEmpty())
			})

			It("should leave the marker below a halting migration", func() {
				load("consolidation/scenario.yml")

				failing := savedobjects.Migration{
					ID:            4,
					Types:         []savedobjects.Type{savedobjects.TypeConfig},
					HaltOnFailure: true,
					Transform: func(doc savedobjects.Document) (*savedobjects.Document, error) {
						return nil, errors.New("unsupported legacy layout")
					},
				}

				report, err := run(append(builtin.All(), failing)...)
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, savedobjects.ErrTransform)).To(BeTrue())
				Expect(report.Halted()).To(BeTrue())
				Expect(report.Failures).To(HaveLen(1))
				Expect(readMarker()).To(Equal(builtin.ConsolidateConfigID))
			})

			It("should keep processing after a skipped failure", func() {
				load("sourcefiltering/scenario.yml")
				_, err := st.Put(ctx, savedobjects.Document{
					ID:         "broken",
					Type:       savedobjects.TypeIndexPattern,
					Attributes: map[string]any{builtin.SourceFilteringAttribute: "{not json"},
				}, 0)
				Expect(err).NotTo(HaveOccurred())

				report, err := run(builtin.All()...)
				Expect(err).NotTo(HaveOccurred())
				Expect(report.Failures).To(HaveLen(1))
				Expect(report.Failures[0].DocumentID).To(Equal("broken"))
				Expect(readMarker()).To(Equal(builtin.ConsolidateConfigID))

				Expect(get("logs-strings").SchemaVersion).To(Equal(builtin.SourceFilteringID))
			})
		})
	}
})
