package record_test

import (
	"context"

	"github.com/go-test/deep"
	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph/memgraph"
	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/record"
)

type report struct {
	ID      string   `crud:"pk,property:_uuid"`
	Name    string   `crud:"property:name"`
	Enabled bool     `crud:"property:enabled"`
	Type    int      `crud:"property:type"`
	Tags    []string `crud:"property:tags"`
	Notes   string   `crud:"property:notes,omitempty"`
	Ignored string
}

func (report) NodeLabel() string { return "reports" }

type plain struct {
	Key string `crud:"pk,property:key"`
}

type noPK struct {
	Name string `crud:"property:name"`
}

type noProperty struct {
	ID string `crud:"pk"`
}

var _ = Describe("record repository", func() {
	var (
		ctx   context.Context
		store *memgraph.Graph
		repo  *me.Repository[report]
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = memgraph.New()
		repo = Must(me.New[report]())
	})

	Context("tags", func() {
		It("uses the declared label", func() {
			Expect(repo.Label()).To(Equal("reports"))
			Expect(Must(me.New[plain]()).Label()).To(Equal("plain"))
		})

		It("rejects incomplete mappings", func() {
			_, err := me.New[noPK]()
			Expect(err).To(MatchError(ContainSubstring("no primary key")))
			_, err = me.New[noProperty]()
			Expect(err).To(MatchError(ContainSubstring("missing 'property'")))
			_, err = me.New[string]()
			Expect(err).To(HaveOccurred())
		})
	})

	It("generates ids and round trips records", func() {
		r := &report{Name: "inventory", Enabled: true, Type: 2, Tags: []string{"a", "b"}, Ignored: "x"}
		MustBeSuccessful(graph.Update(ctx, store, func(tx graph.Tx) error {
			_, err := repo.Save(ctx, tx, r)
			return err
		}))
		Expect(r.ID).NotTo(BeEmpty())

		MustBeSuccessful(graph.View(ctx, store, func(tx graph.Tx) error {
			found := Must(repo.FindByID(ctx, tx, r.ID))
			expected := *r
			expected.Ignored = ""
			Expect(deep.Equal(found, &expected)).To(BeNil())
			node := Must(repo.FindNode(ctx, tx, r.ID))
			Expect(node.Props).NotTo(HaveKey("notes"))
			return nil
		}))
	})

	It("updates in place and removes omitted values", func() {
		r := &report{Name: "inventory", Notes: "first"}
		MustBeSuccessful(graph.Update(ctx, store, func(tx graph.Tx) error {
			_, err := repo.Save(ctx, tx, r)
			return err
		}))
		r.Name = "renamed"
		r.Notes = ""
		MustBeSuccessful(graph.Update(ctx, store, func(tx graph.Tx) error {
			_, err := repo.Save(ctx, tx, r)
			return err
		}))
		MustBeSuccessful(graph.View(ctx, store, func(tx graph.Tx) error {
			Expect(Must(repo.Count(ctx, tx))).To(Equal(1))
			node := Must(repo.FindNode(ctx, tx, r.ID))
			Expect(node.Name()).To(Equal("renamed"))
			Expect(node.Props).NotTo(HaveKey("notes"))
			return nil
		}))
	})

	It("finds by property and deletes", func() {
		MustBeSuccessful(graph.Update(ctx, store, func(tx graph.Tx) error {
			for _, name := range []string{"a", "b", "a"} {
				if _, err := repo.Save(ctx, tx, &report{Name: name}); err != nil {
					return err
				}
			}
			return nil
		}))
		MustBeSuccessful(graph.Update(ctx, store, func(tx graph.Tx) error {
			list := Must(repo.FindByProperty(ctx, tx, "name", "a"))
			Expect(list).To(HaveLen(2))
			return repo.Delete(ctx, tx, list[0].ID)
		}))
		MustBeSuccessful(graph.View(ctx, store, func(tx graph.Tx) error {
			Expect(Must(repo.FindAll(ctx, tx))).To(HaveLen(2))
			_, err := repo.FindByID(ctx, tx, "unknown")
			Expect(err).To(MatchError(graph.ErrNotFound))
			return nil
		}))
	})
})
