package memgraph_test

import (
	"context"
	"errors"

	"github.com/go-test/deep"
	. "github.com/mandelsoft/goutils/testutils"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph/memgraph"
)

var _ = Describe("in-memory graph", func() {
	var (
		ctx context.Context
		g   *me.Graph
	)

	BeforeEach(func() {
		ctx = context.Background()
		g = me.New()
	})

	Context("transactions", func() {
		It("commits nodes and relationships", func() {
			var a, b *graph.Node
			MustBeSuccessful(graph.Update(ctx, g, func(tx graph.Tx) error {
				a = Must(tx.CreateNode(ctx, graph.Props{"name": "a", "count": 3}, "things"))
				b = Must(tx.CreateNode(ctx, graph.Props{"name": "b"}, "things", "other"))
				_, err := tx.CreateRelationship(ctx, a.ID, b.ID, "LINKS", graph.Props{"name": "x"})
				return err
			}))

			MustBeSuccessful(graph.View(ctx, g, func(tx graph.Tx) error {
				n := Must(tx.GetNode(ctx, a.ID))
				Expect(n.Props["count"]).To(Equal(int64(3)))
				rels := Must(tx.Relationships(ctx, b.ID, graph.Incoming, "LINKS"))
				Expect(rels).To(HaveLen(1))
				Expect(rels[0].Start).To(Equal(a.ID))
				Expect(rels[0].String("name")).To(Equal("x"))
				Expect(Must(tx.Relationships(ctx, b.ID, graph.Outgoing))).To(BeEmpty())
				return nil
			}))
		})

		It("rolls back every change on error", func() {
			var a *graph.Node
			MustBeSuccessful(graph.Update(ctx, g, func(tx graph.Tx) error {
				a = Must(tx.CreateNode(ctx, graph.Props{"name": "a"}, "things"))
				return nil
			}))

			failure := errors.New("fail")
			err := graph.Update(ctx, g, func(tx graph.Tx) error {
				MustBeSuccessful(tx.SetProperties(ctx, a.ID, graph.Props{"name": "changed", "extra": true}))
				b := Must(tx.CreateNode(ctx, graph.Props{"name": "b"}, "things"))
				Must(tx.CreateRelationship(ctx, a.ID, b.ID, "LINKS", nil))
				return failure
			})
			Expect(err).To(MatchError(failure))

			nodes, rels := g.Stats()
			Expect(nodes).To(Equal(1))
			Expect(rels).To(Equal(0))
			MustBeSuccessful(graph.View(ctx, g, func(tx graph.Tx) error {
				n := Must(tx.GetNode(ctx, a.ID))
				Expect(deep.Equal(n.Props, graph.Props{"name": "a"})).To(BeNil())
				return nil
			}))
		})

		It("restores deleted elements on rollback", func() {
			var a, b *graph.Node
			MustBeSuccessful(graph.Update(ctx, g, func(tx graph.Tx) error {
				a = Must(tx.CreateNode(ctx, graph.Props{"name": "a"}, "things"))
				b = Must(tx.CreateNode(ctx, graph.Props{"name": "b"}, "things"))
				_, err := tx.CreateRelationship(ctx, a.ID, b.ID, "LINKS", nil)
				return err
			}))
			err := graph.Update(ctx, g, func(tx graph.Tx) error {
				MustBeSuccessful(graph.DetachDelete(ctx, tx, a.ID))
				return errors.New("abort")
			})
			Expect(err).To(HaveOccurred())
			MustBeSuccessful(graph.View(ctx, g, func(tx graph.Tx) error {
				Expect(Must(tx.Relationships(ctx, a.ID, graph.Both))).To(HaveLen(1))
				Expect(Must(tx.FindNodes(ctx, "things", nil))).To(HaveLen(2))
				return nil
			}))
		})

		It("refuses to delete connected nodes", func() {
			MustBeSuccessful(graph.Update(ctx, g, func(tx graph.Tx) error {
				a := Must(tx.CreateNode(ctx, nil, "things"))
				b := Must(tx.CreateNode(ctx, nil, "things"))
				Must(tx.CreateRelationship(ctx, a.ID, b.ID, "LINKS", nil))
				Expect(tx.DeleteNode(ctx, a.ID)).To(HaveOccurred())
				return nil
			}))
		})

		It("rejects writes in read transactions", func() {
			MustBeSuccessful(graph.View(ctx, g, func(tx graph.Tx) error {
				_, err := tx.CreateNode(ctx, nil, "things")
				Expect(err).To(MatchError(graph.ErrReadOnly))
				return nil
			}))
		})

		It("rejects use after commit", func() {
			tx := Must(g.Begin(ctx, graph.WriteMode))
			MustBeSuccessful(tx.Commit(ctx))
			_, err := tx.CreateNode(ctx, nil, "things")
			Expect(err).To(MatchError(graph.ErrTxClosed))
		})
	})

	Context("lookups", func() {
		BeforeEach(func() {
			MustBeSuccessful(graph.Update(ctx, g, func(tx graph.Tx) error {
				for _, n := range []string{"c", "a", "b"} {
					Must(tx.CreateNode(ctx, graph.Props{"name": n, "kind": "letter"}, "things"))
				}
				Must(tx.CreateNode(ctx, graph.Props{"name": "a", "kind": "other"}, "stuff"))
				return nil
			}))
		})

		It("finds nodes by label and property in creation order", func() {
			MustBeSuccessful(graph.View(ctx, g, func(tx graph.Tx) error {
				list := Must(tx.FindNodes(ctx, "things", graph.Props{"kind": "letter"}))
				Expect(list).To(HaveLen(3))
				Expect(list[0].Name()).To(Equal("c"))
				graph.SortByName(list)
				Expect(list[0].Name()).To(Equal("a"))

				n := Must(tx.FindNode(ctx, "stuff", "name", "a"))
				Expect(n.String("kind")).To(Equal("other"))
				_, err := tx.FindNode(ctx, "stuff", "name", "b")
				Expect(err).To(MatchError(graph.ErrNotFound))
				Expect(Must(tx.FindNodes(ctx, "", graph.Props{"name": "a"}))).To(HaveLen(2))
				return nil
			}))
		})

		It("removes properties set to nil", func() {
			MustBeSuccessful(graph.Update(ctx, g, func(tx graph.Tx) error {
				n := Must(tx.FindNode(ctx, "stuff", "name", "a"))
				MustBeSuccessful(tx.SetProperties(ctx, n.ID, graph.Props{"kind": nil}))
				n = Must(tx.GetNode(ctx, n.ID))
				Expect(n.Props).NotTo(HaveKey("kind"))
				return nil
			}))
		})

		It("rejects unsupported property types", func() {
			MustBeSuccessful(graph.Update(ctx, g, func(tx graph.Tx) error {
				_, err := tx.CreateNode(ctx, graph.Props{"bad": map[string]string{}}, "things")
				Expect(err).To(HaveOccurred())
				return nil
			}))
		})
	})

	Context("snapshots", func() {
		It("round trips typed properties", func() {
			fs := memoryfs.New()
			var id string
			MustBeSuccessful(graph.Update(ctx, g, func(tx graph.Tx) error {
				a := Must(tx.CreateNode(ctx, graph.Props{
					"name":    "a",
					"count":   int64(7),
					"ratio":   0.5,
					"enabled": true,
					"tags":    []string{"x", "y"},
					"blob":    []byte("data"),
				}, "things"))
				b := Must(tx.CreateNode(ctx, graph.Props{"name": "b"}, "things"))
				Must(tx.CreateRelationship(ctx, a.ID, b.ID, "LINKS", graph.Props{"weight": 2}))
				id = a.ID
				return nil
			}))
			MustBeSuccessful(g.Save(fs, "/data/graph.yaml"))

			loaded := Must(me.Load(fs, "/data/graph.yaml"))
			MustBeSuccessful(graph.View(ctx, loaded, func(tx graph.Tx) error {
				n := Must(tx.GetNode(ctx, id))
				Expect(n.Props["count"]).To(Equal(int64(7)))
				Expect(n.Props["ratio"]).To(Equal(0.5))
				Expect(n.Props["enabled"]).To(Equal(true))
				Expect(n.Props["tags"]).To(Equal([]string{"x", "y"}))
				Expect(n.Props["blob"]).To(Equal([]byte("data")))
				rels := Must(tx.Relationships(ctx, id, graph.Outgoing, "LINKS"))
				Expect(rels).To(HaveLen(1))
				Expect(rels[0].Props["weight"]).To(Equal(int64(2)))
				return nil
			}))

			MustBeSuccessful(graph.Update(ctx, loaded, func(tx graph.Tx) error {
				n := Must(tx.CreateNode(ctx, nil, "things"))
				Expect(n.ID).NotTo(Equal(id))
				return nil
			}))
		})

		It("starts empty without snapshot", func() {
			loaded := Must(me.Load(memoryfs.New(), "/missing.yaml"))
			nodes, _ := loaded.Stats()
			Expect(nodes).To(Equal(0))
		})
	})
})
