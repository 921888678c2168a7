package metadata_test

import (
	"context"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph/memgraph"
	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
)

var _ = Describe("unique index", func() {
	var (
		ctx   context.Context
		c     *me.Catalog
		store *memgraph.Graph
		index *me.UniqueIndex
	)

	BeforeEach(func() {
		ctx = context.Background()
		c = me.New()
		MustBeSuccessful(c.Load([]byte(classes)))
		store = memgraph.New()
		index = me.NewUniqueIndex(c)
	})

	createRouter := func(id, serial string) {
		MustBeSuccessful(graph.Update(ctx, store, func(tx graph.Tx) error {
			cls := Must(c.ClassNode(ctx, tx, "Router"))
			n := Must(tx.CreateNode(ctx, graph.Props{graph.PropUUID: id, "serialNumber": serial}, graph.LabelInventoryObjects))
			_, err := tx.CreateRelationship(ctx, n.ID, cls.ID, graph.RelInstanceOf, nil)
			return err
		}))
	}

	It("loads existing values from the store", func() {
		createRouter("r1", "SN1")
		MustBeSuccessful(graph.View(ctx, store, func(tx graph.Tx) error {
			Expect(Must(index.Owner(ctx, tx, "Router", "serialNumber", "SN1"))).To(Equal("r1"))
			uc := index.Begin()
			defer uc.Abort()
			Expect(errs.IsInvalidArgument(uc.Reserve(ctx, tx, "Router", "serialNumber", "SN1", "r2"))).To(BeTrue())
			MustBeSuccessful(uc.Reserve(ctx, tx, "Router", "serialNumber", "SN1", "r1"))
			return nil
		}))
	})

	It("makes reservations visible immediately", func() {
		MustBeSuccessful(graph.View(ctx, store, func(tx graph.Tx) error {
			first := index.Begin()
			MustBeSuccessful(first.Reserve(ctx, tx, "Router", "serialNumber", "SN2", "a"))
			first.Commit()
			second := index.Begin()
			Expect(second.Reserve(ctx, tx, "Router", "serialNumber", "SN2", "b")).NotTo(Succeed())
			second.Abort()
			return nil
		}))
	})

	It("frees values on commit only", func() {
		createRouter("r1", "SN1")
		MustBeSuccessful(graph.View(ctx, store, func(tx graph.Tx) error {
			uc := index.Begin()
			uc.Free("Router", "serialNumber", "SN1", "r1")
			Expect(Must(index.Owner(ctx, tx, "Router", "serialNumber", "SN1"))).To(Equal("r1"))
			uc.Commit()
			Expect(Must(index.Owner(ctx, tx, "Router", "serialNumber", "SN1"))).To(Equal(""))
			return nil
		}))
	})

	It("reloads touched attributes after an abort", func() {
		MustBeSuccessful(graph.View(ctx, store, func(tx graph.Tx) error {
			uc := index.Begin()
			MustBeSuccessful(uc.Reserve(ctx, tx, "Router", "serialNumber", "SN3", "x"))
			uc.Abort()
			Expect(Must(index.Owner(ctx, tx, "Router", "serialNumber", "SN3"))).To(Equal(""))
			return nil
		}))
	})

	It("rejects values duplicated inside the loading transaction", func() {
		createRouter("r1", "SN1")
		createRouter("r2", "SN1")
		MustBeSuccessful(graph.View(ctx, store, func(tx graph.Tx) error {
			uc := index.Begin()
			defer uc.Abort()
			Expect(errs.IsInvalidArgument(uc.Reserve(ctx, tx, "Router", "serialNumber", "SN1", "r2"))).To(BeTrue())
			Expect(errs.IsInvalidArgument(uc.Reserve(ctx, tx, "Router", "serialNumber", "SN1", "r1"))).To(BeTrue())
			return nil
		}))
	})

	It("keeps the remaining holder when one is freed", func() {
		createRouter("r1", "SN1")
		createRouter("r2", "SN1")
		MustBeSuccessful(graph.View(ctx, store, func(tx graph.Tx) error {
			uc := index.Begin()
			Expect(Must(index.Owner(ctx, tx, "Router", "serialNumber", "SN1"))).NotTo(BeEmpty())
			uc.Free("Router", "serialNumber", "SN1", "r2")
			uc.Commit()
			Expect(Must(index.Owner(ctx, tx, "Router", "serialNumber", "SN1"))).To(Equal("r1"))
			return nil
		}))
	})
})
