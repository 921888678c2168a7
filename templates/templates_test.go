package templates_test

import (
	"context"

	. "github.com/mandelsoft/goutils/testutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph/memgraph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/objects"
	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/templates"
)

const classes = `
classes:
- name: Router
  parent: InventoryObject
  possibleChildren: [Slot]
  attributes:
  - name: serialNumber
    unique: true
- name: Slot
  parent: InventoryObject
  possibleChildren: [Card]
  possibleSpecialChildren: [Port]
- name: Card
  parent: InventoryObject
  attributes:
  - name: model
    mandatory: true
- name: Port
  parent: InventoryObject
containment:
  DummyRoot: [Router]
`

var _ = Describe("template repository", func() {
	var (
		ctx     context.Context
		catalog *metadata.Catalog
		store   *memgraph.Graph
		repo    *me.Repository
		objs    *objects.Repository
	)

	BeforeEach(func() {
		ctx = context.Background()
		catalog = metadata.New()
		MustBeSuccessful(catalog.Load([]byte(classes)))
		store = memgraph.New()
		repo = me.New(store, catalog)
		objs = objects.New(store, catalog, metadata.NewUniqueIndex(catalog), objects.WithTemplates(repo))
	})

	It("builds template trees following the containment rules", func() {
		tmpl := Must(repo.Create(ctx, "Router", "standard"))
		slot := Must(repo.AddElement(ctx, "Slot", "Router", tmpl, "slot0"))
		_, err := repo.AddElement(ctx, "Port", "Router", tmpl, "p")
		Expect(errs.IsNotPermitted(err)).To(BeTrue())

		ports := Must(repo.AddBulkSpecialElements(ctx, "Port", "Slot", slot, 4, "[mirror(1,2)]"))
		Expect(ports).To(HaveLen(4))
		Expect(Must(repo.SpecialElementChildren(ctx, "Slot", slot))).To(HaveLen(4))
		Expect(Must(repo.ElementChildren(ctx, "Router", tmpl))).To(HaveLen(1))

		list := Must(repo.TemplatesForClass(ctx, "Router"))
		Expect(list).To(HaveLen(1))
		Expect(list[0].Name).To(Equal("standard"))
	})

	It("keeps template elements out of object queries", func() {
		tmpl := Must(repo.Create(ctx, "Router", "standard"))
		Must(repo.AddElement(ctx, "Slot", "Router", tmpl, "slot0"))
		Expect(Must(objs.ObjectsOfClass(ctx, "InventoryObject", 0))).To(BeEmpty())
		_, err := objs.Get(ctx, "Router", tmpl)
		Expect(errs.IsObjectNotFound(err)).To(BeTrue())
	})

	It("spawns isomorphic object trees", func() {
		tmpl := Must(repo.Create(ctx, "Router", "standard"))
		slot := Must(repo.AddElement(ctx, "Slot", "Router", tmpl, "slot0"))
		card := Must(repo.AddElement(ctx, "Card", "Slot", slot, "card0"))
		Must(repo.UpdateElement(ctx, "Card", card, map[string]string{"model": "X1"}))
		Must(repo.AddBulkSpecialElements(ctx, "Port", "Slot", slot, 2, "[mirror(1,1)]"))

		router := Must(objs.Create(ctx, "Router", "", "-1", nil, tmpl))
		Expect(router).NotTo(Equal(tmpl))
		slots := Must(objs.Children(ctx, "Router", router, 0))
		Expect(slots).To(HaveLen(1))
		Expect(slots[0].Name).To(Equal("slot0"))
		Expect(slots[0].ID).NotTo(Equal(slot))

		cards := Must(objs.Children(ctx, "Slot", slots[0].ID, 0))
		Expect(cards).To(HaveLen(1))
		Expect(Must(objs.AttributeValue(ctx, "Card", cards[0].ID, "model"))).To(Equal("X1"))

		ports := Must(objs.SpecialChildren(ctx, "Slot", slots[0].ID, 0))
		Expect(ports).To(HaveLen(2))
		mirror := Must(objs.SpecialAttribute(ctx, "Port", ports[0].ID, graph.RelPropMirror))
		Expect(mirror).To(HaveLen(1))
		Expect(mirror[0].ID).To(Equal(ports[1].ID))
	})

	It("rejects spawning with empty mandatory attributes", func() {
		tmpl := Must(repo.Create(ctx, "Router", "standard"))
		slot := Must(repo.AddElement(ctx, "Slot", "Router", tmpl, "slot0"))
		Must(repo.AddElement(ctx, "Card", "Slot", slot, "card0"))

		_, err := objs.Create(ctx, "Router", "", "-1", nil, tmpl)
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		Expect(Must(objs.ObjectsOfClass(ctx, "InventoryObject", 0))).To(BeEmpty())
	})

	It("reserves unique values of spawned objects", func() {
		tmpl := Must(repo.Create(ctx, "Router", "standard"))
		Must(repo.UpdateElement(ctx, "Router", tmpl, map[string]string{"serialNumber": "SN-T"}))
		Must(objs.Create(ctx, "Router", "", "-1", nil, tmpl))
		_, err := objs.Create(ctx, "Router", "", "-1", nil, tmpl)
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
	})

	It("rejects spawned duplicates with an unloaded unique index", func() {
		tmpl := Must(repo.Create(ctx, "Router", "standard"))
		Must(repo.UpdateElement(ctx, "Router", tmpl, map[string]string{"serialNumber": "SN-T"}))
		Must(objs.Create(ctx, "Router", "", "-1", nil, tmpl))

		fresh := objects.New(store, catalog, metadata.NewUniqueIndex(catalog), objects.WithTemplates(repo))
		_, err := fresh.Create(ctx, "Router", "", "-1", nil, tmpl)
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
		Expect(Must(fresh.ObjectsWithFilter(ctx, "Router", "serialNumber", "SN-T", 0))).To(HaveLen(1))
	})

	It("rejects templates of another class", func() {
		tmpl := Must(repo.Create(ctx, "Slot", "slot"))
		_, err := objs.Create(ctx, "Router", "", "-1", nil, tmpl)
		Expect(errs.IsInvalidArgument(err)).To(BeTrue())
	})

	It("copies and deletes elements", func() {
		tmpl := Must(repo.Create(ctx, "Router", "standard"))
		other := Must(repo.Create(ctx, "Router", "other"))
		slot := Must(repo.AddElement(ctx, "Slot", "Router", tmpl, "slot0"))
		Must(repo.AddElement(ctx, "Card", "Slot", slot, "card0"))

		copies := Must(repo.CopyElements(ctx, []string{"Slot"}, []string{slot}, "Router", other))
		Expect(copies).To(HaveLen(1))
		Expect(Must(repo.ElementChildren(ctx, "Slot", copies[0]))).To(HaveLen(1))
		Expect(Must(repo.GetElement(ctx, "Slot", copies[0])).Name).To(Equal("slot0"))

		MustBeSuccessful(repo.DeleteElement(ctx, "Router", tmpl))
		Expect(Must(repo.TemplatesForClass(ctx, "Router"))).To(HaveLen(1))
		_, err := repo.GetElement(ctx, "Slot", slot)
		Expect(errs.IsApplicationObjectNotFound(err)).To(BeTrue())
		Expect(Must(repo.ElementChildren(ctx, "Slot", copies[0]))).To(HaveLen(1))
	})
})
