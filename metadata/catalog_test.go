package metadata_test

import (
	"context"

	. "github.com/mandelsoft/goutils/testutils"
	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph/memgraph"
	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
)

const classes = `
classes:
- name: GenericLocation
  parent: InventoryObject
  abstract: true
- name: City
  parent: GenericLocation
  possibleChildren: [Building]
- name: Building
  parent: GenericLocation
  possibleChildren: [GenericCommunicationsElement]
- name: EquipmentVendor
  parent: GenericObjectList
- name: GenericCommunicationsElement
  parent: InventoryObject
  abstract: true
  attributes:
  - name: vendor
    type: EquipmentVendor
- name: Router
  parent: GenericCommunicationsElement
  attributes:
  - name: serialNumber
    mandatory: true
    unique: true
  - name: ports
    type: Integer
- name: Switch
  parent: GenericCommunicationsElement
  possibleSpecialChildren: [Router]
containment:
  DummyRoot: [City]
`

var _ = Describe("class catalog", func() {
	var c *me.Catalog

	BeforeEach(func() {
		c = me.New()
		MustBeSuccessful(c.Load([]byte(classes)))
	})

	It("knows the built-in hierarchy", func() {
		Expect(c.IsSubclassOf(me.RootObject, me.InventoryObject)).To(BeTrue())
		Expect(c.IsSubclassOf(me.InventoryObject, me.GenericCustomer)).To(BeTrue())
		Expect(c.IsSubclassOf(me.InventoryObject, me.GenericObjectList)).To(BeFalse())
	})

	It("merges inherited attributes", func() {
		cls := Must(c.GetClass("Router"))
		var names []string
		for _, a := range cls.Attributes {
			names = append(names, a.Name)
		}
		Expect(names).To(Equal([]string{"name", "creationDate", "vendor", "serialNumber", "ports"}))
		Expect(cls.Attribute("serialNumber").Type).To(Equal(me.TypeString))
		Expect(Must(c.DeclaringClass("Router", "vendor"))).To(Equal("GenericCommunicationsElement"))
		Expect(Must(c.Attribute("Router", "ports")).Type).To(Equal(me.TypeInteger))
	})

	It("reports unknown metadata", func() {
		_, err := c.GetClass("Nope")
		Expect(errs.IsMetadataNotFound(err)).To(BeTrue())
		_, err = c.Attribute("Router", "nope")
		Expect(errs.IsMetadataNotFound(err)).To(BeTrue())
	})

	It("validates new classes", func() {
		Expect(errs.IsInvalidArgument(c.AddClass(&me.Class{Name: "Router", Parent: me.InventoryObject}))).To(BeTrue())
		Expect(errs.IsMetadataNotFound(c.AddClass(&me.Class{Name: "X", Parent: "Unknown"}))).To(BeTrue())
		Expect(errs.IsInvalidArgument(c.AddClass(&me.Class{Name: "bad name", Parent: me.InventoryObject}))).To(BeTrue())
		Expect(errs.IsInvalidArgument(c.AddClass(&me.Class{Name: "Y", Parent: "Router",
			Attributes: []*me.Attribute{{Name: "serialNumber"}}}))).To(BeTrue())
		Expect(errs.IsInvalidArgument(c.AddClass(&me.Class{Name: "Z", Parent: "Router",
			Attributes: []*me.Attribute{{Name: "color", Type: "Router"}}}))).To(BeTrue())
	})

	It("expands abstract possible children", func() {
		Expect(Must(c.PossibleChildren("Building"))).To(Equal([]string{"Router", "Switch"}))
		Expect(Must(c.PossibleChildren(""))).To(Equal([]string{"City"}))
		Expect(Must(c.PossibleChildren("Router"))).To(BeEmpty())
		Expect(c.CanBeChild("Building", "Router")).To(BeTrue())
		Expect(c.CanBeChild("City", "Router")).To(BeFalse())
		Expect(c.CanBeChild(me.DummyRoot, "City")).To(BeTrue())
		Expect(c.CanBeSpecialChild("Switch", "Router")).To(BeTrue())
		Expect(c.CanBeSpecialChild("Router", "Switch")).To(BeFalse())
	})

	It("does not inherit containment", func() {
		MustBeSuccessful(c.AddClass(&me.Class{Name: "Village", Parent: "City"}))
		Expect(c.CanBeChild("Village", "Building")).To(BeFalse())
	})

	It("lists list types", func() {
		Expect(c.IsListType("EquipmentVendor")).To(BeTrue())
		Expect(c.InstanceableListTypes()).To(Equal([]string{"EquipmentVendor"}))
		Expect(c.Subclasses("GenericCommunicationsElement", false)).To(Equal([]string{"Router", "Switch"}))
	})

	It("loads class documents from a filesystem", func() {
		fs := memoryfs.New()
		MustBeSuccessful(vfs.WriteFile(fs, "/classes.yaml", []byte(`
classes:
- name: Room
  parent: InventoryObject
`), 0o644))
		n := me.New()
		MustBeSuccessful(n.LoadFile(fs, "/classes.yaml"))
		Expect(n.HasClass("Room")).To(BeTrue())
		Expect(n.LoadFile(fs, "/missing.yaml")).NotTo(Succeed())
	})

	It("installs class nodes with their inheritance chain", func() {
		ctx := context.Background()
		store := memgraph.New()
		MustBeSuccessful(graph.Update(ctx, store, func(tx graph.Tx) error {
			return c.Install(ctx, tx)
		}))
		MustBeSuccessful(graph.View(ctx, store, func(tx graph.Tx) error {
			n := Must(c.ClassNode(ctx, tx, "Router"))
			parent, _ := Must2(graph.Single(ctx, tx, n.ID, graph.Outgoing, graph.RelExtends))
			Expect(parent.Name()).To(Equal("GenericCommunicationsElement"))
			Expect(Must(tx.FindNodes(ctx, graph.LabelClasses, nil))).To(HaveLen(len(c.Classes())))
			return nil
		}))
	})

	It("recreates class nodes lost by a rollback", func() {
		ctx := context.Background()
		store := memgraph.New()
		tx := Must(store.Begin(ctx, graph.WriteMode))
		Must(c.ClassNode(ctx, tx, "Router"))
		MustBeSuccessful(tx.Rollback(ctx))

		MustBeSuccessful(graph.Update(ctx, store, func(tx graph.Tx) error {
			n, err := c.ClassNode(ctx, tx, "Router")
			if err != nil {
				return err
			}
			Expect(n.Name()).To(Equal("Router"))
			return nil
		}))
	})
})
