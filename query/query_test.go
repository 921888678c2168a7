package query_test

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
	me "github.com/saulfrancisco-ruizacevedo/go-neoinventory/query"
)

const classes = `
classes:
- name: EquipmentVendor
  parent: GenericObjectList
- name: City
  parent: InventoryObject
  possibleChildren: [Router, Switch]
- name: GenericNetworkElement
  parent: InventoryObject
  abstract: true
- name: Router
  parent: GenericNetworkElement
  attributes:
  - name: ports
    type: Integer
    displayName: Port Count
  - name: vendor
    type: EquipmentVendor
- name: Switch
  parent: GenericNetworkElement
containment:
  DummyRoot: [City]
`

var _ = Describe("extended queries", func() {
	var (
		ctx     context.Context
		catalog *metadata.Catalog
	)

	BeforeEach(func() {
		ctx = context.Background()
		catalog = metadata.New()
		MustBeSuccessful(catalog.Load([]byte(classes)))
	})

	Context("cypher", func() {
		It("binds values as parameters", func() {
			stmt := Must(me.Build(catalog, &me.ExtendedQuery{
				ClassName:         "Router",
				Conditions:        []me.Condition{{Attribute: "ports", Operator: me.Greater, Value: "8"}},
				VisibleAttributes: []string{"ports"},
				Page:              2,
				Limit:             10,
			}))
			Expect(stmt.Text).To(HavePrefix("MATCH (n0:`inventoryObjects`)-[:INSTANCE_OF]->(c0:`classes`) WHERE c0.name IN $p0 AND (n0.`ports` > $p1)"))
			Expect(stmt.Text).To(ContainSubstring("n0.`ports` AS c0"))
			Expect(stmt.Text).To(HaveSuffix("SKIP $p2 LIMIT $p3"))
			Expect(stmt.Params).To(Equal(map[string]any{
				"p0": []string{"Router"},
				"p1": int64(8),
				"p2": int64(10),
				"p3": int64(10),
			}))
		})

		It("renders joins as existential subqueries", func() {
			stmt := Must(me.Build(catalog, &me.ExtendedQuery{
				ClassName:         "GenericNetworkElement",
				IncludeSubclasses: true,
				LogicalConnector:  me.Or,
				Conditions: []me.Condition{
					{Attribute: "name", Operator: me.Like, Value: "Core"},
					{Attribute: me.Parent, Join: &me.ExtendedQuery{
						ClassName:  "City",
						Conditions: []me.Condition{{Attribute: "name", Value: "Berlin"}},
					}},
				},
			}))
			Expect(stmt.Text).To(ContainSubstring("toLower(toString(n0.`name`)) CONTAINS $p1 OR EXISTS { MATCH (n0)-[:CHILD_OF]->(n1:`inventoryObjects`)"))
			Expect(stmt.Params["p0"]).To(ConsistOf("Router", "Switch"))
			Expect(stmt.Params["p1"]).To(Equal("core"))
			Expect(stmt.Params["p2"]).To(Equal([]string{"City"}))
			Expect(stmt.Params["p3"]).To(Equal("Berlin"))
		})

		It("rejects invalid queries", func() {
			_, err := me.Build(catalog, &me.ExtendedQuery{ClassName: "Router", VisibleAttributes: []string{"x` OR 1=1"}})
			Expect(errs.IsInvalidArgument(err)).To(BeTrue())
			_, err = me.Build(catalog, &me.ExtendedQuery{ClassName: "Router", Conditions: []me.Condition{{Attribute: "ports", Operator: "between"}}})
			Expect(errs.IsInvalidArgument(err)).To(BeTrue())
			_, err = me.Build(catalog, &me.ExtendedQuery{ClassName: "Router", LogicalConnector: "XOR"})
			Expect(errs.IsInvalidArgument(err)).To(BeTrue())
			_, err = me.Build(catalog, &me.ExtendedQuery{ClassName: "Router", Conditions: []me.Condition{{Attribute: me.Parent}}})
			Expect(errs.IsInvalidArgument(err)).To(BeTrue())
			_, err = me.Build(catalog, &me.ExtendedQuery{ClassName: "Unknown"})
			Expect(err).To(HaveOccurred())
		})
	})

	Context("evaluation", func() {
		var (
			store         *memgraph.Graph
			repo          *objects.Repository
			berlin, paris string
		)

		BeforeEach(func() {
			store = memgraph.New()
			repo = objects.New(store, catalog, metadata.NewUniqueIndex(catalog))
			MustBeSuccessful(graph.Update(ctx, store, func(tx graph.Tx) error {
				cls := Must(catalog.ClassNode(ctx, tx, "EquipmentVendor"))
				for _, id := range []string{"cisco", "juniper"} {
					item := Must(tx.CreateNode(ctx, graph.Props{graph.PropUUID: id, graph.PropName: id}, graph.LabelListTypeItems))
					Must(tx.CreateRelationship(ctx, item.ID, cls.ID, graph.RelInstanceOf, nil))
				}
				return nil
			}))
			berlin = Must(repo.Create(ctx, "City", "", "-1", map[string]string{"name": "Berlin"}, ""))
			paris = Must(repo.Create(ctx, "City", "", "-1", map[string]string{"name": "Paris"}, ""))
			Must(repo.Create(ctx, "Router", "City", berlin, map[string]string{"name": "core-1", "ports": "48", "vendor": "cisco"}, ""))
			Must(repo.Create(ctx, "Router", "City", berlin, map[string]string{"name": "edge-1", "ports": "8", "vendor": "juniper"}, ""))
			Must(repo.Create(ctx, "Router", "City", paris, map[string]string{"name": "core-2", "ports": "24"}, ""))
			Must(repo.Create(ctx, "Switch", "City", paris, map[string]string{"name": "access-1"}, ""))
		})

		execute := func(q *me.ExtendedQuery) []me.ResultRecord {
			var result []me.ResultRecord
			MustBeSuccessful(graph.View(ctx, store, func(tx graph.Tx) error {
				var err error
				result, err = me.Execute(ctx, tx, catalog, q)
				return err
			}))
			return result
		}

		names := func(records []me.ResultRecord) []string {
			var result []string
			for _, r := range records[1:] {
				result = append(result, r.Name)
			}
			return result
		}

		It("returns a header and ordered rows", func() {
			result := execute(&me.ExtendedQuery{ClassName: "Router", VisibleAttributes: []string{"ports", "vendor"}})
			Expect(result[0].ExtraColumns).To(Equal([]string{"Port Count", "vendor"}))
			Expect(names(result)).To(Equal([]string{"core-1", "core-2", "edge-1"}))
			Expect(result[1].ClassName).To(Equal("Router"))
			Expect(result[1].ExtraColumns).To(Equal([]string{"48", "cisco"}))
			Expect(result[2].ExtraColumns).To(Equal([]string{"24", ""}))
		})

		It("filters by typed conditions", func() {
			result := execute(&me.ExtendedQuery{ClassName: "Router", Conditions: []me.Condition{
				{Attribute: "ports", Operator: me.GreaterOrEqual, Value: "24"},
				{Attribute: "name", Operator: me.Like, Value: "CORE"},
			}})
			Expect(names(result)).To(Equal([]string{"core-1", "core-2"}))

			result = execute(&me.ExtendedQuery{ClassName: "Router", LogicalConnector: me.Or, Conditions: []me.Condition{
				{Attribute: "ports", Operator: me.Less, Value: "10"},
				{Attribute: "vendor", Operator: me.IsNull},
			}})
			Expect(names(result)).To(Equal([]string{"core-2", "edge-1"}))
		})

		It("includes subclasses", func() {
			result := execute(&me.ExtendedQuery{ClassName: "GenericNetworkElement", IncludeSubclasses: true})
			Expect(names(result)).To(Equal([]string{"access-1", "core-1", "core-2", "edge-1"}))
			Expect(execute(&me.ExtendedQuery{ClassName: "GenericNetworkElement"})).To(HaveLen(1))
		})

		It("joins list types and parents", func() {
			result := execute(&me.ExtendedQuery{ClassName: "Router", Conditions: []me.Condition{
				{Attribute: "vendor", Value: "juniper"},
			}})
			Expect(names(result)).To(Equal([]string{"edge-1"}))

			result = execute(&me.ExtendedQuery{ClassName: "GenericNetworkElement", IncludeSubclasses: true, Conditions: []me.Condition{
				{Attribute: me.Parent, Join: &me.ExtendedQuery{
					ClassName:  "City",
					Conditions: []me.Condition{{Attribute: "name", Value: "Paris"}},
				}},
			}})
			Expect(names(result)).To(Equal([]string{"access-1", "core-2"}))
		})

		It("pages results", func() {
			result := execute(&me.ExtendedQuery{ClassName: "Router", Page: 2, Limit: 2})
			Expect(names(result)).To(Equal([]string{"edge-1"}))
			result = execute(&me.ExtendedQuery{ClassName: "Router", Page: 3, Limit: 2})
			Expect(result).To(HaveLen(1))
		})
	})
})
