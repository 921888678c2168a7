package query

import (
	"fmt"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
)

// Statement is a Cypher statement with its bound parameters.
type Statement struct {
	Text   string
	Params map[string]any
}

type builder struct {
	params map[string]any
	vars   int
}

func (b *builder) param(v any) string {
	name := fmt.Sprintf("p%d", len(b.params))
	b.params[name] = v
	return "$" + name
}

func (b *builder) variable() int {
	v := b.vars
	b.vars++
	return v
}

func quote(name string) string {
	return "`" + name + "`"
}

// Build translates a query into a parameterized Cypher statement. The
// statement returns the columns id, name, className and c0..cN for the
// visible attributes.
func Build(catalog *metadata.Catalog, q *ExtendedQuery) (*Statement, error) {
	r, err := resolve(catalog, q)
	if err != nil {
		return nil, err
	}
	b := &builder{params: map[string]any{}}
	v := b.variable()
	n, c := fmt.Sprintf("n%d", v), fmt.Sprintf("c%d", v)

	var s strings.Builder
	fmt.Fprintf(&s, "MATCH (%s:%s)-[:%s]->(%s:%s)", n, quote(graph.LabelInventoryObjects), graph.RelInstanceOf, c, quote(graph.LabelClasses))
	fmt.Fprintf(&s, " WHERE %s", b.where(r, n, c))

	fmt.Fprintf(&s, " RETURN %s.%s AS id, %s.name AS name, %s.name AS className", n, quote(graph.PropUUID), n, c)
	for i, a := range r.visible {
		if a.IsPrimitive() {
			fmt.Fprintf(&s, ", %s.%s AS c%d", n, quote(a.Name), i)
			continue
		}
		fmt.Fprintf(&s, ", [(%s)-[r:%s]->(i) WHERE r.name = %s | i.name] AS c%d", n, graph.RelRelatedTo, b.param(a.Name), i)
	}
	fmt.Fprintf(&s, " ORDER BY %s.name, %s.%s", n, n, quote(graph.PropUUID))
	if skip, limit := page(q); limit > 0 {
		fmt.Fprintf(&s, " SKIP %s LIMIT %s", b.param(int64(skip)), b.param(int64(limit)))
	}
	return &Statement{Text: s.String(), Params: b.params}, nil
}

// where renders the class filter and the conditions of r for the node n of
// class node c.
func (b *builder) where(r *resolved, n, c string) string {
	clause := fmt.Sprintf("%s.name IN %s", c, b.param(r.classes))
	if len(r.conditions) == 0 {
		return clause
	}
	parts := make([]string, 0, len(r.conditions))
	for _, rc := range r.conditions {
		parts = append(parts, b.condition(rc, n))
	}
	return fmt.Sprintf("%s AND (%s)", clause, strings.Join(parts, " "+string(r.connector)+" "))
}

func (b *builder) condition(rc resolvedCondition, n string) string {
	if rc.join != nil {
		v := b.variable()
		jn, jc := fmt.Sprintf("n%d", v), fmt.Sprintf("c%d", v)
		var pattern string
		if rc.listType {
			pattern = fmt.Sprintf("(%s)-[r%d:%s]->(%s:%s)-[:%s]->(%s:%s) WHERE r%d.name = %s AND ",
				n, v, graph.RelRelatedTo, jn, quote(graph.LabelListTypeItems), graph.RelInstanceOf, jc, quote(graph.LabelClasses),
				v, b.param(rc.attr.Name))
		} else {
			pattern = fmt.Sprintf("(%s)-[:%s]->(%s:%s)-[:%s]->(%s:%s) WHERE ",
				n, graph.RelChildOf, jn, quote(graph.LabelInventoryObjects), graph.RelInstanceOf, jc, quote(graph.LabelClasses))
		}
		return fmt.Sprintf("EXISTS { MATCH %s%s }", pattern, b.where(rc.join, jn, jc))
	}

	if rc.listType {
		return fmt.Sprintf("NOT EXISTS { MATCH (%s)-[r:%s]->() WHERE r.name = %s }", n, graph.RelRelatedTo, b.param(rc.attr.Name))
	}
	prop := fmt.Sprintf("%s.%s", n, quote(rc.attr.Name))
	switch rc.operator {
	case IsNull:
		return prop + " IS NULL"
	case Like:
		return fmt.Sprintf("toLower(toString(%s)) CONTAINS %s", prop, b.param(rc.value))
	}
	return fmt.Sprintf("%s %s %s", prop, cypherOperators[rc.operator], b.param(rc.value))
}

var cypherOperators = map[string]string{
	Equal:          "=",
	NotEqual:       "<>",
	Greater:        ">",
	GreaterOrEqual: ">=",
	Less:           "<",
	LessOrEqual:    "<=",
}
