package query

import (
	"context"
	"errors"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/internal/attrs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

// Execute runs a query. The first record is the header, followed by one
// record per match ordered by name. Transactions able to run Cypher execute
// the built statement, others are evaluated over the graph API.
func Execute(ctx context.Context, tx graph.Tx, catalog *metadata.Catalog, q *ExtendedQuery) ([]ResultRecord, error) {
	r, err := resolve(catalog, q)
	if err != nil {
		return nil, err
	}
	result := []ResultRecord{header(r)}
	if querier, ok := tx.(graph.Querier); ok {
		rows, err := run(ctx, querier, catalog, q, len(r.visible))
		if err != nil {
			return nil, err
		}
		return append(result, rows...), nil
	}
	rows, err := evaluate(ctx, tx, catalog, r)
	if err != nil {
		return nil, err
	}
	return append(result, rows...), nil
}

func run(ctx context.Context, querier graph.Querier, catalog *metadata.Catalog, q *ExtendedQuery, columns int) ([]ResultRecord, error) {
	stmt, err := Build(catalog, q)
	if err != nil {
		return nil, err
	}
	log.Trace("running query {{query}}", "query", stmt.Text)
	rows, err := querier.Query(ctx, stmt.Text, stmt.Params)
	if err != nil {
		return nil, err
	}
	result := make([]ResultRecord, 0, len(rows))
	for _, row := range rows {
		rec := ResultRecord{
			ID:           graph.FormatValue(row["id"]),
			Name:         graph.FormatValue(row["name"]),
			ClassName:    graph.FormatValue(row["className"]),
			ExtraColumns: make([]string, columns),
		}
		for i := range rec.ExtraColumns {
			rec.ExtraColumns[i] = column(row[columnName(i)])
		}
		result = append(result, rec)
	}
	return result, nil
}

func columnName(i int) string {
	return "c" + graph.FormatValue(i)
}

func column(v any) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, attrs.Separator)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = graph.FormatValue(e)
		}
		return strings.Join(parts, attrs.Separator)
	}
	return graph.FormatValue(v)
}

// evaluate applies the query semantics directly on the graph.
func evaluate(ctx context.Context, tx graph.Tx, catalog *metadata.Catalog, r *resolved) ([]ResultRecord, error) {
	type match struct {
		node  *graph.Node
		class string
	}
	var found []match
	for _, cls := range r.classes {
		nodes, err := catalog.Instances(ctx, tx, cls)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if !n.HasLabel(graph.LabelInventoryObjects) {
				continue
			}
			ok, err := matches(ctx, tx, catalog, r, n)
			if err != nil {
				return nil, err
			}
			if ok {
				found = append(found, match{n, cls})
			}
		}
	}

	lights := make([]models.ObjectLight, len(found))
	byID := map[string]match{}
	for i, m := range found {
		lights[i] = models.ObjectLight{ID: m.node.UUID(), Name: m.node.Name(), ClassName: m.class}
		byID[m.node.UUID()] = m
	}
	models.SortObjects(lights)
	if skip, limit := page(r.query); limit > 0 {
		if skip >= len(lights) {
			lights = nil
		} else {
			lights = models.Limit(lights[skip:], limit)
		}
	}

	result := make([]ResultRecord, 0, len(lights))
	for _, l := range lights {
		m := byID[l.ID]
		rec := ResultRecord{ID: l.ID, Name: l.Name, ClassName: l.ClassName, ExtraColumns: []string{}}
		for _, a := range r.visible {
			if a.IsPrimitive() {
				rec.ExtraColumns = append(rec.ExtraColumns, m.node.String(a.Name))
				continue
			}
			names, err := itemNames(ctx, tx, m.node.ID, a.Name)
			if err != nil {
				return nil, err
			}
			rec.ExtraColumns = append(rec.ExtraColumns, strings.Join(names, attrs.Separator))
		}
		result = append(result, rec)
	}
	return result, nil
}

func itemNames(ctx context.Context, tx graph.Tx, nodeID, attr string) ([]string, error) {
	items, err := related(ctx, tx, nodeID, attr)
	if err != nil {
		return nil, err
	}
	graph.SortByName(items)
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name()
	}
	return names, nil
}

func related(ctx context.Context, tx graph.Tx, nodeID, attr string) ([]*graph.Node, error) {
	rels, err := tx.Relationships(ctx, nodeID, graph.Outgoing, graph.RelRelatedTo)
	if err != nil {
		return nil, err
	}
	var result []*graph.Node
	for _, rel := range graph.FilterRelationships(rels, graph.PropName, attr) {
		n, err := tx.GetNode(ctx, rel.End)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, nil
}

func inClasses(ctx context.Context, tx graph.Tx, n *graph.Node, classes []string) (bool, error) {
	cls, err := metadata.ClassOfNode(ctx, tx, n.ID)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	for _, c := range classes {
		if c == cls {
			return true, nil
		}
	}
	return false, nil
}

func matches(ctx context.Context, tx graph.Tx, catalog *metadata.Catalog, r *resolved, n *graph.Node) (bool, error) {
	if len(r.conditions) == 0 {
		return true, nil
	}
	for _, rc := range r.conditions {
		ok, err := holds(ctx, tx, catalog, rc, n)
		if err != nil {
			return false, err
		}
		if r.connector == Or && ok {
			return true, nil
		}
		if r.connector == And && !ok {
			return false, nil
		}
	}
	return r.connector == And, nil
}

func holds(ctx context.Context, tx graph.Tx, catalog *metadata.Catalog, rc resolvedCondition, n *graph.Node) (bool, error) {
	if rc.join != nil {
		var candidates []*graph.Node
		if rc.listType {
			var err error
			if candidates, err = related(ctx, tx, n.ID, rc.attr.Name); err != nil {
				return false, err
			}
		} else {
			rels, err := tx.Relationships(ctx, n.ID, graph.Outgoing, graph.RelChildOf)
			if err != nil {
				return false, err
			}
			for _, rel := range rels {
				p, err := tx.GetNode(ctx, rel.End)
				if err != nil {
					return false, err
				}
				if p.HasLabel(graph.LabelInventoryObjects) {
					candidates = append(candidates, p)
				}
			}
		}
		for _, c := range candidates {
			ok, err := inClasses(ctx, tx, c, rc.join.classes)
			if err != nil {
				return false, err
			}
			if !ok {
				continue
			}
			if ok, err = matches(ctx, tx, catalog, rc.join, c); err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}

	if rc.listType {
		items, err := related(ctx, tx, n.ID, rc.attr.Name)
		return len(items) == 0, err
	}
	v, present := n.Props[rc.attr.Name]
	switch rc.operator {
	case IsNull:
		return !present, nil
	case Like:
		return present && strings.Contains(strings.ToLower(graph.FormatValue(v)), rc.value.(string)), nil
	}
	if !present {
		return false, nil
	}
	cmp, ok := compare(v, rc.value)
	if !ok {
		return false, nil
	}
	switch rc.operator {
	case Equal:
		return cmp == 0, nil
	case NotEqual:
		return cmp != 0, nil
	case Greater:
		return cmp > 0, nil
	case GreaterOrEqual:
		return cmp >= 0, nil
	case Less:
		return cmp < 0, nil
	case LessOrEqual:
		return cmp <= 0, nil
	}
	return false, nil
}

// compare orders two property values of compatible types.
func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return strings.Compare(x, y), ok
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	x, ok := number(a)
	if !ok {
		return 0, false
	}
	y, ok := number(b)
	if !ok {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}
