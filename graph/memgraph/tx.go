package memgraph

import (
	"context"
	"fmt"
	"reflect"
	"sort"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

type tx struct {
	g    *Graph
	mode graph.Mode
	undo []func()
	done bool
}

var _ graph.Tx = (*tx)(nil)

func (t *tx) check(ctx context.Context, write bool) error {
	if t.done {
		return graph.ErrTxClosed
	}
	if write && t.mode != graph.WriteMode {
		return graph.ErrReadOnly
	}
	return ctx.Err()
}

func (t *tx) CreateNode(ctx context.Context, props graph.Props, labels ...string) (*graph.Node, error) {
	if err := t.check(ctx, true); err != nil {
		return nil, err
	}
	p, err := normalizeProps(props)
	if err != nil {
		return nil, err
	}
	id, seq := t.g.nextID("n")
	n := &node{id: id, seq: seq, labels: append([]string(nil), labels...), props: p}
	t.g.indexNode(n)
	t.undo = append(t.undo, func() { t.g.unindexNode(n) })
	return n.export(), nil
}

func (t *tx) GetNode(ctx context.Context, id string) (*graph.Node, error) {
	if err := t.check(ctx, false); err != nil {
		return nil, err
	}
	n := t.g.nodes[id]
	if n == nil {
		return nil, graph.ErrNotFound
	}
	return n.export(), nil
}

func (t *tx) FindNode(ctx context.Context, label, key string, value any) (*graph.Node, error) {
	list, err := t.find(ctx, label, graph.Props{key: value}, true)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, graph.ErrNotFound
	}
	return list[0], nil
}

func (t *tx) FindNodes(ctx context.Context, label string, props graph.Props) ([]*graph.Node, error) {
	return t.find(ctx, label, props, false)
}

func (t *tx) find(ctx context.Context, label string, props graph.Props, first bool) ([]*graph.Node, error) {
	if err := t.check(ctx, false); err != nil {
		return nil, err
	}
	match := graph.Props{}
	for k, v := range props {
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		match[k] = n
	}

	var candidates []*node
	if label == "" {
		all := make(map[string]struct{}, len(t.g.nodes))
		for id := range t.g.nodes {
			all[id] = struct{}{}
		}
		candidates = t.g.sortedNodes(all)
	} else {
		candidates = t.g.sortedNodes(t.g.byLabel[label])
	}

	var result []*graph.Node
	for _, n := range candidates {
		if !matches(n.props, match) {
			continue
		}
		result = append(result, n.export())
		if first {
			break
		}
	}
	return result, nil
}

func matches(props, match graph.Props) bool {
	for k, v := range match {
		actual, ok := props[k]
		if !ok || !reflect.DeepEqual(actual, v) {
			return false
		}
	}
	return true
}

func (t *tx) SetProperties(ctx context.Context, id string, props graph.Props) error {
	if err := t.check(ctx, true); err != nil {
		return err
	}
	n := t.g.nodes[id]
	if n == nil {
		return graph.ErrNotFound
	}
	return t.setProps(n.props, props)
}

func (t *tx) setProps(target graph.Props, props graph.Props) error {
	updates := graph.Props{}
	for k, v := range props {
		if v == nil {
			updates[k] = nil
			continue
		}
		nv, err := normalize(v)
		if err != nil {
			return fmt.Errorf("property %q: %w", k, err)
		}
		updates[k] = nv
	}
	for k, v := range updates {
		old, had := target[k]
		if v == nil {
			delete(target, k)
		} else {
			target[k] = v
		}
		key := k
		t.undo = append(t.undo, func() {
			if had {
				target[key] = old
			} else {
				delete(target, key)
			}
		})
	}
	return nil
}

func (t *tx) DeleteNode(ctx context.Context, id string) error {
	if err := t.check(ctx, true); err != nil {
		return err
	}
	n := t.g.nodes[id]
	if n == nil {
		return graph.ErrNotFound
	}
	if len(t.g.out[id])+len(t.g.in[id]) > 0 {
		return fmt.Errorf("node %s still has relationships", id)
	}
	t.g.unindexNode(n)
	t.undo = append(t.undo, func() { t.g.indexNode(n) })
	return nil
}

func (t *tx) CreateRelationship(ctx context.Context, from, to, relType string, props graph.Props) (*graph.Relationship, error) {
	if err := t.check(ctx, true); err != nil {
		return nil, err
	}
	if t.g.nodes[from] == nil || t.g.nodes[to] == nil {
		return nil, graph.ErrNotFound
	}
	p, err := normalizeProps(props)
	if err != nil {
		return nil, err
	}
	id, seq := t.g.nextID("r")
	r := &rel{id: id, seq: seq, typ: relType, start: from, end: to, props: p}
	t.g.indexRel(r)
	t.undo = append(t.undo, func() { t.g.unindexRel(r) })
	return r.export(), nil
}

func (t *tx) Relationships(ctx context.Context, nodeID string, dir graph.Direction, types ...string) ([]*graph.Relationship, error) {
	if err := t.check(ctx, false); err != nil {
		return nil, err
	}
	if t.g.nodes[nodeID] == nil {
		return nil, graph.ErrNotFound
	}
	ids := map[string]struct{}{}
	if dir == graph.Outgoing || dir == graph.Both {
		for id := range t.g.out[nodeID] {
			ids[id] = struct{}{}
		}
	}
	if dir == graph.Incoming || dir == graph.Both {
		for id := range t.g.in[nodeID] {
			ids[id] = struct{}{}
		}
	}
	var list []*rel
	for id := range ids {
		r := t.g.rels[id]
		if r != nil && typeMatches(r.typ, types) {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })

	result := make([]*graph.Relationship, len(list))
	for i, r := range list {
		result[i] = r.export()
	}
	return result, nil
}

func typeMatches(typ string, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == typ {
			return true
		}
	}
	return false
}

func (t *tx) SetRelationshipProperties(ctx context.Context, id string, props graph.Props) error {
	if err := t.check(ctx, true); err != nil {
		return err
	}
	r := t.g.rels[id]
	if r == nil {
		return graph.ErrNotFound
	}
	return t.setProps(r.props, props)
}

func (t *tx) DeleteRelationship(ctx context.Context, id string) error {
	if err := t.check(ctx, true); err != nil {
		return err
	}
	r := t.g.rels[id]
	if r == nil {
		return graph.ErrNotFound
	}
	t.g.unindexRel(r)
	t.undo = append(t.undo, func() { t.g.indexRel(r) })
	return nil
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return graph.ErrTxClosed
	}
	t.finish()
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	if t.done {
		return graph.ErrTxClosed
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	if len(t.undo) > 0 {
		log.Debug("rolled back {{changes}} changes", "changes", len(t.undo))
	}
	t.finish()
	return nil
}

func (t *tx) finish() {
	t.done = true
	t.undo = nil
	if t.mode == graph.WriteMode {
		t.g.lock.Unlock()
	} else {
		t.g.lock.RUnlock()
	}
}
