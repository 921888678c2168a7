// Package memgraph is an embedded in-memory property graph. Write
// transactions are serialized and journaled, so Rollback restores the exact
// state seen by Begin. The whole graph can be persisted as a YAML snapshot on a
// virtual filesystem.
package memgraph

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

type node struct {
	id     string
	seq    int64
	labels []string
	props  graph.Props
}

type rel struct {
	id    string
	seq   int64
	typ   string
	start string
	end   string
	props graph.Props
}

// Graph is the in-memory store. It implements graph.Store.
type Graph struct {
	// lock is held by every open transaction, exclusively by write transactions.
	lock sync.RWMutex

	seq     int64
	nodes   map[string]*node
	rels    map[string]*rel
	byLabel map[string]map[string]struct{}
	out     map[string]map[string]struct{}
	in      map[string]map[string]struct{}
}

var _ graph.Store = (*Graph)(nil)

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:   map[string]*node{},
		rels:    map[string]*rel{},
		byLabel: map[string]map[string]struct{}{},
		out:     map[string]map[string]struct{}{},
		in:      map[string]map[string]struct{}{},
	}
}

// Begin opens a transaction. Transactions must not be nested within one
// goroutine: a write transaction blocks until all other transactions finished.
func (g *Graph) Begin(ctx context.Context, mode graph.Mode) (graph.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mode == graph.WriteMode {
		g.lock.Lock()
	} else {
		g.lock.RLock()
	}
	return &tx{g: g, mode: mode}, nil
}

// Close is a no-op, the graph lives as long as it is referenced.
func (g *Graph) Close(ctx context.Context) error {
	return nil
}

// Stats returns the number of nodes and relationships.
func (g *Graph) Stats() (int, int) {
	g.lock.RLock()
	defer g.lock.RUnlock()
	return len(g.nodes), len(g.rels)
}

func (g *Graph) nextID(prefix string) (string, int64) {
	g.seq++
	return prefix + strconv.FormatInt(g.seq, 10), g.seq
}

func (g *Graph) indexNode(n *node) {
	g.nodes[n.id] = n
	for _, l := range n.labels {
		set := g.byLabel[l]
		if set == nil {
			set = map[string]struct{}{}
			g.byLabel[l] = set
		}
		set[n.id] = struct{}{}
	}
}

func (g *Graph) unindexNode(n *node) {
	delete(g.nodes, n.id)
	for _, l := range n.labels {
		delete(g.byLabel[l], n.id)
	}
	delete(g.out, n.id)
	delete(g.in, n.id)
}

func (g *Graph) indexRel(r *rel) {
	g.rels[r.id] = r
	link(g.out, r.start, r.id)
	link(g.in, r.end, r.id)
}

func (g *Graph) unindexRel(r *rel) {
	delete(g.rels, r.id)
	delete(g.out[r.start], r.id)
	delete(g.in[r.end], r.id)
}

func link(m map[string]map[string]struct{}, key, id string) {
	set := m[key]
	if set == nil {
		set = map[string]struct{}{}
		m[key] = set
	}
	set[id] = struct{}{}
}

// sortedNodes returns the nodes of the id set in creation order.
func (g *Graph) sortedNodes(ids map[string]struct{}) []*node {
	list := make([]*node, 0, len(ids))
	for id := range ids {
		if n := g.nodes[id]; n != nil {
			list = append(list, n)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	return list
}

func (n *node) export() *graph.Node {
	return &graph.Node{
		ID:     n.id,
		Labels: append([]string(nil), n.labels...),
		Props:  copyProps(n.props),
	}
}

func (r *rel) export() *graph.Relationship {
	return &graph.Relationship{
		ID:    r.id,
		Type:  r.typ,
		Start: r.start,
		End:   r.end,
		Props: copyProps(r.props),
	}
}

func copyProps(p graph.Props) graph.Props {
	result := make(graph.Props, len(p))
	for k, v := range p {
		switch t := v.(type) {
		case []string:
			result[k] = append([]string(nil), t...)
		case []int64:
			result[k] = append([]int64(nil), t...)
		case []byte:
			result[k] = append([]byte(nil), t...)
		default:
			result[k] = v
		}
	}
	return result
}

// normalize maps a property value onto the set of supported types.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case string, bool, int64, float64:
		return t, nil
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case float32:
		return float64(t), nil
	case []string:
		return append([]string(nil), t...), nil
	case []int64:
		return append([]int64(nil), t...), nil
	case []byte:
		return append([]byte(nil), t...), nil
	default:
		return nil, fmt.Errorf("unsupported property type %T", v)
	}
}

func normalizeProps(props graph.Props) (graph.Props, error) {
	result := graph.Props{}
	for k, v := range props {
		if v == nil {
			continue
		}
		n, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		result[k] = n
	}
	return result, nil
}
