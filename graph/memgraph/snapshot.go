package memgraph

import (
	"errors"
	"fmt"
	"path"
	"sort"

	"github.com/mandelsoft/vfs/pkg/vfs"
	"sigs.k8s.io/yaml"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

type snapshot struct {
	Seq           int64     `json:"seq"`
	Nodes         []nodeDoc `json:"nodes,omitempty"`
	Relationships []relDoc  `json:"relationships,omitempty"`
}

type nodeDoc struct {
	ID     string           `json:"id"`
	Seq    int64            `json:"seq"`
	Labels []string         `json:"labels,omitempty"`
	Props  map[string]value `json:"props,omitempty"`
}

type relDoc struct {
	ID    string           `json:"id"`
	Seq   int64            `json:"seq"`
	Type  string           `json:"type"`
	Start string           `json:"start"`
	End   string           `json:"end"`
	Props map[string]value `json:"props,omitempty"`
}

// value keeps the type of a property across the YAML round trip.
type value struct {
	Kind    string   `json:"kind"`
	String  string   `json:"string,omitempty"`
	Int     int64    `json:"int,omitempty"`
	Float   float64  `json:"float,omitempty"`
	Bool    bool     `json:"bool,omitempty"`
	Strings []string `json:"strings,omitempty"`
	Ints    []int64  `json:"ints,omitempty"`
	Bytes   []byte   `json:"bytes,omitempty"`
}

func encodeProps(p graph.Props) map[string]value {
	if len(p) == 0 {
		return nil
	}
	result := make(map[string]value, len(p))
	for k, v := range p {
		switch t := v.(type) {
		case string:
			result[k] = value{Kind: "string", String: t}
		case int64:
			result[k] = value{Kind: "int", Int: t}
		case float64:
			result[k] = value{Kind: "float", Float: t}
		case bool:
			result[k] = value{Kind: "bool", Bool: t}
		case []string:
			result[k] = value{Kind: "strings", Strings: t}
		case []int64:
			result[k] = value{Kind: "ints", Ints: t}
		case []byte:
			result[k] = value{Kind: "bytes", Bytes: t}
		}
	}
	return result
}

func decodeProps(p map[string]value) (graph.Props, error) {
	result := graph.Props{}
	for k, v := range p {
		switch v.Kind {
		case "string":
			result[k] = v.String
		case "int":
			result[k] = v.Int
		case "float":
			result[k] = v.Float
		case "bool":
			result[k] = v.Bool
		case "strings":
			result[k] = append([]string{}, v.Strings...)
		case "ints":
			result[k] = append([]int64{}, v.Ints...)
		case "bytes":
			result[k] = append([]byte{}, v.Bytes...)
		default:
			return nil, fmt.Errorf("property %q has unknown kind %q", k, v.Kind)
		}
	}
	return result, nil
}

// Save writes a snapshot of the committed graph state.
func (g *Graph) Save(fs vfs.FileSystem, file string) error {
	g.lock.RLock()
	s := snapshot{Seq: g.seq}
	for _, n := range g.sortedNodes(keys(g.nodes)) {
		s.Nodes = append(s.Nodes, nodeDoc{ID: n.id, Seq: n.seq, Labels: n.labels, Props: encodeProps(n.props)})
	}
	rels := make([]*rel, 0, len(g.rels))
	for _, r := range g.rels {
		rels = append(rels, r)
	}
	sortRels(rels)
	for _, r := range rels {
		s.Relationships = append(s.Relationships, relDoc{ID: r.id, Seq: r.seq, Type: r.typ, Start: r.start, End: r.end, Props: encodeProps(r.props)})
	}
	g.lock.RUnlock()

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(path.Dir(file), 0o700); err != nil && !errors.Is(err, vfs.ErrExist) {
		return err
	}
	if err := vfs.WriteFile(fs, file, data, 0o600); err != nil {
		return err
	}
	log.Debug("saved snapshot {{file}} with {{nodes}} nodes", "file", file, "nodes", len(s.Nodes))
	return nil
}

// Load reads a snapshot written by Save. A missing file yields an empty graph.
func Load(fs vfs.FileSystem, file string) (*Graph, error) {
	data, err := vfs.ReadFile(fs, file)
	if err != nil {
		if errors.Is(err, vfs.ErrNotExist) {
			return New(), nil
		}
		return nil, err
	}
	var s snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("corrupted snapshot %s: %w", file, err)
	}

	g := New()
	g.seq = s.Seq
	for _, d := range s.Nodes {
		props, err := decodeProps(d.Props)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", d.ID, err)
		}
		g.indexNode(&node{id: d.ID, seq: d.Seq, labels: d.Labels, props: props})
	}
	for _, d := range s.Relationships {
		if g.nodes[d.Start] == nil || g.nodes[d.End] == nil {
			return nil, fmt.Errorf("corrupted snapshot %s: relationship %s has dangling ends", file, d.ID)
		}
		props, err := decodeProps(d.Props)
		if err != nil {
			return nil, fmt.Errorf("relationship %s: %w", d.ID, err)
		}
		g.indexRel(&rel{id: d.ID, seq: d.Seq, typ: d.Type, start: d.Start, end: d.End, props: props})
	}
	log.Info("loaded snapshot {{file}} with {{nodes}} nodes and {{relationships}} relationships",
		"file", file, "nodes", len(g.nodes), "relationships", len(g.rels))
	return g, nil
}

func keys[V any](m map[string]V) map[string]struct{} {
	result := make(map[string]struct{}, len(m))
	for k := range m {
		result[k] = struct{}{}
	}
	return result
}

func sortRels(list []*rel) {
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
}
