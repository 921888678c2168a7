package neograph

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quote validates a label, relationship type or property name and returns it
// backtick quoted, ready to be embedded in a statement.
func quote(name string) (string, error) {
	if !identifier.MatchString(name) {
		return "", fmt.Errorf("invalid identifier %q", name)
	}
	return "`" + name + "`", nil
}

func labelClause(labels []string) (string, error) {
	var b strings.Builder
	for _, l := range labels {
		q, err := quote(l)
		if err != nil {
			return "", err
		}
		b.WriteString(":")
		b.WriteString(q)
	}
	return b.String(), nil
}

func typeClause(types []string) (string, error) {
	if len(types) == 0 {
		return "", nil
	}
	quoted := make([]string, len(types))
	for i, t := range types {
		q, err := quote(t)
		if err != nil {
			return "", err
		}
		quoted[i] = q
	}
	return ":" + strings.Join(quoted, "|"), nil
}

func toNode(n neo4j.Node) *graph.Node {
	return &graph.Node{
		ID:     n.ElementId,
		Labels: append([]string(nil), n.Labels...),
		Props:  convertProps(n.Props),
	}
}

func toRelationship(r neo4j.Relationship) *graph.Relationship {
	return &graph.Relationship{
		ID:    r.ElementId,
		Type:  r.Type,
		Start: r.StartElementId,
		End:   r.EndElementId,
		Props: convertProps(r.Props),
	}
}

func convertProps(props map[string]any) graph.Props {
	result := make(graph.Props, len(props))
	for k, v := range props {
		result[k] = convertList(v)
	}
	return result
}

// convertList restores typed slices, the driver returns lists as []any.
func convertList(v any) any {
	list, ok := v.([]any)
	if !ok {
		return v
	}
	strs := make([]string, 0, len(list))
	ints := make([]int64, 0, len(list))
	for _, e := range list {
		switch t := e.(type) {
		case string:
			strs = append(strs, t)
		case int64:
			ints = append(ints, t)
		}
	}
	switch {
	case len(strs) == len(list):
		return strs
	case len(ints) == len(list):
		return ints
	}
	return list
}

// convertValue maps driver values of a result row onto graph values.
func convertValue(v any) any {
	switch t := v.(type) {
	case neo4j.Node:
		return toNode(t)
	case neo4j.Relationship:
		return toRelationship(t)
	case []any:
		result := make([]any, len(t))
		for i, e := range t {
			result[i] = convertValue(e)
		}
		return result
	default:
		return v
	}
}

// storeProps converts a property bag into driver parameters. Nil values are
// kept, SET n += $props removes them.
func storeProps(props graph.Props) map[string]any {
	result := make(map[string]any, len(props))
	for k, v := range props {
		switch t := v.(type) {
		case int:
			result[k] = int64(t)
		case int32:
			result[k] = int64(t)
		case float32:
			result[k] = float64(t)
		default:
			result[k] = v
		}
	}
	return result
}

// createProps drops nil values, a node never stores null.
func createProps(props graph.Props) map[string]any {
	result := storeProps(props)
	for k, v := range result {
		if v == nil {
			delete(result, k)
		}
	}
	return result
}
