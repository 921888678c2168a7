// Package graph defines the property graph abstraction all repositories are
// written against. A Store hands out transactions; every public repository
// operation runs inside exactly one of them.
//
// Implementations live in the sub packages memgraph (embedded, in-process)
// and neograph (Neo4j).
package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ErrNotFound is returned by lookups when no node or relationship matches.
var ErrNotFound = errors.New("graph element not found")

// ErrTxClosed is returned when a finished transaction is used again.
var ErrTxClosed = errors.New("transaction already closed")

// ErrReadOnly is returned when a read transaction attempts a mutation.
var ErrReadOnly = errors.New("transaction is read-only")

// Mode selects the access mode of a transaction.
type Mode int

const (
	ReadMode Mode = iota
	WriteMode
)

func (m Mode) String() string {
	if m == WriteMode {
		return "write"
	}
	return "read"
}

// Direction selects which relationships of a node are traversed.
type Direction int

const (
	Outgoing Direction = iota
	Incoming
	Both
)

// Props is a property bag. A nil value in an update removes the property.
type Props map[string]any

// Node is a detached copy of a stored node.
type Node struct {
	ID     string
	Labels []string
	Props  Props
}

// HasLabel reports whether the node carries the given label.
func (n *Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// String returns a property rendered as string, or "" if absent.
func (n *Node) String(key string) string {
	return FormatValue(n.Props[key])
}

// Int64 returns an integer property, or 0 if absent or not numeric.
func (n *Node) Int64(key string) int64 {
	switch v := n.Props[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		i, _ := strconv.ParseInt(v, 10, 64)
		return i
	}
	return 0
}

// Bool returns a boolean property, or false if absent.
func (n *Node) Bool(key string) bool {
	switch v := n.Props[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}

// Bytes returns a byte array property, or nil if absent.
func (n *Node) Bytes(key string) []byte {
	if b, ok := n.Props[key].([]byte); ok {
		return b
	}
	return nil
}

// UUID returns the business identifier of the node.
func (n *Node) UUID() string { return n.String(PropUUID) }

// Name returns the name property of the node.
func (n *Node) Name() string { return n.String(PropName) }

// Relationship is a detached copy of a stored relationship.
type Relationship struct {
	ID    string
	Type  string
	Start string
	End   string
	Props Props
}

// Other returns the id of the node at the opposite end.
func (r *Relationship) Other(nodeID string) string {
	if r.Start == nodeID {
		return r.End
	}
	return r.Start
}

// String returns a property rendered as string, or "" if absent.
func (r *Relationship) String(key string) string {
	return FormatValue(r.Props[key])
}

// Store creates transactions against a property graph.
type Store interface {
	Begin(ctx context.Context, mode Mode) (Tx, error)
	Close(ctx context.Context) error
}

// Tx is a unit of work against the graph. Nothing is visible to other
// transactions before Commit; Rollback discards every change.
type Tx interface {
	CreateNode(ctx context.Context, props Props, labels ...string) (*Node, error)
	GetNode(ctx context.Context, id string) (*Node, error)
	// FindNode returns the first node with the label whose property equals value.
	FindNode(ctx context.Context, label, key string, value any) (*Node, error)
	// FindNodes returns all nodes with the label matching every given property.
	FindNodes(ctx context.Context, label string, props Props) ([]*Node, error)
	SetProperties(ctx context.Context, id string, props Props) error
	// DeleteNode fails while the node still has relationships.
	DeleteNode(ctx context.Context, id string) error

	CreateRelationship(ctx context.Context, from, to, relType string, props Props) (*Relationship, error)
	Relationships(ctx context.Context, nodeID string, dir Direction, types ...string) ([]*Relationship, error)
	SetRelationshipProperties(ctx context.Context, id string, props Props) error
	DeleteRelationship(ctx context.Context, id string) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Querier is implemented by transactions able to run parameterized Cypher
// natively. Returned rows map column names to values; nodes are returned as *Node.
type Querier interface {
	Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

// FormatValue renders a stored property value as string.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

// SortByName orders nodes lexicographically by name, then by id.
func SortByName(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i].Name(), nodes[j].Name()
		if a != b {
			return a < b
		}
		return nodes[i].ID < nodes[j].ID
	})
}
