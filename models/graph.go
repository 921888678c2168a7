// Package models contains the plain values returned by the repositories.
// The structs in this file represent a generic graph structure, used to export
// containment subtrees or the results of raw graph queries to JSON consumers.
package models

// GraphNode represents a generic node of the inventory graph: its element id,
// its labels and its properties.
type GraphNode struct {
	// ID is the store assigned element id of the node.
	ID string `json:"id"`

	// Labels contains all the labels attached to the node (e.g., ["inventoryObjects"]).
	Labels []string `json:"labels"`

	// Properties contains the key-value properties of the node.
	Properties map[string]interface{} `json:"properties"`
}

// Edge represents a generic relationship between two nodes.
type Edge struct {
	// ID is the store assigned element id of the relationship.
	ID string `json:"id"`

	// Source is the element id of the node where the relationship starts.
	Source string `json:"source"`

	// Target is the element id of the node where the relationship ends.
	Target string `json:"target"`

	// Type is the relationship's type (e.g., "CHILD_OF", "RELATED_TO_SPECIAL").
	Type string `json:"type"`

	// Properties contains the key-value properties of the relationship.
	Properties map[string]interface{} `json:"properties"`
}

// GraphResult is a list of unique nodes and edges, the format consumed by most
// graph visualization libraries.
type GraphResult struct {
	Nodes []*GraphNode `json:"nodes"`
	Edges []*Edge      `json:"edges"`
}

// NewGraphResult creates an empty result.
func NewGraphResult() *GraphResult {
	return &GraphResult{
		Nodes: make([]*GraphNode, 0),
		Edges: make([]*Edge, 0),
	}
}
