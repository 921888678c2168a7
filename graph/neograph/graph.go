package neograph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

// FindGraph executes a graph query defined by a gocypher.QueryBuilder and maps the result
// into a generic graph structure composed of nodes and edges.
//
// The caller is responsible for constructing a valid query via the QueryBuilder, including
// a RETURN clause that specifies which nodes and relationships should be included in the
// final graph. For example, `RETURN o, r, p`.
//
// Nodes and relationships are de-duplicated, even if a graph element is returned in
// multiple rows of the result set it will only appear once in the final GraphResult.
//
// Returns:
//   - A pointer to a models.GraphResult containing the de-duplicated nodes and edges from the query.
//   - graph.ErrNotFound if the query executes successfully but returns zero records.
//   - Any other error encountered during query building or execution.
func FindGraph(ctx context.Context, runner DBRunner, qb *gocypher.QueryBuilder) (*models.GraphResult, error) {
	query, params, err := qb.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}

	eagerResult, err := runner.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}

	if len(eagerResult.Records) == 0 {
		return nil, graph.ErrNotFound
	}

	result := models.NewGraphResult()
	seenNodeIDs := make(map[string]bool)
	seenEdgeIDs := make(map[string]bool)

	for _, record := range eagerResult.Records {
		for _, value := range record.Values {
			switch v := value.(type) {
			case neo4j.Node:
				if !seenNodeIDs[v.ElementId] {
					result.Nodes = append(result.Nodes, &models.GraphNode{
						ID:         v.ElementId,
						Labels:     v.Labels,
						Properties: v.Props,
					})
					seenNodeIDs[v.ElementId] = true
				}

			case neo4j.Relationship:
				if !seenEdgeIDs[v.ElementId] {
					result.Edges = append(result.Edges, &models.Edge{
						ID:         v.ElementId,
						Source:     v.StartElementId,
						Target:     v.EndElementId,
						Type:       v.Type,
						Properties: v.Props,
					})
					seenEdgeIDs[v.ElementId] = true
				}
			}
		}
	}

	return result, nil
}

// ContainmentQuery builds the query returning an inventory object, its parent
// and the CHILD_OF relationship connecting them.
func ContainmentQuery(objectID string) *gocypher.QueryBuilder {
	return gocypher.NewQueryBuilder().
		Match(gocypher.N("o", graph.LabelInventoryObjects).WithProperties(map[string]interface{}{graph.PropUUID: objectID})).
		Match(
			gocypher.NRef("o"),
			gocypher.R("r", graph.RelChildOf).To(),
			gocypher.N("p", ""),
		).
		Return("o", "r", "p")
}
