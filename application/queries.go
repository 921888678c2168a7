package application

import (
	"context"
	"sort"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/query"
)

func findQuery(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	return findNode(ctx, tx, graph.LabelQueries, "query", id)
}

// setOwner links a query to its owner. An empty owner makes the query public.
func setOwner(ctx context.Context, tx graph.Tx, n *graph.Node, ownerID string) error {
	if err := graph.DeleteRelationships(ctx, tx, n.ID, graph.Incoming, graph.RelOwnsQuery); err != nil {
		return err
	}
	if err := tx.SetProperties(ctx, n.ID, graph.Props{"public": ownerID == ""}); err != nil {
		return err
	}
	if ownerID == "" {
		return nil
	}
	u, err := findUser(ctx, tx, ownerID)
	if err != nil {
		return err
	}
	_, err = tx.CreateRelationship(ctx, u.ID, n.ID, graph.RelOwnsQuery, nil)
	return err
}

// CreateQuery stores a query. Queries without owner are public.
func (r *Repository) CreateQuery(ctx context.Context, name, ownerID, description string, structure []byte) (string, error) {
	if blank(name) {
		return "", errs.InvalidArgumentf("the query name can not be empty")
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		q := &Query{Name: name, Description: description, Structure: structure}
		n, err := queries.Save(ctx, tx, q)
		if err != nil {
			return err
		}
		id = q.ID
		return setOwner(ctx, tx, n, ownerID)
	})
	return id, err
}

// SaveQuery replaces name, owner, description and structure of a query.
func (r *Repository) SaveQuery(ctx context.Context, id, name, ownerID, description string, structure []byte) error {
	if blank(name) {
		return errs.InvalidArgumentf("the query name can not be empty")
	}
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findQuery(ctx, tx, id)
		if err != nil {
			return err
		}
		q := &Query{ID: id, Name: name, Description: description, Structure: structure}
		if n, err = queries.Save(ctx, tx, q); err != nil {
			return err
		}
		return setOwner(ctx, tx, n, ownerID)
	})
}

// DeleteQuery removes a query.
func (r *Repository) DeleteQuery(ctx context.Context, id string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		return notFound(queries.Delete(ctx, tx, id), "query", id)
	})
}

func toQuery(ctx context.Context, tx graph.Tx, n *graph.Node) (*Query, error) {
	q, err := queries.FromNode(n)
	if err != nil {
		return nil, err
	}
	owners, err := graph.Neighbours(ctx, tx, n.ID, graph.Incoming, graph.RelOwnsQuery)
	if err != nil {
		return nil, err
	}
	if len(owners) > 0 {
		q.OwnerID = owners[0].UUID()
	}
	return q, nil
}

// Queries lists the stored queries ordered by name. Public queries are only
// included with showPublic.
func (r *Repository) Queries(ctx context.Context, showPublic bool) ([]*Query, error) {
	var result []*Query
	err := r.view(ctx, func(tx graph.Tx) error {
		nodes, err := tx.FindNodes(ctx, graph.LabelQueries, nil)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if n.Bool("public") && !showPublic {
				continue
			}
			q, err := toQuery(ctx, tx, n)
			if err != nil {
				return err
			}
			result = append(result, q)
		}
		sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
		return nil
	})
	return result, err
}

// GetQuery returns a stored query.
func (r *Repository) GetQuery(ctx context.Context, id string) (*Query, error) {
	var result *Query
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := findQuery(ctx, tx, id)
		if err != nil {
			return err
		}
		result, err = toQuery(ctx, tx, n)
		return err
	})
	return result, err
}

// ExecuteQuery runs an extended query against the inventory.
func (r *Repository) ExecuteQuery(ctx context.Context, q *query.ExtendedQuery) ([]query.ResultRecord, error) {
	var result []query.ResultRecord
	err := r.view(ctx, func(tx graph.Tx) error {
		var err error
		result, err = query.Execute(ctx, tx, r.catalog, q)
		return err
	})
	return result, err
}
