package templates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/internal/attrs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

func now() int64 {
	return time.Now().UnixMilli()
}

func light(n *graph.Node, class string) models.ObjectLight {
	return models.ObjectLight{ID: n.UUID(), Name: n.Name(), ClassName: class}
}

func containmentType(special bool) string {
	if special {
		return graph.RelChildOfSpecial
	}
	return graph.RelChildOf
}

func checkChild(catalog *metadata.Catalog, parentClass, className string, special bool) error {
	if special {
		if !catalog.CanBeSpecialChild(parentClass, className) {
			return errs.NotPermittedf("an instance of %s can not be a special child of %s", className, parentClass)
		}
		return nil
	}
	if !catalog.CanBeChild(parentClass, className) {
		return errs.NotPermittedf("an instance of %s can not be a child of %s", className, parentClass)
	}
	return nil
}

// subtree returns an element and its descendants in pre-order.
func subtree(ctx context.Context, tx graph.Tx, root *graph.Node) ([]*graph.Node, error) {
	var result []*graph.Node
	stack := []*graph.Node{root}
	seen := map[string]bool{root.ID: true}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		result = append(result, n)
		nodes, err := graph.Neighbours(ctx, tx, n.ID, graph.Incoming, graph.RelChildOf, graph.RelChildOfSpecial)
		if err != nil {
			return nil, err
		}
		for _, c := range nodes {
			if !seen[c.ID] && c.HasLabel(graph.LabelTemplateElements) {
				seen[c.ID] = true
				stack = append(stack, c)
			}
		}
	}
	return result, nil
}

type cloneTask struct {
	source  *graph.Node
	parent  *graph.Node
	relType string
}

// cloner deep-copies a template element tree, either into new template
// elements or into live objects.
type cloner struct {
	catalog    *metadata.Catalog
	labels     []string
	instanceOf string
	unique     *metadata.UniqueChanges
	// live clones must satisfy mandatory and unique constraints.
	live bool

	clones map[string]*graph.Node
}

func (c *cloner) clone(ctx context.Context, tx graph.Tx, source *graph.Node) (*graph.Node, error) {
	c.clones = map[string]*graph.Node{}
	var root *graph.Node
	stack := []cloneTask{{source: source}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if c.clones[t.source.ID] != nil {
			continue
		}

		n, err := c.node(ctx, tx, t.source)
		if err != nil {
			return nil, err
		}
		c.clones[t.source.ID] = n
		if root == nil {
			root = n
		}
		if t.parent != nil {
			if _, err := tx.CreateRelationship(ctx, n.ID, t.parent.ID, t.relType, nil); err != nil {
				return nil, err
			}
		}

		rels, err := tx.Relationships(ctx, t.source.ID, graph.Incoming, graph.RelChildOf, graph.RelChildOfSpecial)
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			child, err := tx.GetNode(ctx, rel.Start)
			if err != nil {
				return nil, err
			}
			if child.HasLabel(graph.LabelTemplateElements) {
				stack = append(stack, cloneTask{child, n, rel.Type})
			}
		}
	}
	if err := c.relink(ctx, tx); err != nil {
		return nil, err
	}
	return root, nil
}

// node copies a single element with a fresh id.
func (c *cloner) node(ctx context.Context, tx graph.Tx, source *graph.Node) (*graph.Node, error) {
	className, err := metadata.ClassOfNode(ctx, tx, source.ID)
	if err != nil {
		return nil, err
	}
	cls, err := c.catalog.GetClass(className)
	if err != nil {
		return nil, err
	}
	classNode, err := c.catalog.ClassNode(ctx, tx, className)
	if err != nil {
		return nil, err
	}
	props := attrs.ScalarProps(source)
	props[graph.PropUUID] = uuid.NewString()
	props[graph.PropCreationDate] = now()
	n, err := tx.CreateNode(ctx, props, c.labels...)
	if err != nil {
		return nil, err
	}
	if _, err := tx.CreateRelationship(ctx, n.ID, classNode.ID, c.instanceOf, nil); err != nil {
		return nil, err
	}
	if err := attrs.CopyRelatedTo(ctx, tx, source.ID, n.ID); err != nil {
		return nil, err
	}
	if c.live {
		if err := attrs.CheckMandatory(ctx, tx, n.ID, cls); err != nil {
			return nil, err
		}
		if c.unique != nil {
			if err := attrs.ReserveUnique(ctx, tx, c.unique, n, cls); err != nil {
				return nil, err
			}
		}
	}
	return n, nil
}

// relink re-creates the special relationships between cloned elements,
// like the mirror links of paired ports.
func (c *cloner) relink(ctx context.Context, tx graph.Tx) error {
	for sourceID, clone := range c.clones {
		rels, err := tx.Relationships(ctx, sourceID, graph.Outgoing, graph.RelRelatedToSpecial)
		if err != nil {
			return err
		}
		for _, rel := range rels {
			other := c.clones[rel.End]
			if other == nil {
				continue
			}
			if _, err := tx.CreateRelationship(ctx, clone.ID, other.ID, graph.RelRelatedToSpecial, rel.Props); err != nil {
				return err
			}
		}
	}
	return nil
}
