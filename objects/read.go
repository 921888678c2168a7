package objects

import (
	"context"
	"errors"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/internal/attrs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

// Get returns an object including all attribute values.
func (r *Repository) Get(ctx context.Context, className, id string) (*models.Object, error) {
	var obj *models.Object
	err := r.view(ctx, func(tx graph.Tx) error {
		n, cls, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		obj, err = r.object(ctx, tx, n, cls)
		return err
	})
	return obj, err
}

func (r *Repository) object(ctx context.Context, tx graph.Tx, n *graph.Node, className string) (*models.Object, error) {
	cls, err := r.catalog.GetClass(className)
	if err != nil {
		return nil, err
	}
	values, err := attrs.Read(ctx, tx, n, cls)
	if err != nil {
		return nil, err
	}
	return &models.Object{
		ObjectLight:  light(n, className),
		CreationDate: n.Int64(graph.PropCreationDate),
		Attributes:   values,
	}, nil
}

// GetLight returns an object without its attributes.
func (r *Repository) GetLight(ctx context.Context, className, id string) (*models.ObjectLight, error) {
	var obj models.ObjectLight
	err := r.view(ctx, func(tx graph.Tx) error {
		n, cls, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		obj = light(n, cls)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &obj, nil
}

// AttributeValue returns a single attribute value as string.
func (r *Repository) AttributeValue(ctx context.Context, className, id, attribute string) (string, error) {
	if _, err := r.catalog.Attribute(className, attribute); err != nil {
		return "", err
	}
	values, err := r.AttributeValues(ctx, className, id)
	if err != nil {
		return "", err
	}
	return values[attribute], nil
}

// AttributeValues returns all attribute values of an object as strings.
func (r *Repository) AttributeValues(ctx context.Context, className, id string) (map[string]string, error) {
	obj, err := r.Get(ctx, className, id)
	if err != nil {
		return nil, err
	}
	return obj.Attributes, nil
}

// Children returns the objects directly contained by an object, ordered by
// name. The class "" or DummyRoot and the id "-1" address the top level.
func (r *Repository) Children(ctx context.Context, className, id string, limit int) ([]models.ObjectLight, error) {
	return r.ChildrenOfClass(ctx, className, id, "", limit)
}

// ChildrenCount returns the number of direct children of an object.
func (r *Repository) ChildrenCount(ctx context.Context, className, id string) (int, error) {
	list, err := r.Children(ctx, className, id, 0)
	return len(list), err
}

// ChildrenOfClass returns the direct children that are instances of
// childClass or one of its subclasses.
func (r *Repository) ChildrenOfClass(ctx context.Context, className, id, childClass string, limit int) ([]models.ObjectLight, error) {
	var result []models.ObjectLight
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := r.container(ctx, tx, className, id)
		if err != nil || n == nil {
			return err
		}
		nodes, err := children(ctx, tx, n.ID, graph.LabelInventoryObjects, graph.RelChildOf)
		if err != nil {
			return err
		}
		result, err = r.lights(ctx, tx, nodes, childClass)
		return err
	})
	return models.Limit(result, limit), err
}

// container resolves the node whose children are requested. A missing
// DummyRoot has no children.
func (r *Repository) container(ctx context.Context, tx graph.Tx, className, id string) (*graph.Node, error) {
	if isDummyRoot(className, id) {
		n, err := dummyRoot(ctx, tx, false)
		if errors.Is(err, graph.ErrNotFound) {
			return nil, nil
		}
		return n, err
	}
	n, _, err := r.find(ctx, tx, className, id)
	return n, err
}

// ChildrenOfClassRecursive returns all instances of childClass in the
// containment subtree of an object, following normal and special
// containment.
func (r *Repository) ChildrenOfClassRecursive(ctx context.Context, className, id, childClass string, limit int) ([]models.ObjectLight, error) {
	var result []models.ObjectLight
	err := r.view(ctx, func(tx graph.Tx) error {
		root, err := r.container(ctx, tx, className, id)
		if err != nil || root == nil {
			return err
		}
		var nodes []*graph.Node
		err = walkSubtree(ctx, tx, root, func(n *graph.Node) error {
			if n.ID != root.ID && n.HasLabel(graph.LabelInventoryObjects) {
				nodes = append(nodes, n)
			}
			return nil
		})
		if err != nil {
			return err
		}
		result, err = r.lights(ctx, tx, nodes, childClass)
		return err
	})
	return models.Limit(result, limit), err
}

// SpecialChildren returns the special children of an object. Pools are not
// special children.
func (r *Repository) SpecialChildren(ctx context.Context, className, id string, limit int) ([]models.ObjectLight, error) {
	return r.SpecialChildrenOfClass(ctx, className, id, "", limit)
}

// SpecialChildrenOfClass returns the special children that are instances of
// childClass or one of its subclasses.
func (r *Repository) SpecialChildrenOfClass(ctx context.Context, className, id, childClass string, limit int) ([]models.ObjectLight, error) {
	var result []models.ObjectLight
	err := r.view(ctx, func(tx graph.Tx) error {
		n, _, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		nodes, err := children(ctx, tx, n.ID, graph.LabelInventoryObjects, graph.RelChildOfSpecial)
		if err != nil {
			return err
		}
		result, err = r.lights(ctx, tx, nodes, childClass)
		return err
	})
	return models.Limit(result, limit), err
}

// parentOf returns the container of a node as ObjectLight. Objects without
// parent and top level objects report the DummyRoot.
func (r *Repository) parentOf(ctx context.Context, tx graph.Tx, n *graph.Node) (*graph.Node, models.ObjectLight, error) {
	rels, err := containment(ctx, tx, n.ID)
	if err != nil {
		return nil, models.ObjectLight{}, err
	}
	if len(rels) == 0 {
		return nil, dummyRootLight, nil
	}
	rel := rels[0]
	for _, c := range rels {
		if c.Type == graph.RelChildOf {
			rel = c
		}
	}
	p, err := tx.GetNode(ctx, rel.End)
	if err != nil {
		return nil, models.ObjectLight{}, err
	}
	switch {
	case p.HasLabel(graph.LabelSpecialNodes):
		return nil, dummyRootLight, nil
	case p.HasLabel(graph.LabelPools):
		return p, models.ObjectLight{ID: p.UUID(), Name: p.Name(), ClassName: models.PoolClass}, nil
	}
	obj, err := r.objectLight(ctx, tx, p)
	return p, obj, err
}

// Parent returns the direct container of an object.
func (r *Repository) Parent(ctx context.Context, className, id string) (*models.ObjectLight, error) {
	var result models.ObjectLight
	err := r.view(ctx, func(tx graph.Tx) error {
		n, _, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		_, result, err = r.parentOf(ctx, tx, n)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Parents returns the containment chain of an object up to and including
// the DummyRoot, nearest first.
func (r *Repository) Parents(ctx context.Context, className, id string) ([]models.ObjectLight, error) {
	return r.parents(ctx, className, id, func(models.ObjectLight) bool { return false })
}

// ParentsUntilFirstOfClass returns the containment chain up to and including
// the first ancestor that is an instance of stopClass.
func (r *Repository) ParentsUntilFirstOfClass(ctx context.Context, className, id, stopClass string) ([]models.ObjectLight, error) {
	return r.parents(ctx, className, id, func(p models.ObjectLight) bool {
		return p.ClassName != models.PoolClass && r.catalog.HasClass(p.ClassName) && r.catalog.IsSubclassOf(stopClass, p.ClassName)
	})
}

// FirstParentOfClass returns the nearest ancestor that is an instance of
// targetClass, or nil if there is none.
func (r *Repository) FirstParentOfClass(ctx context.Context, className, id, targetClass string) (*models.ObjectLight, error) {
	list, err := r.ParentsUntilFirstOfClass(ctx, className, id, targetClass)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	last := list[len(list)-1]
	if last.ID == graph.DummyRootID {
		return nil, nil
	}
	return &last, nil
}

func (r *Repository) parents(ctx context.Context, className, id string, stop func(models.ObjectLight) bool) ([]models.ObjectLight, error) {
	var result []models.ObjectLight
	err := r.view(ctx, func(tx graph.Tx) error {
		n, _, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		result, err = r.ancestors(ctx, tx, n, stop)
		return err
	})
	return result, err
}

func (r *Repository) ancestors(ctx context.Context, tx graph.Tx, n *graph.Node, stop func(models.ObjectLight) bool) ([]models.ObjectLight, error) {
	var result []models.ObjectLight
	seen := map[string]bool{n.ID: true}
	for n != nil {
		p, obj, err := r.parentOf(ctx, tx, n)
		if err != nil {
			return nil, err
		}
		result = append(result, obj)
		if p == nil || stop(obj) {
			break
		}
		if seen[p.ID] {
			return nil, errs.NotPermittedf("containment cycle detected at %s", obj.ID)
		}
		seen[p.ID] = true
		n = p
	}
	return result, nil
}

// CommonParent returns the nearest container shared by two objects.
func (r *Repository) CommonParent(ctx context.Context, aClass, aID, bClass, bID string) (*models.ObjectLight, error) {
	var result models.ObjectLight
	err := r.view(ctx, func(tx graph.Tx) error {
		a, _, err := r.find(ctx, tx, aClass, aID)
		if err != nil {
			return err
		}
		b, _, err := r.find(ctx, tx, bClass, bID)
		if err != nil {
			return err
		}
		never := func(models.ObjectLight) bool { return false }
		pa, err := r.ancestors(ctx, tx, a, never)
		if err != nil {
			return err
		}
		pb, err := r.ancestors(ctx, tx, b, never)
		if err != nil {
			return err
		}
		ids := map[string]bool{}
		for _, p := range pb {
			ids[p.ID] = true
		}
		result = dummyRootLight
		for _, p := range pa {
			if ids[p.ID] {
				result = p
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Siblings returns the other children of the parent of an object.
func (r *Repository) Siblings(ctx context.Context, className, id string, limit int) ([]models.ObjectLight, error) {
	var result []models.ObjectLight
	err := r.view(ctx, func(tx graph.Tx) error {
		n, _, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		rels, err := tx.Relationships(ctx, n.ID, graph.Outgoing, graph.RelChildOf)
		if err != nil || len(rels) == 0 {
			return err
		}
		nodes, err := children(ctx, tx, rels[0].End, graph.LabelInventoryObjects, graph.RelChildOf)
		if err != nil {
			return err
		}
		var others []*graph.Node
		for _, s := range nodes {
			if s.ID != n.ID {
				others = append(others, s)
			}
		}
		result, err = r.lights(ctx, tx, others, "")
		return err
	})
	return models.Limit(result, limit), err
}

// ObjectsOfClass returns all instances of a class and its subclasses.
func (r *Repository) ObjectsOfClass(ctx context.Context, className string, limit int) ([]models.ObjectLight, error) {
	return r.ObjectsWithFilter(ctx, className, "", "", limit)
}

// ObjectsWithFilter returns the instances of a class and its subclasses
// whose attribute filterName has the value filterValue. An empty filter
// name matches all instances.
func (r *Repository) ObjectsWithFilter(ctx context.Context, className, filterName, filterValue string, limit int) ([]models.ObjectLight, error) {
	cls, err := r.catalog.GetClass(className)
	if err != nil {
		return nil, err
	}
	var attr string
	if filterName != "" {
		a := cls.Attribute(filterName)
		if a == nil {
			return nil, errs.InvalidArgumentf("the attribute %s does not exist in class %s", filterName, className)
		}
		attr = a.Name
	}
	var result []models.ObjectLight
	err = r.view(ctx, func(tx graph.Tx) error {
		for _, sub := range r.catalog.Subclasses(className, true) {
			nodes, err := r.catalog.Instances(ctx, tx, sub)
			if err != nil {
				return err
			}
			for _, n := range nodes {
				if !n.HasLabel(graph.LabelInventoryObjects) {
					continue
				}
				if attr != "" {
					v, err := r.valueOf(ctx, tx, n, sub, attr)
					if err != nil {
						return err
					}
					if v != filterValue {
						continue
					}
				}
				result = append(result, light(n, sub))
			}
		}
		return nil
	})
	models.SortObjects(result)
	return models.Limit(result, limit), err
}

func (r *Repository) valueOf(ctx context.Context, tx graph.Tx, n *graph.Node, className, attr string) (string, error) {
	a, err := r.catalog.Attribute(className, attr)
	if err != nil {
		return "", err
	}
	if a.IsPrimitive() {
		return n.String(attr), nil
	}
	return attrs.ListValue(ctx, tx, n.ID, attr)
}

// Suggest returns objects whose name contains text, ignoring case, that are
// instances of superclass. An empty superclass matches every class.
func (r *Repository) Suggest(ctx context.Context, text, superclass string, limit int) ([]models.ObjectLight, error) {
	if superclass != "" && !r.catalog.HasClass(superclass) {
		return nil, errs.MetadataNotFound("class %s not found", superclass)
	}
	accept := func(cls string) bool {
		return superclass == "" || r.catalog.IsSubclassOf(superclass, cls)
	}

	var result []models.ObjectLight
	if r.index != nil {
		found, err := r.index.Suggest(text, 0)
		if err != nil {
			return nil, err
		}
		for _, obj := range found {
			if accept(obj.ClassName) {
				result = append(result, obj)
			}
		}
		return models.Limit(result, limit), nil
	}

	term := strings.ToLower(text)
	err := r.view(ctx, func(tx graph.Tx) error {
		nodes, err := tx.FindNodes(ctx, graph.LabelInventoryObjects, nil)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if !strings.Contains(strings.ToLower(n.Name()), term) {
				continue
			}
			cls, err := r.classOf(ctx, tx, n)
			if err != nil {
				return err
			}
			if accept(cls) {
				result = append(result, light(n, cls))
			}
		}
		return nil
	})
	models.SortObjects(result)
	return models.Limit(result, limit), err
}

// SubtreeGraph exports the containment subtree of an object, including pools
// and their items, as generic graph.
func (r *Repository) SubtreeGraph(ctx context.Context, className, id string) (*models.GraphResult, error) {
	result := models.NewGraphResult()
	err := r.view(ctx, func(tx graph.Tx) error {
		root, _, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		return walkSubtree(ctx, tx, root, func(n *graph.Node) error {
			result.Nodes = append(result.Nodes, &models.GraphNode{ID: n.ID, Labels: n.Labels, Properties: n.Props})
			if n.ID == root.ID {
				return nil
			}
			rels, err := containment(ctx, tx, n.ID)
			if err != nil {
				return err
			}
			for _, rel := range rels {
				result.Edges = append(result.Edges, &models.Edge{
					ID: rel.ID, Source: rel.Start, Target: rel.End, Type: rel.Type, Properties: rel.Props,
				})
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// walkSubtree visits a node and its containment descendants in pre-order.
func walkSubtree(ctx context.Context, tx graph.Tx, root *graph.Node, fn func(n *graph.Node) error) error {
	stack := []*graph.Node{root}
	seen := map[string]bool{root.ID: true}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if err := fn(n); err != nil {
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, n.ID, graph.Incoming, graph.RelChildOf, graph.RelChildOfSpecial)
		if err != nil {
			return err
		}
		for i := len(nodes) - 1; i >= 0; i-- {
			if !seen[nodes[i].ID] {
				seen[nodes[i].ID] = true
				stack = append(stack, nodes[i])
			}
		}
	}
	return nil
}
