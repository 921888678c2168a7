package objects

import (
	"context"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/namepattern"
)

// Create creates an instance of className below a parent object. An empty
// parent class or the parent id "-1" attach the object to the DummyRoot.
// With a template id, the object is spawned from the template and
// attributes are ignored.
//
// Parameters:
//   - ctx: The context for the store transaction.
//   - className: The class of the new object. It must not be abstract.
//   - parentClassName: The class of the parent, empty for the DummyRoot.
//   - parentID: The id of the parent, "-1" for the DummyRoot.
//   - attributes: Attribute values by name. List type values are item ids.
//   - templateID: An optional template of className to spawn from.
//
// Returns:
//   - The id of the new object.
//   - An InvalidArgument error for unknown attributes, malformed values or
//     values of unique attributes already in use.
//   - A NotPermitted error if the class can not be instantiated or is not
//     a possible child of the parent class.
//   - A not found error if the class, parent or template does not exist.
func (r *Repository) Create(ctx context.Context, className, parentClassName, parentID string, attributes map[string]string, templateID string) (string, error) {
	return r.create(ctx, className, parentClassName, parentID, attributes, templateID, false)
}

// CreateSpecial creates an instance of className as special child of a parent object.
func (r *Repository) CreateSpecial(ctx context.Context, className, parentClassName, parentID string, attributes map[string]string, templateID string) (string, error) {
	return r.create(ctx, className, parentClassName, parentID, attributes, templateID, true)
}

func (r *Repository) create(ctx context.Context, className, parentClassName, parentID string, attributes map[string]string, templateID string, special bool) (string, error) {
	cls, err := r.checkInstanceable(className)
	if err != nil {
		return "", err
	}
	if err := r.checkParentClass(parentClassName); err != nil {
		return "", err
	}

	var id string
	err = r.update(ctx, func(tx graph.Tx, w *work) error {
		parent, parentClass, err := r.parent(ctx, tx, parentClassName, parentID, true)
		if err != nil {
			return err
		}
		if err := r.checkChild(parentClass, className, special); err != nil {
			return err
		}
		n, err := r.newObject(ctx, tx, w, cls, attributes, templateID)
		if err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, n.ID, parent.ID, containmentType(special), nil); err != nil {
			return err
		}
		id = n.UUID()
		w.created(light(n, className))
		return nil
	})
	if err != nil {
		return "", err
	}
	log.Debug("created {{class}} {{id}} below {{parent}}", "class", className, "id", id, "parent", parentID)
	return id, nil
}

// CreateHeadless creates an instance of className without any parent.
func (r *Repository) CreateHeadless(ctx context.Context, className string, attributes map[string]string, templateID string) (string, error) {
	cls, err := r.checkInstanceable(className)
	if err != nil {
		return "", err
	}
	var id string
	err = r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := r.newObject(ctx, tx, w, cls, attributes, templateID)
		if err != nil {
			return err
		}
		id = n.UUID()
		w.created(light(n, className))
		return nil
	})
	return id, err
}

// CreatePoolItem creates an instance of className in a pool. The class must
// be a subclass of the class of the pool.
func (r *Repository) CreatePoolItem(ctx context.Context, poolID, className string, attributes map[string]string, templateID string) (string, error) {
	cls, err := r.checkInstanceable(className)
	if err != nil {
		return "", err
	}
	var id string
	err = r.update(ctx, func(tx graph.Tx, w *work) error {
		pool, err := findPool(ctx, tx, poolID)
		if err != nil {
			return err
		}
		if err := r.checkPoolMember(pool, className); err != nil {
			return err
		}
		n, err := r.newObject(ctx, tx, w, cls, attributes, templateID)
		if err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, n.ID, pool.ID, graph.RelChildOfSpecial, poolMarker()); err != nil {
			return err
		}
		id = n.UUID()
		w.created(light(n, className))
		return nil
	})
	return id, err
}

// CreateBulk creates count siblings named after a name pattern below a
// parent object. Mirrored names are linked by a "mirror" special relationship.
func (r *Repository) CreateBulk(ctx context.Context, className, parentClassName, parentID string, count int, namePattern, templateID string) ([]string, error) {
	return r.createBulk(ctx, className, parentClassName, parentID, count, namePattern, templateID, false)
}

// CreateBulkSpecial is CreateBulk for special children.
func (r *Repository) CreateBulkSpecial(ctx context.Context, className, parentClassName, parentID string, count int, namePattern, templateID string) ([]string, error) {
	return r.createBulk(ctx, className, parentClassName, parentID, count, namePattern, templateID, true)
}

func (r *Repository) createBulk(ctx context.Context, className, parentClassName, parentID string, count int, namePattern, templateID string, special bool) ([]string, error) {
	cls, err := r.checkInstanceable(className)
	if err != nil {
		return nil, err
	}
	if err := r.checkParentClass(parentClassName); err != nil {
		return nil, err
	}
	names, pattern, err := namepattern.Generate(namePattern, count)
	if err != nil {
		return nil, err
	}

	var ids []string
	err = r.update(ctx, func(tx graph.Tx, w *work) error {
		parent, parentClass, err := r.parent(ctx, tx, parentClassName, parentID, true)
		if err != nil {
			return err
		}
		if err := r.checkChild(parentClass, className, special); err != nil {
			return err
		}
		nodes := make([]*graph.Node, 0, len(names))
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := r.newObject(ctx, tx, w, cls, nil, templateID)
			if err != nil {
				return err
			}
			if _, err := applyAttributes(ctx, tx, r.catalog, w, n, cls, map[string]string{graph.PropName: name}, false); err != nil {
				return err
			}
			n.Props[graph.PropName] = name
			if _, err := tx.CreateRelationship(ctx, n.ID, parent.ID, containmentType(special), nil); err != nil {
				return err
			}
			nodes = append(nodes, n)
			w.created(light(n, className))
		}
		if pattern.IsMirror() {
			for _, p := range namepattern.MirrorPairs(names) {
				if _, err := tx.CreateRelationship(ctx, nodes[p[0]].ID, nodes[p[1]].ID, graph.RelRelatedToSpecial,
					graph.Props{graph.PropName: graph.RelPropMirror}); err != nil {
					return err
				}
			}
		}
		for _, n := range nodes {
			ids = append(ids, n.UUID())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info("created {{count}} instances of {{class}} from pattern {{pattern}}", "count", len(ids), "class", className, "pattern", namePattern)
	return ids, nil
}

func poolMarker() graph.Props {
	return graph.Props{graph.PropName: graph.RelPropPool}
}

func (r *Repository) checkPoolMember(pool *graph.Node, className string) error {
	poolClass := pool.String(graph.PropClassName)
	if !r.catalog.IsSubclassOf(poolClass, className) {
		return errs.NotPermittedf("an instance of %s can not be added to a pool of %s", className, poolClass)
	}
	return nil
}

func (r *Repository) objectLight(ctx context.Context, tx graph.Tx, n *graph.Node) (models.ObjectLight, error) {
	cls, err := r.classOf(ctx, tx, n)
	if err != nil {
		return models.ObjectLight{}, err
	}
	return light(n, cls), nil
}
