package objects

import (
	"context"

	"github.com/google/uuid"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/internal/attrs"
)

// Move re-attaches objects to a new parent. Every object must be an allowed
// child of the target.
func (r *Repository) Move(ctx context.Context, targetClass, targetID string, classNames, ids []string) error {
	return r.move(ctx, targetClass, targetID, classNames, ids, false)
}

// MoveSpecial re-attaches objects as special children of a new parent.
func (r *Repository) MoveSpecial(ctx context.Context, targetClass, targetID string, classNames, ids []string) error {
	return r.move(ctx, targetClass, targetID, classNames, ids, true)
}

func (r *Repository) move(ctx context.Context, targetClass, targetID string, classNames, ids []string, special bool) error {
	if err := checkArrays(classNames, ids); err != nil {
		return err
	}
	if err := r.checkParentClass(targetClass); err != nil {
		return err
	}
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		target, targetActual, err := r.parent(ctx, tx, targetClass, targetID, true)
		if err != nil {
			return err
		}
		for i := range ids {
			n, cls, err := r.find(ctx, tx, classNames[i], ids[i])
			if err != nil {
				return err
			}
			if err := r.checkChild(targetActual, cls, special); err != nil {
				return err
			}
			if err := checkNotInSubtree(ctx, tx, n, target); err != nil {
				return err
			}
			if err := r.reattach(ctx, tx, n, target, containmentType(special), nil); err != nil {
				return err
			}
			w.moved(light(n, cls))
		}
		return nil
	})
}

// MoveToPool moves objects into a pool.
func (r *Repository) MoveToPool(ctx context.Context, poolID string, classNames, ids []string) error {
	if err := checkArrays(classNames, ids); err != nil {
		return err
	}
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		pool, err := findPool(ctx, tx, poolID)
		if err != nil {
			return err
		}
		for i := range ids {
			n, cls, err := r.find(ctx, tx, classNames[i], ids[i])
			if err != nil {
				return err
			}
			if err := r.checkPoolMember(pool, cls); err != nil {
				return err
			}
			if err := checkNotInSubtree(ctx, tx, n, pool); err != nil {
				return err
			}
			if err := r.reattach(ctx, tx, n, pool, graph.RelChildOfSpecial, poolMarker()); err != nil {
				return err
			}
			w.moved(light(n, cls))
		}
		return nil
	})
}

// MovePoolItem moves a single object into a pool.
func (r *Repository) MovePoolItem(ctx context.Context, poolID, className, id string) error {
	return r.MoveToPool(ctx, poolID, []string{className}, []string{id})
}

func (r *Repository) reattach(ctx context.Context, tx graph.Tx, n, target *graph.Node, relType string, props graph.Props) error {
	if err := graph.DeleteRelationships(ctx, tx, n.ID, graph.Outgoing, graph.RelChildOf, graph.RelChildOfSpecial); err != nil {
		return err
	}
	_, err := tx.CreateRelationship(ctx, n.ID, target.ID, relType, props)
	return err
}

// checkNotInSubtree rejects moving or copying a node below itself.
func checkNotInSubtree(ctx context.Context, tx graph.Tx, n, target *graph.Node) error {
	seen := map[string]bool{}
	for cur := target; cur != nil; {
		if cur.ID == n.ID {
			return errs.NotPermittedf("object %s can not be moved into its own subtree", n.UUID())
		}
		if seen[cur.ID] {
			return nil
		}
		seen[cur.ID] = true
		rels, err := containment(ctx, tx, cur.ID)
		if err != nil {
			return err
		}
		if len(rels) == 0 {
			return nil
		}
		if cur, err = tx.GetNode(ctx, rels[0].End); err != nil {
			return err
		}
	}
	return nil
}

// Copy clones objects below a new parent and returns the ids of the
// clones. With recursive set, the whole containment subtree is cloned.
//
// Parameters:
//   - ctx: The context for the store transaction.
//   - targetClass: The class of the new parent.
//   - targetID: The id of the new parent.
//   - classNames: The classes of the objects to copy, one per id.
//   - ids: The ids of the objects to copy.
//   - recursive: Whether the containment subtrees are copied as well.
//
// Returns:
//
//	The ids of the clones in the order of ids, or an error. Clones of
//	objects with unique attribute values are rejected and nothing is copied.
func (r *Repository) Copy(ctx context.Context, targetClass, targetID string, classNames, ids []string, recursive bool) ([]string, error) {
	return r.copy(ctx, targetClass, targetID, classNames, ids, recursive, false)
}

// CopySpecial clones objects as special children of a new parent.
func (r *Repository) CopySpecial(ctx context.Context, targetClass, targetID string, classNames, ids []string, recursive bool) ([]string, error) {
	return r.copy(ctx, targetClass, targetID, classNames, ids, recursive, true)
}

func (r *Repository) copy(ctx context.Context, targetClass, targetID string, classNames, ids []string, recursive, special bool) ([]string, error) {
	if err := checkArrays(classNames, ids); err != nil {
		return nil, err
	}
	if err := r.checkParentClass(targetClass); err != nil {
		return nil, err
	}
	var result []string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		target, targetActual, err := r.parent(ctx, tx, targetClass, targetID, true)
		if err != nil {
			return err
		}
		for i := range ids {
			n, cls, err := r.find(ctx, tx, classNames[i], ids[i])
			if err != nil {
				return err
			}
			if err := r.checkChild(targetActual, cls, special); err != nil {
				return err
			}
			if err := checkNotInSubtree(ctx, tx, n, target); err != nil {
				return err
			}
			clone, err := r.copySubtree(ctx, tx, w, n, target, containmentType(special), nil, recursive)
			if err != nil {
				return err
			}
			result = append(result, clone.UUID())
		}
		return nil
	})
	return result, err
}

// CopyPoolItem clones a pool item into a pool.
func (r *Repository) CopyPoolItem(ctx context.Context, poolID, className, id string, recursive bool) (string, error) {
	var result string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		pool, err := findPool(ctx, tx, poolID)
		if err != nil {
			return err
		}
		n, cls, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		if err := r.checkPoolMember(pool, cls); err != nil {
			return err
		}
		if err := checkNotInSubtree(ctx, tx, n, pool); err != nil {
			return err
		}
		clone, err := r.copySubtree(ctx, tx, w, n, pool, graph.RelChildOfSpecial, poolMarker(), recursive)
		if err != nil {
			return err
		}
		result = clone.UUID()
		return nil
	})
	return result, err
}

type copyTask struct {
	source  *graph.Node
	parent  *graph.Node
	relType string
	props   graph.Props
}

// copySubtree clones source below parent using an explicit worklist and
// returns the clone of source.
func (r *Repository) copySubtree(ctx context.Context, tx graph.Tx, w *work, source, parent *graph.Node, relType string, props graph.Props, recursive bool) (*graph.Node, error) {
	var root *graph.Node
	stack := []copyTask{{source, parent, relType, props}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		clone, err := r.cloneNode(ctx, tx, w, t.source)
		if err != nil {
			return nil, err
		}
		if _, err := tx.CreateRelationship(ctx, clone.ID, t.parent.ID, t.relType, t.props); err != nil {
			return nil, err
		}
		if root == nil {
			root = clone
			if !recursive {
				break
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
			stack = append(stack, copyTask{child, clone, rel.Type, rel.Props})
		}
	}
	return root, nil
}

// cloneNode copies an object or pool node with a fresh id. Objects keep
// their class and list type references; their unique values are reserved
// for the clone, which fails for classes with unique attributes.
func (r *Repository) cloneNode(ctx context.Context, tx graph.Tx, w *work, source *graph.Node) (*graph.Node, error) {
	props := attrs.ScalarProps(source)
	props[graph.PropUUID] = uuid.NewString()
	if source.HasLabel(graph.LabelPools) {
		return tx.CreateNode(ctx, props, source.Labels...)
	}

	props[graph.PropCreationDate] = now()
	className, err := r.classOf(ctx, tx, source)
	if err != nil {
		return nil, err
	}
	cls, err := r.catalog.GetClass(className)
	if err != nil {
		return nil, err
	}
	classNode, err := r.catalog.ClassNode(ctx, tx, className)
	if err != nil {
		return nil, err
	}
	clone, err := tx.CreateNode(ctx, props, source.Labels...)
	if err != nil {
		return nil, err
	}
	if _, err := tx.CreateRelationship(ctx, clone.ID, classNode.ID, graph.RelInstanceOf, nil); err != nil {
		return nil, err
	}
	if err := attrs.CopyRelatedTo(ctx, tx, source.ID, clone.ID); err != nil {
		return nil, err
	}
	if err := attrs.ReserveUnique(ctx, tx, w.uc, clone, cls); err != nil {
		return nil, err
	}
	w.created(light(clone, className))
	return clone, nil
}
