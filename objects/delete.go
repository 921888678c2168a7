package objects

import (
	"context"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/filestore"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/internal/attrs"
)

// Delete removes an object with its containment subtree, including pools
// and their items. Unless release is set, the deletion is refused if any
// node of the subtree has special relationships or process instances.
func (r *Repository) Delete(ctx context.Context, className, id string, release bool) error {
	return r.DeleteMany(ctx, []string{className}, []string{id}, release)
}

// DeleteMany deletes several objects in one transaction.
func (r *Repository) DeleteMany(ctx context.Context, classNames, ids []string, release bool) error {
	if err := checkArrays(classNames, ids); err != nil {
		return err
	}
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		for i := range ids {
			n, _, err := r.find(ctx, tx, classNames[i], ids[i])
			if err != nil {
				return err
			}
			if err := r.deleteSubtree(ctx, tx, w, n, release); err != nil {
				return err
			}
		}
		return nil
	})
}

// CanDelete reports whether an object could be deleted without releasing
// relationships.
func (r *Repository) CanDelete(ctx context.Context, className, id string) (bool, error) {
	var ok bool
	err := r.view(ctx, func(tx graph.Tx) error {
		n, _, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		nodes, err := subtree(ctx, tx, n)
		if err != nil {
			return err
		}
		err = checkDeletable(ctx, tx, nodes)
		if errs.IsNotPermitted(err) {
			return nil
		}
		ok = err == nil
		return err
	})
	return ok, err
}

func subtree(ctx context.Context, tx graph.Tx, root *graph.Node) ([]*graph.Node, error) {
	var nodes []*graph.Node
	err := walkSubtree(ctx, tx, root, func(n *graph.Node) error {
		nodes = append(nodes, n)
		return nil
	})
	return nodes, err
}

// checkDeletable fails if a node still has relationships that must be
// released explicitly.
func checkDeletable(ctx context.Context, tx graph.Tx, nodes []*graph.Node) error {
	for _, n := range nodes {
		rels, err := tx.Relationships(ctx, n.ID, graph.Both, graph.RelRelatedToSpecial, graph.RelHasProcessInstance)
		if err != nil {
			return err
		}
		if len(rels) > 0 {
			return errs.NotPermittedf("the object %s (%s) has %d relationships (%s) which must be released first",
				n.Name(), n.UUID(), len(rels), rels[0].Type)
		}
	}
	return nil
}

// deleteSubtree deletes a node and its containment descendants, children
// first.
func (r *Repository) deleteSubtree(ctx context.Context, tx graph.Tx, w *work, root *graph.Node, release bool) error {
	nodes, err := subtree(ctx, tx, root)
	if err != nil {
		return err
	}
	if !release {
		if err := checkDeletable(ctx, tx, nodes); err != nil {
			return err
		}
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.deleteNode(ctx, tx, w, nodes[i]); err != nil {
			return err
		}
	}
	log.Debug("deleted {{count}} nodes below {{id}}", "count", len(nodes), "id", root.UUID())
	return nil
}

// deleteNode removes a single node together with the records it owns.
func (r *Repository) deleteNode(ctx context.Context, tx graph.Tx, w *work, n *graph.Node) error {
	if !n.HasLabel(graph.LabelInventoryObjects) {
		return graph.DetachDelete(ctx, tx, n.ID)
	}
	className, err := r.classOf(ctx, tx, n)
	if err != nil {
		return err
	}
	if cls, err := r.catalog.GetClass(className); err == nil {
		attrs.FreeUnique(w.uc, n, cls)
	}

	owned := []struct {
		dir   graph.Direction
		types []string
	}{
		{graph.Outgoing, []string{graph.RelHasView, graph.RelHasHistoryEntry, graph.RelHasAttachment, graph.RelHasContact}},
		{graph.Incoming, []string{graph.RelHasConfiguration}},
	}
	for _, o := range owned {
		records, err := graph.Neighbours(ctx, tx, n.ID, o.dir, o.types...)
		if err != nil {
			return err
		}
		for _, rec := range records {
			switch {
			case rec.HasLabel(graph.LabelAttachments):
				w.files = append(w.files, filestore.Name(n.UUID(), rec.UUID()))
			case rec.HasLabel(graph.LabelObjectViews):
				if bg := rec.String(graph.PropBackground); bg != "" {
					w.files = append(w.files, bg)
				}
			}
			if err := graph.DetachDelete(ctx, tx, rec.ID); err != nil {
				return err
			}
		}
	}
	if err := graph.DetachDelete(ctx, tx, n.ID); err != nil {
		return err
	}
	w.deleted(light(n, className))
	return nil
}
