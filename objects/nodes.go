package objects

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

func now() int64 {
	return time.Now().UnixMilli()
}

func light(n *graph.Node, class string) models.ObjectLight {
	return models.ObjectLight{ID: n.UUID(), Name: n.Name(), ClassName: class}
}

var dummyRootLight = models.ObjectLight{ID: graph.DummyRootID, Name: graph.DummyRoot, ClassName: metadata.DummyRoot}

func isDummyRoot(className, id string) bool {
	return id == graph.DummyRootID || className == "" || className == metadata.DummyRoot
}

// FindObject resolves an inventory object by id. The object must be an
// instance of className or one of its subclasses. It returns the node and
// its actual class.
func FindObject(ctx context.Context, tx graph.Tx, catalog *metadata.Catalog, className, id string) (*graph.Node, string, error) {
	if !catalog.HasClass(className) {
		return nil, "", errs.MetadataNotFound("class %s not found", className)
	}
	n, err := tx.FindNode(ctx, graph.LabelInventoryObjects, graph.PropUUID, id)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, "", errs.ObjectNotFound(className, id)
		}
		return nil, "", err
	}
	cls, err := metadata.ClassOfNode(ctx, tx, n.ID)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, "", errs.ObjectNotFound(className, id)
		}
		return nil, "", err
	}
	if !catalog.IsSubclassOf(className, cls) {
		return nil, "", errs.ObjectNotFound(className, id)
	}
	return n, cls, nil
}

func (r *Repository) find(ctx context.Context, tx graph.Tx, className, id string) (*graph.Node, string, error) {
	return FindObject(ctx, tx, r.catalog, className, id)
}

func (r *Repository) classOf(ctx context.Context, tx graph.Tx, n *graph.Node) (string, error) {
	return metadata.ClassOfNode(ctx, tx, n.ID)
}

// dummyRoot returns the node top level objects are attached to, creating it
// if requested.
func dummyRoot(ctx context.Context, tx graph.Tx, create bool) (*graph.Node, error) {
	n, err := tx.FindNode(ctx, graph.LabelSpecialNodes, graph.PropName, graph.DummyRoot)
	if err == nil || !create || !errors.Is(err, graph.ErrNotFound) {
		return n, err
	}
	log.Info("creating {{name}} node", "name", graph.DummyRoot)
	return tx.CreateNode(ctx, graph.Props{graph.PropName: graph.DummyRoot}, graph.LabelSpecialNodes)
}

// parent resolves the node a new or moved object is attached to together
// with the class name used for containment checks.
func (r *Repository) parent(ctx context.Context, tx graph.Tx, className, id string, create bool) (*graph.Node, string, error) {
	if isDummyRoot(className, id) {
		n, err := dummyRoot(ctx, tx, create)
		return n, metadata.DummyRoot, err
	}
	return r.find(ctx, tx, className, id)
}

func (r *Repository) checkInstanceable(className string) (*metadata.Class, error) {
	cls, err := r.catalog.GetClass(className)
	if err != nil {
		return nil, err
	}
	if cls.Abstract {
		return nil, errs.NotPermittedf("abstract class %s can not be instantiated", className)
	}
	if cls.InDesign {
		return nil, errs.NotPermittedf("class %s is in design and can not be instantiated", className)
	}
	if !r.catalog.IsSubclassOf(metadata.InventoryObject, className) {
		return nil, errs.NotPermittedf("class %s is not an inventory class", className)
	}
	return cls, nil
}

func (r *Repository) checkParentClass(parentClass string) error {
	if parentClass == "" || parentClass == metadata.DummyRoot {
		return nil
	}
	if !r.catalog.HasClass(parentClass) {
		return errs.MetadataNotFound("class %s not found", parentClass)
	}
	return nil
}

func (r *Repository) checkChild(parentClass, className string, special bool) error {
	if special {
		if !r.catalog.CanBeSpecialChild(parentClass, className) {
			return errs.NotPermittedf("an instance of %s can not be a special child of %s", className, containmentName(parentClass))
		}
		return nil
	}
	if !r.catalog.CanBeChild(parentClass, className) {
		return errs.NotPermittedf("an instance of %s can not be a child of %s", className, containmentName(parentClass))
	}
	return nil
}

func containmentName(class string) string {
	if class == "" {
		return metadata.DummyRoot
	}
	return class
}

func containmentType(special bool) string {
	if special {
		return graph.RelChildOfSpecial
	}
	return graph.RelChildOf
}

// newObject creates an instance of cls carrying the given attribute values.
func (r *Repository) newObject(ctx context.Context, tx graph.Tx, w *work, cls *metadata.Class, values map[string]string, templateID string) (*graph.Node, error) {
	if templateID != "" {
		if r.templates == nil {
			return nil, errs.NotPermittedf("templates are not configured")
		}
		return r.templates.Spawn(ctx, tx, templateID, cls.Name, w.uc)
	}

	classNode, err := r.catalog.ClassNode(ctx, tx, cls.Name)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	n, err := tx.CreateNode(ctx, graph.Props{
		graph.PropUUID:         id,
		graph.PropCreationDate: now(),
	}, graph.LabelInventoryObjects)
	if err != nil {
		return nil, err
	}
	if _, err := tx.CreateRelationship(ctx, n.ID, classNode.ID, graph.RelInstanceOf, nil); err != nil {
		return nil, err
	}
	if _, err := applyAttributes(ctx, tx, r.catalog, w, n, cls, values, true); err != nil {
		return nil, err
	}
	return tx.GetNode(ctx, n.ID)
}

// containment returns the relationships attaching a node to its parent.
func containment(ctx context.Context, tx graph.Tx, nodeID string) ([]*graph.Relationship, error) {
	return tx.Relationships(ctx, nodeID, graph.Outgoing, graph.RelChildOf, graph.RelChildOfSpecial)
}

// children returns the nodes directly contained in nodeID, optionally
// filtered by label.
func children(ctx context.Context, tx graph.Tx, nodeID, label string, types ...string) ([]*graph.Node, error) {
	nodes, err := graph.Neighbours(ctx, tx, nodeID, graph.Incoming, types...)
	if err != nil {
		return nil, err
	}
	if label == "" {
		return nodes, nil
	}
	var result []*graph.Node
	for _, n := range nodes {
		if n.HasLabel(label) {
			result = append(result, n)
		}
	}
	return result, nil
}

func (r *Repository) lights(ctx context.Context, tx graph.Tx, nodes []*graph.Node, filterClass string) ([]models.ObjectLight, error) {
	result := make([]models.ObjectLight, 0, len(nodes))
	for _, n := range nodes {
		cls, err := r.classOf(ctx, tx, n)
		if err != nil {
			return nil, err
		}
		if filterClass != "" && !r.catalog.IsSubclassOf(filterClass, cls) {
			continue
		}
		result = append(result, light(n, cls))
	}
	models.SortObjects(result)
	return result, nil
}

func checkArrays(classNames, ids []string) error {
	if len(classNames) != len(ids) {
		return errs.InvalidArgumentf("got %d class names for %d object ids", len(classNames), len(ids))
	}
	return nil
}
