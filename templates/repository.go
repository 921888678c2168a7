// Package templates manages template trees: prototypes of inventory object
// subtrees which are spawned into live objects. Template elements carry the
// attribute shape of ordinary objects but are linked to their class with
// INSTANCE_OF_SPECIAL, so ordinary object queries never see them.
package templates

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/internal/attrs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/namepattern"
)

// Repository provides the template operations.
type Repository struct {
	store   graph.Store
	catalog *metadata.Catalog
}

// New creates a template repository.
func New(store graph.Store, catalog *metadata.Catalog) *Repository {
	return &Repository{store: store, catalog: catalog}
}

func (r *Repository) checkClass(className string) (*metadata.Class, error) {
	cls, err := r.catalog.GetClass(className)
	if err != nil {
		return nil, err
	}
	if cls.Abstract {
		return nil, errs.NotPermittedf("abstract class %s can not have templates", className)
	}
	if !r.catalog.IsSubclassOf(metadata.InventoryObject, className) {
		return nil, errs.NotPermittedf("class %s is not an inventory class", className)
	}
	return cls, nil
}

// element resolves a template element of className or one of its subclasses.
func (r *Repository) element(ctx context.Context, tx graph.Tx, className, id string) (*graph.Node, string, error) {
	if !r.catalog.HasClass(className) {
		return nil, "", errs.MetadataNotFound("class %s not found", className)
	}
	n, err := tx.FindNode(ctx, graph.LabelTemplateElements, graph.PropUUID, id)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, "", errs.ApplicationObjectNotFound("template element", id)
		}
		return nil, "", err
	}
	cls, err := metadata.ClassOfNode(ctx, tx, n.ID)
	if err != nil {
		return nil, "", err
	}
	if !r.catalog.IsSubclassOf(className, cls) {
		return nil, "", errs.ApplicationObjectNotFound("template element", id)
	}
	return n, cls, nil
}

func (r *Repository) newElement(ctx context.Context, tx graph.Tx, cls *metadata.Class, name string, labels ...string) (*graph.Node, error) {
	classNode, err := r.catalog.ClassNode(ctx, tx, cls.Name)
	if err != nil {
		return nil, err
	}
	props := graph.Props{
		graph.PropUUID:         uuid.NewString(),
		graph.PropCreationDate: now(),
	}
	if name != "" {
		props[graph.PropName] = name
	}
	n, err := tx.CreateNode(ctx, props, append([]string{graph.LabelTemplateElements}, labels...)...)
	if err != nil {
		return nil, err
	}
	if _, err := tx.CreateRelationship(ctx, n.ID, classNode.ID, graph.RelInstanceOfSpecial, nil); err != nil {
		return nil, err
	}
	return n, nil
}

// Create creates a template for className and returns its id.
func (r *Repository) Create(ctx context.Context, className, name string) (string, error) {
	cls, err := r.checkClass(className)
	if err != nil {
		return "", err
	}
	var id string
	err = graph.Update(ctx, r.store, func(tx graph.Tx) error {
		n, err := r.newElement(ctx, tx, cls, name, graph.LabelTemplates)
		if err != nil {
			return err
		}
		classNode, err := r.catalog.ClassNode(ctx, tx, cls.Name)
		if err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, classNode.ID, n.ID, graph.RelHasTemplate, nil); err != nil {
			return err
		}
		id = n.UUID()
		return nil
	})
	if err != nil {
		return "", err
	}
	log.Info("created template {{name}} for {{class}}", "name", name, "class", className)
	return id, nil
}

// TemplatesForClass returns the templates of a class ordered by name.
func (r *Repository) TemplatesForClass(ctx context.Context, className string) ([]models.ObjectLight, error) {
	if !r.catalog.HasClass(className) {
		return nil, errs.MetadataNotFound("class %s not found", className)
	}
	var result []models.ObjectLight
	err := graph.View(ctx, r.store, func(tx graph.Tx) error {
		classNode, err := r.catalog.FindClassNode(ctx, tx, className)
		if err != nil {
			if errors.Is(err, graph.ErrNotFound) {
				return nil
			}
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, classNode.ID, graph.Outgoing, graph.RelHasTemplate)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			result = append(result, light(n, className))
		}
		return nil
	})
	models.SortObjects(result)
	return result, err
}

// AddElement creates a template element below a parent element.
func (r *Repository) AddElement(ctx context.Context, className, parentClassName, parentID, name string) (string, error) {
	ids, err := r.addElements(ctx, className, parentClassName, parentID, []string{name}, false, false)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddSpecialElement creates a template element as special child of a parent element.
func (r *Repository) AddSpecialElement(ctx context.Context, className, parentClassName, parentID, name string) (string, error) {
	ids, err := r.addElements(ctx, className, parentClassName, parentID, []string{name}, true, false)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddBulkElements creates count elements named after a name pattern.
func (r *Repository) AddBulkElements(ctx context.Context, className, parentClassName, parentID string, count int, namePattern string) ([]string, error) {
	return r.addBulk(ctx, className, parentClassName, parentID, count, namePattern, false)
}

// AddBulkSpecialElements creates count special elements named after a name pattern.
func (r *Repository) AddBulkSpecialElements(ctx context.Context, className, parentClassName, parentID string, count int, namePattern string) ([]string, error) {
	return r.addBulk(ctx, className, parentClassName, parentID, count, namePattern, true)
}

func (r *Repository) addBulk(ctx context.Context, className, parentClassName, parentID string, count int, namePattern string, special bool) ([]string, error) {
	names, pattern, err := namepattern.Generate(namePattern, count)
	if err != nil {
		return nil, err
	}
	return r.addElements(ctx, className, parentClassName, parentID, names, special, pattern.IsMirror())
}

func (r *Repository) addElements(ctx context.Context, className, parentClassName, parentID string, names []string, special, mirror bool) ([]string, error) {
	cls, err := r.catalog.GetClass(className)
	if err != nil {
		return nil, err
	}
	if cls.Abstract {
		return nil, errs.NotPermittedf("abstract class %s can not be instantiated", className)
	}
	var ids []string
	err = graph.Update(ctx, r.store, func(tx graph.Tx) error {
		parent, parentClass, err := r.element(ctx, tx, parentClassName, parentID)
		if err != nil {
			return err
		}
		if err := checkChild(r.catalog, parentClass, className, special); err != nil {
			return err
		}
		nodes := make([]*graph.Node, 0, len(names))
		for _, name := range names {
			n, err := r.newElement(ctx, tx, cls, name)
			if err != nil {
				return err
			}
			if _, err := tx.CreateRelationship(ctx, n.ID, parent.ID, containmentType(special), nil); err != nil {
				return err
			}
			nodes = append(nodes, n)
			ids = append(ids, n.UUID())
		}
		if mirror {
			for _, p := range namepattern.MirrorPairs(names) {
				if _, err := tx.CreateRelationship(ctx, nodes[p[0]].ID, nodes[p[1]].ID, graph.RelRelatedToSpecial,
					graph.Props{graph.PropName: graph.RelPropMirror}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// UpdateElement sets attribute values of a template element. Mandatory
// attributes may stay empty until the template is spawned; unique
// attributes are not checked.
func (r *Repository) UpdateElement(ctx context.Context, className, id string, attributes map[string]string) (*models.ChangeDescriptor, error) {
	var changes *models.ChangeDescriptor
	err := graph.Update(ctx, r.store, func(tx graph.Tx) error {
		n, actual, err := r.element(ctx, tx, className, id)
		if err != nil {
			return err
		}
		cls, err := r.catalog.GetClass(actual)
		if err != nil {
			return err
		}
		changes, err = attrs.Apply(ctx, tx, r.catalog, n, cls, attributes, attrs.Options{})
		return err
	})
	return changes, err
}

// GetElement returns a template element with its attribute values.
func (r *Repository) GetElement(ctx context.Context, className, id string) (*models.Object, error) {
	var obj *models.Object
	err := graph.View(ctx, r.store, func(tx graph.Tx) error {
		n, actual, err := r.element(ctx, tx, className, id)
		if err != nil {
			return err
		}
		cls, err := r.catalog.GetClass(actual)
		if err != nil {
			return err
		}
		values, err := attrs.Read(ctx, tx, n, cls)
		if err != nil {
			return err
		}
		obj = &models.Object{ObjectLight: light(n, actual), CreationDate: n.Int64(graph.PropCreationDate), Attributes: values}
		return nil
	})
	return obj, err
}

// ElementChildren returns the direct children of a template element.
func (r *Repository) ElementChildren(ctx context.Context, className, id string) ([]models.ObjectLight, error) {
	return r.children(ctx, className, id, graph.RelChildOf)
}

// SpecialElementChildren returns the direct special children of a template element.
func (r *Repository) SpecialElementChildren(ctx context.Context, className, id string) ([]models.ObjectLight, error) {
	return r.children(ctx, className, id, graph.RelChildOfSpecial)
}

func (r *Repository) children(ctx context.Context, className, id, relType string) ([]models.ObjectLight, error) {
	var result []models.ObjectLight
	err := graph.View(ctx, r.store, func(tx graph.Tx) error {
		n, _, err := r.element(ctx, tx, className, id)
		if err != nil {
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, n.ID, graph.Incoming, relType)
		if err != nil {
			return err
		}
		for _, c := range nodes {
			cls, err := metadata.ClassOfNode(ctx, tx, c.ID)
			if err != nil {
				return err
			}
			result = append(result, light(c, cls))
		}
		return nil
	})
	models.SortObjects(result)
	return result, err
}

// DeleteElement deletes a template element or a whole template with all
// its descendants.
func (r *Repository) DeleteElement(ctx context.Context, className, id string) error {
	return graph.Update(ctx, r.store, func(tx graph.Tx) error {
		n, _, err := r.element(ctx, tx, className, id)
		if err != nil {
			return err
		}
		nodes, err := subtree(ctx, tx, n)
		if err != nil {
			return err
		}
		for i := len(nodes) - 1; i >= 0; i-- {
			if err := graph.DetachDelete(ctx, tx, nodes[i].ID); err != nil {
				return err
			}
		}
		log.Debug("deleted {{count}} template elements below {{id}}", "count", len(nodes), "id", id)
		return nil
	})
}

// CopyElements copies template elements with their subtrees below a target
// element and returns the ids of the copies.
func (r *Repository) CopyElements(ctx context.Context, classNames, ids []string, targetClass, targetID string) ([]string, error) {
	return r.copyElements(ctx, classNames, ids, targetClass, targetID, false)
}

// CopySpecialElements copies template elements as special children of a target element.
func (r *Repository) CopySpecialElements(ctx context.Context, classNames, ids []string, targetClass, targetID string) ([]string, error) {
	return r.copyElements(ctx, classNames, ids, targetClass, targetID, true)
}

func (r *Repository) copyElements(ctx context.Context, classNames, ids []string, targetClass, targetID string, special bool) ([]string, error) {
	if len(classNames) != len(ids) {
		return nil, errs.InvalidArgumentf("got %d class names for %d element ids", len(classNames), len(ids))
	}
	var result []string
	err := graph.Update(ctx, r.store, func(tx graph.Tx) error {
		target, tc, err := r.element(ctx, tx, targetClass, targetID)
		if err != nil {
			return err
		}
		for i := range ids {
			n, cls, err := r.element(ctx, tx, classNames[i], ids[i])
			if err != nil {
				return err
			}
			if err := checkChild(r.catalog, tc, cls, special); err != nil {
				return err
			}
			if err := checkNotBelow(ctx, tx, n, target); err != nil {
				return err
			}
			c := &cloner{catalog: r.catalog, labels: []string{graph.LabelTemplateElements}, instanceOf: graph.RelInstanceOfSpecial}
			root, err := c.clone(ctx, tx, n)
			if err != nil {
				return err
			}
			if _, err := tx.CreateRelationship(ctx, root.ID, target.ID, containmentType(special), nil); err != nil {
				return err
			}
			result = append(result, root.UUID())
		}
		return nil
	})
	return result, err
}

// checkNotBelow rejects copying an element into its own subtree.
func checkNotBelow(ctx context.Context, tx graph.Tx, n, target *graph.Node) error {
	seen := map[string]bool{}
	for cur := target; cur != nil && !seen[cur.ID]; {
		if cur.ID == n.ID {
			return errs.NotPermittedf("template element %s can not be copied into its own subtree", n.UUID())
		}
		seen[cur.ID] = true
		p, _, err := graph.Single(ctx, tx, cur.ID, graph.Outgoing, graph.RelChildOf, graph.RelChildOfSpecial)
		if err != nil {
			if errors.Is(err, graph.ErrNotFound) {
				return nil
			}
			return err
		}
		cur = p
	}
	return nil
}

// Spawn creates a live object subtree from a template inside the caller's
// transaction. The root is returned without containment relationship.
// Mandatory attributes must be set in the template and unique values are
// reserved with uc.
func (r *Repository) Spawn(ctx context.Context, tx graph.Tx, templateID, className string, uc *metadata.UniqueChanges) (*graph.Node, error) {
	tmpl, err := tx.FindNode(ctx, graph.LabelTemplates, graph.PropUUID, templateID)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, errs.ApplicationObjectNotFound("template", templateID)
		}
		return nil, err
	}
	cls, err := metadata.ClassOfNode(ctx, tx, tmpl.ID)
	if err != nil {
		return nil, err
	}
	if cls != className {
		return nil, errs.InvalidArgumentf("template %s is a template of %s, not of %s", templateID, cls, className)
	}
	c := &cloner{
		catalog:    r.catalog,
		labels:     []string{graph.LabelInventoryObjects},
		instanceOf: graph.RelInstanceOf,
		unique:     uc,
		live:       true,
	}
	root, err := c.clone(ctx, tx, tmpl)
	if err != nil {
		return nil, err
	}
	log.Debug("spawned {{count}} objects from template {{id}}", "count", len(c.clones), "id", templateID)
	return root, nil
}
