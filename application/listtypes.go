package application

import (
	"context"
	"errors"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/internal/attrs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

// ListTypeItem is an item of a list type class.
type ListTypeItem struct {
	models.ObjectLight
	DisplayName string            `json:"displayName,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

func (r *Repository) listTypeClass(className string, instance bool) (*metadata.Class, error) {
	cls, err := r.catalog.GetClass(className)
	if err != nil {
		return nil, err
	}
	if !r.catalog.IsListType(className) {
		return nil, errs.InvalidArgumentf("the class %s is not a list type", className)
	}
	if instance && (cls.Abstract || cls.InDesign) {
		return nil, errs.NotPermittedf("the list type %s can not be instantiated", className)
	}
	return cls, nil
}

// findItem resolves a list type item of className or one of its subclasses.
func (r *Repository) findItem(ctx context.Context, tx graph.Tx, className, id string) (*graph.Node, string, error) {
	if _, err := r.listTypeClass(className, false); err != nil {
		return nil, "", err
	}
	n, err := attrs.ListTypeItem(ctx, tx, id)
	if err != nil {
		if errs.IsNotFound(err) {
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
	if !r.catalog.IsSubclassOf(className, cls) {
		return nil, "", errs.ObjectNotFound(className, id)
	}
	return n, cls, nil
}

// CreateListTypeItem creates an item of a concrete list type.
func (r *Repository) CreateListTypeItem(ctx context.Context, className, name, displayName string) (string, error) {
	cls, err := r.listTypeClass(className, true)
	if err != nil {
		return "", err
	}
	if blank(name) {
		return "", errs.InvalidArgumentf("the name of a list type item can not be empty")
	}
	var id string
	err = r.update(ctx, func(tx graph.Tx, w *work) error {
		classNode, err := r.catalog.ClassNode(ctx, tx, cls.Name)
		if err != nil {
			return err
		}
		n, err := tx.CreateNode(ctx, graph.Props{graph.PropUUID: newID(), graph.PropName: name}, graph.LabelListTypeItems)
		if err != nil {
			return err
		}
		if displayName != "" {
			if err := tx.SetProperties(ctx, n.ID, graph.Props{graph.PropDisplayName: displayName}); err != nil {
				return err
			}
		}
		if _, err := tx.CreateRelationship(ctx, n.ID, classNode.ID, graph.RelInstanceOf, nil); err != nil {
			return err
		}
		id = n.UUID()
		return nil
	})
	return id, err
}

// UpdateListTypeItem sets attribute values of an item. The name can not be
// removed.
func (r *Repository) UpdateListTypeItem(ctx context.Context, className, id string, attributes map[string]string) (*models.ChangeDescriptor, error) {
	if v, ok := attributes[graph.PropName]; ok && blank(v) {
		return nil, errs.InvalidArgumentf("the name of a list type item can not be empty")
	}
	var changes *models.ChangeDescriptor
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		n, actual, err := r.findItem(ctx, tx, className, id)
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

// DeleteListTypeItem removes an item. Items still referenced by objects can
// only be deleted with release, which drops the references.
func (r *Repository) DeleteListTypeItem(ctx context.Context, className, id string, release bool) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, _, err := r.findItem(ctx, tx, className, id)
		if err != nil {
			return err
		}
		uses, err := tx.Relationships(ctx, n.ID, graph.Incoming, graph.RelRelatedTo)
		if err != nil {
			return err
		}
		if len(uses) > 0 && !release {
			return errs.NotPermittedf("the list type item %s is used by %d objects", n.Name(), len(uses))
		}
		return graph.DetachDelete(ctx, tx, n.ID)
	})
}

func (r *Repository) item(ctx context.Context, tx graph.Tx, n *graph.Node, className string) (*ListTypeItem, error) {
	cls, err := r.catalog.GetClass(className)
	if err != nil {
		return nil, err
	}
	values, err := attrs.Read(ctx, tx, n, cls)
	if err != nil {
		return nil, err
	}
	return &ListTypeItem{
		ObjectLight: models.ObjectLight{ID: n.UUID(), Name: n.Name(), ClassName: className},
		DisplayName: n.String(graph.PropDisplayName),
		Attributes:  values,
	}, nil
}

// ListTypeItems returns the items of a list type ordered by name.
func (r *Repository) ListTypeItems(ctx context.Context, className string) ([]models.ObjectLight, error) {
	if _, err := r.listTypeClass(className, false); err != nil {
		return nil, err
	}
	var result []models.ObjectLight
	err := r.view(ctx, func(tx graph.Tx) error {
		nodes, err := r.catalog.Instances(ctx, tx, className)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if n.HasLabel(graph.LabelListTypeItems) {
				result = append(result, models.ObjectLight{ID: n.UUID(), Name: n.Name(), ClassName: className})
			}
		}
		models.SortObjects(result)
		return nil
	})
	return result, err
}

// GetListTypeItem returns an item including its attribute values.
func (r *Repository) GetListTypeItem(ctx context.Context, className, id string) (*ListTypeItem, error) {
	var result *ListTypeItem
	err := r.view(ctx, func(tx graph.Tx) error {
		n, actual, err := r.findItem(ctx, tx, className, id)
		if err != nil {
			return err
		}
		result, err = r.item(ctx, tx, n, actual)
		return err
	})
	return result, err
}

// ListTypeItemWithName returns the item of a list type with the given name.
func (r *Repository) ListTypeItemWithName(ctx context.Context, className, name string) (*ListTypeItem, error) {
	if _, err := r.listTypeClass(className, false); err != nil {
		return nil, err
	}
	var result *ListTypeItem
	err := r.view(ctx, func(tx graph.Tx) error {
		nodes, err := r.catalog.Instances(ctx, tx, className)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			if n.HasLabel(graph.LabelListTypeItems) && n.Name() == name {
				result, err = r.item(ctx, tx, n, className)
				return err
			}
		}
		return errs.ObjectNotFound(className, name)
	})
	return result, err
}

// ListTypeItemUses returns the objects referring to an item ordered by name.
func (r *Repository) ListTypeItemUses(ctx context.Context, className, id string, limit int) ([]models.ObjectLight, error) {
	var result []models.ObjectLight
	err := r.view(ctx, func(tx graph.Tx) error {
		n, _, err := r.findItem(ctx, tx, className, id)
		if err != nil {
			return err
		}
		refs, err := graph.Neighbours(ctx, tx, n.ID, graph.Incoming, graph.RelRelatedTo)
		if err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, u := range refs {
			if seen[u.ID] {
				continue
			}
			seen[u.ID] = true
			cls, err := metadata.ClassOfNode(ctx, tx, u.ID)
			if err != nil {
				return err
			}
			result = append(result, models.ObjectLight{ID: u.UUID(), Name: u.Name(), ClassName: cls})
		}
		models.SortObjects(result)
		result = models.Limit(result, limit)
		return nil
	})
	return result, err
}

// InstanceableListTypes returns the concrete list type classes.
func (r *Repository) InstanceableListTypes() []string {
	return r.catalog.InstanceableListTypes()
}
