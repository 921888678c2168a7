package objects

import (
	"context"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/internal/attrs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

func applyAttributes(ctx context.Context, tx graph.Tx, catalog *metadata.Catalog, w *work, n *graph.Node, cls *metadata.Class, values map[string]string, create bool) (*models.ChangeDescriptor, error) {
	return attrs.Apply(ctx, tx, catalog, n, cls, values, attrs.Options{Create: create, Unique: w.uc, Owner: n.UUID()})
}

// Update sets attribute values of an object. Empty values remove primitive
// values and list type relationships. It returns the applied changes.
func (r *Repository) Update(ctx context.Context, className, id string, attributes map[string]string) (*models.ChangeDescriptor, error) {
	var changes *models.ChangeDescriptor
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		n, actual, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		cls, err := r.catalog.GetClass(actual)
		if err != nil {
			return err
		}
		changes, err = applyAttributes(ctx, tx, r.catalog, w, n, cls, attributes, false)
		if err != nil {
			return err
		}
		if !changes.Empty() {
			n, err = tx.GetNode(ctx, n.ID)
			if err != nil {
				return err
			}
			w.updated(light(n, actual), changes)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// CreateSpecialRelationship links two objects by a named special
// relationship. A unique relationship fails if either object already has a
// relationship with that name.
func (r *Repository) CreateSpecialRelationship(ctx context.Context, aClass, aID, bClass, bID, name string, unique bool, properties map[string]string) error {
	if name == "" {
		return errs.InvalidArgumentf("the relationship name can not be empty")
	}
	if aID == bID {
		return errs.NotPermittedf("an object can not be related with itself")
	}
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		a, ac, err := r.find(ctx, tx, aClass, aID)
		if err != nil {
			return err
		}
		b, bc, err := r.find(ctx, tx, bClass, bID)
		if err != nil {
			return err
		}
		if unique {
			for _, n := range []*graph.Node{a, b} {
				rels, err := specialRelationships(ctx, tx, n.ID, graph.Both, name)
				if err != nil {
					return err
				}
				if len(rels) > 0 {
					return errs.NotPermittedf("object %s already has a relationship named %s", n.UUID(), name)
				}
			}
		}
		if r.rules != nil {
			if err := r.rules.CheckRelationshipByAttributeValue(ctx, tx, ac, aID, bc, bID); err != nil {
				return err
			}
		}
		props := graph.Props{}
		for k, v := range properties {
			props[k] = v
		}
		props[graph.PropName] = name
		_, err = tx.CreateRelationship(ctx, a.ID, b.ID, graph.RelRelatedToSpecial, props)
		return err
	})
}

func specialRelationships(ctx context.Context, tx graph.Tx, nodeID string, dir graph.Direction, name string) ([]*graph.Relationship, error) {
	rels, err := tx.Relationships(ctx, nodeID, dir, graph.RelRelatedToSpecial)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return rels, nil
	}
	return graph.FilterRelationships(rels, graph.PropName, name), nil
}

// ReleaseSpecialRelationship removes the special relationships named name
// between an object and another one, in either direction. The other id "-1"
// removes all relationships with that name.
func (r *Repository) ReleaseSpecialRelationship(ctx context.Context, className, id, otherID, name string) error {
	return r.release(ctx, className, id, otherID, name, graph.Both)
}

// ReleaseSpecialRelationshipInTarget removes the special relationships
// named name pointing to an object from the given source, "-1" for all
// sources.
func (r *Repository) ReleaseSpecialRelationshipInTarget(ctx context.Context, className, id, name, sourceID string) error {
	return r.release(ctx, className, id, sourceID, name, graph.Incoming)
}

func (r *Repository) release(ctx context.Context, className, id, otherID, name string, dir graph.Direction) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, _, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		rels, err := specialRelationships(ctx, tx, n.ID, dir, name)
		if err != nil {
			return err
		}
		for _, rel := range rels {
			if otherID != graph.DummyRootID {
				other, err := tx.GetNode(ctx, rel.Other(n.ID))
				if err != nil {
					return err
				}
				if other.UUID() != otherID {
					continue
				}
			}
			if err := tx.DeleteRelationship(ctx, rel.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// SpecialAttribute returns the objects related to an object by the special
// relationship name, ordered by name.
func (r *Repository) SpecialAttribute(ctx context.Context, className, id, name string) ([]models.ObjectLight, error) {
	m, err := r.SpecialAttributes(ctx, className, id, name)
	if err != nil {
		return nil, err
	}
	return m[name], nil
}

// SpecialAttributes returns the related objects per special relationship
// name. Without names, all special relationships are reported.
func (r *Repository) SpecialAttributes(ctx context.Context, className, id string, names ...string) (map[string][]models.ObjectLight, error) {
	result := map[string][]models.ObjectLight{}
	err := r.view(ctx, func(tx graph.Tx) error {
		n, _, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		rels, err := specialRelationships(ctx, tx, n.ID, graph.Both, "")
		if err != nil {
			return err
		}
		wanted := map[string]bool{}
		for _, name := range names {
			wanted[name] = true
		}
		for _, rel := range rels {
			name := rel.String(graph.PropName)
			if len(wanted) > 0 && !wanted[name] {
				continue
			}
			other, err := tx.GetNode(ctx, rel.Other(n.ID))
			if err != nil {
				return err
			}
			obj, err := r.objectLight(ctx, tx, other)
			if err != nil {
				return err
			}
			result[name] = append(result[name], obj)
		}
		for _, list := range result {
			models.SortObjects(list)
		}
		return nil
	})
	return result, err
}

// HasSpecialRelationship reports whether an object has at least minCount
// special relationships named name.
func (r *Repository) HasSpecialRelationship(ctx context.Context, className, id, name string, minCount int) (bool, error) {
	var found bool
	err := r.view(ctx, func(tx graph.Tx) error {
		n, _, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		rels, err := specialRelationships(ctx, tx, n.ID, graph.Both, name)
		found = len(rels) >= minCount
		return err
	})
	return found, err
}

// HasRelationship reports whether a list type attribute of an object
// references at least minCount list type items.
func (r *Repository) HasRelationship(ctx context.Context, className, id, attribute string, minCount int) (bool, error) {
	var found bool
	err := r.view(ctx, func(tx graph.Tx) error {
		n, _, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		rels, err := tx.Relationships(ctx, n.ID, graph.Outgoing, graph.RelRelatedTo)
		found = len(graph.FilterRelationships(rels, graph.PropName, attribute)) >= minCount
		return err
	})
	return found, err
}

// ReleaseRelationships removes the list type item references of the given
// list type attributes. Mandatory attributes can not be released.
func (r *Repository) ReleaseRelationships(ctx context.Context, className, id string, attributes ...string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, actual, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		changes := &models.ChangeDescriptor{}
		for _, name := range attributes {
			attr, err := r.catalog.Attribute(actual, name)
			if err != nil {
				return err
			}
			if attr.IsPrimitive() {
				return errs.InvalidArgumentf("the attribute %s is not a list type attribute", name)
			}
			if attr.Mandatory {
				return errs.InvalidArgumentf("the mandatory attribute %s can not be released", name)
			}
			old, err := attrs.ListValue(ctx, tx, n.ID, name)
			if err != nil {
				return err
			}
			rels, err := tx.Relationships(ctx, n.ID, graph.Outgoing, graph.RelRelatedTo)
			if err != nil {
				return err
			}
			for _, rel := range graph.FilterRelationships(rels, graph.PropName, name) {
				if err := tx.DeleteRelationship(ctx, rel.ID); err != nil {
					return err
				}
			}
			if old != "" {
				changes.Add(name, old, "")
			}
		}
		if !changes.Empty() {
			w.updated(light(n, actual), changes)
		}
		return nil
	})
}
