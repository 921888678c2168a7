package objects

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/internal/attrs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

func (r *Repository) contactClass(className string) (*metadata.Class, error) {
	cls, err := r.catalog.GetClass(className)
	if err != nil {
		return nil, err
	}
	if !r.catalog.IsSubclassOf(metadata.GenericContact, className) {
		return nil, errs.InvalidArgumentf("class %s is not a subclass of %s", className, metadata.GenericContact)
	}
	if cls.Abstract {
		return nil, errs.NotPermittedf("abstract class %s can not be instantiated", className)
	}
	return cls, nil
}

func (r *Repository) findContact(ctx context.Context, tx graph.Tx, className, id string) (*graph.Node, string, error) {
	if !r.catalog.HasClass(className) {
		return nil, "", errs.MetadataNotFound("class %s not found", className)
	}
	n, err := tx.FindNode(ctx, graph.LabelContacts, graph.PropUUID, id)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, "", errs.ObjectNotFound(className, id)
		}
		return nil, "", err
	}
	cls, err := r.classOf(ctx, tx, n)
	if err != nil {
		return nil, "", err
	}
	if !r.catalog.IsSubclassOf(className, cls) {
		return nil, "", errs.ObjectNotFound(className, id)
	}
	return n, cls, nil
}

// CreateContact creates a contact of a customer.
func (r *Repository) CreateContact(ctx context.Context, contactClass, customerClass, customerID string, properties map[string]string) (string, error) {
	cls, err := r.contactClass(contactClass)
	if err != nil {
		return "", err
	}
	if !r.catalog.HasClass(customerClass) {
		return "", errs.MetadataNotFound("class %s not found", customerClass)
	}
	if !r.catalog.IsSubclassOf(metadata.GenericCustomer, customerClass) {
		return "", errs.InvalidArgumentf("class %s is not a subclass of %s", customerClass, metadata.GenericCustomer)
	}
	var id string
	err = r.update(ctx, func(tx graph.Tx, w *work) error {
		customer, _, err := r.find(ctx, tx, customerClass, customerID)
		if err != nil {
			return err
		}
		classNode, err := r.catalog.ClassNode(ctx, tx, cls.Name)
		if err != nil {
			return err
		}
		id = uuid.NewString()
		n, err := tx.CreateNode(ctx, graph.Props{
			graph.PropUUID:         id,
			graph.PropCreationDate: now(),
		}, graph.LabelContacts)
		if err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, n.ID, classNode.ID, graph.RelInstanceOf, nil); err != nil {
			return err
		}
		if _, err := attrs.Apply(ctx, tx, r.catalog, n, cls, properties, attrs.Options{Create: true}); err != nil {
			return err
		}
		_, err = tx.CreateRelationship(ctx, customer.ID, n.ID, graph.RelHasContact, nil)
		return err
	})
	return id, err
}

// UpdateContact sets attribute values of a contact.
func (r *Repository) UpdateContact(ctx context.Context, contactClass, id string, properties map[string]string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, actual, err := r.findContact(ctx, tx, contactClass, id)
		if err != nil {
			return err
		}
		cls, err := r.catalog.GetClass(actual)
		if err != nil {
			return err
		}
		_, err = attrs.Apply(ctx, tx, r.catalog, n, cls, properties, attrs.Options{})
		return err
	})
}

// DeleteContact deletes a contact.
func (r *Repository) DeleteContact(ctx context.Context, contactClass, id string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, _, err := r.findContact(ctx, tx, contactClass, id)
		if err != nil {
			return err
		}
		return graph.DetachDelete(ctx, tx, n.ID)
	})
}

// GetContact returns a contact with its customer.
func (r *Repository) GetContact(ctx context.Context, contactClass, id string) (*models.Contact, error) {
	var result *models.Contact
	err := r.view(ctx, func(tx graph.Tx) error {
		n, cls, err := r.findContact(ctx, tx, contactClass, id)
		if err != nil {
			return err
		}
		result, err = r.contact(ctx, tx, n, cls)
		return err
	})
	return result, err
}

func (r *Repository) contact(ctx context.Context, tx graph.Tx, n *graph.Node, className string) (*models.Contact, error) {
	obj, err := r.object(ctx, tx, n, className)
	if err != nil {
		return nil, err
	}
	c := &models.Contact{Object: *obj}
	customer, _, err := graph.Single(ctx, tx, n.ID, graph.Incoming, graph.RelHasContact)
	if err != nil && !errors.Is(err, graph.ErrNotFound) {
		return nil, err
	}
	if customer != nil {
		if c.Customer, err = r.objectLight(ctx, tx, customer); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ContactsForCustomer returns the contacts of a customer ordered by name.
func (r *Repository) ContactsForCustomer(ctx context.Context, customerClass, customerID string) ([]models.Contact, error) {
	var result []models.Contact
	err := r.view(ctx, func(tx graph.Tx) error {
		customer, _, err := r.find(ctx, tx, customerClass, customerID)
		if err != nil {
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, customer.ID, graph.Outgoing, graph.RelHasContact)
		if err != nil {
			return err
		}
		result, err = r.contacts(ctx, tx, nodes)
		return err
	})
	return result, err
}

// SearchContacts returns the contacts whose name contains text, ignoring case.
func (r *Repository) SearchContacts(ctx context.Context, text string, limit int) ([]models.Contact, error) {
	var result []models.Contact
	term := strings.ToLower(text)
	err := r.view(ctx, func(tx graph.Tx) error {
		nodes, err := tx.FindNodes(ctx, graph.LabelContacts, nil)
		if err != nil {
			return err
		}
		var matches []*graph.Node
		for _, n := range nodes {
			if strings.Contains(strings.ToLower(n.Name()), term) {
				matches = append(matches, n)
			}
		}
		result, err = r.contacts(ctx, tx, matches)
		return err
	})
	return models.Limit(result, limit), err
}

func (r *Repository) contacts(ctx context.Context, tx graph.Tx, nodes []*graph.Node) ([]models.Contact, error) {
	graph.SortByName(nodes)
	result := make([]models.Contact, 0, len(nodes))
	for _, n := range nodes {
		cls, err := r.classOf(ctx, tx, n)
		if err != nil {
			return nil, err
		}
		c, err := r.contact(ctx, tx, n, cls)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, nil
}
