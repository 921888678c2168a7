package application

import (
	"bytes"
	"context"
	"sort"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/filestore"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

// generalViewOwner is the owner part of the blob names of general view backgrounds.
const generalViewOwner = "general"

func checkView(name, viewClass string) error {
	if blank(name) {
		return errs.InvalidArgumentf("the view name can not be empty")
	}
	if blank(viewClass) {
		return errs.InvalidArgumentf("the view class can not be empty")
	}
	return nil
}

// saveBackground writes a background blob. The blob is removed again if the
// transaction fails.
func (r *Repository) saveBackground(w *work, name string, data []byte) error {
	if err := r.checkFiles(); err != nil {
		return err
	}
	if err := r.files.Save(name, data); err != nil {
		return err
	}
	w.written = append(w.written, name)
	return nil
}

// applyView updates a stored view. Empty name and description and a nil
// structure keep the current values, a nil background removes it.
func (r *Repository) applyView(ctx context.Context, tx graph.Tx, w *work, n *graph.Node, blob, name, description string, structure, background []byte) (*models.ChangeDescriptor, error) {
	changes := &models.ChangeDescriptor{}
	props := graph.Props{}
	if name != "" && name != n.Name() {
		changes.Add(graph.PropName, n.Name(), name)
		props[graph.PropName] = name
	}
	if description != "" && description != n.String(graph.PropDescription) {
		changes.Add(graph.PropDescription, n.String(graph.PropDescription), description)
		props[graph.PropDescription] = description
	}
	if structure != nil && !bytes.Equal(structure, n.Bytes("structure")) {
		changes.Add("structure", "", "")
		props["structure"] = structure
	}
	old := n.String(graph.PropBackground)
	switch {
	case len(background) > 0:
		if err := r.saveBackground(w, blob, background); err != nil {
			return nil, err
		}
		props[graph.PropBackground] = blob
		changes.Add(graph.PropBackground, old, blob)
	case old != "":
		w.files = append(w.files, old)
		props[graph.PropBackground] = nil
		changes.Add(graph.PropBackground, old, "")
	}
	if len(props) > 0 {
		if err := tx.SetProperties(ctx, n.ID, props); err != nil {
			return nil, err
		}
	}
	return changes, nil
}

func (r *Repository) withBackground(v *View) (*View, error) {
	if v.Background == "" || r.files == nil {
		return v, nil
	}
	data, err := r.files.Read(v.Background)
	if err != nil {
		if errs.IsNotFound(err) {
			log.Info("missing background {{file}} of view {{view}}", "file", v.Background, "view", v.ID)
			return v, nil
		}
		return nil, err
	}
	v.BackgroundData = data
	return v, nil
}

// CreateObjectView attaches a view to an inventory object.
func (r *Repository) CreateObjectView(ctx context.Context, objectClass, objectID, name, description, viewClass string, structure, background []byte) (string, error) {
	if err := checkView(name, viewClass); err != nil {
		return "", err
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		obj, _, err := r.findObject(ctx, tx, objectClass, objectID)
		if err != nil {
			return err
		}
		v := &objectView{ID: newID(), Name: name, Description: description, ClassName: viewClass, Structure: structure}
		if len(background) > 0 {
			blob := filestore.Name(objectID, v.ID)
			if err := r.saveBackground(w, blob, background); err != nil {
				return err
			}
			v.Background = blob
		}
		n, err := objectViews.Save(ctx, tx, v)
		if err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, obj.ID, n.ID, graph.RelHasView, nil); err != nil {
			return err
		}
		id = v.ID
		return nil
	})
	return id, err
}

func (r *Repository) objectView(ctx context.Context, tx graph.Tx, objectClass, objectID, viewID string) (*graph.Node, error) {
	obj, _, err := r.findObject(ctx, tx, objectClass, objectID)
	if err != nil {
		return nil, err
	}
	list, err := graph.Neighbours(ctx, tx, obj.ID, graph.Outgoing, graph.RelHasView)
	if err != nil {
		return nil, err
	}
	for _, n := range list {
		if n.UUID() == viewID {
			return n, nil
		}
	}
	return nil, errs.ApplicationObjectNotFound("view", viewID)
}

// UpdateObjectView changes a view of an object and returns the changes.
func (r *Repository) UpdateObjectView(ctx context.Context, objectClass, objectID, viewID, name, description string, structure, background []byte) (*models.ChangeDescriptor, error) {
	var changes *models.ChangeDescriptor
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := r.objectView(ctx, tx, objectClass, objectID, viewID)
		if err != nil {
			return err
		}
		changes, err = r.applyView(ctx, tx, w, n, filestore.Name(objectID, viewID), name, description, structure, background)
		return err
	})
	return changes, err
}

// GetObjectView returns a view of an object including its background.
func (r *Repository) GetObjectView(ctx context.Context, objectClass, objectID, viewID string) (*View, error) {
	var result *View
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := r.objectView(ctx, tx, objectClass, objectID, viewID)
		if err != nil {
			return err
		}
		v, err := objectViews.FromNode(n)
		if err != nil {
			return err
		}
		result, err = r.withBackground((*View)(v))
		return err
	})
	return result, err
}

// ObjectViews lists the views of an object ordered by name, without
// structure and background.
func (r *Repository) ObjectViews(ctx context.Context, objectClass, objectID string, limit int) ([]*View, error) {
	var result []*View
	err := r.view(ctx, func(tx graph.Tx) error {
		obj, _, err := r.findObject(ctx, tx, objectClass, objectID)
		if err != nil {
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, obj.ID, graph.Outgoing, graph.RelHasView)
		if err != nil {
			return err
		}
		list, err := objectViews.FromNodes(nodes)
		if err != nil {
			return err
		}
		for _, v := range list {
			result = append(result, lightView((*View)(v)))
		}
		sortViews(result)
		result = models.Limit(result, limit)
		return nil
	})
	return result, err
}

// DeleteObjectView removes a view of an object and its background.
func (r *Repository) DeleteObjectView(ctx context.Context, objectClass, objectID, viewID string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := r.objectView(ctx, tx, objectClass, objectID, viewID)
		if err != nil {
			return err
		}
		if bg := n.String(graph.PropBackground); bg != "" {
			w.files = append(w.files, bg)
		}
		return graph.DetachDelete(ctx, tx, n.ID)
	})
}

// CreateGeneralView stores a view not related to any object.
func (r *Repository) CreateGeneralView(ctx context.Context, viewClass, name, description string, structure, background []byte) (string, error) {
	if err := checkView(name, viewClass); err != nil {
		return "", err
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		v := &generalView{ID: newID(), Name: name, Description: description, ClassName: viewClass, Structure: structure}
		if len(background) > 0 {
			blob := filestore.Name(generalViewOwner, v.ID)
			if err := r.saveBackground(w, blob, background); err != nil {
				return err
			}
			v.Background = blob
		}
		if _, err := generalViews.Save(ctx, tx, v); err != nil {
			return err
		}
		id = v.ID
		return nil
	})
	return id, err
}

func findGeneralView(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	return findNode(ctx, tx, graph.LabelGeneralViews, "view", id)
}

// UpdateGeneralView changes a general view.
func (r *Repository) UpdateGeneralView(ctx context.Context, id, name, description string, structure, background []byte) (*models.ChangeDescriptor, error) {
	var changes *models.ChangeDescriptor
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findGeneralView(ctx, tx, id)
		if err != nil {
			return err
		}
		changes, err = r.applyView(ctx, tx, w, n, filestore.Name(generalViewOwner, id), name, description, structure, background)
		return err
	})
	return changes, err
}

// GeneralViews lists the general views of a view class, all views for an
// empty class, ordered by name without structure and background.
func (r *Repository) GeneralViews(ctx context.Context, viewClass string, limit int) ([]*View, error) {
	var result []*View
	err := r.view(ctx, func(tx graph.Tx) error {
		var props graph.Props
		if viewClass != "" {
			props = graph.Props{graph.PropClassName: viewClass}
		}
		list, err := generalViews.FindByProperties(ctx, tx, props)
		if err != nil {
			return err
		}
		for _, v := range list {
			result = append(result, lightView((*View)(v)))
		}
		sortViews(result)
		result = models.Limit(result, limit)
		return nil
	})
	return result, err
}

// GetGeneralView returns a general view including its background.
func (r *Repository) GetGeneralView(ctx context.Context, id string) (*View, error) {
	var result *View
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := findGeneralView(ctx, tx, id)
		if err != nil {
			return err
		}
		v, err := generalViews.FromNode(n)
		if err != nil {
			return err
		}
		result, err = r.withBackground((*View)(v))
		return err
	})
	return result, err
}

// DeleteGeneralViews removes general views and their backgrounds.
func (r *Repository) DeleteGeneralViews(ctx context.Context, ids ...string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		for _, id := range ids {
			n, err := findGeneralView(ctx, tx, id)
			if err != nil {
				return err
			}
			if bg := n.String(graph.PropBackground); bg != "" {
				w.files = append(w.files, bg)
			}
			if err := graph.DetachDelete(ctx, tx, n.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func lightView(v *View) *View {
	return &View{ID: v.ID, Name: v.Name, Description: v.Description, ClassName: v.ClassName}
}

func sortViews(list []*View) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
}
