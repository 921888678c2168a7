package objects

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/filestore"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

func (r *Repository) checkFiles() error {
	if r.files == nil {
		return errs.NotPermittedf("no file store configured")
	}
	return nil
}

func toFile(n *graph.Node) models.FileObjectLight {
	return models.FileObjectLight{
		ID:           n.UUID(),
		Name:         n.Name(),
		Tags:         n.String(graph.PropTags),
		CreationDate: n.Int64(graph.PropCreationDate),
		Size:         n.Int64(graph.PropSize),
	}
}

// AttachFile stores a file and attaches it to an object.
func (r *Repository) AttachFile(ctx context.Context, className, id, name, tags string, data []byte) (string, error) {
	if err := r.checkFiles(); err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		return "", errs.InvalidArgumentf("the file name can not be empty")
	}
	var fileID string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		n, _, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		fileID = uuid.NewString()
		props := graph.Props{
			graph.PropUUID:         fileID,
			graph.PropName:         name,
			graph.PropCreationDate: now(),
			graph.PropSize:         int64(len(data)),
		}
		if tags != "" {
			props[graph.PropTags] = tags
		}
		att, err := tx.CreateNode(ctx, props, graph.LabelAttachments)
		if err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, n.ID, att.ID, graph.RelHasAttachment, nil); err != nil {
			return err
		}
		blob := filestore.Name(id, fileID)
		if err := r.files.Save(blob, data); err != nil {
			return err
		}
		w.written = append(w.written, blob)
		return nil
	})
	return fileID, err
}

func (r *Repository) attachment(ctx context.Context, tx graph.Tx, className, id, fileID string) (*graph.Node, error) {
	n, _, err := r.find(ctx, tx, className, id)
	if err != nil {
		return nil, err
	}
	list, err := graph.Neighbours(ctx, tx, n.ID, graph.Outgoing, graph.RelHasAttachment)
	if err != nil {
		return nil, err
	}
	for _, att := range list {
		if att.UUID() == fileID {
			return att, nil
		}
	}
	return nil, errs.ApplicationObjectNotFound("attachment", fileID)
}

// Files lists the attachments of an object ordered by name.
func (r *Repository) Files(ctx context.Context, className, id string) ([]models.FileObjectLight, error) {
	var result []models.FileObjectLight
	err := r.view(ctx, func(tx graph.Tx) error {
		n, _, err := r.find(ctx, tx, className, id)
		if err != nil {
			return err
		}
		list, err := graph.Neighbours(ctx, tx, n.ID, graph.Outgoing, graph.RelHasAttachment)
		if err != nil {
			return err
		}
		graph.SortByName(list)
		for _, att := range list {
			result = append(result, toFile(att))
		}
		return nil
	})
	return result, err
}

// File returns an attachment including its content.
func (r *Repository) File(ctx context.Context, className, id, fileID string) (*models.FileObject, error) {
	if err := r.checkFiles(); err != nil {
		return nil, err
	}
	var result *models.FileObject
	err := r.view(ctx, func(tx graph.Tx) error {
		att, err := r.attachment(ctx, tx, className, id, fileID)
		if err != nil {
			return err
		}
		data, err := r.files.Read(filestore.Name(id, fileID))
		if err != nil {
			return err
		}
		result = &models.FileObject{FileObjectLight: toFile(att), Data: data}
		return nil
	})
	return result, err
}

// DetachFile removes an attachment and its content.
func (r *Repository) DetachFile(ctx context.Context, className, id, fileID string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		att, err := r.attachment(ctx, tx, className, id, fileID)
		if err != nil {
			return err
		}
		if err := graph.DetachDelete(ctx, tx, att.ID); err != nil {
			return err
		}
		w.files = append(w.files, filestore.Name(id, fileID))
		return nil
	})
}

// UpdateFile changes name and tags of an attachment. Empty values are kept.
func (r *Repository) UpdateFile(ctx context.Context, className, id, fileID, name, tags string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		att, err := r.attachment(ctx, tx, className, id, fileID)
		if err != nil {
			return err
		}
		props := graph.Props{}
		if name != "" {
			props[graph.PropName] = name
		}
		if tags != "" {
			props[graph.PropTags] = tags
		}
		return tx.SetProperties(ctx, att.ID, props)
	})
}
