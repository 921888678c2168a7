package application

import (
	"context"
	"sort"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

// findFolder resolves a favorites folder owned by a user.
func findFolder(ctx context.Context, tx graph.Tx, userID, id string) (*graph.Node, error) {
	u, err := findUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	n, err := findNode(ctx, tx, graph.LabelFavoritesFolders, "favorites folder", id)
	if err != nil {
		return nil, err
	}
	rel, err := linked(ctx, tx, u.ID, n.ID, graph.RelHasBookmark)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, errs.ApplicationObjectNotFound("favorites folder", id)
	}
	return n, nil
}

// CreateFavoritesFolder creates a bookmark folder for a user.
func (r *Repository) CreateFavoritesFolder(ctx context.Context, userID, name string) (string, error) {
	if blank(name) {
		return "", errs.InvalidArgumentf("the favorites folder name can not be empty")
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		u, err := findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		f := &FavoritesFolder{Name: name}
		n, err := favorites.Save(ctx, tx, f)
		if err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, u.ID, n.ID, graph.RelHasBookmark, nil); err != nil {
			return err
		}
		id = f.ID
		return nil
	})
	return id, err
}

// UpdateFavoritesFolder renames a folder of a user.
func (r *Repository) UpdateFavoritesFolder(ctx context.Context, userID, id, name string) error {
	if blank(name) {
		return errs.InvalidArgumentf("the favorites folder name can not be empty")
	}
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findFolder(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		return tx.SetProperties(ctx, n.ID, graph.Props{graph.PropName: name})
	})
}

// DeleteFavoritesFolders removes folders of a user. The bookmarked objects
// are not touched.
func (r *Repository) DeleteFavoritesFolders(ctx context.Context, userID string, ids ...string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		for _, id := range ids {
			n, err := findFolder(ctx, tx, userID, id)
			if err != nil {
				return err
			}
			if err := graph.DetachDelete(ctx, tx, n.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// FavoritesFolders returns the folders of a user ordered by name.
func (r *Repository) FavoritesFolders(ctx context.Context, userID string) ([]*FavoritesFolder, error) {
	var result []*FavoritesFolder
	err := r.view(ctx, func(tx graph.Tx) error {
		u, err := findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, u.ID, graph.Outgoing, graph.RelHasBookmark)
		if err != nil {
			return err
		}
		graph.SortByName(nodes)
		result, err = favorites.FromNodes(nodes)
		return err
	})
	return result, err
}

// GetFavoritesFolder returns a folder of a user.
func (r *Repository) GetFavoritesFolder(ctx context.Context, userID, id string) (*FavoritesFolder, error) {
	var result *FavoritesFolder
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := findFolder(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		result, err = favorites.FromNode(n)
		return err
	})
	return result, err
}

// AddObjectToFavorites bookmarks an object in a folder of a user.
func (r *Repository) AddObjectToFavorites(ctx context.Context, userID, folderID, objectClass, objectID string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		f, err := findFolder(ctx, tx, userID, folderID)
		if err != nil {
			return err
		}
		obj, _, err := r.findObject(ctx, tx, objectClass, objectID)
		if err != nil {
			return err
		}
		rel, err := linked(ctx, tx, obj.ID, f.ID, graph.RelIsBookmarkItemIn)
		if err != nil {
			return err
		}
		if rel != nil {
			return errs.NotPermittedf("the object %s is already in the favorites folder %s", obj.Name(), f.Name())
		}
		_, err = tx.CreateRelationship(ctx, obj.ID, f.ID, graph.RelIsBookmarkItemIn, nil)
		return err
	})
}

// RemoveObjectFromFavorites removes a bookmark from a folder of a user.
func (r *Repository) RemoveObjectFromFavorites(ctx context.Context, userID, folderID, objectClass, objectID string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		f, err := findFolder(ctx, tx, userID, folderID)
		if err != nil {
			return err
		}
		obj, _, err := r.findObject(ctx, tx, objectClass, objectID)
		if err != nil {
			return err
		}
		rel, err := linked(ctx, tx, obj.ID, f.ID, graph.RelIsBookmarkItemIn)
		if err != nil {
			return err
		}
		if rel == nil {
			return errs.InvalidArgumentf("the object %s is not in the favorites folder %s", obj.Name(), f.Name())
		}
		return tx.DeleteRelationship(ctx, rel.ID)
	})
}

// ObjectsInFavoritesFolder returns the bookmarked objects of a folder
// ordered by name.
func (r *Repository) ObjectsInFavoritesFolder(ctx context.Context, userID, folderID string, limit int) ([]models.ObjectLight, error) {
	var result []models.ObjectLight
	err := r.view(ctx, func(tx graph.Tx) error {
		f, err := findFolder(ctx, tx, userID, folderID)
		if err != nil {
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, f.ID, graph.Incoming, graph.RelIsBookmarkItemIn)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			cls, err := metadata.ClassOfNode(ctx, tx, n.ID)
			if err != nil {
				return err
			}
			result = append(result, models.ObjectLight{ID: n.UUID(), Name: n.Name(), ClassName: cls})
		}
		models.SortObjects(result)
		result = models.Limit(result, limit)
		return nil
	})
	return result, err
}

// FavoritesFoldersForObject returns the folders of a user an object is
// bookmarked in.
func (r *Repository) FavoritesFoldersForObject(ctx context.Context, userID, objectClass, objectID string) ([]*FavoritesFolder, error) {
	var result []*FavoritesFolder
	err := r.view(ctx, func(tx graph.Tx) error {
		u, err := findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		obj, _, err := r.findObject(ctx, tx, objectClass, objectID)
		if err != nil {
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, obj.ID, graph.Outgoing, graph.RelIsBookmarkItemIn)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			rel, err := linked(ctx, tx, u.ID, n.ID, graph.RelHasBookmark)
			if err != nil {
				return err
			}
			if rel == nil {
				continue
			}
			f, err := favorites.FromNode(n)
			if err != nil {
				return err
			}
			result = append(result, f)
		}
		sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
		return nil
	})
	return result, err
}
