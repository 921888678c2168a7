package objects

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

func findPool(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	n, err := tx.FindNode(ctx, graph.LabelPools, graph.PropUUID, id)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, errs.ApplicationObjectNotFound("pool", id)
		}
		return nil, err
	}
	return n, nil
}

func toPool(n *graph.Node) models.Pool {
	return models.Pool{
		ID:          n.UUID(),
		Name:        n.Name(),
		Description: n.String(graph.PropDescription),
		ClassName:   n.String(graph.PropClassName),
		Type:        int(n.Int64(graph.PropType)),
	}
}

func (r *Repository) checkPoolType(className string, typ int) error {
	if !r.catalog.HasClass(className) {
		return errs.MetadataNotFound("class %s not found", className)
	}
	if typ != models.PoolTypeGeneralPurpose && typ != models.PoolTypeModuleRoot {
		return errs.InvalidArgumentf("invalid pool type %d", typ)
	}
	return nil
}

func (r *Repository) newPool(ctx context.Context, tx graph.Tx, parent *graph.Node, name, description, className string, typ int) (string, error) {
	id := uuid.NewString()
	props := graph.Props{
		graph.PropUUID:      id,
		graph.PropName:      name,
		graph.PropClassName: className,
		graph.PropType:      int64(typ),
	}
	if description != "" {
		props[graph.PropDescription] = description
	}
	n, err := tx.CreateNode(ctx, props, graph.LabelPools)
	if err != nil {
		return "", err
	}
	if parent != nil {
		if _, err := tx.CreateRelationship(ctx, n.ID, parent.ID, graph.RelChildOfSpecial, poolMarker()); err != nil {
			return "", err
		}
	}
	log.Debug("created pool {{name}} of {{class}}", "name", name, "class", className)
	return id, nil
}

// CreateRootPool creates a pool without parent holding instances of className.
func (r *Repository) CreateRootPool(ctx context.Context, name, description, className string, typ int) (string, error) {
	if err := r.checkPoolType(className, typ); err != nil {
		return "", err
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		var err error
		id, err = r.newPool(ctx, tx, nil, name, description, className, typ)
		return err
	})
	return id, err
}

// CreatePoolInObject creates a pool attached to an object.
func (r *Repository) CreatePoolInObject(ctx context.Context, parentClass, parentID, name, description, className string, typ int) (string, error) {
	if err := r.checkPoolType(className, typ); err != nil {
		return "", err
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		parent, _, err := r.find(ctx, tx, parentClass, parentID)
		if err != nil {
			return err
		}
		id, err = r.newPool(ctx, tx, parent, name, description, className, typ)
		return err
	})
	return id, err
}

// CreatePoolInPool creates a pool nested in another pool.
func (r *Repository) CreatePoolInPool(ctx context.Context, parentPoolID, name, description, className string, typ int) (string, error) {
	if err := r.checkPoolType(className, typ); err != nil {
		return "", err
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		parent, err := findPool(ctx, tx, parentPoolID)
		if err != nil {
			return err
		}
		id, err = r.newPool(ctx, tx, parent, name, description, className, typ)
		return err
	})
	return id, err
}

// GetPool returns a pool.
func (r *Repository) GetPool(ctx context.Context, id string) (*models.Pool, error) {
	var pool models.Pool
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := findPool(ctx, tx, id)
		if err != nil {
			return err
		}
		pool = toPool(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &pool, nil
}

// RootPools returns the pools without parent. An empty className matches
// all pools, a type of 0 all pool types.
func (r *Repository) RootPools(ctx context.Context, className string, typ int, includeSubclasses bool) ([]models.Pool, error) {
	var result []models.Pool
	err := r.view(ctx, func(tx graph.Tx) error {
		nodes, err := tx.FindNodes(ctx, graph.LabelPools, nil)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			rels, err := containment(ctx, tx, n.ID)
			if err != nil {
				return err
			}
			if len(rels) > 0 {
				continue
			}
			if p := toPool(n); r.acceptPool(p, className, typ, includeSubclasses) {
				result = append(result, p)
			}
		}
		return nil
	})
	sortPools(result)
	return result, err
}

func (r *Repository) acceptPool(p models.Pool, className string, typ int, includeSubclasses bool) bool {
	if typ != 0 && p.Type != typ {
		return false
	}
	if className == "" || p.ClassName == className {
		return true
	}
	return includeSubclasses && r.catalog.HasClass(p.ClassName) && r.catalog.IsSubclassOf(className, p.ClassName)
}

func sortPools(list []models.Pool) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
}

// PoolsInObject returns the pools attached to an object, optionally only
// those holding instances of className.
func (r *Repository) PoolsInObject(ctx context.Context, objectClass, objectID, className string) ([]models.Pool, error) {
	var result []models.Pool
	err := r.view(ctx, func(tx graph.Tx) error {
		n, _, err := r.find(ctx, tx, objectClass, objectID)
		if err != nil {
			return err
		}
		result, err = r.pools(ctx, tx, n, className)
		return err
	})
	return result, err
}

// PoolsInPool returns the pools nested in a pool.
func (r *Repository) PoolsInPool(ctx context.Context, parentPoolID, className string) ([]models.Pool, error) {
	var result []models.Pool
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := findPool(ctx, tx, parentPoolID)
		if err != nil {
			return err
		}
		result, err = r.pools(ctx, tx, n, className)
		return err
	})
	return result, err
}

func (r *Repository) pools(ctx context.Context, tx graph.Tx, parent *graph.Node, className string) ([]models.Pool, error) {
	nodes, err := children(ctx, tx, parent.ID, graph.LabelPools, graph.RelChildOfSpecial)
	if err != nil {
		return nil, err
	}
	var result []models.Pool
	for _, n := range nodes {
		if p := toPool(n); r.acceptPool(p, className, 0, false) {
			result = append(result, p)
		}
	}
	sortPools(result)
	return result, nil
}

// PoolItems returns the objects in a pool ordered by name.
func (r *Repository) PoolItems(ctx context.Context, poolID string, limit int) ([]models.ObjectLight, error) {
	var result []models.ObjectLight
	err := r.view(ctx, func(tx graph.Tx) error {
		pool, err := findPool(ctx, tx, poolID)
		if err != nil {
			return err
		}
		nodes, err := children(ctx, tx, pool.ID, graph.LabelInventoryObjects, graph.RelChildOfSpecial)
		if err != nil {
			return err
		}
		result, err = r.lights(ctx, tx, nodes, "")
		return err
	})
	return models.Limit(result, limit), err
}

// UpdatePool changes name and description of a pool. Empty values are kept.
func (r *Repository) UpdatePool(ctx context.Context, id, name, description string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findPool(ctx, tx, id)
		if err != nil {
			return err
		}
		props := graph.Props{}
		if name != "" {
			props[graph.PropName] = name
		}
		if description != "" {
			props[graph.PropDescription] = description
		}
		return tx.SetProperties(ctx, n.ID, props)
	})
}

// DeletePools deletes pools with their nested pools and the subtrees of
// their items. Items with special relationships block the deletion.
func (r *Repository) DeletePools(ctx context.Context, ids ...string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		for _, id := range ids {
			n, err := findPool(ctx, tx, id)
			if err != nil {
				return err
			}
			if err := r.deleteSubtree(ctx, tx, w, n, false); err != nil {
				return err
			}
		}
		return nil
	})
}
