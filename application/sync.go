package application

import (
	"context"
	"sort"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

func findSyncGroup(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	return findNode(ctx, tx, graph.LabelSyncGroups, "sync group", id)
}

func findSyncConfig(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	return findNode(ctx, tx, graph.LabelSyncDataSources, "sync data source configuration", id)
}

// CreateSyncGroup creates a synchronization group.
func (r *Repository) CreateSyncGroup(ctx context.Context, name string) (string, error) {
	if blank(name) {
		return "", errs.InvalidArgumentf("the sync group name can not be empty")
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		g := &SyncGroup{Name: name}
		if _, err := syncGroups.Save(ctx, tx, g); err != nil {
			return err
		}
		id = g.ID
		return nil
	})
	return id, err
}

// UpdateSyncGroup renames a synchronization group.
func (r *Repository) UpdateSyncGroup(ctx context.Context, id, name string) error {
	if blank(name) {
		return errs.InvalidArgumentf("the sync group name can not be empty")
	}
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findSyncGroup(ctx, tx, id)
		if err != nil {
			return err
		}
		return tx.SetProperties(ctx, n.ID, graph.Props{graph.PropName: name})
	})
}

// DeleteSyncGroup removes a synchronization group. Its configurations stay
// attached to their objects.
func (r *Repository) DeleteSyncGroup(ctx context.Context, id string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		return notFound(syncGroups.Delete(ctx, tx, id), "sync group", id)
	})
}

// SyncGroups returns all synchronization groups ordered by name.
func (r *Repository) SyncGroups(ctx context.Context) ([]*SyncGroup, error) {
	var result []*SyncGroup
	err := r.view(ctx, func(tx graph.Tx) error {
		list, err := syncGroups.FindAll(ctx, tx)
		if err != nil {
			return err
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		result = list
		return nil
	})
	return result, err
}

// GetSyncGroup returns a synchronization group.
func (r *Repository) GetSyncGroup(ctx context.Context, id string) (*SyncGroup, error) {
	var result *SyncGroup
	err := r.view(ctx, func(tx graph.Tx) error {
		var err error
		result, err = syncGroups.FindByID(ctx, tx, id)
		return notFound(err, "sync group", id)
	})
	return result, err
}

func toSyncConfig(ctx context.Context, tx graph.Tx, n *graph.Node) (*SyncDataSourceConfig, error) {
	c, err := syncConfigs.FromNode(n)
	if err != nil {
		return nil, err
	}
	c.Parameters = prefixed(n, parameterPrefix)
	objs, err := graph.Neighbours(ctx, tx, n.ID, graph.Outgoing, graph.RelHasConfiguration)
	if err != nil {
		return nil, err
	}
	if len(objs) > 0 {
		c.ObjectID = objs[0].UUID()
	}
	return c, nil
}

// CreateSyncDataSourceConfig attaches a synchronization configuration to an
// object. An object has at most one configuration.
func (r *Repository) CreateSyncDataSourceConfig(ctx context.Context, objectClass, objectID, groupID, name string, parameters map[string]string) (string, error) {
	if blank(name) {
		return "", errs.InvalidArgumentf("the configuration name can not be empty")
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		obj, _, err := r.findObject(ctx, tx, objectClass, objectID)
		if err != nil {
			return err
		}
		existing, err := tx.Relationships(ctx, obj.ID, graph.Incoming, graph.RelHasConfiguration)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return errs.NotPermittedf("the object %s already has a synchronization configuration", obj.Name())
		}
		g, err := findSyncGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		c := &SyncDataSourceConfig{Name: name}
		n, err := syncConfigs.Save(ctx, tx, c)
		if err != nil {
			return err
		}
		if err := tx.SetProperties(ctx, n.ID, prefixedProps(parameterPrefix, parameters)); err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, n.ID, obj.ID, graph.RelHasConfiguration, nil); err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, n.ID, g.ID, graph.RelBelongsToGroup, nil); err != nil {
			return err
		}
		id = c.ID
		return nil
	})
	return id, err
}

// UpdateSyncDataSourceConfig renames a configuration and sets parameters.
// Empty name keeps the current one, empty parameter values remove them.
func (r *Repository) UpdateSyncDataSourceConfig(ctx context.Context, id, name string, parameters map[string]string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findSyncConfig(ctx, tx, id)
		if err != nil {
			return err
		}
		props := prefixedProps(parameterPrefix, parameters)
		if name != "" {
			props[graph.PropName] = name
		}
		return tx.SetProperties(ctx, n.ID, props)
	})
}

// DeleteSyncDataSourceConfig removes a configuration.
func (r *Repository) DeleteSyncDataSourceConfig(ctx context.Context, id string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		return notFound(syncConfigs.Delete(ctx, tx, id), "sync data source configuration", id)
	})
}

// SyncDataSourceConfigs returns the configurations of a group ordered by name.
func (r *Repository) SyncDataSourceConfigs(ctx context.Context, groupID string) ([]*SyncDataSourceConfig, error) {
	var result []*SyncDataSourceConfig
	err := r.view(ctx, func(tx graph.Tx) error {
		g, err := findSyncGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, g.ID, graph.Incoming, graph.RelBelongsToGroup)
		if err != nil {
			return err
		}
		graph.SortByName(nodes)
		for _, n := range nodes {
			c, err := toSyncConfig(ctx, tx, n)
			if err != nil {
				return err
			}
			result = append(result, c)
		}
		return nil
	})
	return result, err
}

// SyncDataSourceConfigForObject returns the configuration of an object.
func (r *Repository) SyncDataSourceConfigForObject(ctx context.Context, objectClass, objectID string) (*SyncDataSourceConfig, error) {
	var result *SyncDataSourceConfig
	err := r.view(ctx, func(tx graph.Tx) error {
		obj, _, err := r.findObject(ctx, tx, objectClass, objectID)
		if err != nil {
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, obj.ID, graph.Incoming, graph.RelHasConfiguration)
		if err != nil {
			return err
		}
		if len(nodes) == 0 {
			return errs.ApplicationObjectNotFound("sync data source configuration", objectID)
		}
		result, err = toSyncConfig(ctx, tx, nodes[0])
		return err
	})
	return result, err
}

// membership returns the group relationship of a configuration, nil if the
// configuration does not belong to the group.
func membership(ctx context.Context, tx graph.Tx, configID, groupID string) (*graph.Node, *graph.Relationship, error) {
	c, err := findSyncConfig(ctx, tx, configID)
	if err != nil {
		return nil, nil, err
	}
	g, err := findSyncGroup(ctx, tx, groupID)
	if err != nil {
		return nil, nil, err
	}
	rel, err := linked(ctx, tx, c.ID, g.ID, graph.RelBelongsToGroup)
	return c, rel, err
}

// MoveSyncDataSourceConfigs moves configurations from one group to another.
func (r *Repository) MoveSyncDataSourceConfigs(ctx context.Context, fromGroupID, toGroupID string, ids ...string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		target, err := findSyncGroup(ctx, tx, toGroupID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			c, rel, err := membership(ctx, tx, id, fromGroupID)
			if err != nil {
				return err
			}
			if rel == nil {
				return errs.InvalidArgumentf("the configuration %s does not belong to the sync group %s", c.Name(), fromGroupID)
			}
			if err := tx.DeleteRelationship(ctx, rel.ID); err != nil {
				return err
			}
			dup, err := linked(ctx, tx, c.ID, target.ID, graph.RelBelongsToGroup)
			if err != nil {
				return err
			}
			if dup != nil {
				continue
			}
			if _, err := tx.CreateRelationship(ctx, c.ID, target.ID, graph.RelBelongsToGroup, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReleaseSyncDataSourceConfigs removes configurations from a group. A
// configuration can not leave its last group.
func (r *Repository) ReleaseSyncDataSourceConfigs(ctx context.Context, groupID string, ids ...string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		for _, id := range ids {
			c, rel, err := membership(ctx, tx, id, groupID)
			if err != nil {
				return err
			}
			if rel == nil {
				return errs.InvalidArgumentf("the configuration %s does not belong to the sync group %s", c.Name(), groupID)
			}
			all, err := tx.Relationships(ctx, c.ID, graph.Outgoing, graph.RelBelongsToGroup)
			if err != nil {
				return err
			}
			if len(all) == 1 {
				return errs.NotPermittedf("the configuration %s can not be released from its last sync group", c.Name())
			}
			if err := tx.DeleteRelationship(ctx, rel.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// CopySyncDataSourceConfigs adds configurations to another group.
func (r *Repository) CopySyncDataSourceConfigs(ctx context.Context, groupID string, ids ...string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		for _, id := range ids {
			c, rel, err := membership(ctx, tx, id, groupID)
			if err != nil {
				return err
			}
			if rel != nil {
				return errs.InvalidArgumentf("the configuration %s already belongs to the sync group %s", c.Name(), groupID)
			}
			g, err := findSyncGroup(ctx, tx, groupID)
			if err != nil {
				return err
			}
			if _, err := tx.CreateRelationship(ctx, c.ID, g.ID, graph.RelBelongsToGroup, nil); err != nil {
				return err
			}
		}
		return nil
	})
}
