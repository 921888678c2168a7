package application

import (
	"context"
	"errors"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

func checkGroupName(ctx context.Context, tx graph.Tx, name string) error {
	if blank(name) {
		return errs.InvalidArgumentf("the group name can not be empty")
	}
	if !groupNamePattern.MatchString(name) {
		return errs.InvalidArgumentf("the group name %q contains invalid characters", name)
	}
	_, err := tx.FindNode(ctx, graph.LabelGroups, graph.PropName, name)
	if err == nil {
		return errs.InvalidArgumentf("the group name %s already exists", name)
	}
	if !errors.Is(err, graph.ErrNotFound) {
		return err
	}
	return nil
}

// CreateGroup creates a group with privileges and initial members.
func (r *Repository) CreateGroup(ctx context.Context, name, description string, privs []Privilege, userIDs ...string) (string, error) {
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		if err := checkGroupName(ctx, tx, name); err != nil {
			return err
		}
		if err := checkPrivileges(privs); err != nil {
			return err
		}
		g := &Group{Name: name, Description: description, CreationDate: now()}
		n, err := groups.Save(ctx, tx, g)
		if err != nil {
			return err
		}
		for _, p := range privs {
			if err := setPrivilege(ctx, tx, n.ID, p.FeatureToken, p.AccessLevel); err != nil {
				return err
			}
		}
		for _, uid := range userIDs {
			u, err := findUser(ctx, tx, uid)
			if err != nil {
				return err
			}
			if _, err := tx.CreateRelationship(ctx, u.ID, n.ID, graph.RelBelongsToGroup, nil); err != nil {
				return err
			}
		}
		id = g.ID
		return nil
	})
	return id, err
}

// UpdateGroup changes name and description of a group. Empty values are kept.
func (r *Repository) UpdateGroup(ctx context.Context, id, name, description string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findGroup(ctx, tx, id)
		if err != nil {
			return err
		}
		props := graph.Props{}
		if name != "" && name != n.Name() {
			if err := checkGroupName(ctx, tx, name); err != nil {
				return err
			}
			props[graph.PropName] = name
		}
		if description != "" {
			props[graph.PropDescription] = description
		}
		return tx.SetProperties(ctx, n.ID, props)
	})
}

// DeleteGroups removes groups with their privileges. Users left without any
// group are deleted as well, the default administrator must keep a group.
func (r *Repository) DeleteGroups(ctx context.Context, ids ...string) error {
	var deleted []string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		for _, id := range ids {
			g, err := findGroup(ctx, tx, id)
			if err != nil {
				return err
			}
			members, err := graph.Neighbours(ctx, tx, g.ID, graph.Incoming, graph.RelBelongsToGroup)
			if err != nil {
				return err
			}
			for _, u := range members {
				rels, err := tx.Relationships(ctx, u.ID, graph.Outgoing, graph.RelBelongsToGroup)
				if err != nil {
					return err
				}
				if len(rels) > 1 {
					continue
				}
				if u.Name() == AdminUser {
					return errs.NotPermittedf("the group %s is the only group of the default administrator", g.Name())
				}
				if err := deleteUser(ctx, tx, u); err != nil {
					return err
				}
				deleted = append(deleted, u.UUID())
			}
			privs, err := graph.Neighbours(ctx, tx, g.ID, graph.Outgoing, graph.RelHasPrivilege)
			if err != nil {
				return err
			}
			for _, p := range privs {
				if err := graph.DetachDelete(ctx, tx, p.ID); err != nil {
					return err
				}
			}
			if err := graph.DetachDelete(ctx, tx, g.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range deleted {
		r.sessions.removeUser(id)
	}
	return nil
}

func toGroups(ctx context.Context, tx graph.Tx, nodes []*graph.Node) ([]*Group, error) {
	graph.SortByName(nodes)
	result := make([]*Group, 0, len(nodes))
	for _, n := range nodes {
		g, err := groups.FromNode(n)
		if err != nil {
			return nil, err
		}
		if g.Privileges, err = privilegesOf(ctx, tx, n.ID); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, nil
}

// Groups returns all groups ordered by name.
func (r *Repository) Groups(ctx context.Context) ([]*Group, error) {
	var result []*Group
	err := r.view(ctx, func(tx graph.Tx) error {
		nodes, err := tx.FindNodes(ctx, graph.LabelGroups, nil)
		if err != nil {
			return err
		}
		result, err = toGroups(ctx, tx, nodes)
		return err
	})
	return result, err
}

// GetGroup returns a group including its privileges.
func (r *Repository) GetGroup(ctx context.Context, id string) (*Group, error) {
	var result *Group
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := findGroup(ctx, tx, id)
		if err != nil {
			return err
		}
		list, err := toGroups(ctx, tx, []*graph.Node{n})
		if err != nil {
			return err
		}
		result = list[0]
		return nil
	})
	return result, err
}

// SetGroupPrivilege grants or changes a privilege of a group.
func (r *Repository) SetGroupPrivilege(ctx context.Context, groupID, token string, level int) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		g, err := findGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		return setPrivilege(ctx, tx, g.ID, token, level)
	})
}

// RemoveGroupPrivilege revokes a privilege of a group.
func (r *Repository) RemoveGroupPrivilege(ctx context.Context, groupID, token string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		g, err := findGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		return removePrivilege(ctx, tx, g.ID, token)
	})
}
