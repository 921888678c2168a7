package application

import (
	"context"
	"errors"
	"regexp"
	"sort"

	"golang.org/x/crypto/bcrypt"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

var (
	userNamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_.]*$`)
	groupNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_. ]*$`)
)

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", errs.InvalidArgumentf("the password can not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkUserName(ctx context.Context, tx graph.Tx, name string) error {
	if name == "" {
		return errs.InvalidArgumentf("the user name can not be empty")
	}
	if !userNamePattern.MatchString(name) {
		return errs.InvalidArgumentf("the user name %q contains invalid characters", name)
	}
	_, err := tx.FindNode(ctx, graph.LabelUsers, graph.PropName, name)
	if err == nil {
		return errs.InvalidArgumentf("the user name %s already exists", name)
	}
	if !errors.Is(err, graph.ErrNotFound) {
		return err
	}
	return nil
}

func checkUserType(typ int) error {
	switch typ {
	case UserTypeGUI, UserTypeWebService, UserTypeSouthbound:
		return nil
	}
	return errs.InvalidArgumentf("invalid user type %d", typ)
}

func checkPrivileges(list []Privilege) error {
	seen := map[string]bool{}
	for _, p := range list {
		if p.FeatureToken == "" {
			return errs.InvalidArgumentf("the feature token of a privilege can not be empty")
		}
		if err := checkAccessLevel(p.AccessLevel); err != nil {
			return err
		}
		if seen[p.FeatureToken] {
			return errs.NotPermittedf("duplicate privilege %s", p.FeatureToken)
		}
		seen[p.FeatureToken] = true
	}
	return nil
}

func checkAccessLevel(level int) error {
	if level != AccessLevelReadOnly && level != AccessLevelReadWrite {
		return errs.InvalidArgumentf("invalid access level %d", level)
	}
	return nil
}

func findUser(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	return findNode(ctx, tx, graph.LabelUsers, "user", id)
}

func findGroup(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	return findNode(ctx, tx, graph.LabelGroups, "group", id)
}

// CreateUser creates a user in a default group. The privileges of user are
// granted to the new account.
func (r *Repository) CreateUser(ctx context.Context, user *User, password, groupID string) (string, error) {
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		group, err := findGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		id, err = r.createUser(ctx, tx, user, password, group)
		return err
	})
	return id, err
}

func (r *Repository) createUser(ctx context.Context, tx graph.Tx, user *User, password string, group *graph.Node) (string, error) {
	if err := checkUserName(ctx, tx, user.Name); err != nil {
		return "", err
	}
	if err := checkUserType(user.Type); err != nil {
		return "", err
	}
	if err := checkPrivileges(user.Privileges); err != nil {
		return "", err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return "", err
	}
	u := *user
	u.ID = ""
	u.Password = hash
	u.CreationDate = now()
	n, err := users.Save(ctx, tx, &u)
	if err != nil {
		return "", err
	}
	if _, err := tx.CreateRelationship(ctx, n.ID, group.ID, graph.RelBelongsToGroup, nil); err != nil {
		return "", err
	}
	for _, p := range user.Privileges {
		if err := setPrivilege(ctx, tx, n.ID, p.FeatureToken, p.AccessLevel); err != nil {
			return "", err
		}
	}
	log.Debug("created user {{user}}", "user", u.Name)
	return u.ID, nil
}

// UserUpdate lists the user properties to change. Empty values and a nil
// Enabled keep the current state.
type UserUpdate struct {
	Name      string
	Password  string
	FirstName string
	LastName  string
	Enabled   *bool
	Type      int
}

// UpdateUser changes the properties of a user.
func (r *Repository) UpdateUser(ctx context.Context, id string, upd UserUpdate) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findUser(ctx, tx, id)
		if err != nil {
			return err
		}
		props := graph.Props{}
		if upd.Name != "" && upd.Name != n.Name() {
			if n.Name() == AdminUser {
				return errs.NotPermittedf("the default administrator can not be renamed")
			}
			if err := checkUserName(ctx, tx, upd.Name); err != nil {
				return err
			}
			props[graph.PropName] = upd.Name
		}
		if upd.Password != "" {
			hash, err := hashPassword(upd.Password)
			if err != nil {
				return err
			}
			props["password"] = hash
		}
		if upd.FirstName != "" {
			props["firstName"] = upd.FirstName
		}
		if upd.LastName != "" {
			props["lastName"] = upd.LastName
		}
		if upd.Enabled != nil {
			props[graph.PropEnabled] = *upd.Enabled
		}
		if upd.Type != 0 {
			if err := checkUserType(upd.Type); err != nil {
				return err
			}
			props[graph.PropType] = int64(upd.Type)
		}
		return tx.SetProperties(ctx, n.ID, props)
	})
}

// DeleteUsers removes users with their privileges, private queries and
// favorites folders. Open sessions of the users are closed.
func (r *Repository) DeleteUsers(ctx context.Context, ids ...string) error {
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		for _, id := range ids {
			n, err := findUser(ctx, tx, id)
			if err != nil {
				return err
			}
			if n.Name() == AdminUser {
				return errs.NotPermittedf("the default administrator can not be deleted")
			}
			if err := deleteUser(ctx, tx, n); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range ids {
		r.sessions.removeUser(id)
	}
	return nil
}

func deleteUser(ctx context.Context, tx graph.Tx, n *graph.Node) error {
	owned, err := graph.Neighbours(ctx, tx, n.ID, graph.Outgoing, graph.RelHasPrivilege, graph.RelHasBookmark)
	if err != nil {
		return err
	}
	qs, err := graph.Neighbours(ctx, tx, n.ID, graph.Outgoing, graph.RelOwnsQuery)
	if err != nil {
		return err
	}
	for _, q := range qs {
		if !q.Bool("public") {
			owned = append(owned, q)
		}
	}
	for _, o := range owned {
		if err := graph.DetachDelete(ctx, tx, o.ID); err != nil {
			return err
		}
	}
	log.Debug("deleting user {{user}}", "user", n.Name())
	return graph.DetachDelete(ctx, tx, n.ID)
}

func privilegesOf(ctx context.Context, tx graph.Tx, nodeID string) ([]Privilege, error) {
	nodes, err := graph.Neighbours(ctx, tx, nodeID, graph.Outgoing, graph.RelHasPrivilege)
	if err != nil {
		return nil, err
	}
	list, err := privileges.FromNodes(nodes)
	if err != nil {
		return nil, err
	}
	result := make([]Privilege, len(list))
	for i, p := range list {
		result[i] = *p
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FeatureToken < result[j].FeatureToken })
	return result, nil
}

func toUser(ctx context.Context, tx graph.Tx, n *graph.Node) (*User, error) {
	u, err := users.FromNode(n)
	if err != nil {
		return nil, err
	}
	if u.Privileges, err = privilegesOf(ctx, tx, n.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func toUsers(ctx context.Context, tx graph.Tx, nodes []*graph.Node) ([]*User, error) {
	graph.SortByName(nodes)
	result := make([]*User, 0, len(nodes))
	for _, n := range nodes {
		u, err := toUser(ctx, tx, n)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, nil
}

// Users returns all users ordered by name.
func (r *Repository) Users(ctx context.Context) ([]*User, error) {
	var result []*User
	err := r.view(ctx, func(tx graph.Tx) error {
		nodes, err := tx.FindNodes(ctx, graph.LabelUsers, nil)
		if err != nil {
			return err
		}
		result, err = toUsers(ctx, tx, nodes)
		return err
	})
	return result, err
}

// GetUser returns a user including its privileges.
func (r *Repository) GetUser(ctx context.Context, id string) (*User, error) {
	var result *User
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := findUser(ctx, tx, id)
		if err != nil {
			return err
		}
		result, err = toUser(ctx, tx, n)
		return err
	})
	return result, err
}

// UsersInGroup returns the members of a group ordered by name.
func (r *Repository) UsersInGroup(ctx context.Context, groupID string) ([]*User, error) {
	var result []*User
	err := r.view(ctx, func(tx graph.Tx) error {
		g, err := findGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, g.ID, graph.Incoming, graph.RelBelongsToGroup)
		if err != nil {
			return err
		}
		result, err = toUsers(ctx, tx, nodes)
		return err
	})
	return result, err
}

// GroupsForUser returns the groups of a user ordered by name.
func (r *Repository) GroupsForUser(ctx context.Context, userID string) ([]*Group, error) {
	var result []*Group
	err := r.view(ctx, func(tx graph.Tx) error {
		u, err := findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, u.ID, graph.Outgoing, graph.RelBelongsToGroup)
		if err != nil {
			return err
		}
		result, err = toGroups(ctx, tx, nodes)
		return err
	})
	return result, err
}

// AddUserToGroup makes a user a member of a group.
func (r *Repository) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		u, err := findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		g, err := findGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		rel, err := linked(ctx, tx, u.ID, g.ID, graph.RelBelongsToGroup)
		if err != nil {
			return err
		}
		if rel != nil {
			return errs.InvalidArgumentf("the user %s already belongs to the group %s", u.Name(), g.Name())
		}
		_, err = tx.CreateRelationship(ctx, u.ID, g.ID, graph.RelBelongsToGroup, nil)
		return err
	})
}

// RemoveUserFromGroup ends the membership of a user in a group.
func (r *Repository) RemoveUserFromGroup(ctx context.Context, userID, groupID string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		u, err := findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		g, err := findGroup(ctx, tx, groupID)
		if err != nil {
			return err
		}
		rel, err := linked(ctx, tx, u.ID, g.ID, graph.RelBelongsToGroup)
		if err != nil {
			return err
		}
		if rel == nil {
			return errs.InvalidArgumentf("the user %s does not belong to the group %s", u.Name(), g.Name())
		}
		if u.Name() == AdminUser {
			rels, err := tx.Relationships(ctx, u.ID, graph.Outgoing, graph.RelBelongsToGroup)
			if err != nil {
				return err
			}
			if len(rels) == 1 {
				return errs.NotPermittedf("the default administrator has to belong to at least one group")
			}
		}
		return tx.DeleteRelationship(ctx, rel.ID)
	})
}

// setPrivilege grants a privilege to a user or group node, replacing the
// access level of an existing privilege with the same token.
func setPrivilege(ctx context.Context, tx graph.Tx, ownerID, token string, level int) error {
	if token == "" {
		return errs.InvalidArgumentf("the feature token of a privilege can not be empty")
	}
	if err := checkAccessLevel(level); err != nil {
		return err
	}
	nodes, err := graph.Neighbours(ctx, tx, ownerID, graph.Outgoing, graph.RelHasPrivilege)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if n.String("featureToken") == token {
			return tx.SetProperties(ctx, n.ID, graph.Props{"accessLevel": int64(level)})
		}
	}
	n, err := privileges.Save(ctx, tx, &Privilege{FeatureToken: token, AccessLevel: level})
	if err != nil {
		return err
	}
	_, err = tx.CreateRelationship(ctx, ownerID, n.ID, graph.RelHasPrivilege, nil)
	return err
}

func removePrivilege(ctx context.Context, tx graph.Tx, ownerID, token string) error {
	nodes, err := graph.Neighbours(ctx, tx, ownerID, graph.Outgoing, graph.RelHasPrivilege)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if n.String("featureToken") == token {
			return graph.DetachDelete(ctx, tx, n.ID)
		}
	}
	return errs.InvalidArgumentf("no privilege %s found", token)
}

// SetUserPrivilege grants or changes a privilege of a user.
func (r *Repository) SetUserPrivilege(ctx context.Context, userID, token string, level int) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		u, err := findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		return setPrivilege(ctx, tx, u.ID, token, level)
	})
}

// RemoveUserPrivilege revokes a privilege of a user.
func (r *Repository) RemoveUserPrivilege(ctx context.Context, userID, token string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		u, err := findUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		return removePrivilege(ctx, tx, u.ID, token)
	})
}
