package application

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/events"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

// generalActivityLog names the special node general log entries hang off.
const generalActivityLog = "GeneralActivityLog"

func checkActivityType(typ int) error {
	if typ < ActivityCreateInventoryObject || typ > ActivityCloseSession {
		return errs.InvalidArgumentf("invalid activity type %d", typ)
	}
	return nil
}

// logEntry stores an entry and links it to the user performing the change.
func logEntry(ctx context.Context, tx graph.Tx, userName string, typ int, changes *models.ChangeDescriptor) (*graph.Node, error) {
	u, err := tx.FindNode(ctx, graph.LabelUsers, graph.PropName, userName)
	if err != nil {
		return nil, notFound(err, "user", userName)
	}
	e := &ActivityLogEntry{Type: typ, CreationDate: now()}
	if changes != nil {
		e.AffectedProperty = strings.Join(changes.AffectedProperties, ",")
		e.OldValue = strings.Join(changes.OldValues, ",")
		e.NewValue = strings.Join(changes.NewValues, ",")
		e.Notes = changes.Notes
	}
	n, err := logEntries.Save(ctx, tx, e)
	if err != nil {
		return nil, err
	}
	if _, err := tx.CreateRelationship(ctx, n.ID, u.ID, graph.RelPerformedBy, nil); err != nil {
		return nil, err
	}
	return n, nil
}

// CreateObjectActivityLogEntry appends an entry to the audit trail of an
// inventory object.
func (r *Repository) CreateObjectActivityLogEntry(ctx context.Context, userName, objectClass, objectID string, typ int, changes *models.ChangeDescriptor) (string, error) {
	if err := checkActivityType(typ); err != nil {
		return "", err
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		obj, _, err := r.findObject(ctx, tx, objectClass, objectID)
		if err != nil {
			return err
		}
		n, err := logEntry(ctx, tx, userName, typ, changes)
		if err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, obj.ID, n.ID, graph.RelHasHistoryEntry, nil); err != nil {
			return err
		}
		id = n.UUID()
		return nil
	})
	return id, err
}

// CreateGeneralActivityLogEntry appends an entry to the general audit trail.
func (r *Repository) CreateGeneralActivityLogEntry(ctx context.Context, userName string, typ int, changes *models.ChangeDescriptor) (string, error) {
	if err := checkActivityType(typ); err != nil {
		return "", err
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		owner, err := specialNode(ctx, tx, generalActivityLog, true)
		if err != nil {
			return err
		}
		n, err := logEntry(ctx, tx, userName, typ, changes)
		if err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, n.ID, owner.ID, graph.RelChildOfSpecial, nil); err != nil {
			return err
		}
		id = n.UUID()
		return nil
	})
	return id, err
}

func toEntries(ctx context.Context, tx graph.Tx, nodes []*graph.Node) ([]*ActivityLogEntry, error) {
	result := make([]*ActivityLogEntry, 0, len(nodes))
	for _, n := range nodes {
		e, err := logEntries.FromNode(n)
		if err != nil {
			return nil, err
		}
		u, _, err := graph.Single(ctx, tx, n.ID, graph.Outgoing, graph.RelPerformedBy)
		switch {
		case err == nil:
			e.UserName = u.Name()
		case !errors.Is(err, graph.ErrNotFound):
			return nil, err
		}
		result = append(result, e)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreationDate > result[j].CreationDate })
	return result, nil
}

// ObjectAuditTrail returns the entries of an object, newest first.
func (r *Repository) ObjectAuditTrail(ctx context.Context, objectClass, objectID string, limit int) ([]*ActivityLogEntry, error) {
	var result []*ActivityLogEntry
	err := r.view(ctx, func(tx graph.Tx) error {
		obj, _, err := r.findObject(ctx, tx, objectClass, objectID)
		if err != nil {
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, obj.ID, graph.Outgoing, graph.RelHasHistoryEntry)
		if err != nil {
			return err
		}
		list, err := toEntries(ctx, tx, nodes)
		if err != nil {
			return err
		}
		result = models.Limit(list, limit)
		return nil
	})
	return result, err
}

// GeneralActivityAuditTrail returns a page of the general audit trail,
// newest first. Pages start at 1, a non positive limit returns everything.
func (r *Repository) GeneralActivityAuditTrail(ctx context.Context, page, limit int) ([]*ActivityLogEntry, error) {
	var result []*ActivityLogEntry
	err := r.view(ctx, func(tx graph.Tx) error {
		owner, err := specialNode(ctx, tx, generalActivityLog, false)
		if err != nil {
			if errors.Is(err, graph.ErrNotFound) {
				return nil
			}
			return err
		}
		nodes, err := graph.Neighbours(ctx, tx, owner.ID, graph.Incoming, graph.RelChildOfSpecial)
		if err != nil {
			return err
		}
		list, err := toEntries(ctx, tx, nodes)
		if err != nil {
			return err
		}
		if limit > 0 {
			if page < 1 {
				page = 1
			}
			start := (page - 1) * limit
			if start >= len(list) {
				return nil
			}
			list = models.Limit(list[start:], limit)
		}
		result = list
		return nil
	})
	return result, err
}

// Auditor returns a publisher writing the object events it receives to the
// audit trail on behalf of userName before passing them on to next. Events
// of deleted objects go to the general trail.
func (r *Repository) Auditor(userName string, next events.Publisher) events.Publisher {
	if next == nil {
		next = events.Noop
	}
	return &auditor{repo: r, user: userName, next: next}
}

type auditor struct {
	repo *Repository
	user string
	next events.Publisher
}

var activityOfEvent = map[string]int{
	events.ObjectCreated: ActivityCreateInventoryObject,
	events.ObjectUpdated: ActivityUpdateInventoryObject,
	events.ObjectMoved:   ActivityUpdateInventoryObject,
	events.ObjectDeleted: ActivityDeleteInventoryObject,
}

func (a *auditor) Publish(ctx context.Context, ev events.Event) error {
	if typ, ok := activityOfEvent[ev.Type]; ok {
		var err error
		if ev.Type == events.ObjectDeleted {
			changes := &models.ChangeDescriptor{Notes: ev.ClassName + " " + ev.Name + " (" + ev.ObjectID + ")"}
			_, err = a.repo.CreateGeneralActivityLogEntry(ctx, a.user, typ, changes)
		} else {
			_, err = a.repo.CreateObjectActivityLogEntry(ctx, a.user, ev.ClassName, ev.ObjectID, typ, ev.Changes)
		}
		if err != nil {
			log.LogError(err, "cannot record {{event}} of {{id}}", "event", ev.Type, "id", ev.ObjectID)
		}
	}
	return a.next.Publish(ctx, ev)
}
