// Package application manages everything around the inventory which is not
// an inventory object itself: users and groups, sessions, list type items,
// views, queries, tasks, business rules, synchronization configurations,
// configuration variables, validators, reports, favorites, process instances
// and the audit trail.
package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/objects"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/script"
)

// FileStore keeps view backgrounds.
type FileStore interface {
	Save(name string, data []byte) error
	Read(name string) ([]byte, error)
	Delete(name string) error
}

// Option configures a Repository.
type Option func(r *Repository)

// WithFileStore enables view backgrounds.
func WithFileStore(fs FileStore) Option {
	return func(r *Repository) { r.files = fs }
}

// WithEvaluator sets the evaluator for task, report and validator scripts.
func WithEvaluator(e script.Evaluator) Option {
	return func(r *Repository) { r.evaluator = e }
}

// WithSessionTTL expires sessions idle for longer than ttl. Zero keeps
// sessions until they are closed.
func WithSessionTTL(ttl time.Duration) Option {
	return func(r *Repository) { r.sessions.ttl = ttl }
}

// WithClock replaces the time source of the session store.
func WithClock(clock func() time.Time) Option {
	return func(r *Repository) { r.sessions.clock = clock }
}

// WithBusinessRules switches the enforcement of business rules.
func WithBusinessRules(enforce bool) Option {
	return func(r *Repository) { r.enforceRules = enforce }
}

// Repository is the entry point for all application entity operations.
type Repository struct {
	store        graph.Store
	catalog      *metadata.Catalog
	files        FileStore
	evaluator    script.Evaluator
	sessions     *sessionStore
	validators   *validatorCache
	enforceRules bool
}

// New creates a repository. Business rules are not enforced by default.
//
// Parameters:
//   - store: The graph store holding users, groups, sessions and the
//     application records.
//   - catalog: The class catalog rules and validators refer to.
//   - opts: Optional settings, for example WithSessionTTL or
//     WithBusinessRules.
//
// Returns:
//
//	A pointer to the new Repository. Call Bootstrap before creating sessions.
func New(store graph.Store, catalog *metadata.Catalog, opts ...Option) *Repository {
	r := &Repository{
		store:      store,
		catalog:    catalog,
		sessions:   newSessionStore(),
		validators: newValidatorCache(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// work collects file operations of a write transaction. files are deleted
// after commit, written are deleted on rollback.
type work struct {
	files   []string
	written []string
}

func (r *Repository) view(ctx context.Context, fn func(tx graph.Tx) error) error {
	return graph.View(ctx, r.store, fn)
}

func (r *Repository) update(ctx context.Context, fn func(tx graph.Tx, w *work) error) error {
	w := &work{}
	err := graph.Update(ctx, r.store, func(tx graph.Tx) error {
		return fn(tx, w)
	})
	if err != nil {
		for _, f := range w.written {
			if derr := r.files.Delete(f); derr != nil {
				log.LogError(derr, "cannot remove file {{file}} of failed transaction", "file", f)
			}
		}
		return err
	}
	for _, f := range w.files {
		if derr := r.files.Delete(f); derr != nil {
			log.LogError(derr, "cannot remove file {{file}}", "file", f)
		}
	}
	return nil
}

func (r *Repository) checkFiles() error {
	if r.files == nil {
		return errs.NotPermittedf("no file store configured")
	}
	return nil
}

func (r *Repository) checkEvaluator() error {
	if r.evaluator == nil {
		return errs.NotPermittedf("no script evaluator configured")
	}
	return nil
}

func now() int64 {
	return time.Now().UnixMilli()
}

func newID() string {
	return uuid.NewString()
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// notFound translates a missing record into an application entity error.
func notFound(err error, kind, id string) error {
	if errors.Is(err, graph.ErrNotFound) {
		return errs.ApplicationObjectNotFound(kind, id)
	}
	return err
}

// findNode resolves a record node by its business id.
func findNode(ctx context.Context, tx graph.Tx, label, kind, id string) (*graph.Node, error) {
	if id == "" {
		return nil, errs.ApplicationObjectNotFound(kind, id)
	}
	n, err := tx.FindNode(ctx, label, graph.PropUUID, id)
	return n, notFound(err, kind, id)
}

func (r *Repository) findObject(ctx context.Context, tx graph.Tx, className, id string) (*graph.Node, string, error) {
	return objects.FindObject(ctx, tx, r.catalog, className, id)
}

// specialNode returns a named special node, creating it if requested.
func specialNode(ctx context.Context, tx graph.Tx, name string, create bool) (*graph.Node, error) {
	n, err := tx.FindNode(ctx, graph.LabelSpecialNodes, graph.PropName, name)
	if err == nil || !create || !errors.Is(err, graph.ErrNotFound) {
		return n, err
	}
	return tx.CreateNode(ctx, graph.Props{graph.PropName: name}, graph.LabelSpecialNodes)
}

// linked reports whether a relationship of type relType from -> to exists.
func linked(ctx context.Context, tx graph.Tx, from, to, relType string) (*graph.Relationship, error) {
	rels, err := tx.Relationships(ctx, from, graph.Outgoing, relType)
	if err != nil {
		return nil, err
	}
	for _, rel := range rels {
		if rel.End == to {
			return rel, nil
		}
	}
	return nil, nil
}

// Bootstrap creates the administrator account and its group if missing.
func (r *Repository) Bootstrap(ctx context.Context, password string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		if _, err := tx.FindNode(ctx, graph.LabelUsers, graph.PropName, AdminUser); err == nil {
			return nil
		} else if !errors.Is(err, graph.ErrNotFound) {
			return err
		}
		group := &Group{Name: AdminGroup, Description: "Administrators", CreationDate: now()}
		gn, err := groups.Save(ctx, tx, group)
		if err != nil {
			return err
		}
		user := &User{Name: AdminUser, FirstName: "Administrator", Enabled: true, Type: UserTypeGUI}
		if _, err := r.createUser(ctx, tx, user, password, gn); err != nil {
			return err
		}
		log.Info("created administrator account {{user}}", "user", AdminUser)
		return nil
	})
}
