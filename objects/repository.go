// Package objects manages inventory objects and pools: their creation from
// attributes or templates, containment, special relationships, attachments
// and contacts. Containment rules of the class catalog are always checked
// before the graph is modified.
package objects

import (
	"context"
	"errors"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/events"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

// RuleChecker validates a special relationship against the business rules.
type RuleChecker interface {
	CheckRelationshipByAttributeValue(ctx context.Context, tx graph.Tx, sourceClass, sourceID, targetClass, targetID string) error
}

// Spawner creates a live object subtree from a template. The returned root
// is an instance of className without any containment relationship.
type Spawner interface {
	Spawn(ctx context.Context, tx graph.Tx, templateID, className string, uc *metadata.UniqueChanges) (*graph.Node, error)
}

// FileStore keeps the content of attachments.
type FileStore interface {
	Save(name string, data []byte) error
	Read(name string) ([]byte, error)
	Delete(name string) error
}

// SearchIndex is a free-text index over object names.
type SearchIndex interface {
	Index(obj models.ObjectLight) error
	Remove(id string) error
	Suggest(text string, limit int) ([]models.ObjectLight, error)
}

// Option configures a Repository.
type Option func(r *Repository)

// WithTemplates enables creating objects from templates.
func WithTemplates(s Spawner) Option {
	return func(r *Repository) { r.templates = s }
}

// WithFileStore enables attachments.
func WithFileStore(fs FileStore) Option {
	return func(r *Repository) { r.files = fs }
}

// WithRuleChecker enforces business rules on special relationships.
func WithRuleChecker(c RuleChecker) Option {
	return func(r *Repository) { r.rules = c }
}

// WithSearchIndex keeps a suggestion index up to date.
func WithSearchIndex(idx SearchIndex) Option {
	return func(r *Repository) { r.index = idx }
}

// WithPublisher publishes change events after each commit.
func WithPublisher(p events.Publisher) Option {
	return func(r *Repository) { r.publisher = p }
}

// Repository is the entry point for all object operations.
type Repository struct {
	store     graph.Store
	catalog   *metadata.Catalog
	unique    *metadata.UniqueIndex
	templates Spawner
	files     FileStore
	rules     RuleChecker
	index     SearchIndex
	publisher events.Publisher
}

// New creates a repository for the inventory objects of a store.
//
// Parameters:
//   - store: The graph store holding the objects.
//   - catalog: The class catalog used to validate classes and attributes.
//   - unique: The index guarding attributes flagged unique. It may be shared
//     with other repositories working on the same store.
//   - opts: Optional collaborators such as templates, file store, rule
//     checker, search index and event publisher.
//
// Returns:
//
//	A pointer to the new Repository.
func New(store graph.Store, catalog *metadata.Catalog, unique *metadata.UniqueIndex, opts ...Option) *Repository {
	r := &Repository{
		store:     store,
		catalog:   catalog,
		unique:    unique,
		publisher: events.Noop,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Catalog returns the class catalog used by the repository.
func (r *Repository) Catalog() *metadata.Catalog {
	return r.catalog
}

// work collects the side effects of a write transaction which must only
// happen once it committed.
type work struct {
	uc      *metadata.UniqueChanges
	events  []events.Event
	indexed []models.ObjectLight
	removed []string
	// files are deleted after commit, written are deleted on rollback.
	files   []string
	written []string
}

func (w *work) created(obj models.ObjectLight) {
	w.events = append(w.events, events.New(events.ObjectCreated, obj))
	w.indexed = append(w.indexed, obj)
}

func (w *work) deleted(obj models.ObjectLight) {
	w.events = append(w.events, events.New(events.ObjectDeleted, obj))
	w.removed = append(w.removed, obj.ID)
}

func (w *work) updated(obj models.ObjectLight, changes *models.ChangeDescriptor) {
	ev := events.New(events.ObjectUpdated, obj)
	ev.Changes = changes
	w.events = append(w.events, ev)
	w.indexed = append(w.indexed, obj)
}

func (w *work) moved(obj models.ObjectLight) {
	w.events = append(w.events, events.New(events.ObjectMoved, obj))
}

func (r *Repository) view(ctx context.Context, fn func(tx graph.Tx) error) error {
	return graph.View(ctx, r.store, fn)
}

func (r *Repository) update(ctx context.Context, fn func(tx graph.Tx, w *work) error) error {
	w := &work{uc: r.unique.Begin()}
	err := graph.Update(ctx, r.store, func(tx graph.Tx) error {
		return fn(tx, w)
	})
	if err != nil {
		w.uc.Abort()
		for _, f := range w.written {
			if derr := r.files.Delete(f); derr != nil {
				log.LogError(derr, "cannot remove file {{file}} of failed transaction", "file", f)
			}
		}
		return err
	}
	w.uc.Commit()
	r.afterCommit(ctx, w)
	return nil
}

func (r *Repository) afterCommit(ctx context.Context, w *work) {
	if r.files != nil {
		for _, f := range w.files {
			if err := r.files.Delete(f); err != nil {
				log.LogError(err, "cannot remove file {{file}}", "file", f)
			}
		}
	}
	if r.index != nil {
		for _, obj := range w.indexed {
			if err := r.index.Index(obj); err != nil {
				log.LogError(err, "cannot index object {{id}}", "id", obj.ID)
			}
		}
		for _, id := range w.removed {
			if err := r.index.Remove(id); err != nil {
				log.LogError(err, "cannot remove object {{id}} from index", "id", id)
			}
		}
	}
	for _, ev := range w.events {
		if err := r.publisher.Publish(ctx, ev); err != nil {
			log.LogError(err, "cannot publish {{type}} event for {{id}}", "type", ev.Type, "id", ev.ObjectID)
		}
	}
}

// Reindex rebuilds the suggestion index from the store.
func (r *Repository) Reindex(ctx context.Context) (int, error) {
	if r.index == nil {
		return 0, nil
	}
	count := 0
	err := r.view(ctx, func(tx graph.Tx) error {
		nodes, err := tx.FindNodes(ctx, graph.LabelInventoryObjects, nil)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			cls, err := metadata.ClassOfNode(ctx, tx, n.ID)
			if err != nil {
				if errors.Is(err, graph.ErrNotFound) {
					continue
				}
				return err
			}
			if err := r.index.Index(light(n, cls)); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}
