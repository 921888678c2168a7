// Package neoinventory assembles an inventory instance from a configuration:
// the graph store, the class catalog and the repositories working on them.
package neoinventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mandelsoft/goutils/general"
	"github.com/mandelsoft/logging"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/application"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/config"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/events"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/filestore"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph/memgraph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph/neograph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metrics"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/objects"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/script"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/search"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/templates"
)

// Option configures the creation of a Manager.
type Option func(o *options)

type options struct {
	fs         vfs.FileSystem
	registerer prometheus.Registerer
	publisher  events.Publisher
}

// WithFileSystem sets the filesystem holding the class document, the memory
// snapshot and the blob store. The default is the OS filesystem.
func WithFileSystem(fs vfs.FileSystem) Option {
	return func(o *options) { o.fs = fs }
}

// WithRegisterer registers the store metrics with reg instead of a private
// registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithPublisher replaces the publisher configured by the events section.
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// Manager owns all parts of an inventory instance.
type Manager struct {
	config *config.Config
	fs     vfs.FileSystem

	store    graph.Store
	memory   *memgraph.Graph
	registry *prometheus.Registry
	catalog  *metadata.Catalog
	unique   *metadata.UniqueIndex
	index    *search.Index
	nats     *events.NATSPublisher
	scripts  *script.Registry

	application *application.Repository
	objects     *objects.Repository
	templates   *templates.Repository
}

// SetLogLevel applies a level name to all realms of the inventory.
func SetLogLevel(level string) error {
	l, err := logging.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	logging.DefaultContext().AddRule(logging.NewConditionRule(l, logging.NewRealmPrefix("neoinventory")))
	return nil
}

// New opens the store of a configuration, installs the class catalog and
// bootstraps the administrator account.
//
// Parameters:
//   - ctx: The context used while opening the store and loading the data.
//   - cfg: The configuration. A nil configuration means the defaults.
//   - opts: Optional overrides for the filesystem, the metrics registerer
//     and the event publisher.
//
// Returns:
//   - A pointer to the opened Manager. It must be closed with Close.
//   - An error if the configuration is invalid or any part fails to open.
//     Parts opened so far are closed again.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if err := SetLogLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}

	m := &Manager{
		config:  cfg,
		fs:      general.OptionalDefaulted(vfs.FileSystem(osfs.OsFs), o.fs),
		scripts: script.NewRegistry(),
	}
	if err := m.open(ctx, o); err != nil {
		m.Close(ctx)
		return nil, err
	}
	return m, nil
}

func (m *Manager) open(ctx context.Context, o *options) error {
	cfg := m.config
	switch cfg.Store.Backend {
	case config.BackendNeo4j:
		exec, err := neograph.NewNeo4jExecutor(cfg.Store.URI, cfg.Store.Username, cfg.Store.Password, cfg.Store.Database)
		if err != nil {
			return err
		}
		m.store = neograph.NewStore(exec)
		if err := exec.Verify(ctx); err != nil {
			return fmt.Errorf("cannot reach %s: %w", cfg.Store.URI, err)
		}
		if err := neograph.EnsureIndexes(ctx, exec); err != nil {
			return err
		}
	default:
		if cfg.Store.Snapshot != "" {
			g, err := memgraph.Load(m.fs, cfg.Store.Snapshot)
			if err != nil {
				return fmt.Errorf("cannot load snapshot %s: %w", cfg.Store.Snapshot, err)
			}
			m.memory = g
		} else {
			m.memory = memgraph.New()
		}
		m.store = m.memory
	}

	if cfg.Metrics.Enabled {
		reg := o.registerer
		if reg == nil {
			m.registry = prometheus.NewRegistry()
			reg = m.registry
		}
		instrumented, err := metrics.Instrument(m.store, reg)
		if err != nil {
			return err
		}
		m.store = instrumented
	}

	m.catalog = metadata.New()
	if cfg.Metadata.Classes != "" {
		if err := m.catalog.LoadFile(m.fs, cfg.Metadata.Classes); err != nil {
			return err
		}
	}
	if err := graph.Update(ctx, m.store, func(tx graph.Tx) error {
		return m.catalog.Install(ctx, tx)
	}); err != nil {
		return fmt.Errorf("cannot install classes: %w", err)
	}
	m.unique = metadata.NewUniqueIndex(m.catalog)

	files, err := filestore.New(cfg.Files.Root, m.fs)
	if err != nil {
		return err
	}

	m.application = application.New(m.store, m.catalog,
		application.WithFileStore(files),
		application.WithEvaluator(m.scripts),
		application.WithSessionTTL(time.Duration(cfg.Sessions.TTL)),
		application.WithBusinessRules(cfg.BusinessRules.Enforce),
	)
	if err := m.application.Bootstrap(ctx, cfg.Admin.Password); err != nil {
		return err
	}

	publisher := o.publisher
	if publisher == nil {
		publisher = events.Noop
		if cfg.Events.NATS != nil {
			m.nats, err = events.Connect(cfg.Events.NATS.URL, cfg.Events.NATS.Prefix)
			if err != nil {
				return err
			}
			publisher = m.nats
		}
	}

	m.templates = templates.New(m.store, m.catalog)
	objOpts := []objects.Option{
		objects.WithTemplates(m.templates),
		objects.WithFileStore(files),
		objects.WithRuleChecker(m.application),
		objects.WithPublisher(m.application.Auditor(application.AdminUser, publisher)),
	}
	if cfg.Search.Enabled {
		if m.index, err = search.NewMemIndex(); err != nil {
			return err
		}
		objOpts = append(objOpts, objects.WithSearchIndex(m.index))
	}
	m.objects = objects.New(m.store, m.catalog, m.unique, objOpts...)
	if m.index != nil {
		count, err := m.objects.Reindex(ctx)
		if err != nil {
			return err
		}
		log.Info("indexed {{count}} objects", "count", count)
	}
	log.Info("inventory opened with {{backend}} store", "backend", cfg.Store.Backend)
	return nil
}

func (m *Manager) Config() *config.Config {
	return m.config
}

// Store returns the graph store, instrumented if metrics are enabled.
func (m *Manager) Store() graph.Store {
	return m.store
}

func (m *Manager) Catalog() *metadata.Catalog {
	return m.catalog
}

func (m *Manager) Objects() *objects.Repository {
	return m.objects
}

func (m *Manager) Application() *application.Repository {
	return m.application
}

func (m *Manager) Templates() *templates.Repository {
	return m.templates
}

// Scripts returns the registry the task, report and validator scripts are
// looked up in.
func (m *Manager) Scripts() *script.Registry {
	return m.scripts
}

// Gatherer returns the private metrics registry. It is nil if metrics are
// disabled or registered with an external registerer.
func (m *Manager) Gatherer() prometheus.Gatherer {
	if m.registry == nil {
		return nil
	}
	return m.registry
}

// Save writes the memory store to its snapshot file. It does nothing for
// other backends or without a configured snapshot.
func (m *Manager) Save() error {
	if m.memory == nil || m.config.Store.Snapshot == "" {
		return nil
	}
	if err := m.memory.Save(m.fs, m.config.Store.Snapshot); err != nil {
		return fmt.Errorf("cannot save snapshot %s: %w", m.config.Store.Snapshot, err)
	}
	log.Debug("saved snapshot {{file}}", "file", m.config.Store.Snapshot)
	return nil
}

// Close saves the snapshot and releases the store, the event connection and
// the search index.
func (m *Manager) Close(ctx context.Context) error {
	var list []error
	if m.store != nil {
		list = append(list, m.Save())
		list = append(list, m.store.Close(ctx))
		m.store = nil
	}
	if m.nats != nil {
		list = append(list, m.nats.Close())
		m.nats = nil
	}
	if m.index != nil {
		list = append(list, m.index.Close())
		m.index = nil
	}
	return errors.Join(list...)
}
