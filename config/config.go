// Package config reads the configuration of an inventory instance. Config
// documents are YAML, ${VAR} references are expanded from the environment
// before parsing.
package config

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/drone/envsubst"
	"github.com/mandelsoft/goutils/general"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"sigs.k8s.io/yaml"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendNeo4j  = "neo4j"
)

// Config is the root of a configuration document.
type Config struct {
	Store         Store         `json:"store"`
	Files         Files         `json:"files"`
	Metadata      Metadata      `json:"metadata"`
	Admin         Admin         `json:"admin"`
	BusinessRules BusinessRules `json:"businessRules"`
	Sessions      Sessions      `json:"sessions"`
	Events        Events        `json:"events"`
	Search        Search        `json:"search"`
	Metrics       Metrics       `json:"metrics"`
	Logging       Logging       `json:"logging"`
}

// Store selects and configures the graph store.
type Store struct {
	Backend  string `json:"backend,omitempty"`
	URI      string `json:"uri,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Database string `json:"database,omitempty"`
	// Snapshot is the file the memory backend is loaded from and saved to.
	Snapshot string `json:"snapshot,omitempty"`
}

// Files configures the blob store for attachments and view backgrounds.
type Files struct {
	Root string `json:"root,omitempty"`
}

// Metadata names the class hierarchy document.
type Metadata struct {
	Classes string `json:"classes,omitempty"`
}

// Admin is the initial password of the administrator account.
type Admin struct {
	Password string `json:"password,omitempty"`
}

type BusinessRules struct {
	Enforce bool `json:"enforce,omitempty"`
}

type Sessions struct {
	// TTL expires idle sessions, zero keeps them.
	TTL Duration `json:"ttl,omitempty"`
}

type Events struct {
	NATS *NATS `json:"nats,omitempty"`
}

// NATS configures the publisher of object change events.
type NATS struct {
	URL    string `json:"url"`
	Prefix string `json:"prefix,omitempty"`
}

type Search struct {
	Enabled bool `json:"enabled,omitempty"`
}

type Metrics struct {
	Enabled bool `json:"enabled,omitempty"`
}

type Logging struct {
	Level string `json:"level,omitempty"`
}

// Duration is a time.Duration written as "90s" or "1h".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the configuration used without a document: a volatile
// memory store and files below the working directory.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if c.Store.Backend == BackendNeo4j && c.Store.Database == "" {
		c.Store.Database = "neo4j"
	}
	if c.Files.Root == "" {
		c.Files.Root = "files"
	}
	if c.Events.NATS != nil && c.Events.NATS.Prefix == "" {
		c.Events.NATS.Prefix = "inventory"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the consistency of a configuration.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendNeo4j:
		if c.Store.URI == "" {
			return errs.InvalidArgumentf("the neo4j store requires an uri")
		}
	default:
		return errs.InvalidArgumentf("unknown store backend %q", c.Store.Backend)
	}
	if c.Sessions.TTL < 0 {
		return errs.InvalidArgumentf("negative session ttl")
	}
	if c.Events.NATS != nil && c.Events.NATS.URL == "" {
		return errs.InvalidArgumentf("the nats publisher requires an url")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "error", "warn", "info", "debug", "trace":
	default:
		return errs.InvalidArgumentf("unknown log level %q", c.Logging.Level)
	}
	return nil
}

// Parse expands environment references in a document, reads it and applies
// the defaults.
func Parse(data []byte) (*Config, error) {
	expanded, err := envsubst.EvalEnv(string(data))
	if err != nil {
		return nil, errs.InvalidArgumentf("cannot expand configuration: %v", err)
	}
	c := &Config{}
	if err := yaml.UnmarshalStrict([]byte(expanded), c); err != nil {
		return nil, errs.InvalidArgumentf("invalid configuration: %v", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads a configuration file. Without filesystem the OS filesystem
// is used.
func Load(path string, fss ...vfs.FileSystem) (*Config, error) {
	fs := general.OptionalDefaulted(vfs.FileSystem(osfs.OsFs), fss...)
	data, err := vfs.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
