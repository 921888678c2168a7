// Package filestore keeps named blobs (attachments, view backgrounds) below
// a root directory of a virtual filesystem.
package filestore

import (
	"errors"
	"path"
	"strings"
	"sync"

	"github.com/mandelsoft/goutils/general"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
)

// Store is a flat blob store.
type Store struct {
	lock sync.Mutex
	fs   vfs.FileSystem
	root string
}

// New creates a store below root, on the OS filesystem by default.
func New(root string, fss ...vfs.FileSystem) (*Store, error) {
	fs := general.OptionalDefaulted(vfs.FileSystem(osfs.OsFs), fss...)

	err := fs.MkdirAll(root, 0o0700)
	if err != nil && !errors.Is(err, vfs.ErrExist) {
		return nil, err
	}
	return &Store{fs: fs, root: root}, nil
}

// Name returns the blob name of a file owned by a node.
func Name(ownerID, id string) string {
	return ownerID + "_" + id
}

func (s *Store) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return "", errs.InvalidArgumentf("invalid file name %q", name)
	}
	return path.Join(s.root, name), nil
}

// Save writes a blob, replacing an existing one.
func (s *Store) Save(name string, data []byte) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	log.Debug("saving file {{name}} ({{size}} bytes)", "name", name, "size", len(data))
	return vfs.WriteFile(s.fs, p, data, 0o600)
}

// Read returns the content of a blob.
func (s *Store) Read(name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	data, err := vfs.ReadFile(s.fs, p)
	if err != nil {
		if errors.Is(err, vfs.ErrNotExist) {
			return nil, errs.ApplicationObjectNotFound("file", name)
		}
		return nil, err
	}
	return data, nil
}

// Delete removes a blob. A missing blob is not an error.
func (s *Store) Delete(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	err = s.fs.Remove(p)
	if err != nil && !errors.Is(err, vfs.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether a blob is present.
func (s *Store) Exists(name string) bool {
	p, err := s.path(name)
	if err != nil {
		return false
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	fi, err := s.fs.Stat(p)
	return err == nil && !fi.IsDir()
}
