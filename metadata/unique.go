package metadata

import (
	"context"
	"sync"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

type uniqueKey struct {
	class string
	attr  string
}

// holders lists the objects holding a value. More than one holder is only
// possible while a transaction writes a duplicate, which Reserve rejects.
type holders []string

func (h holders) has(owner string) bool {
	for _, o := range h {
		if o == owner {
			return true
		}
	}
	return false
}

func (h holders) without(owner string) holders {
	var result holders
	for _, o := range h {
		if o != owner {
			result = append(result, o)
		}
	}
	return result
}

// UniqueIndex tracks the values of unique attributes per declaring class.
// Values are loaded lazily from the store the first time an attribute is
// checked. Reservations become visible to other callers immediately; freed
// values are only dropped once the owning transaction committed.
type UniqueIndex struct {
	lock    sync.Mutex
	catalog *Catalog
	values  map[uniqueKey]map[string]holders
}

// NewUniqueIndex creates an empty index for the classes of a catalog.
func NewUniqueIndex(c *Catalog) *UniqueIndex {
	return &UniqueIndex{catalog: c, values: map[uniqueKey]map[string]holders{}}
}

// Begin starts a change set bound to one graph transaction.
func (u *UniqueIndex) Begin() *UniqueChanges {
	return &UniqueChanges{index: u, touched: map[uniqueKey]bool{}}
}

// Invalidate drops all loaded values.
func (u *UniqueIndex) Invalidate() {
	u.lock.Lock()
	defer u.lock.Unlock()
	u.values = map[uniqueKey]map[string]holders{}
}

// Owner returns the id of the object holding value, or "".
func (u *UniqueIndex) Owner(ctx context.Context, tx graph.Tx, class, attr, value string) (string, error) {
	decl, err := u.catalog.DeclaringClass(class, attr)
	if err != nil {
		return "", err
	}
	u.lock.Lock()
	defer u.lock.Unlock()
	m, err := u.load(ctx, tx, uniqueKey{decl, attr})
	if err != nil {
		return "", err
	}
	if h := m[value]; len(h) > 0 {
		return h[0], nil
	}
	return "", nil
}

// load reads the values of a key from the store. Every holder of a value is
// kept, including objects written by the calling transaction.
func (u *UniqueIndex) load(ctx context.Context, tx graph.Tx, key uniqueKey) (map[string]holders, error) {
	if m, ok := u.values[key]; ok {
		return m, nil
	}
	m := map[string]holders{}
	for _, class := range u.catalog.Subclasses(key.class, true) {
		nodes, err := u.catalog.Instances(ctx, tx, class)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if v := n.String(key.attr); v != "" && !m[v].has(n.UUID()) {
				m[v] = append(m[v], n.UUID())
			}
		}
	}
	log.Debug("loaded {{count}} unique values of {{class}}.{{attr}}", "count", len(m), "class", key.class, "attr", key.attr)
	u.values[key] = m
	return m, nil
}

type uniqueEntry struct {
	key   uniqueKey
	value string
	owner string
}

// UniqueChanges collects the reservations and releases of one transaction.
// Exactly one of Commit or Abort must be called.
type UniqueChanges struct {
	index   *UniqueIndex
	freed   []uniqueEntry
	touched map[uniqueKey]bool
}

// Reserve claims value of a unique attribute for owner. It fails with
// InvalidArgument if another object already holds the value.
func (uc *UniqueChanges) Reserve(ctx context.Context, tx graph.Tx, class, attr, value, owner string) error {
	if value == "" {
		return nil
	}
	decl, err := uc.index.catalog.DeclaringClass(class, attr)
	if err != nil {
		return err
	}
	key := uniqueKey{decl, attr}

	u := uc.index
	u.lock.Lock()
	defer u.lock.Unlock()
	m, err := u.load(ctx, tx, key)
	if err != nil {
		return err
	}
	if len(m[value].without(owner)) > 0 {
		return errs.InvalidArgumentf("the value %s of the attribute %s is not unique", value, attr)
	}
	m[value] = holders{owner}
	uc.touched[key] = true
	return nil
}

// Free releases value of owner when the change set is committed.
func (uc *UniqueChanges) Free(class, attr, value, owner string) {
	if value == "" {
		return
	}
	decl, err := uc.index.catalog.DeclaringClass(class, attr)
	if err != nil {
		return
	}
	uc.freed = append(uc.freed, uniqueEntry{uniqueKey{decl, attr}, value, owner})
}

// Commit applies the released values.
func (uc *UniqueChanges) Commit() {
	u := uc.index
	u.lock.Lock()
	defer u.lock.Unlock()
	for _, e := range uc.freed {
		if m, ok := u.values[e.key]; ok {
			if h := m[e.value].without(e.owner); len(h) > 0 {
				m[e.value] = h
			} else {
				delete(m, e.value)
			}
		}
	}
	uc.freed = nil
}

// Abort forgets the values of every attribute touched by the change set, so
// that they are reloaded from the store on next use.
func (uc *UniqueChanges) Abort() {
	u := uc.index
	u.lock.Lock()
	defer u.lock.Unlock()
	for key := range uc.touched {
		delete(u.values, key)
	}
	uc.freed = nil
}
