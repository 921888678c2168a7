package models

import (
	"sort"
)

// ObjectLight identifies an inventory object without its attributes.
type ObjectLight struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ClassName string `json:"className"`
}

// Object is an inventory object including its attribute values rendered as
// strings. List type attributes hold the ids of the referenced items, joined
// by ";".
type Object struct {
	ObjectLight
	CreationDate int64             `json:"creationDate"`
	Attributes   map[string]string `json:"attributes"`
}

// ChangeDescriptor summarizes an update for the audit trail.
type ChangeDescriptor struct {
	AffectedProperties []string `json:"affectedProperties"`
	OldValues          []string `json:"oldValues"`
	NewValues          []string `json:"newValues"`
	Notes              string   `json:"notes,omitempty"`
}

// Add records a changed property.
func (c *ChangeDescriptor) Add(name, oldValue, newValue string) {
	c.AffectedProperties = append(c.AffectedProperties, name)
	c.OldValues = append(c.OldValues, oldValue)
	c.NewValues = append(c.NewValues, newValue)
}

// Empty reports whether nothing changed.
func (c *ChangeDescriptor) Empty() bool {
	return len(c.AffectedProperties) == 0
}

// Pool types.
const (
	PoolTypeGeneralPurpose = 1
	PoolTypeModuleRoot     = 2
)

// PoolClass is the pseudo class name used when a pool shows up as a parent.
const PoolClass = "Pool"

// Pool is a typed container of inventory objects or other pools.
type Pool struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// ClassName is the class the members of the pool are instances of.
	ClassName string `json:"className"`
	Type      int    `json:"type"`
}

// FileObjectLight describes an attachment without its content.
type FileObjectLight struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Tags         string `json:"tags"`
	CreationDate int64  `json:"creationDate"`
	Size         int64  `json:"size"`
}

// FileObject is an attachment including its content.
type FileObject struct {
	FileObjectLight
	Data []byte `json:"data"`
}

// SortObjects orders objects lexicographically by name.
func SortObjects(list []ObjectLight) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
}

// Limit truncates a list to at most limit elements. Non positive limits keep all.
func Limit[T any](list []T, limit int) []T {
	if limit > 0 && len(list) > limit {
		return list[:limit]
	}
	return list
}

// Contact is a contact of a customer.
type Contact struct {
	Object
	Customer ObjectLight `json:"customer"`
}
