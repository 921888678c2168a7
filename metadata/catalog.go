// Package metadata holds the class model of the inventory: classes with single
// inheritance, their attributes and the containment rules between them. The
// catalog is read mostly and safe for concurrent use.
package metadata

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/mandelsoft/goutils/maputils"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"sigs.k8s.io/yaml"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Catalog is the registry of class definitions.
type Catalog struct {
	lock    sync.RWMutex
	classes map[string]*Class
	order   []string
	// children and special map a parent class (or DummyRoot) to its declared
	// possible (special) children.
	children map[string][]string
	special  map[string][]string
	// nodeIDs caches the graph node ids of class nodes.
	nodeIDs map[string]string
}

// New creates a catalog containing the built-in classes.
func New() *Catalog {
	c := &Catalog{
		classes:  map[string]*Class{},
		children: map[string][]string{},
		special:  map[string][]string{},
		nodeIDs:  map[string]string{},
	}
	for _, cls := range builtins() {
		c.classes[cls.Name] = cls
		c.order = append(c.order, cls.Name)
	}
	return c
}

func builtins() []*Class {
	return []*Class{
		{Name: RootObject, Abstract: true, Attributes: []*Attribute{
			{Name: graph.PropName, DisplayName: "Name", Type: TypeString, Visible: true},
		}},
		{Name: InventoryObject, Parent: RootObject, Abstract: true, Attributes: []*Attribute{
			{Name: graph.PropCreationDate, DisplayName: "Creation Date", Type: TypeDate, ReadOnly: true},
		}},
		{Name: GenericObjectList, Parent: RootObject, Abstract: true, Attributes: []*Attribute{
			{Name: graph.PropDisplayName, DisplayName: "Display Name", Type: TypeString, Visible: true},
		}},
		{Name: GenericContact, Parent: RootObject, Abstract: true, Attributes: []*Attribute{
			{Name: "email", DisplayName: "Email", Type: TypeString, Visible: true},
			{Name: "telephone", DisplayName: "Telephone", Type: TypeString, Visible: true},
			{Name: "role", DisplayName: "Role", Type: TypeString, Visible: true},
			{Name: graph.PropCreationDate, DisplayName: "Creation Date", Type: TypeDate, ReadOnly: true},
		}},
		{Name: GenericCustomer, Parent: InventoryObject, Abstract: true},
	}
}

// AddClass registers a new class. The parent must be known, attribute names
// must not shadow inherited ones and list type attributes must refer to list
// type classes.
func (c *Catalog) AddClass(cls *Class) error {
	if cls == nil || !identifier.MatchString(cls.Name) || cls.Name == DummyRoot {
		return errs.InvalidArgumentf("invalid class name %q", nameOf(cls))
	}
	cls = cls.copy()
	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.classes[cls.Name]; ok {
		return errs.InvalidArgumentf("class %s already exists", cls.Name)
	}
	if cls.Parent == "" {
		return errs.InvalidArgumentf("class %s must have a parent class", cls.Name)
	}
	if _, ok := c.classes[cls.Parent]; !ok {
		return errs.MetadataNotFound("parent class %s of %s could not be found", cls.Parent, cls.Name)
	}

	inherited := map[string]bool{}
	for _, a := range c.attributes(cls.Parent) {
		inherited[a.Name] = true
	}
	seen := map[string]bool{}
	for _, a := range cls.Attributes {
		if !identifier.MatchString(a.Name) {
			return errs.InvalidArgumentf("invalid attribute name %q in class %s", a.Name, cls.Name)
		}
		if inherited[a.Name] || seen[a.Name] {
			return errs.InvalidArgumentf("attribute %s is already defined for class %s", a.Name, cls.Name)
		}
		seen[a.Name] = true
		if a.Type == "" {
			a.Type = TypeString
		}
		if !a.IsPrimitive() {
			if !c.isSubclassOf(GenericObjectList, a.Type) {
				return errs.InvalidArgumentf("type %s of attribute %s is neither primitive nor a list type", a.Type, a.Name)
			}
			if a.Unique {
				return errs.InvalidArgumentf("list type attribute %s cannot be unique", a.Name)
			}
		}
	}

	children, special := cls.PossibleChildren, cls.PossibleSpecialChildren
	cls.PossibleChildren = nil
	cls.PossibleSpecialChildren = nil
	c.classes[cls.Name] = cls
	c.order = append(c.order, cls.Name)

	for _, child := range children {
		if err := c.addPossibleChild(c.children, cls.Name, child); err != nil {
			return err
		}
	}
	for _, child := range special {
		if err := c.addPossibleChild(c.special, cls.Name, child); err != nil {
			return err
		}
	}
	log.Debug("class {{class}} added", "class", cls.Name)
	return nil
}

func nameOf(cls *Class) string {
	if cls == nil {
		return ""
	}
	return cls.Name
}

// HasClass reports whether a class is known.
func (c *Catalog) HasClass(name string) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	_, ok := c.classes[name]
	return ok
}

// GetClass returns a copy of a class including its inherited attributes.
func (c *Catalog) GetClass(name string) (*Class, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	cls, ok := c.classes[name]
	if !ok {
		return nil, errs.MetadataNotFound("class %s could not be found", name)
	}
	result := cls.copy()
	result.Attributes = nil
	for _, a := range c.attributes(name) {
		ac := *a
		result.Attributes = append(result.Attributes, &ac)
	}
	result.PossibleChildren = append([]string(nil), c.children[name]...)
	result.PossibleSpecialChildren = append([]string(nil), c.special[name]...)
	return result, nil
}

// Classes returns the names of all classes in registration order.
func (c *Catalog) Classes() []string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return append([]string(nil), c.order...)
}

// attributes returns the attributes of a class, ancestors first.
func (c *Catalog) attributes(name string) []*Attribute {
	var chain []*Class
	for cur := c.classes[name]; cur != nil; cur = c.classes[cur.Parent] {
		chain = append(chain, cur)
	}
	var result []*Attribute
	for i := len(chain) - 1; i >= 0; i-- {
		result = append(result, chain[i].Attributes...)
	}
	return result
}

// IsSubclassOf reports whether class equals superclass or inherits from it.
func (c *Catalog) IsSubclassOf(superclass, class string) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.isSubclassOf(superclass, class)
}

func (c *Catalog) isSubclassOf(superclass, class string) bool {
	for cur := c.classes[class]; cur != nil; cur = c.classes[cur.Parent] {
		if cur.Name == superclass {
			return true
		}
	}
	return false
}

// Subclasses returns the names of all classes inheriting from name, sorted.
// The class itself is included if includeSelf is set.
func (c *Catalog) Subclasses(name string, includeSelf bool) []string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.subclasses(name, includeSelf, false)
}

func (c *Catalog) subclasses(name string, includeSelf, concreteOnly bool) []string {
	var result []string
	for n, cls := range c.classes {
		if n == name && !includeSelf {
			continue
		}
		if concreteOnly && cls.Abstract {
			continue
		}
		if c.isSubclassOf(name, n) {
			result = append(result, n)
		}
	}
	sort.Strings(result)
	return result
}

// Attribute returns an attribute of a class, inherited ones included.
func (c *Catalog) Attribute(class, attr string) (*Attribute, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if _, ok := c.classes[class]; !ok {
		return nil, errs.MetadataNotFound("class %s could not be found", class)
	}
	for _, a := range c.attributes(class) {
		if a.Name == attr {
			ac := *a
			return &ac, nil
		}
	}
	return nil, errs.MetadataNotFound("attribute %s could not be found in class %s", attr, class)
}

// DeclaringClass returns the class in the chain of class that declares attr.
func (c *Catalog) DeclaringClass(class, attr string) (string, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	for cur := c.classes[class]; cur != nil; cur = c.classes[cur.Parent] {
		if cur.Attribute(attr) != nil {
			return cur.Name, nil
		}
	}
	return "", errs.MetadataNotFound("attribute %s could not be found in class %s", attr, class)
}

// IsListType reports whether class is a list type class.
func (c *Catalog) IsListType(class string) bool {
	return c.IsSubclassOf(GenericObjectList, class)
}

// InstanceableListTypes returns the concrete list type classes, sorted.
func (c *Catalog) InstanceableListTypes() []string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.subclasses(GenericObjectList, false, true)
}

func containmentKey(parent string) string {
	if parent == "" {
		return DummyRoot
	}
	return parent
}

func (c *Catalog) addPossibleChild(table map[string][]string, parent, child string) error {
	parent = containmentKey(parent)
	if parent != DummyRoot {
		if _, ok := c.classes[parent]; !ok {
			return errs.MetadataNotFound("class %s could not be found", parent)
		}
	}
	cls, ok := c.classes[child]
	if !ok {
		return errs.MetadataNotFound("class %s could not be found", child)
	}
	if !c.isSubclassOf(InventoryObject, cls.Name) {
		return errs.InvalidArgumentf("class %s is not an inventory class and cannot be a child", child)
	}
	for _, existing := range table[parent] {
		if existing == child {
			return nil
		}
	}
	table[parent] = append(table[parent], child)
	return nil
}

// SetPossibleChildren adds possible children to a parent class, "" or
// DummyRoot for top level objects.
func (c *Catalog) SetPossibleChildren(parent string, children ...string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, child := range children {
		if err := c.addPossibleChild(c.children, parent, child); err != nil {
			return err
		}
	}
	return nil
}

// SetPossibleSpecialChildren adds possible special children to a parent class.
func (c *Catalog) SetPossibleSpecialChildren(parent string, children ...string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	for _, child := range children {
		if err := c.addPossibleChild(c.special, parent, child); err != nil {
			return err
		}
	}
	return nil
}

// RemovePossibleChildren removes declared possible children of a parent class.
func (c *Catalog) RemovePossibleChildren(parent string, children ...string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	parent = containmentKey(parent)
	remove := map[string]bool{}
	for _, child := range children {
		remove[child] = true
	}
	var kept []string
	for _, child := range c.children[parent] {
		if !remove[child] {
			kept = append(kept, child)
		}
	}
	c.children[parent] = kept
}

// PossibleChildren returns the concrete classes whose instances may be
// contained by instances of parent. Abstract declarations are expanded to
// their concrete subclasses. Declarations are not inherited.
func (c *Catalog) PossibleChildren(parent string) ([]string, error) {
	return c.possible(c.children, parent)
}

// PossibleSpecialChildren is PossibleChildren for special containment.
func (c *Catalog) PossibleSpecialChildren(parent string) ([]string, error) {
	return c.possible(c.special, parent)
}

func (c *Catalog) possible(table map[string][]string, parent string) ([]string, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	parent = containmentKey(parent)
	if parent != DummyRoot {
		if _, ok := c.classes[parent]; !ok {
			return nil, errs.MetadataNotFound("class %s could not be found", parent)
		}
	}
	seen := map[string]bool{}
	var result []string
	for _, child := range table[parent] {
		for _, n := range c.subclasses(child, true, true) {
			if !seen[n] {
				seen[n] = true
				result = append(result, n)
			}
		}
	}
	sort.Strings(result)
	return result, nil
}

// CanBeChild reports whether instances of child may be contained by parent.
func (c *Catalog) CanBeChild(parent, child string) bool {
	return c.canBe(c.children, parent, child)
}

// CanBeSpecialChild reports whether instances of child may be special children of parent.
func (c *Catalog) CanBeSpecialChild(parent, child string) bool {
	return c.canBe(c.special, parent, child)
}

func (c *Catalog) canBe(table map[string][]string, parent, child string) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	for _, declared := range table[containmentKey(parent)] {
		if c.isSubclassOf(declared, child) {
			return true
		}
	}
	return false
}

// Load adds the classes and containment rules of a YAML document. Classes
// must be listed after their parents.
func (c *Catalog) Load(data []byte) error {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errs.Wrap(errs.InvalidArgument, err, "invalid class document")
	}
	for _, cls := range doc.Classes {
		def := *cls
		def.PossibleChildren = nil
		def.PossibleSpecialChildren = nil
		if err := c.AddClass(&def); err != nil {
			return err
		}
	}
	for _, cls := range doc.Classes {
		if err := c.SetPossibleChildren(cls.Name, cls.PossibleChildren...); err != nil {
			return err
		}
		if err := c.SetPossibleSpecialChildren(cls.Name, cls.PossibleSpecialChildren...); err != nil {
			return err
		}
	}
	for _, parent := range maputils.OrderedKeys(doc.Containment) {
		if err := c.SetPossibleChildren(parent, doc.Containment[parent]...); err != nil {
			return err
		}
	}
	for _, parent := range maputils.OrderedKeys(doc.SpecialContainment) {
		if err := c.SetPossibleSpecialChildren(parent, doc.SpecialContainment[parent]...); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads a class document from a filesystem.
func (c *Catalog) LoadFile(fs vfs.FileSystem, path string) error {
	data, err := vfs.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("cannot read class document %s: %w", path, err)
	}
	log.Info("loading classes from {{file}}", "file", path)
	return c.Load(data)
}

// Install creates the class nodes of all registered classes.
func (c *Catalog) Install(ctx context.Context, tx graph.Tx) error {
	for _, name := range c.Classes() {
		if _, err := c.ClassNode(ctx, tx, name); err != nil {
			return err
		}
	}
	return nil
}

// FindClassNode returns the graph node of a class without creating it.
func (c *Catalog) FindClassNode(ctx context.Context, tx graph.Tx, name string) (*graph.Node, error) {
	c.lock.RLock()
	id := c.nodeIDs[name]
	c.lock.RUnlock()
	if id != "" {
		n, err := tx.GetNode(ctx, id)
		if err == nil && n.HasLabel(graph.LabelClasses) && n.Name() == name {
			return n, nil
		}
		if err != nil && !errors.Is(err, graph.ErrNotFound) {
			return nil, err
		}
	}
	n, err := tx.FindNode(ctx, graph.LabelClasses, graph.PropName, name)
	if err != nil {
		return nil, err
	}
	c.lock.Lock()
	c.nodeIDs[name] = n.ID
	c.lock.Unlock()
	return n, nil
}

// ClassNode returns the graph node of a class, creating it and its missing
// ancestors on first use.
func (c *Catalog) ClassNode(ctx context.Context, tx graph.Tx, name string) (*graph.Node, error) {
	n, err := c.FindClassNode(ctx, tx, name)
	if err == nil || !errors.Is(err, graph.ErrNotFound) {
		return n, err
	}
	cls, err := c.GetClass(name)
	if err != nil {
		return nil, err
	}
	n, err = tx.CreateNode(ctx, graph.Props{
		graph.PropName:        cls.Name,
		graph.PropDisplayName: cls.DisplayName,
		graph.PropAbstract:    cls.Abstract,
		graph.PropInDesign:    cls.InDesign,
	}, graph.LabelClasses)
	if err != nil {
		return nil, err
	}
	if cls.Parent != "" {
		parent, err := c.ClassNode(ctx, tx, cls.Parent)
		if err != nil {
			return nil, err
		}
		if _, err := tx.CreateRelationship(ctx, n.ID, parent.ID, graph.RelExtends, nil); err != nil {
			return nil, err
		}
	}
	c.lock.Lock()
	c.nodeIDs[name] = n.ID
	c.lock.Unlock()
	return n, nil
}

// ClassOfNode returns the class name of an instance or template element.
func ClassOfNode(ctx context.Context, tx graph.Tx, nodeID string) (string, error) {
	cls, _, err := graph.Single(ctx, tx, nodeID, graph.Outgoing, graph.RelInstanceOf, graph.RelInstanceOfSpecial)
	if err != nil {
		return "", err
	}
	return cls.Name(), nil
}

// Instances returns the nodes linked to the class node of class by INSTANCE_OF.
// An uninstalled class has no instances.
func (c *Catalog) Instances(ctx context.Context, tx graph.Tx, class string) ([]*graph.Node, error) {
	n, err := c.FindClassNode(ctx, tx, class)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return graph.Neighbours(ctx, tx, n.ID, graph.Incoming, graph.RelInstanceOf)
}
