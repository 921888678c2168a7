package metadata

// Built-in classes every catalog starts with.
const (
	RootObject        = "RootObject"
	InventoryObject   = "InventoryObject"
	GenericObjectList = "GenericObjectList"
	GenericContact    = "GenericContact"
	GenericCustomer   = "GenericCustomer"
	// DummyRoot is not a class; it keys the possible children of top level objects.
	DummyRoot = "DummyRoot"
)

// Primitive attribute types. Any other type names a list type class.
const (
	TypeString  = "String"
	TypeInteger = "Integer"
	TypeFloat   = "Float"
	TypeLong    = "Long"
	TypeBoolean = "Boolean"
	TypeDate    = "Date"
)

// IsPrimitive reports whether an attribute type is a primitive type.
func IsPrimitive(typ string) bool {
	switch typ {
	case TypeString, TypeInteger, TypeFloat, TypeLong, TypeBoolean, TypeDate:
		return true
	}
	return false
}

// Attribute describes one attribute of a class.
type Attribute struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName,omitempty"`
	Description    string `json:"description,omitempty"`
	Type           string `json:"type"`
	Mandatory      bool   `json:"mandatory,omitempty"`
	Unique         bool   `json:"unique,omitempty"`
	Visible        bool   `json:"visible,omitempty"`
	ReadOnly       bool   `json:"readOnly,omitempty"`
	Administrative bool   `json:"administrative,omitempty"`
	// Multiple allows several list type items for a list type attribute.
	Multiple bool `json:"multiple,omitempty"`
}

// IsPrimitive reports whether the attribute has a primitive type.
func (a *Attribute) IsPrimitive() bool {
	return IsPrimitive(a.Type)
}

// Class describes a class of the inventory model.
type Class struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
	Parent      string `json:"parent,omitempty"`
	Abstract    bool   `json:"abstract,omitempty"`
	InDesign    bool   `json:"inDesign,omitempty"`
	// Attributes are the declared attributes. GetClass returns the inherited
	// ones as well, ancestors first.
	Attributes              []*Attribute `json:"attributes,omitempty"`
	PossibleChildren        []string     `json:"possibleChildren,omitempty"`
	PossibleSpecialChildren []string     `json:"possibleSpecialChildren,omitempty"`
}

// Attribute returns the attribute with the given name or nil.
func (c *Class) Attribute(name string) *Attribute {
	for _, a := range c.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (c *Class) copy() *Class {
	n := *c
	n.Attributes = make([]*Attribute, len(c.Attributes))
	for i, a := range c.Attributes {
		ac := *a
		n.Attributes[i] = &ac
	}
	n.PossibleChildren = append([]string(nil), c.PossibleChildren...)
	n.PossibleSpecialChildren = append([]string(nil), c.PossibleSpecialChildren...)
	return &n
}

// Document is the YAML representation of a class hierarchy.
type Document struct {
	Classes []*Class `json:"classes"`
	// Containment lists the possible children per parent class, DummyRoot
	// for top level objects.
	Containment map[string][]string `json:"containment,omitempty"`
	// SpecialContainment lists the possible special children per parent class.
	SpecialContainment map[string][]string `json:"specialContainment,omitempty"`
}
