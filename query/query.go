// Package query implements the extended query model of the inventory: a
// tree of class filters with attribute conditions, joins over list type
// attributes or the parent object, and visible attribute columns.
//
// Queries are translated into parameterized Cypher. Every user supplied value
// is bound as parameter, attribute names are validated against the class
// catalog and quoted.
package query

import (
	"regexp"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/internal/attrs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
)

// Connector combines the conditions of a query.
type Connector string

const (
	And Connector = "AND"
	Or  Connector = "OR"
)

// Operators of a condition.
const (
	Equal          = "equal"
	NotEqual       = "notEqual"
	Like           = "like"
	Greater        = "greater"
	GreaterOrEqual = "greaterOrEqual"
	Less           = "less"
	LessOrEqual    = "lessOrEqual"
	IsNull         = "isNull"
)

// Parent is the pseudo attribute joining the container of an object.
const Parent = "parent"

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Condition restricts an attribute of the queried class. With Join set, the
// attribute must be a list type attribute or Parent and the condition holds
// if a related node matches the joined query.
type Condition struct {
	Attribute string         `json:"attribute"`
	Operator  string         `json:"operator,omitempty"`
	Value     string         `json:"value,omitempty"`
	Join      *ExtendedQuery `json:"join,omitempty"`
}

// ExtendedQuery selects instances of a class.
type ExtendedQuery struct {
	ClassName         string      `json:"className"`
	IncludeSubclasses bool        `json:"includeSubclasses,omitempty"`
	LogicalConnector  Connector   `json:"logicalConnector,omitempty"`
	Conditions        []Condition `json:"conditions,omitempty"`
	VisibleAttributes []string    `json:"visibleAttributes,omitempty"`
	// Page is 1 based and only used together with Limit.
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// ResultRecord is a row of a query result.
type ResultRecord struct {
	ClassName    string   `json:"className"`
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ExtraColumns []string `json:"extraColumns"`
}

// resolved is a validated query with its class set and typed conditions.
type resolved struct {
	query      *ExtendedQuery
	classes    []string
	connector  Connector
	conditions []resolvedCondition
	visible    []*metadata.Attribute
}

type resolvedCondition struct {
	attr     *metadata.Attribute
	operator string
	value    any
	// join is set for list type and parent conditions except isNull.
	join     *resolved
	listType bool
}

func resolve(catalog *metadata.Catalog, q *ExtendedQuery) (*resolved, error) {
	if q == nil {
		return nil, errs.InvalidArgumentf("missing query")
	}
	if _, err := catalog.GetClass(q.ClassName); err != nil {
		return nil, err
	}
	r := &resolved{query: q, connector: And}
	switch Connector(strings.ToUpper(string(q.LogicalConnector))) {
	case "", And:
	case Or:
		r.connector = Or
	default:
		return nil, errs.InvalidArgumentf("invalid logical connector %q", q.LogicalConnector)
	}
	if q.IncludeSubclasses {
		r.classes = catalog.Subclasses(q.ClassName, true)
	} else {
		r.classes = []string{q.ClassName}
	}

	for _, name := range q.VisibleAttributes {
		attr, err := attribute(catalog, q.ClassName, name)
		if err != nil {
			return nil, err
		}
		r.visible = append(r.visible, attr)
	}

	for _, c := range q.Conditions {
		rc, err := resolveCondition(catalog, q.ClassName, c)
		if err != nil {
			return nil, err
		}
		r.conditions = append(r.conditions, rc)
	}
	return r, nil
}

func attribute(catalog *metadata.Catalog, className, name string) (*metadata.Attribute, error) {
	if !identifier.MatchString(name) {
		return nil, errs.InvalidArgumentf("invalid attribute name %q", name)
	}
	attr, err := catalog.Attribute(className, name)
	if err != nil {
		return nil, errs.InvalidArgumentf("the attribute %s does not exist in class %s", name, className)
	}
	return attr, nil
}

func resolveCondition(catalog *metadata.Catalog, className string, c Condition) (resolvedCondition, error) {
	if c.Attribute == Parent {
		if c.Join == nil {
			return resolvedCondition{}, errs.InvalidArgumentf("a condition on %s requires a join", Parent)
		}
		join := *c.Join
		if join.ClassName == "" {
			join.ClassName, join.IncludeSubclasses = metadata.InventoryObject, true
		}
		sub, err := resolve(catalog, &join)
		if err != nil {
			return resolvedCondition{}, err
		}
		return resolvedCondition{join: sub}, nil
	}

	attr, err := attribute(catalog, className, c.Attribute)
	if err != nil {
		return resolvedCondition{}, err
	}
	if !attr.IsPrimitive() {
		if c.Join == nil && c.Operator == IsNull {
			return resolvedCondition{attr: attr, operator: IsNull, listType: true}, nil
		}
		join := c.Join
		if join == nil {
			// a plain condition on a list type attribute matches the item name
			join = &ExtendedQuery{Conditions: []Condition{{Attribute: "name", Operator: c.Operator, Value: c.Value}}}
		}
		j := *join
		if j.ClassName == "" {
			j.ClassName, j.IncludeSubclasses = attr.Type, true
		}
		if !catalog.IsSubclassOf(attr.Type, j.ClassName) {
			return resolvedCondition{}, errs.InvalidArgumentf("class %s can not be joined by attribute %s", j.ClassName, attr.Name)
		}
		sub, err := resolve(catalog, &j)
		if err != nil {
			return resolvedCondition{}, err
		}
		return resolvedCondition{attr: attr, join: sub, listType: true}, nil
	}
	if c.Join != nil {
		return resolvedCondition{}, errs.InvalidArgumentf("the primitive attribute %s can not be joined", attr.Name)
	}

	rc := resolvedCondition{attr: attr, operator: c.Operator}
	switch c.Operator {
	case IsNull:
		return rc, nil
	case Like:
		rc.value = strings.ToLower(c.Value)
		return rc, nil
	case Equal, NotEqual, Greater, GreaterOrEqual, Less, LessOrEqual:
	case "":
		rc.operator = Equal
	default:
		return resolvedCondition{}, errs.InvalidArgumentf("invalid operator %q", c.Operator)
	}
	rc.value, err = attrs.Convert(attr.Type, c.Value)
	if err != nil {
		return resolvedCondition{}, err
	}
	return rc, nil
}

// Header returns the header record of a query result. Its extra columns
// hold the titles of the visible attributes.
func header(r *resolved) ResultRecord {
	h := ResultRecord{ExtraColumns: []string{}}
	for _, a := range r.visible {
		title := a.DisplayName
		if title == "" {
			title = a.Name
		}
		h.ExtraColumns = append(h.ExtraColumns, title)
	}
	return h
}

func page(q *ExtendedQuery) (skip, limit int) {
	if q.Limit <= 0 {
		return 0, 0
	}
	if q.Page > 1 {
		skip = (q.Page - 1) * q.Limit
	}
	return skip, q.Limit
}
