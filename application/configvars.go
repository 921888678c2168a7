package application

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

// maskedValue replaces the value of masked variables in listings.
const maskedValue = "****"

// Configuration variable properties changeable with UpdateConfigVariable.
const (
	VariablePropertyName        = graph.PropName
	VariablePropertyDescription = graph.PropDescription
	VariablePropertyType        = graph.PropType
	VariablePropertyMasked      = "masked"
	VariablePropertyValue       = "value"
)

func findPool(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	return findNode(ctx, tx, graph.LabelConfigVariablesPools, "configuration variables pool", id)
}

func findVariable(ctx context.Context, tx graph.Tx, name string) (*graph.Node, error) {
	n, err := tx.FindNode(ctx, graph.LabelConfigVariables, graph.PropName, name)
	return n, notFound(err, "configuration variable", name)
}

func checkVariableType(typ int) error {
	if typ < VariableTypeString || typ > VariableTypeTable {
		return errs.InvalidArgumentf("invalid configuration variable type %d", typ)
	}
	return nil
}

// CreateConfigVariablesPool creates a pool of configuration variables.
func (r *Repository) CreateConfigVariablesPool(ctx context.Context, name, description string) (string, error) {
	if blank(name) {
		return "", errs.InvalidArgumentf("the pool name can not be empty")
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		p := &ConfigVariablesPool{Name: name, Description: description}
		if _, err := variablePools.Save(ctx, tx, p); err != nil {
			return err
		}
		id = p.ID
		return nil
	})
	return id, err
}

// UpdateConfigVariablesPool changes the name or description of a pool.
func (r *Repository) UpdateConfigVariablesPool(ctx context.Context, id, property, value string) error {
	switch property {
	case graph.PropName:
		if blank(value) {
			return errs.InvalidArgumentf("the pool name can not be empty")
		}
	case graph.PropDescription:
	default:
		return errs.InvalidArgumentf("the property %s of pools can not be changed", property)
	}
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findPool(ctx, tx, id)
		if err != nil {
			return err
		}
		return tx.SetProperties(ctx, n.ID, graph.Props{property: value})
	})
}

// DeleteConfigVariablesPool removes a pool together with its variables.
func (r *Repository) DeleteConfigVariablesPool(ctx context.Context, id string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findPool(ctx, tx, id)
		if err != nil {
			return err
		}
		members, err := graph.Neighbours(ctx, tx, n.ID, graph.Incoming, graph.RelChildOfSpecial)
		if err != nil {
			return err
		}
		for _, m := range members {
			if err := graph.DetachDelete(ctx, tx, m.ID); err != nil {
				return err
			}
		}
		return graph.DetachDelete(ctx, tx, n.ID)
	})
}

// ConfigVariablesPools returns all pools ordered by name.
func (r *Repository) ConfigVariablesPools(ctx context.Context) ([]*ConfigVariablesPool, error) {
	var result []*ConfigVariablesPool
	err := r.view(ctx, func(tx graph.Tx) error {
		list, err := variablePools.FindAll(ctx, tx)
		if err != nil {
			return err
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		result = list
		return nil
	})
	return result, err
}

// CreateConfigVariable creates a variable in a pool. Names are unique.
func (r *Repository) CreateConfigVariable(ctx context.Context, poolID, name, description string, typ int, masked bool, value string) (string, error) {
	if blank(name) {
		return "", errs.InvalidArgumentf("the variable name can not be empty")
	}
	if err := checkVariableType(typ); err != nil {
		return "", err
	}
	var id string
	err := r.update(ctx, func(tx graph.Tx, w *work) error {
		pool, err := findPool(ctx, tx, poolID)
		if err != nil {
			return err
		}
		if err := checkVariableName(ctx, tx, name); err != nil {
			return err
		}
		v := &ConfigVariable{Name: name, Description: description, Type: typ, Masked: masked, Value: value}
		n, err := variables.Save(ctx, tx, v)
		if err != nil {
			return err
		}
		if _, err := tx.CreateRelationship(ctx, n.ID, pool.ID, graph.RelChildOfSpecial, nil); err != nil {
			return err
		}
		id = v.ID
		return nil
	})
	return id, err
}

func checkVariableName(ctx context.Context, tx graph.Tx, name string) error {
	_, err := tx.FindNode(ctx, graph.LabelConfigVariables, graph.PropName, name)
	if err == nil {
		return errs.InvalidArgumentf("a configuration variable named %s already exists", name)
	}
	if !errors.Is(err, graph.ErrNotFound) {
		return err
	}
	return nil
}

// UpdateConfigVariable changes one property of a variable addressed by name.
func (r *Repository) UpdateConfigVariable(ctx context.Context, name, property, value string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findVariable(ctx, tx, name)
		if err != nil {
			return err
		}
		var v any
		switch property {
		case VariablePropertyName:
			if blank(value) {
				return errs.InvalidArgumentf("the variable name can not be empty")
			}
			if value != name {
				if err := checkVariableName(ctx, tx, value); err != nil {
					return err
				}
			}
			v = value
		case VariablePropertyDescription, VariablePropertyValue:
			v = value
		case VariablePropertyType:
			typ, err := strconv.Atoi(value)
			if err != nil {
				return errs.InvalidArgumentf("invalid configuration variable type %q", value)
			}
			if err := checkVariableType(typ); err != nil {
				return err
			}
			v = int64(typ)
		case VariablePropertyMasked:
			v = value == "true"
		default:
			return errs.InvalidArgumentf("the property %s of configuration variables can not be changed", property)
		}
		return tx.SetProperties(ctx, n.ID, graph.Props{property: v})
	})
}

// DeleteConfigVariable removes a variable.
func (r *Repository) DeleteConfigVariable(ctx context.Context, name string) error {
	return r.update(ctx, func(tx graph.Tx, w *work) error {
		n, err := findVariable(ctx, tx, name)
		if err != nil {
			return err
		}
		return graph.DetachDelete(ctx, tx, n.ID)
	})
}

func toVariable(ctx context.Context, tx graph.Tx, n *graph.Node, mask bool) (*ConfigVariable, error) {
	v, err := variables.FromNode(n)
	if err != nil {
		return nil, err
	}
	pools, err := graph.Neighbours(ctx, tx, n.ID, graph.Outgoing, graph.RelChildOfSpecial)
	if err != nil {
		return nil, err
	}
	if len(pools) > 0 {
		v.PoolID = pools[0].UUID()
	}
	if mask && v.Masked {
		v.Value = maskedValue
	}
	return v, nil
}

// GetConfigVariable returns a variable including its unmasked value.
func (r *Repository) GetConfigVariable(ctx context.Context, name string) (*ConfigVariable, error) {
	var result *ConfigVariable
	err := r.view(ctx, func(tx graph.Tx) error {
		n, err := findVariable(ctx, tx, name)
		if err != nil {
			return err
		}
		result, err = toVariable(ctx, tx, n, false)
		return err
	})
	return result, err
}

// ConfigVariableValue returns the typed value of a variable: string, int64,
// float64, bool, []string for arrays and [][]string for tables.
func (r *Repository) ConfigVariableValue(ctx context.Context, name string) (any, error) {
	v, err := r.GetConfigVariable(ctx, name)
	if err != nil {
		return nil, err
	}
	return ParseVariableValue(v.Type, v.Value)
}

// ParseVariableValue converts the stored text of a variable to its type.
func ParseVariableValue(typ int, value string) (any, error) {
	switch typ {
	case VariableTypeString:
		return value, nil
	case VariableTypeInteger:
		i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, errs.InvalidArgumentf("the value %q is not an integer", value)
		}
		return i, nil
	case VariableTypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, errs.InvalidArgumentf("the value %q is not a float", value)
		}
		return f, nil
	case VariableTypeBoolean:
		return strings.TrimSpace(value) == "true", nil
	case VariableTypeArray:
		if value == "" {
			return []string{}, nil
		}
		return strings.Split(value, ","), nil
	case VariableTypeTable:
		// TODO: parse the row/column text format once table variables are edited by a client.
		return [][]string{}, nil
	}
	return nil, errs.InvalidArgumentf("invalid configuration variable type %d", typ)
}

func (r *Repository) variableList(ctx context.Context, fn func(tx graph.Tx) ([]*graph.Node, error)) ([]*ConfigVariable, error) {
	var result []*ConfigVariable
	err := r.view(ctx, func(tx graph.Tx) error {
		nodes, err := fn(tx)
		if err != nil {
			return err
		}
		graph.SortByName(nodes)
		for _, n := range nodes {
			v, err := toVariable(ctx, tx, n, true)
			if err != nil {
				return err
			}
			result = append(result, v)
		}
		return nil
	})
	return result, err
}

// ConfigVariablesInPool returns the variables of a pool ordered by name.
// Masked values are hidden.
func (r *Repository) ConfigVariablesInPool(ctx context.Context, poolID string) ([]*ConfigVariable, error) {
	return r.variableList(ctx, func(tx graph.Tx) ([]*graph.Node, error) {
		pool, err := findPool(ctx, tx, poolID)
		if err != nil {
			return nil, err
		}
		return graph.Neighbours(ctx, tx, pool.ID, graph.Incoming, graph.RelChildOfSpecial)
	})
}

// ConfigVariablesWithPrefix returns the variables whose name starts with
// prefix. An empty prefix matches nothing.
func (r *Repository) ConfigVariablesWithPrefix(ctx context.Context, prefix string) ([]*ConfigVariable, error) {
	if prefix == "" {
		return nil, nil
	}
	return r.variableList(ctx, func(tx graph.Tx) ([]*graph.Node, error) {
		nodes, err := tx.FindNodes(ctx, graph.LabelConfigVariables, nil)
		if err != nil {
			return nil, err
		}
		var result []*graph.Node
		for _, n := range nodes {
			if strings.HasPrefix(n.Name(), prefix) {
				result = append(result, n)
			}
		}
		return result, nil
	})
}
