// Package attrs applies attribute values given as strings to instance and
// template element nodes. Primitive attributes are node properties, list type
// attributes are RELATED_TO relationships named after the attribute.
package attrs

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/mandelsoft/goutils/maputils"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

// Separator joins the ids of a multiple list type attribute.
const Separator = ";"

// Convert parses the string representation of a primitive value.
func Convert(typ, value string) (any, error) {
	switch typ {
	case metadata.TypeString:
		return value, nil
	case metadata.TypeInteger, metadata.TypeLong:
		i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, errs.InvalidArgumentf("%q is not a valid %s", value, typ)
		}
		return i, nil
	case metadata.TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, errs.InvalidArgumentf("%q is not a valid %s", value, typ)
		}
		return f, nil
	case metadata.TypeBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return nil, errs.InvalidArgumentf("%q is not a valid %s", value, typ)
		}
		return b, nil
	case metadata.TypeDate:
		v := strings.TrimSpace(value)
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i, nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errs.InvalidArgumentf("%q is neither epoch milliseconds nor an RFC3339 date", value)
		}
		return t.UnixMilli(), nil
	}
	return nil, errs.InvalidArgumentf("%s is not a primitive type", typ)
}

// Options control Apply.
type Options struct {
	// Create marks a new node: mandatory attributes without a value fail.
	Create bool
	// Unique collects unique value reservations. Nil skips uniqueness checks,
	// as done for template elements.
	Unique *metadata.UniqueChanges
	// Owner is the business id unique values are reserved for.
	Owner string
}

// Apply writes values to node, an instance of class. It returns the change
// descriptor of the modified attributes.
func Apply(ctx context.Context, tx graph.Tx, catalog *metadata.Catalog, node *graph.Node, class *metadata.Class,
	values map[string]string, opts Options,
) (*models.ChangeDescriptor, error) {
	changes := &models.ChangeDescriptor{}
	props := graph.Props{}

	for _, name := range maputils.OrderedKeys(values) {
		value := values[name]
		attr := class.Attribute(name)
		if attr == nil {
			return nil, errs.InvalidArgumentf("the attribute %s does not exist in class %s", name, class.Name)
		}
		if attr.Mandatory && strings.TrimSpace(value) == "" {
			return nil, errs.InvalidArgumentf("the mandatory attribute %s of class %s can not be empty", name, class.Name)
		}

		if !attr.IsPrimitive() {
			old, err := ListValue(ctx, tx, node.ID, name)
			if err != nil {
				return nil, err
			}
			if err := setListValue(ctx, tx, catalog, node.ID, attr, value); err != nil {
				return nil, err
			}
			if nv := normalizeIDs(value); nv != old {
				changes.Add(name, old, nv)
			}
			continue
		}

		old := node.String(name)
		if value == "" {
			props[name] = nil
		} else {
			v, err := Convert(attr.Type, value)
			if err != nil {
				return nil, err
			}
			props[name] = v
			value = graph.FormatValue(v)
		}
		if opts.Unique != nil && attr.Unique && value != old {
			if err := opts.Unique.Reserve(ctx, tx, class.Name, name, value, opts.Owner); err != nil {
				return nil, err
			}
			opts.Unique.Free(class.Name, name, old, opts.Owner)
		}
		if value != old {
			changes.Add(name, old, value)
		}
	}

	if len(props) > 0 {
		if err := tx.SetProperties(ctx, node.ID, props); err != nil {
			return nil, err
		}
	}

	if opts.Create {
		if err := CheckMandatory(ctx, tx, node.ID, class); err != nil {
			return nil, err
		}
	}
	return changes, nil
}

// CheckMandatory verifies all mandatory attributes of class carry a value.
func CheckMandatory(ctx context.Context, tx graph.Tx, nodeID string, class *metadata.Class) error {
	node, err := tx.GetNode(ctx, nodeID)
	if err != nil {
		return err
	}
	for _, attr := range class.Attributes {
		if !attr.Mandatory {
			continue
		}
		var v string
		if attr.IsPrimitive() {
			v = node.String(attr.Name)
		} else if v, err = ListValue(ctx, tx, nodeID, attr.Name); err != nil {
			return err
		}
		if strings.TrimSpace(v) == "" {
			return errs.InvalidArgumentf("the mandatory attribute %s of class %s has no value", attr.Name, class.Name)
		}
	}
	return nil
}

// ReserveUnique reserves the current unique values of a node, used after
// copying or spawning nodes.
func ReserveUnique(ctx context.Context, tx graph.Tx, uc *metadata.UniqueChanges, node *graph.Node, class *metadata.Class) error {
	for _, attr := range class.Attributes {
		if attr.Unique {
			if err := uc.Reserve(ctx, tx, class.Name, attr.Name, node.String(attr.Name), node.UUID()); err != nil {
				return err
			}
		}
	}
	return nil
}

// FreeUnique releases the unique values of a node on commit.
func FreeUnique(uc *metadata.UniqueChanges, node *graph.Node, class *metadata.Class) {
	for _, attr := range class.Attributes {
		if attr.Unique {
			uc.Free(class.Name, attr.Name, node.String(attr.Name), node.UUID())
		}
	}
}

func splitIDs(value string) []string {
	var ids []string
	for _, id := range strings.Split(value, Separator) {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func normalizeIDs(value string) string {
	return strings.Join(splitIDs(value), Separator)
}

func setListValue(ctx context.Context, tx graph.Tx, catalog *metadata.Catalog, nodeID string, attr *metadata.Attribute, value string) error {
	ids := splitIDs(value)
	if len(ids) > 1 && !attr.Multiple {
		return errs.InvalidArgumentf("the attribute %s accepts a single list type item", attr.Name)
	}
	items := make([]*graph.Node, 0, len(ids))
	for _, id := range ids {
		item, err := ListTypeItem(ctx, tx, id)
		if err != nil {
			return err
		}
		cls, err := metadata.ClassOfNode(ctx, tx, item.ID)
		if err != nil {
			return err
		}
		if !catalog.IsSubclassOf(attr.Type, cls) {
			return errs.InvalidArgumentf("list type item %s is of class %s, not %s", id, cls, attr.Type)
		}
		items = append(items, item)
	}

	rels, err := tx.Relationships(ctx, nodeID, graph.Outgoing, graph.RelRelatedTo)
	if err != nil {
		return err
	}
	for _, r := range graph.FilterRelationships(rels, graph.PropName, attr.Name) {
		if err := tx.DeleteRelationship(ctx, r.ID); err != nil {
			return err
		}
	}
	for _, item := range items {
		if _, err := tx.CreateRelationship(ctx, nodeID, item.ID, graph.RelRelatedTo, graph.Props{graph.PropName: attr.Name}); err != nil {
			return err
		}
	}
	return nil
}

// ListValue returns the ids of the list type items of a list type attribute.
func ListValue(ctx context.Context, tx graph.Tx, nodeID, attr string) (string, error) {
	rels, err := tx.Relationships(ctx, nodeID, graph.Outgoing, graph.RelRelatedTo)
	if err != nil {
		return "", err
	}
	var ids []string
	for _, r := range graph.FilterRelationships(rels, graph.PropName, attr) {
		item, err := tx.GetNode(ctx, r.End)
		if err != nil {
			return "", err
		}
		ids = append(ids, item.UUID())
	}
	return strings.Join(ids, Separator), nil
}

// ListTypeItem resolves a list type item by its id.
func ListTypeItem(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	item, err := tx.FindNode(ctx, graph.LabelListTypeItems, graph.PropUUID, id)
	if err != nil {
		if errors.Is(err, graph.ErrNotFound) {
			return nil, errs.ObjectNotFound("", id)
		}
		return nil, err
	}
	return item, nil
}

// Read returns all attribute values of node as strings. Absent values are omitted.
func Read(ctx context.Context, tx graph.Tx, node *graph.Node, class *metadata.Class) (map[string]string, error) {
	result := map[string]string{}
	for _, attr := range class.Attributes {
		var v string
		if attr.IsPrimitive() {
			if _, ok := node.Props[attr.Name]; !ok {
				continue
			}
			v = node.String(attr.Name)
		} else {
			var err error
			if v, err = ListValue(ctx, tx, node.ID, attr.Name); err != nil {
				return nil, err
			}
			if v == "" {
				continue
			}
		}
		result[attr.Name] = v
	}
	return result, nil
}

// CopyRelatedTo re-creates the RELATED_TO relationships of source on target.
func CopyRelatedTo(ctx context.Context, tx graph.Tx, source, target string) error {
	rels, err := tx.Relationships(ctx, source, graph.Outgoing, graph.RelRelatedTo)
	if err != nil {
		return err
	}
	for _, r := range rels {
		if _, err := tx.CreateRelationship(ctx, target, r.End, graph.RelRelatedTo, r.Props); err != nil {
			return err
		}
	}
	return nil
}

// ScalarProps returns the properties of a node except its business id.
func ScalarProps(node *graph.Node) graph.Props {
	props := graph.Props{}
	for k, v := range node.Props {
		if k != graph.PropUUID {
			props[k] = v
		}
	}
	return props
}
