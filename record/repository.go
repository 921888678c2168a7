// Package record maps flat record nodes (users, views, reports, ...) onto
// tagged Go structs. Every operation runs inside the caller's transaction.
//
//	type Report struct {
//		ID   string `crud:"pk,property:_uuid"`
//		Name string `crud:"property:name"`
//	}
//
//	func (Report) NodeLabel() string { return "reports" }
package record

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/google/uuid"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/graph"
)

// Repository provides CRUD operations for records of type T. It holds only
// the field mapping of T, so one instance can serve any number of
// transactions concurrently.
type Repository[T any] struct {
	meta *entityMetadata
}

// New creates a repository for T by parsing its struct tags.
//
// T must be a struct implementing NodeLabel with exactly one field tagged
// `crud:"pk,..."`.
//
// Returns:
//
//	A repository for T, or an error if the tags of T are invalid or the
//	primary key is missing.
func New[T any]() (*Repository[T], error) {
	meta, err := parseTags[T]()
	if err != nil {
		return nil, err
	}
	return &Repository[T]{meta: meta}, nil
}

// MustNew is New for statically known record types.
func MustNew[T any]() *Repository[T] {
	r, err := New[T]()
	if err != nil {
		panic(err)
	}
	return r
}

// Label returns the node label records of T are stored with.
func (r *Repository[T]) Label() string {
	return r.meta.Label
}

// ID returns the primary key of an entity.
func (r *Repository[T]) ID(entity *T) string {
	return reflect.ValueOf(entity).Elem().FieldByName(r.meta.PKField).String()
}

// Props renders the tagged fields of an entity as node properties. Omitted
// zero values are mapped to nil so that an update removes them.
func (r *Repository[T]) Props(entity *T) graph.Props {
	val := reflect.ValueOf(entity).Elem()
	props := graph.Props{}
	for fieldName, propName := range r.meta.Mappings {
		field := val.FieldByName(fieldName)
		if r.meta.Omit[fieldName] && field.IsZero() {
			props[propName] = nil
			continue
		}
		if field.Kind() == reflect.Slice && field.IsNil() {
			props[propName] = nil
			continue
		}
		props[propName] = field.Interface()
	}
	return props
}

// Save creates a new node or updates an existing one. An empty primary key
// is generated and written back into the entity.
//
// Parameters:
//   - ctx: The context for the store calls.
//   - tx: The transaction the node is written in.
//   - entity: The record to persist. Its primary key is set on creation.
//
// Returns:
//
//	The stored node, or an error if the record could not be mapped or written.
func (r *Repository[T]) Save(ctx context.Context, tx graph.Tx, entity *T) (*graph.Node, error) {
	val := reflect.ValueOf(entity).Elem()
	pk := val.FieldByName(r.meta.PKField)
	if pk.String() != "" {
		node, err := r.FindNode(ctx, tx, pk.String())
		if err == nil {
			if err := tx.SetProperties(ctx, node.ID, r.Props(entity)); err != nil {
				return nil, err
			}
			return tx.GetNode(ctx, node.ID)
		}
		if !errors.Is(err, graph.ErrNotFound) {
			return nil, err
		}
	} else {
		pk.SetString(uuid.NewString())
	}

	props := r.Props(entity)
	for k, v := range props {
		if v == nil {
			delete(props, k)
		}
	}
	return tx.CreateNode(ctx, props, r.meta.Label)
}

// FindNode retrieves the node of a record by its primary key.
func (r *Repository[T]) FindNode(ctx context.Context, tx graph.Tx, id string) (*graph.Node, error) {
	if id == "" {
		return nil, graph.ErrNotFound
	}
	return tx.FindNode(ctx, r.meta.Label, r.meta.PKProp, id)
}

// FindByID retrieves a single record by its primary key.
//
// Returns:
//   - A pointer to the populated record.
//   - graph.ErrNotFound if no node of the record label carries the key.
//   - Any other error encountered while reading or mapping the node.
func (r *Repository[T]) FindByID(ctx context.Context, tx graph.Tx, id string) (*T, error) {
	node, err := r.FindNode(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return r.FromNode(node)
}

// FindAll returns every record of T in store order.
func (r *Repository[T]) FindAll(ctx context.Context, tx graph.Tx) ([]*T, error) {
	return r.FindByProperties(ctx, tx, nil)
}

// FindByProperty returns the records whose property equals value.
func (r *Repository[T]) FindByProperty(ctx context.Context, tx graph.Tx, prop string, value any) ([]*T, error) {
	return r.FindByProperties(ctx, tx, graph.Props{prop: value})
}

// FindByProperties returns the records matching every given property.
func (r *Repository[T]) FindByProperties(ctx context.Context, tx graph.Tx, props graph.Props) ([]*T, error) {
	nodes, err := tx.FindNodes(ctx, r.meta.Label, props)
	if err != nil {
		return nil, err
	}
	return r.FromNodes(nodes)
}

// Count returns the number of stored records of T.
func (r *Repository[T]) Count(ctx context.Context, tx graph.Tx) (int, error) {
	nodes, err := tx.FindNodes(ctx, r.meta.Label, nil)
	if err != nil {
		return 0, err
	}
	return len(nodes), nil
}

// Delete removes a record and all of its relationships.
func (r *Repository[T]) Delete(ctx context.Context, tx graph.Tx, id string) error {
	node, err := r.FindNode(ctx, tx, id)
	if err != nil {
		return err
	}
	return graph.DetachDelete(ctx, tx, node.ID)
}

// FromNodes maps a list of nodes.
func (r *Repository[T]) FromNodes(nodes []*graph.Node) ([]*T, error) {
	result := make([]*T, 0, len(nodes))
	for _, n := range nodes {
		e, err := r.FromNode(n)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

// FromNode populates a new record from the properties of a node.
func (r *Repository[T]) FromNode(node *graph.Node) (*T, error) {
	entity := new(T)
	if err := mapNodeToStruct(node, entity, r.meta); err != nil {
		return nil, err
	}
	return entity, nil
}

func mapNodeToStruct(node *graph.Node, entity any, meta *entityMetadata) error {
	val := reflect.ValueOf(entity).Elem()

	for fieldName, propName := range meta.Mappings {
		field := val.FieldByName(fieldName)
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		propValue, ok := node.Props[propName]
		if !ok || propValue == nil {
			continue
		}
		if err := assign(field, propValue); err != nil {
			return fmt.Errorf("cannot map property %s of node %s: %w", propName, node.ID, err)
		}
	}
	return nil
}

func assign(field reflect.Value, value any) error {
	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(field.Type()) {
		field.Set(v)
		return nil
	}
	if field.Kind() == reflect.Slice && v.Kind() == reflect.Slice {
		list := reflect.MakeSlice(field.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			if err := assign(list.Index(i), v.Index(i).Interface()); err != nil {
				return err
			}
		}
		field.Set(list)
		return nil
	}
	if field.Kind() == reflect.String {
		field.SetString(graph.FormatValue(value))
		return nil
	}
	if v.Kind() == reflect.String {
		return fmt.Errorf("cannot assign string to %s", field.Type())
	}
	if v.Type().ConvertibleTo(field.Type()) {
		field.Set(v.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %s to %s", v.Type(), field.Type())
}
