package record

import (
	"fmt"
	"reflect"
	"strings"
)

// Labeled is implemented by record types whose node label differs from their type name.
type Labeled interface {
	NodeLabel() string
}

// entityMetadata holds the parsed `crud` tag information for a specific struct type.
type entityMetadata struct {
	// Label is the graph node label, defaulting to the struct's name.
	Label string
	// PKField is the name of the struct field marked as the primary key.
	PKField string
	// PKProp is the property name of the primary key in the database.
	PKProp string
	// Mappings maps struct field names to their corresponding database property names.
	Mappings map[string]string
	// Omit lists fields whose zero value is not stored.
	Omit map[string]bool
}

// parseTagsFromType inspects a reflect.Type and extracts persistence metadata
// from `crud` struct tags.
//
// Supported tag components:
//   - pk: the field is the business id, generated on first save if empty.
//   - property:<name>: the node property the field is stored in (required).
//   - omitempty: zero values remove the property instead of storing it.
func parseTagsFromType(typ reflect.Type) (*entityMetadata, error) {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s is not a struct", typ.Name())
	}

	meta := &entityMetadata{
		Label:    typ.Name(),
		Mappings: make(map[string]string),
		Omit:     make(map[string]bool),
	}
	if l, ok := reflect.New(typ).Elem().Interface().(Labeled); ok {
		meta.Label = l.NodeLabel()
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("crud")
		if tag == "" {
			continue
		}

		isPk := false
		propName := ""
		for _, part := range strings.Split(tag, ",") {
			switch {
			case part == "pk":
				isPk = true
			case part == "omitempty":
				meta.Omit[field.Name] = true
			case strings.HasPrefix(part, "property:"):
				propName = strings.TrimPrefix(part, "property:")
			}
		}

		if propName == "" {
			return nil, fmt.Errorf("field %s is missing 'property' tag component", field.Name)
		}
		if isPk {
			if field.Type.Kind() != reflect.String {
				return nil, fmt.Errorf("primary key field %s of %s must be a string", field.Name, typ.Name())
			}
			meta.PKField = field.Name
			meta.PKProp = propName
		}
		meta.Mappings[field.Name] = propName
	}

	if meta.PKField == "" {
		return nil, fmt.Errorf("no primary key ('pk') tag defined for struct %s", typ.Name())
	}
	return meta, nil
}

func parseTags[T any]() (*entityMetadata, error) {
	var instance T
	return parseTagsFromType(reflect.TypeOf(instance))
}
