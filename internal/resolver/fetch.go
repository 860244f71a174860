package resolver

import (
	"reflect"
	"strings"
)

// FetchAttribute reads a field's value directly off the source value: the
// matching key for maps, the exported field with a case-insensitively
// matching name for structs (pointers are dereferenced first). Missing
// attributes yield nil rather than an error, matching the behavior of a
// default resolver.
func FetchAttribute(source any, name string) any {
	if source == nil {
		return nil
	}
	if m, ok := source.(map[string]any); ok {
		return m[name]
	}

	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		if strings.EqualFold(f.Name, name) {
			return rv.Field(i).Interface()
		}
	}
	return nil
}
