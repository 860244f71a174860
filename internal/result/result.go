// Package result holds the response-side data model shared by the reference
// executor and the compiled-plan interpreter: located errors, response paths,
// and the ordered result mapping GraphQL responses require.
package result

import (
	"fmt"
	"reflect"

	"github.com/dolmen-go/jsonmap"
)

// Path locates a field in the response tree. Elements are response names
// (string) and list indices (int).
type Path []PathElement

type PathElement any

// Append returns a new Path with elem added; the receiver is not modified.
func (p Path) Append(elem PathElement) Path {
	next := make(Path, len(p)+1)
	copy(next, p)
	next[len(p)] = elem
	return next
}

// String renders the path in dotted notation with bracketed indices,
// e.g. "users[2].name".
func (p Path) String() string {
	out := ""
	for i, elem := range p {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				out += "."
			}
			out += v
		case int:
			out += fmt.Sprintf("[%d]", v)
		}
	}
	return out
}

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult represents the result of executing a GraphQL operation.
// Data is a *jsonmap.Ordered (or nil) so that field order survives into the
// serialized response.
type ExecutionResult struct {
	Data   *jsonmap.Ordered `json:"data"`
	Errors []GraphQLError   `json:"errors,omitempty"`
}

// NewOrdered returns an empty ordered mapping sized for n entries.
func NewOrdered(n int) *jsonmap.Ordered {
	return &jsonmap.Ordered{
		Data:  make(map[string]any, n),
		Order: make([]string, 0, n),
	}
}

// Set assigns key to value, appending to the key order on first assignment.
func Set(m *jsonmap.Ordered, key string, value any) {
	if _, ok := m.Data[key]; !ok {
		m.Order = append(m.Order, key)
	}
	m.Data[key] = value
}

// IsNullish returns true for nil interfaces and typed nils (map, slice, ptr,
// interface, func, chan).
func IsNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
