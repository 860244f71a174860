// Package resolver defines the host integration surface for field
// resolution: a dispatch table keyed by "ObjectType.field" holding
// synchronous and asynchronous resolver callables, plus the abstract-type
// discrimination and leaf-serialization hooks both execution engines share.
//
// The table is passed explicitly to compilation and execution; nothing is
// injected through ambient state. Fields with no registered resolver fall
// back to plain attribute access on the source value (see fetch.go), which
// is the fast path compiled plans exploit.
package resolver

import (
	"context"
	"fmt"
	"reflect"
)

// Func resolves a field value synchronously.
//
// source is the parent object value (nil for root fields). args holds the
// field arguments as already-coerced Go values. Returning (nil, nil)
// produces a GraphQL null for nullable fields.
type Func func(ctx context.Context, source any, args map[string]any) (any, error)

// Thunk yields the value of a started asynchronous resolution. Awaiting the
// thunk blocks until the resolution completes.
type Thunk func() (any, error)

// AsyncFunc starts an asynchronous field resolution and returns a Thunk.
//
// Execution awaits the thunk at the call site before moving to the next
// field, so sibling order is preserved even when the resolver suspends.
type AsyncFunc func(ctx context.Context, source any, args map[string]any) Thunk

// TypeResolverFunc maps a value of an abstract (interface/union) type to the
// name of its concrete object type. The returned name must be one of the
// abstract type's possible types.
type TypeResolverFunc func(ctx context.Context, abstractType string, value any) (string, error)

// LeafSerializerFunc serializes a scalar or enum value to a JSON-safe Go
// value. The default is identity.
type LeafSerializerFunc func(ctx context.Context, typeName string, value any) (any, error)

// Table is the resolver dispatch table. A nil *Table behaves like an empty
// one: every field resolves by attribute access.
//
// Tables must be fully populated before compilation; the compiler classifies
// each field's resolution strategy from the table once, and the compiled
// plan does not consult the table again for dispatch decisions.
type Table struct {
	sync          map[string]Func
	async         map[string]AsyncFunc
	resolveType   TypeResolverFunc
	serializeLeaf LeafSerializerFunc
}

// NewTable creates an empty resolver table.
func NewTable() *Table {
	return &Table{
		sync:  make(map[string]Func),
		async: make(map[string]AsyncFunc),
	}
}

func key(objectType, field string) string { return objectType + "." + field }

// Register binds a synchronous resolver to ObjectType.field.
func (t *Table) Register(objectType, field string, fn Func) *Table {
	t.sync[key(objectType, field)] = fn
	return t
}

// RegisterAsync binds an asynchronous resolver to ObjectType.field.
func (t *Table) RegisterAsync(objectType, field string, fn AsyncFunc) *Table {
	t.async[key(objectType, field)] = fn
	return t
}

// SetTypeResolver installs the abstract-type discriminator.
func (t *Table) SetTypeResolver(fn TypeResolverFunc) *Table {
	t.resolveType = fn
	return t
}

// SetLeafSerializer installs the scalar/enum serialization hook.
func (t *Table) SetLeafSerializer(fn LeafSerializerFunc) *Table {
	t.serializeLeaf = fn
	return t
}

// Sync returns the synchronous resolver for ObjectType.field, if any.
func (t *Table) Sync(objectType, field string) (Func, bool) {
	if t == nil {
		return nil, false
	}
	fn, ok := t.sync[key(objectType, field)]
	return fn, ok
}

// Async returns the asynchronous resolver for ObjectType.field, if any.
func (t *Table) Async(objectType, field string) (AsyncFunc, bool) {
	if t == nil {
		return nil, false
	}
	fn, ok := t.async[key(objectType, field)]
	return fn, ok
}

// ResolveType discriminates the concrete type of an abstract value.
//
// Without a configured TypeResolverFunc it falls back to the "__typename"
// key for map values and the Go type name for struct values.
func (t *Table) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if t != nil && t.resolveType != nil {
		return t.resolveType(ctx, abstractType, value)
	}
	if m, ok := value.(map[string]any); ok {
		if typename, ok := m["__typename"].(string); ok {
			return typename, nil
		}
	}
	rt := reflect.TypeOf(value)
	for rt != nil && rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt != nil && rt.Kind() == reflect.Struct {
		return rt.Name(), nil
	}
	return "", fmt.Errorf("cannot resolve concrete type for abstract type %s", abstractType)
}

// SerializeLeaf serializes a scalar or enum value; identity by default.
func (t *Table) SerializeLeaf(ctx context.Context, typeName string, value any) (any, error) {
	if t != nil && t.serializeLeaf != nil {
		return t.serializeLeaf(ctx, typeName, value)
	}
	return value, nil
}

// GoAsync adapts a synchronous resolver into an AsyncFunc that runs it on
// its own goroutine. Useful in tests and for embedders whose resolvers do
// real I/O.
func GoAsync(fn Func) AsyncFunc {
	return func(ctx context.Context, source any, args map[string]any) Thunk {
		type outcome struct {
			value any
			err   error
		}
		ch := make(chan outcome, 1)
		go func() {
			v, err := fn(ctx, source, args)
			ch <- outcome{v, err}
		}()
		return func() (any, error) {
			out := <-ch
			return out.value, out.err
		}
	}
}
