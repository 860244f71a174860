// Package jit compiles a parsed query operation against a schema and a
// resolver table into a specialized plan, then executes that plan with a
// tight interpreter that carries no per-field dispatch decisions.
//
// Compilation walks the operation's selection tree in lock-step with the
// schema's type graph, flattening fragments, folding __typename, classifying
// every field's resolution strategy (strategy.go) and pre-coercing literal
// argument values. The resulting plan mirrors the reference engine's
// completion semantics exactly, so a compiled execution is structurally
// identical to the reference engine's output for the same operation and
// root value. Anything the compiler cannot express fails compilation with a
// CompileError instead of degrading at run time.
package jit

import (
	"context"
	"fmt"
	"maps"
	"reflect"

	"github.com/dolmen-go/jsonmap"

	resolver "github.com/graphjit/graphjit/internal/resolver"
	result "github.com/graphjit/graphjit/internal/result"
	schema "github.com/graphjit/graphjit/internal/schema"
)

// Program is a compiled, immutable execution plan for one query operation.
// It may be invoked concurrently across independent root values.
type Program struct {
	operationName string
	async         bool
	schema        *schema.Schema
	table         *resolver.Table
	root          *objectPlan
}

// Name returns the compiled operation's name ("" for anonymous operations).
func (p *Program) Name() string { return p.operationName }

// Async reports whether any field reachable from the operation's root
// resolves asynchronously. Computed transitively at compile time.
func (p *Program) Async() bool { return p.async }

// Execute runs the plan against rootValue. Repeated invocations with equal
// root values yield structurally equal results; neither the plan nor the
// root value is mutated.
func (p *Program) Execute(ctx context.Context, rootValue any) *result.ExecutionResult {
	st := &interpState{
		ctx:    ctx,
		schema: p.schema,
		table:  p.table,
		errors: []result.GraphQLError{},
	}
	data := p.root.execute(st, rootValue, result.Path{})
	return &result.ExecutionResult{Data: data, Errors: st.errors}
}

// interpState holds the mutable state of one plan execution.
type interpState struct {
	ctx    context.Context
	schema *schema.Schema
	table  *resolver.Table
	errors []result.GraphQLError
}

func (st *interpState) addError(message string, path result.Path) {
	st.errors = append(st.errors, result.GraphQLError{Message: message, Path: path})
}

func (st *interpState) hasErrorAtPath(path result.Path) bool {
	for _, err := range st.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

// objectPlan produces the result mapping for one object-typed selection
// level. Steps are in selection source order.
type objectPlan struct {
	typeName string
	steps    []*fieldStep
}

// fieldStep is one response-name entry of an objectPlan: how to obtain the
// field's value and how to complete it against its wrapper chain.
type fieldStep struct {
	responseName string
	fieldName    string
	typename     bool // folded __typename; no resolution, no completion
	strategy     Strategy
	sync         resolver.Func
	async        resolver.AsyncFunc
	args         map[string]any
	nonNull      bool
	value        valuePlan
}

func (s *fieldStep) resolve(st *interpState, source any) (any, error) {
	switch s.strategy {
	case StrategyAttribute:
		return resolver.FetchAttribute(source, s.fieldName), nil
	case StrategySyncResolver:
		return s.sync(st.ctx, source, maps.Clone(s.args))
	default:
		thunk := s.async(st.ctx, source, maps.Clone(s.args))
		return thunk()
	}
}

// execute resolves and completes every step in order. A nil return signals a
// non-null violation the caller must propagate; at the root level the
// violation is recorded as a null entry and execution continues.
func (p *objectPlan) execute(st *interpState, source any, path result.Path) *jsonmap.Ordered {
	resultMap := result.NewOrdered(len(p.steps))

	for _, step := range p.steps {
		if step.typename {
			result.Set(resultMap, step.responseName, p.typeName)
			continue
		}
		fieldPath := path.Append(step.responseName)

		var completed any
		resolved, err := step.resolve(st, source)
		if err != nil {
			st.addError(err.Error(), fieldPath)
		} else {
			completed = step.value.complete(st, resolved, fieldPath)
		}

		if step.nonNull && result.IsNullish(completed) {
			if len(path) > 0 {
				return nil
			}
			result.Set(resultMap, step.responseName, nil)
			continue
		}

		if result.IsNullish(completed) {
			result.Set(resultMap, step.responseName, nil)
		} else {
			result.Set(resultMap, step.responseName, completed)
		}
	}

	return resultMap
}

// valuePlan completes a resolved value against one wrapper of the field's
// declared type chain. The variants mirror the reference engine's
// completeValue states.
type valuePlan interface {
	complete(st *interpState, value any, path result.Path) any
}

// nonNullPlan guards a Non-Null wrapper: a nullish value is a field error at
// this path, and a nullish inner completion propagates silently (the inner
// completion already recorded its error).
type nonNullPlan struct {
	inner valuePlan
}

func (p *nonNullPlan) complete(st *interpState, value any, path result.Path) any {
	if result.IsNullish(value) {
		if !st.hasErrorAtPath(path) {
			st.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", path.String()), path)
		}
		return nil
	}
	completed := p.inner.complete(st, value, path)
	if result.IsNullish(completed) {
		return nil
	}
	return completed
}

// listPlan completes each element in iteration order. A non-null element
// completing to null nulls the whole list.
type listPlan struct {
	elem        valuePlan
	elemNonNull bool
}

func (p *listPlan) complete(st *interpState, value any, path result.Path) any {
	if result.IsNullish(value) {
		return nil
	}
	items, ok := asSlice(value)
	if !ok {
		st.addError(fmt.Sprintf("Expected list value, got %T", value), path)
		return nil
	}
	completed := make([]any, len(items))
	for i, item := range items {
		v := p.elem.complete(st, item, path.Append(i))
		if p.elemNonNull && result.IsNullish(v) {
			return nil
		}
		completed[i] = v
	}
	return completed
}

// leafPlan terminates the wrapper chain at a scalar or enum.
type leafPlan struct {
	typeName string
}

func (p *leafPlan) complete(st *interpState, value any, path result.Path) any {
	if result.IsNullish(value) {
		return nil
	}
	serialized, err := st.table.SerializeLeaf(st.ctx, p.typeName, value)
	if err != nil {
		st.addError(err.Error(), path)
		return nil
	}
	return serialized
}

// objectValuePlan descends into a nested object selection.
type objectValuePlan struct {
	obj *objectPlan
}

func (p *objectValuePlan) complete(st *interpState, value any, path result.Path) any {
	if result.IsNullish(value) {
		return nil
	}
	m := p.obj.execute(st, value, path)
	if m == nil {
		return nil
	}
	return m
}

// abstractPlan discriminates an interface or union value at run time and
// executes the branch plan compiled for the resolved concrete type. One
// branch exists per possible type of the abstract type.
type abstractPlan struct {
	typeName string
	branches map[string]*objectPlan
}

func (p *abstractPlan) complete(st *interpState, value any, path result.Path) any {
	if result.IsNullish(value) {
		return nil
	}
	concrete, err := st.table.ResolveType(st.ctx, p.typeName, value)
	if err != nil {
		st.addError(err.Error(), path)
		return nil
	}
	objectType := st.schema.Types[concrete]
	if objectType == nil || objectType.Kind != schema.TypeKindObject {
		st.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", p.typeName, concrete), path)
		return nil
	}
	branch, ok := p.branches[concrete]
	if !ok {
		st.addError(fmt.Sprintf("Type %s is not a possible type of %s", concrete, p.typeName), path)
		return nil
	}
	m := branch.execute(st, value, path)
	if m == nil {
		return nil
	}
	return m
}

// asSlice normalizes any slice-kinded value into []any.
func asSlice(value any) ([]any, bool) {
	if direct, ok := value.([]any); ok {
		return direct, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
