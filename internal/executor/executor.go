package executor

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dolmen-go/jsonmap"

	language "github.com/graphjit/graphjit/internal/language"
	resolver "github.com/graphjit/graphjit/internal/resolver"
	result "github.com/graphjit/graphjit/internal/result"
	schema "github.com/graphjit/graphjit/internal/schema"
)

// Executor is the reference tree-walking execution engine. It resolves every
// field through the uniform resolver protocol (table lookup, falling back to
// attribute access), evaluating selections strictly left-to-right and
// awaiting asynchronous resolvers at the call site.
//
// Compiled plans are required to produce structurally identical results; the
// test suites use this engine as the correctness oracle.
type Executor struct {
	schema *schema.Schema
	table  *resolver.Table
}

func New(sch *schema.Schema, table *resolver.Table) *Executor {
	return &Executor{schema: sch, table: table}
}

// executionState holds the state during one request
type executionState struct {
	ctx            context.Context
	schema         *schema.Schema
	table          *resolver.Table
	document       *language.QueryDocument
	variableValues map[string]any
	errors         []result.GraphQLError
}

func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	rootValue any,
) *result.ExecutionResult {
	operation := getOperation(document, operationName)
	if operation == nil {
		return &result.ExecutionResult{Errors: []result.GraphQLError{{Message: "operation not found"}}}
	}

	coercedVariableValues, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return &result.ExecutionResult{Errors: []result.GraphQLError{{Message: err.Error()}}}
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.GetQueryType()
	case language.Mutation:
		rootType = e.schema.GetMutationType()
	case language.Subscription:
		rootType = e.schema.GetSubscriptionType()
	default:
		return &result.ExecutionResult{Errors: []result.GraphQLError{{Message: fmt.Sprintf("unsupported operation type: %s", operation.Operation)}}}
	}
	if rootType == nil {
		return &result.ExecutionResult{Errors: []result.GraphQLError{{Message: fmt.Sprintf("root type not found for %s operation", operation.Operation)}}}
	}

	state := &executionState{
		ctx:            ctx,
		schema:         e.schema,
		table:          e.table,
		document:       document,
		variableValues: coercedVariableValues,
		errors:         []result.GraphQLError{},
	}

	data := executeSelectionSet(state, rootType, operation.SelectionSet, rootValue, result.Path{})
	return &result.ExecutionResult{Data: data, Errors: state.errors}
}

// executeSelectionSet resolves the collected fields of a selection set in
// source order. A nil return signals a non-null violation that the caller
// must propagate.
func executeSelectionSet(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, objectValue any, path result.Path) *jsonmap.Ordered {
	groupedFields := collectFields(state, objectType, selectionSet)
	resultMap := result.NewOrdered(len(groupedFields.fields))

	for _, collectedField := range groupedFields.orderedFields() {
		responseName := collectedField.ResponseName
		fields := collectedField.Fields
		fieldPath := path.Append(responseName)

		// __typename completes to the static type name
		if fields[0].Name == "__typename" {
			result.Set(resultMap, responseName, objectType.Name)
			continue
		}

		fieldDef := objectType.Field(fields[0].Name)
		if fieldDef == nil {
			state.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", fields[0].Name, objectType.Name), fieldPath)
			continue
		}

		fieldResult := executeFieldGroup(state, objectType, fieldDef, objectValue, fields, fieldPath)

		if schema.IsNonNull(fieldDef.Type) && result.IsNullish(fieldResult) {
			if len(path) > 0 {
				return nil
			}
			// Root level: keep going but write null
			result.Set(resultMap, responseName, nil)
			continue
		}

		// Coerce typed-nil to interface-nil for nullable fields
		if result.IsNullish(fieldResult) {
			result.Set(resultMap, responseName, nil)
		} else {
			result.Set(resultMap, responseName, fieldResult)
		}
	}

	return resultMap
}

// executeFieldGroup resolves one response-name group and completes its value.
func executeFieldGroup(state *executionState, objectType *schema.Type, fieldDef *schema.Field, objectValue any, fields []*language.Field, path result.Path) any {
	field := fields[0]
	argumentValues := coerceArgumentValues(fieldDef, field.Arguments, state, path)

	resolved, err := resolveField(state, objectType.Name, field.Name, objectValue, argumentValues)
	if err != nil {
		state.addError(err.Error(), path)
		return nil
	}
	return completeValue(state, fieldDef.Type, fields, resolved, path)
}

// resolveField dispatches through the resolver table: asynchronous resolvers
// are started and awaited immediately so sibling order is preserved, fields
// without a registered resolver read the matching attribute off the source.
func resolveField(state *executionState, objectType, fieldName string, source any, args map[string]any) (any, error) {
	if fn, ok := state.table.Async(objectType, fieldName); ok {
		thunk := fn(state.ctx, source, args)
		return thunk()
	}
	if fn, ok := state.table.Sync(objectType, fieldName); ok {
		return fn(state.ctx, source, args)
	}
	return resolver.FetchAttribute(source, fieldName), nil
}

// completeValue completes a resolved value against its declared type.
func completeValue(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, value any, path result.Path) any {
	if schema.IsNonNull(fieldType) {
		if result.IsNullish(value) {
			if !state.hasErrorAtPath(path) {
				state.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", path.String()), path)
			}
			return nil
		}
		completed := completeValue(state, schema.Unwrap(fieldType), fields, value, path)
		if result.IsNullish(completed) {
			// Error already recorded at the original path; propagate only
			return nil
		}
		return completed
	}

	if result.IsNullish(value) {
		return nil
	}

	if schema.IsList(fieldType) {
		return completeListValue(state, fieldType, fields, value, path)
	}

	namedType := schema.GetNamedType(fieldType)
	typeObj := state.schema.Types[namedType]
	if typeObj == nil {
		state.addError(fmt.Sprintf("Unknown type: %s", namedType), path)
		return nil
	}

	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := state.table.SerializeLeaf(state.ctx, namedType, value)
		if err != nil {
			state.addError(err.Error(), path)
			return nil
		}
		return serialized
	case schema.TypeKindObject:
		return completeObjectValue(state, typeObj, fields, value, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return completeAbstractValue(state, typeObj, fields, value, path)
	default:
		state.addError(fmt.Sprintf("Cannot complete value of unexpected type kind: %s", typeObj.Kind), path)
		return nil
	}
}

// completeListValue completes each element of a list value in order.
func completeListValue(state *executionState, listType *schema.TypeRef, fields []*language.Field, value any, path result.Path) any {
	items, ok := asSlice(value)
	if !ok {
		state.addError(fmt.Sprintf("Expected list value, got %T", value), path)
		return nil
	}

	inner := schema.Unwrap(listType)
	completed := make([]any, len(items))
	for i, item := range items {
		p := path.Append(i)
		v := completeValue(state, inner, fields, item, p)
		if schema.IsNonNull(inner) && result.IsNullish(v) {
			// Null the list itself; error already recorded by inner completion
			return nil
		}
		completed[i] = v
	}
	return completed
}

func completeObjectValue(state *executionState, objectType *schema.Type, fields []*language.Field, value any, path result.Path) any {
	sub := mergeSelectionSets(fields)
	m := executeSelectionSet(state, objectType, sub, value, path)
	if m == nil {
		return nil
	}
	return m
}

func completeAbstractValue(state *executionState, abstractType *schema.Type, fields []*language.Field, value any, path result.Path) any {
	typeName, err := state.table.ResolveType(state.ctx, abstractType.Name, value)
	if err != nil {
		state.addError(err.Error(), path)
		return nil
	}
	objectType := state.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject {
		state.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractType.Name, typeName), path)
		return nil
	}
	if !abstractType.HasPossibleType(typeName) {
		state.addError(fmt.Sprintf("Type %s is not a possible type of %s", typeName, abstractType.Name), path)
		return nil
	}
	return completeObjectValue(state, objectType, fields, value, path)
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

// getOperation retrieves the operation from the document
func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" && len(document.Operations) == 1 {
		for _, op := range document.Operations {
			return op
		}
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op
		}
	}
	return nil
}

// mergeSelectionSets merges selection sets from multiple fields
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

func (state *executionState) addError(message string, path result.Path) {
	state.errors = append(state.errors, result.GraphQLError{Message: message, Path: path})
}

// hasErrorAtPath reports whether an error with the given path already exists.
func (state *executionState) hasErrorAtPath(path result.Path) bool {
	for _, err := range state.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}
