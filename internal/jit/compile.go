package jit

import (
	"strconv"

	language "github.com/graphjit/graphjit/internal/language"
	resolver "github.com/graphjit/graphjit/internal/resolver"
	schema "github.com/graphjit/graphjit/internal/schema"
)

// Compile builds a Program for the single query operation in document.
//
// Boundary preconditions are enforced before any plan is built: the document
// must contain exactly one operation, the operation must be a query matching
// operationName (or operationName must be empty), and the operation must not
// declare variables. The resolver table must be fully populated; strategies
// are classified from it once and frozen into the plan.
func Compile(sch *schema.Schema, document *language.QueryDocument, operationName string, table *resolver.Table) (*Program, error) {
	if len(document.Operations) != 1 {
		return nil, preconditionf("expected exactly one operation in document, found %d", len(document.Operations))
	}
	operation := document.Operations[0]
	if operationName != "" && operation.Name != operationName {
		return nil, preconditionf("operation %q not found in document", operationName)
	}
	if operation.Operation != language.Query {
		return nil, preconditionf("only query operations can be compiled, found %s", operation.Operation)
	}
	if len(operation.VariableDefinitions) > 0 {
		return nil, unsupportedf("operation declares variables; compiled queries accept literal arguments only")
	}
	if len(operation.Directives) > 0 {
		return nil, unsupportedf("directive @%s on operation", operation.Directives[0].Name)
	}
	rootType := sch.GetQueryType()
	if rootType == nil {
		return nil, preconditionf("schema has no query root type")
	}

	c := &compiler{schema: sch, document: document, table: table}
	root, err := c.compileObject(rootType, operation.SelectionSet)
	if err != nil {
		return nil, err
	}
	return &Program{
		operationName: operation.Name,
		async:         c.async,
		schema:        sch,
		table:         table,
		root:          root,
	}, nil
}

type compiler struct {
	schema   *schema.Schema
	document *language.QueryDocument
	table    *resolver.Table
	async    bool
}

// fieldGroup is one response-name group of a flattened selection set, with
// every selection that contributed to it in source order.
type fieldGroup struct {
	responseName string
	fields       []*language.Field
}

// compileObject flattens selectionSet against objectType and emits one step
// per response-name group, in first-appearance order.
func (c *compiler) compileObject(objectType *schema.Type, selectionSet language.SelectionSet) (*objectPlan, error) {
	groups, err := c.flatten(objectType, selectionSet)
	if err != nil {
		return nil, err
	}

	plan := &objectPlan{typeName: objectType.Name, steps: make([]*fieldStep, 0, len(groups))}
	for _, group := range groups {
		step, err := c.compileField(objectType, group)
		if err != nil {
			return nil, err
		}
		plan.steps = append(plan.steps, step)
	}
	return plan, nil
}

// compileField emits the step for one response-name group: __typename folds
// to a constant, everything else gets a classified strategy, pre-coerced
// arguments and a completion plan for its wrapper chain.
func (c *compiler) compileField(objectType *schema.Type, group fieldGroup) (*fieldStep, error) {
	field := group.fields[0]

	if field.Name == "__typename" {
		return &fieldStep{responseName: group.responseName, fieldName: field.Name, typename: true}, nil
	}

	fieldDef := objectType.Field(field.Name)
	if fieldDef == nil {
		return nil, unknownFieldf("no field %q on type %s", field.Name, objectType.Name)
	}

	args, err := c.compileArguments(objectType, fieldDef, field.Arguments)
	if err != nil {
		return nil, err
	}

	strategy, syncFn, asyncFn := classify(c.table, objectType.Name, field.Name, len(args) > 0)
	if strategy == StrategyAttribute && len(args) > 0 {
		return nil, unsupportedf("field %s.%s takes arguments but has no registered resolver", objectType.Name, field.Name)
	}
	if strategy.IsAsync() {
		c.async = true
	}

	sub := mergeSelections(group.fields)
	value, err := c.compileValue(fieldDef.Type, sub)
	if err != nil {
		return nil, err
	}

	return &fieldStep{
		responseName: group.responseName,
		fieldName:    field.Name,
		strategy:     strategy,
		sync:         syncFn,
		async:        asyncFn,
		args:         args,
		nonNull:      schema.IsNonNull(fieldDef.Type),
		value:        value,
	}, nil
}

// compileValue builds the completion plan for a field's declared wrapper
// chain. Every wrapper kind must map to a plan variant; an unrecognized
// named type fails compilation rather than producing a plan with a silent
// hole in it.
func (c *compiler) compileValue(t *schema.TypeRef, selectionSet language.SelectionSet) (valuePlan, error) {
	switch t.Kind {
	case schema.TypeRefKindNonNull:
		inner, err := c.compileValue(t.OfType, selectionSet)
		if err != nil {
			return nil, err
		}
		return &nonNullPlan{inner: inner}, nil

	case schema.TypeRefKindList:
		elem, err := c.compileValue(t.OfType, selectionSet)
		if err != nil {
			return nil, err
		}
		return &listPlan{elem: elem, elemNonNull: schema.IsNonNull(t.OfType)}, nil

	case schema.TypeRefKindNamed:
		named := c.schema.Types[t.Named]
		if named == nil {
			return nil, unsupportedf("unknown type %q", t.Named)
		}
		switch named.Kind {
		case schema.TypeKindScalar, schema.TypeKindEnum:
			return &leafPlan{typeName: named.Name}, nil
		case schema.TypeKindObject:
			obj, err := c.compileObject(named, selectionSet)
			if err != nil {
				return nil, err
			}
			return &objectValuePlan{obj: obj}, nil
		case schema.TypeKindInterface, schema.TypeKindUnion:
			return c.compileAbstract(named, selectionSet)
		default:
			return nil, unsupportedf("cannot compile selection on type %s of kind %s", named.Name, named.Kind)
		}

	default:
		return nil, unsupportedf("unrecognized type wrapper %q", t.Kind)
	}
}

// compileAbstract builds one branch plan per possible concrete type of an
// interface or union. Fragment applicability decides which selections land
// in which branch, so run time only needs the resolved type name.
func (c *compiler) compileAbstract(abstractType *schema.Type, selectionSet language.SelectionSet) (valuePlan, error) {
	branches := make(map[string]*objectPlan, len(abstractType.PossibleTypes))
	for _, name := range abstractType.PossibleTypes {
		concrete := c.schema.Types[name]
		if concrete == nil || concrete.Kind != schema.TypeKindObject {
			return nil, preconditionf("possible type %q of %s is not an object type", name, abstractType.Name)
		}
		branch, err := c.compileObject(concrete, selectionSet)
		if err != nil {
			return nil, err
		}
		branches[name] = branch
	}
	return &abstractPlan{typeName: abstractType.Name, branches: branches}, nil
}

// flatten expands fragments and groups fields by response name in
// first-appearance order, mirroring the reference engine's field collection.
// Directives on any selection are rejected: compiled plans are fully static.
func (c *compiler) flatten(objectType *schema.Type, selectionSet language.SelectionSet) ([]fieldGroup, error) {
	var groups []fieldGroup
	index := make(map[string]int)
	visitedFragments := make(map[string]bool)
	if err := c.flattenInto(objectType, selectionSet, &groups, index, visitedFragments); err != nil {
		return nil, err
	}
	return groups, nil
}

func (c *compiler) flattenInto(objectType *schema.Type, selectionSet language.SelectionSet, groups *[]fieldGroup, index map[string]int, visitedFragments map[string]bool) error {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if len(sel.Directives) > 0 {
				return unsupportedf("directive @%s on field %q", sel.Directives[0].Name, sel.Name)
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			if i, ok := index[responseName]; ok {
				(*groups)[i].fields = append((*groups)[i].fields, sel)
			} else {
				index[responseName] = len(*groups)
				*groups = append(*groups, fieldGroup{responseName: responseName, fields: []*language.Field{sel}})
			}

		case *language.InlineFragment:
			if len(sel.Directives) > 0 {
				return unsupportedf("directive @%s on inline fragment", sel.Directives[0].Name)
			}
			if !c.fragmentApplies(objectType, sel.TypeCondition) {
				continue
			}
			if err := c.flattenInto(objectType, sel.SelectionSet, groups, index, visitedFragments); err != nil {
				return err
			}

		case *language.FragmentSpread:
			if len(sel.Directives) > 0 {
				return unsupportedf("directive @%s on fragment spread %q", sel.Directives[0].Name, sel.Name)
			}
			if visitedFragments[sel.Name] {
				continue
			}
			visitedFragments[sel.Name] = true
			fragmentDef := c.document.Fragments.ForName(sel.Name)
			if fragmentDef == nil {
				return preconditionf("fragment %q is not defined in document", sel.Name)
			}
			if len(fragmentDef.Directives) > 0 {
				return unsupportedf("directive @%s on fragment %q", fragmentDef.Directives[0].Name, sel.Name)
			}
			if !c.fragmentApplies(objectType, fragmentDef.TypeCondition) {
				continue
			}
			if err := c.flattenInto(objectType, fragmentDef.SelectionSet, groups, index, visitedFragments); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *compiler) fragmentApplies(objectType *schema.Type, typeCondition string) bool {
	if typeCondition == "" || typeCondition == objectType.Name {
		return true
	}
	for _, iface := range objectType.Interfaces {
		if iface == typeCondition {
			return true
		}
	}
	if cond := c.schema.Types[typeCondition]; cond != nil && cond.Kind.IsAbstract() {
		return cond.HasPossibleType(objectType.Name)
	}
	return false
}

// compileArguments coerces the group's literal argument values and applies
// schema defaults for arguments the selection leaves out. Only string and
// int literals are accepted; anything else fails compilation.
func (c *compiler) compileArguments(objectType *schema.Type, fieldDef *schema.Field, arguments language.ArgumentList) (map[string]any, error) {
	args := make(map[string]any, len(arguments))
	for _, arg := range arguments {
		argDef := fieldDef.Argument(arg.Name)
		if argDef == nil {
			return nil, unknownFieldf("no argument %q on field %s.%s", arg.Name, objectType.Name, fieldDef.Name)
		}
		coerced, err := c.coerceLiteral(objectType, fieldDef, arg, argDef.Type)
		if err != nil {
			return nil, err
		}
		args[arg.Name] = coerced
	}
	for _, argDef := range fieldDef.Arguments {
		if _, ok := args[argDef.Name]; ok {
			continue
		}
		if argDef.DefaultValue != nil {
			args[argDef.Name] = argDef.DefaultValue
		} else if schema.IsNonNull(argDef.Type) {
			return nil, preconditionf("required argument %q of field %s.%s was not provided", argDef.Name, objectType.Name, fieldDef.Name)
		}
	}
	return args, nil
}

// coerceLiteral converts a string or int literal to the Go value the
// reference engine's input coercion would produce for the same argument.
// Target types the literal kind cannot inhabit fail compilation, matching
// the coercion errors the reference engine would record at run time.
func (c *compiler) coerceLiteral(objectType *schema.Type, fieldDef *schema.Field, arg *language.Argument, argType *schema.TypeRef) (any, error) {
	for schema.IsNonNull(argType) {
		argType = schema.Unwrap(argType)
	}
	named := schema.GetNamedType(argType)

	switch arg.Value.Kind {
	case language.StringValue, language.BlockValue:
		raw := arg.Value.Raw
		switch named {
		case "Int":
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, unsupportedf("argument %q of field %s.%s: string literal %q is not an Int", arg.Name, objectType.Name, fieldDef.Name, raw)
			}
			return n, nil
		case "Float":
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, unsupportedf("argument %q of field %s.%s: string literal %q is not a Float", arg.Name, objectType.Name, fieldDef.Name, raw)
			}
			return f, nil
		case "Boolean":
			return nil, unsupportedf("argument %q of field %s.%s: string literal %q is not a Boolean", arg.Name, objectType.Name, fieldDef.Name, raw)
		default:
			return raw, nil
		}

	case language.IntValue:
		n, err := strconv.Atoi(arg.Value.Raw)
		if err != nil {
			return nil, unsupportedf("argument %q of field %s.%s: malformed int literal %q", arg.Name, objectType.Name, fieldDef.Name, arg.Value.Raw)
		}
		switch named {
		case "Float":
			return float64(n), nil
		case "String":
			return strconv.Itoa(n), nil
		case "ID":
			return strconv.Itoa(n), nil
		case "Boolean":
			return nil, unsupportedf("argument %q of field %s.%s: int literal %d is not a Boolean", arg.Name, objectType.Name, fieldDef.Name, n)
		default:
			return n, nil
		}

	case language.Variable:
		return nil, unsupportedf("argument %q of field %s.%s is a variable reference; compiled queries accept literal arguments only", arg.Name, objectType.Name, fieldDef.Name)

	default:
		return nil, unsupportedf("argument %q of field %s.%s uses a %s literal; only string and int literals can be compiled", arg.Name, objectType.Name, fieldDef.Name, valueKindName(arg.Value.Kind))
	}
}

func valueKindName(kind language.ValueKind) string {
	switch kind {
	case language.FloatValue:
		return "float"
	case language.BooleanValue:
		return "boolean"
	case language.NullValue:
		return "null"
	case language.EnumValue:
		return "enum"
	case language.ListValue:
		return "list"
	case language.ObjectValue:
		return "object"
	default:
		return "unsupported"
	}
}

func mergeSelections(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}
