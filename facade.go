package graphjit

import (
	jit "github.com/graphjit/graphjit/internal/jit"
	resolver "github.com/graphjit/graphjit/internal/resolver"
	result "github.com/graphjit/graphjit/internal/result"
	schema "github.com/graphjit/graphjit/internal/schema"
)

// The construction surface of the internal packages, re-exported so
// embedders can build schemas and resolver tables and inspect results.
type (
	Schema     = schema.Schema
	Type       = schema.Type
	TypeKind   = schema.TypeKind
	Field      = schema.Field
	TypeRef    = schema.TypeRef
	InputValue = schema.InputValue
	EnumValue  = schema.EnumValue

	ResolverTable      = resolver.Table
	ResolverFunc       = resolver.Func
	AsyncResolverFunc  = resolver.AsyncFunc
	Thunk              = resolver.Thunk
	TypeResolverFunc   = resolver.TypeResolverFunc
	LeafSerializerFunc = resolver.LeafSerializerFunc

	ExecutionResult = result.ExecutionResult
	GraphQLError    = result.GraphQLError
	Path            = result.Path

	CompileError     = jit.CompileError
	CompileErrorKind = jit.ErrorKind
)

const (
	TypeKindScalar    = schema.TypeKindScalar
	TypeKindObject    = schema.TypeKindObject
	TypeKindInterface = schema.TypeKindInterface
	TypeKindUnion     = schema.TypeKindUnion
	TypeKindEnum      = schema.TypeKindEnum
)

var (
	NewSchema     = schema.NewSchema
	NewType       = schema.NewType
	NewField      = schema.NewField
	NewInputValue = schema.NewInputValue
	NewEnumValue  = schema.NewEnumValue
	NamedType     = schema.NamedType
	ListType      = schema.ListType
	NonNullType   = schema.NonNullType

	NewResolverTable = resolver.NewTable
	GoAsync          = resolver.GoAsync
)
