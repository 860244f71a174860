package schema

// Schema is the resolved type graph an operation is compiled and executed
// against. It is built once and treated as immutable afterwards.
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Description      string
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.Types[s.MutationType] }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// Type is a named GraphQL type (object, interface, union, scalar, enum)
type Type struct {
	Name          string
	Kind          TypeKind
	Description   string
	Fields        []*Field     // For OBJECT and INTERFACE; order is stable and used by compiled plans
	Interfaces    []string     // For OBJECT (implemented)
	PossibleTypes []string     // For INTERFACE and UNION
	EnumValues    []*EnumValue // For ENUM
}

// Field returns the field definition with the given name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// HasPossibleType reports whether name is among the possible concrete types
// of an interface or union type.
func (t *Type) HasPossibleType(name string) bool {
	for _, pt := range t.PossibleTypes {
		if pt == name {
			return true
		}
	}
	return false
}

// Field represents a field on an object or interface
type Field struct {
	Name        string
	Description string
	Type        *TypeRef
	Arguments   []*InputValue
}

// Argument returns the argument definition with the given name, or nil.
func (f *Field) Argument(name string) *InputValue {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar    TypeKind = "SCALAR"
	TypeKindObject    TypeKind = "OBJECT"
	TypeKindInterface TypeKind = "INTERFACE"
	TypeKindUnion     TypeKind = "UNION"
	TypeKindEnum      TypeKind = "ENUM"
)

// IsLeaf reports whether values of this type complete without sub-selection.
func (k TypeKind) IsLeaf() bool { return k == TypeKindScalar || k == TypeKindEnum }

// IsAbstract reports whether the type requires runtime type discrimination.
func (k TypeKind) IsAbstract() bool { return k == TypeKindInterface || k == TypeKindUnion }

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	return t != nil && t.Kind == TypeRefKindList
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

// String renders the reference in SDL notation, e.g. "[User!]!".
func (t *TypeRef) String() string {
	switch t.Kind {
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	default:
		return t.Named
	}
}

type EnumValue struct {
	Name        string
	Description string
}

type InputValue struct {
	Name         string
	Description  string
	Type         *TypeRef
	DefaultValue any
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// IsNonNull reports whether the type is wrapped with Non-Null.
func IsNonNull(t *TypeRef) bool { return t != nil && t.IsNonNull() }

// IsList reports whether the type's outermost wrapper is a list.
func IsList(t *TypeRef) bool { return t != nil && t.IsList() }

// Unwrap removes one layer of Non-Null or List wrapping and returns the inner type.
func Unwrap(t *TypeRef) *TypeRef { return t.Unwrap() }

// GetNamedType returns the innermost named type for the given reference.
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }
