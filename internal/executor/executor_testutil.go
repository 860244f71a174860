package executor

import (
	"testing"

	"github.com/dolmen-go/jsonmap"

	language "github.com/graphjit/graphjit/internal/language"
	result "github.com/graphjit/graphjit/internal/result"
	schema "github.com/graphjit/graphjit/internal/schema"
)

func mustParseQuery(t *testing.T, query string) *language.QueryDocument {
	t.Helper()
	doc, err := language.ParseQuery(query)
	if err != nil {
		t.Fatalf("failed to parse query: %v", err)
	}
	return doc
}

func newSchemaWithQueryType(query *schema.Type, additional ...*schema.Type) *schema.Schema {
	sch := schema.NewSchema("")
	if query != nil {
		sch.SetQueryType(query.Name)
		sch.AddType(query)
	}
	for _, t := range additional {
		sch.AddType(t)
	}
	return sch
}

func newObjectType(name string, fields ...*schema.Field) *schema.Type {
	t := schema.NewType(name, schema.TypeKindObject, "")
	for _, field := range fields {
		t.AddField(field)
	}
	return t
}

// ordered builds a *jsonmap.Ordered from alternating key/value pairs,
// preserving the pair order.
func ordered(pairs ...any) *jsonmap.Ordered {
	if len(pairs)%2 != 0 {
		panic("ordered: odd number of arguments")
	}
	m := result.NewOrdered(len(pairs) / 2)
	for i := 0; i < len(pairs); i += 2 {
		result.Set(m, pairs[i].(string), pairs[i+1])
	}
	return m
}
