package jit

import (
	"context"
	"fmt"
	"testing"

	"github.com/dolmen-go/jsonmap"

	language "github.com/graphjit/graphjit/internal/language"
	resolver "github.com/graphjit/graphjit/internal/resolver"
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

func mustCompile(t *testing.T, sch *schema.Schema, query string, table *resolver.Table) *Program {
	t.Helper()
	program, err := Compile(sch, mustParseQuery(t, query), "", table)
	if err != nil {
		t.Fatalf("failed to compile %q: %v", query, err)
	}
	return program
}

func newSchemaWithQueryType(query *schema.Type, additional ...*schema.Type) *schema.Schema {
	sch := schema.NewSchema("")
	sch.SetQueryType(query.Name)
	sch.AddType(query)
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

func valueResolver(val any) resolver.Func {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return val, nil
	}
}

// usersArticlesSchema is the two-list fixture: Query.users resolves N users
// and Query.articles resolves M articles.
func usersArticlesSchema(n, m int) (*schema.Schema, *resolver.Table) {
	sch := newSchemaWithQueryType(
		newObjectType("Query",
			schema.NewField("users", "", schema.ListType(schema.NamedType("User"))),
			schema.NewField("articles", "", schema.ListType(schema.NamedType("Article"))),
		),
		newObjectType("User",
			schema.NewField("id", "", schema.NamedType("ID")),
			schema.NewField("name", "", schema.NamedType("String")),
		),
		newObjectType("Article",
			schema.NewField("id", "", schema.NamedType("ID")),
			schema.NewField("title", "", schema.NamedType("String")),
		),
	)

	users := make([]any, n)
	for i := range users {
		users[i] = map[string]any{"id": fmt.Sprintf("%d", i), "name": fmt.Sprintf("User %d", i)}
	}
	articles := make([]any, m)
	for i := range articles {
		articles[i] = map[string]any{"id": fmt.Sprintf("%d", i), "title": fmt.Sprintf("Article %d", i)}
	}

	tbl := resolver.NewTable().
		Register("Query", "users", valueResolver(users)).
		Register("Query", "articles", valueResolver(articles))
	return sch, tbl
}

// personSchema is the nested-object-with-argument fixture:
// Query.person(id: ID!) resolves a Person named after the id.
func personSchema() (*schema.Schema, *resolver.Table) {
	personField := schema.NewField("person", "", schema.NamedType("Person"))
	personField.AddArgument(schema.NewInputValue("id", "", schema.NonNullType(schema.NamedType("ID"))))

	sch := newSchemaWithQueryType(
		newObjectType("Query", personField),
		newObjectType("Person", schema.NewField("name", "", schema.NamedType("String"))),
	)
	tbl := resolver.NewTable().
		Register("Query", "person", func(ctx context.Context, source any, args map[string]any) (any, error) {
			return map[string]any{"name": fmt.Sprintf("Person %v", args["id"])}, nil
		})
	return sch, tbl
}
