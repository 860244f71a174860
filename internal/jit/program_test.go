package jit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	resolver "github.com/graphjit/graphjit/internal/resolver"
	result "github.com/graphjit/graphjit/internal/result"
	schema "github.com/graphjit/graphjit/internal/schema"
)

func TestProgram_UsersAndArticles(t *testing.T) {
	sch, tbl := usersArticlesSchema(3, 2)
	program := mustCompile(t, sch, "{ users { id name } articles { id title } }", tbl)

	got := program.Execute(context.Background(), nil)
	want := &result.ExecutionResult{
		Data: ordered(
			"users", []any{
				ordered("id", "0", "name", "User 0"),
				ordered("id", "1", "name", "User 1"),
				ordered("id", "2", "name", "User 2"),
			},
			"articles", []any{
				ordered("id", "0", "title", "Article 0"),
				ordered("id", "1", "title", "Article 1"),
			},
		),
		Errors: []result.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestProgram_PersonWithArgument(t *testing.T) {
	sch, tbl := personSchema()
	program := mustCompile(t, sch, `{ person(id: "7") { name } }`, tbl)

	got := program.Execute(context.Background(), nil)
	want := &result.ExecutionResult{
		Data:   ordered("person", ordered("name", "Person 7")),
		Errors: []result.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestProgram_OptionalNullShortCircuits(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query",
			schema.NewField("obj", "", schema.NamedType("Person")),
			schema.NewField("list", "", schema.ListType(schema.NamedType("String"))),
			schema.NewField("scalar", "", schema.NamedType("String")),
		),
		newObjectType("Person", schema.NewField("name", "", schema.NamedType("String"))),
	)
	nameCalls := 0
	tbl := resolver.NewTable().
		Register("Query", "obj", valueResolver(nil)).
		Register("Query", "list", valueResolver(nil)).
		Register("Query", "scalar", valueResolver(nil)).
		Register("Person", "name", func(ctx context.Context, source any, args map[string]any) (any, error) {
			nameCalls++
			return "never", nil
		})

	program := mustCompile(t, sch, "{ obj { name } list scalar }", tbl)
	got := program.Execute(context.Background(), nil)

	want := &result.ExecutionResult{
		Data:   ordered("obj", nil, "list", nil, "scalar", nil),
		Errors: []result.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.Zero(t, nameCalls, "null object must not recurse into its selection")
}

func TestProgram_EmptyList(t *testing.T) {
	sch, tbl := usersArticlesSchema(0, 0)
	program := mustCompile(t, sch, "{ users { id } }", tbl)

	got := program.Execute(context.Background(), nil)
	want := &result.ExecutionResult{
		Data:   ordered("users", []any{}),
		Errors: []result.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestProgram_AliasesAndSourceOrder(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		schema.NewField("a", "", schema.NamedType("String")),
		schema.NewField("b", "", schema.NamedType("String")),
	))
	tbl := resolver.NewTable().
		Register("Query", "a", valueResolver("A")).
		Register("Query", "b", valueResolver("B"))

	program := mustCompile(t, sch, "{ last: b first: a b }", tbl)
	got := program.Execute(context.Background(), nil)

	want := ordered("last", "B", "first", "A", "b", "B")
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestProgram_AsyncFieldsKeepSourceOrder(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		schema.NewField("a", "", schema.NamedType("String")),
		schema.NewField("b", "", schema.NamedType("String")),
		schema.NewField("c", "", schema.NamedType("String")),
	))
	var calls []string
	record := func(name string, val string) resolver.Func {
		return func(ctx context.Context, source any, args map[string]any) (any, error) {
			calls = append(calls, name)
			return val, nil
		}
	}
	tbl := resolver.NewTable().
		RegisterAsync("Query", "a", resolver.GoAsync(record("a", "A"))).
		Register("Query", "b", record("b", "B")).
		RegisterAsync("Query", "c", resolver.GoAsync(record("c", "C")))

	program := mustCompile(t, sch, "{ c b a }", tbl)
	require.True(t, program.Async())

	got := program.Execute(context.Background(), nil)
	require.Empty(t, got.Errors)

	want := ordered("c", "C", "b", "B", "a", "A")
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{"c", "b", "a"}, calls, "thunks must be awaited at the call site")
}

func TestProgram_TypenameFolding(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query", schema.NewField("person", "", schema.NamedType("Person"))),
		newObjectType("Person", schema.NewField("name", "", schema.NamedType("String"))),
	)
	tbl := resolver.NewTable().
		Register("Query", "person", valueResolver(map[string]any{"name": "Ada"}))

	program := mustCompile(t, sch, "{ __typename person { __typename name } }", tbl)
	got := program.Execute(context.Background(), nil)

	want := ordered(
		"__typename", "Query",
		"person", ordered("__typename", "Person", "name", "Ada"),
	)
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestProgram_FragmentsAreFlattenedAtCompileTime(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query", schema.NewField("person", "", schema.NamedType("Person"))),
		newObjectType("Person",
			schema.NewField("name", "", schema.NamedType("String")),
			schema.NewField("age", "", schema.NamedType("Int")),
		),
	)
	tbl := resolver.NewTable().
		Register("Query", "person", valueResolver(map[string]any{"name": "Ada", "age": 36}))

	program := mustCompile(t, sch, `
		{ person { ...Named ... on Person { age } } }
		fragment Named on Person { name }
	`, tbl)
	got := program.Execute(context.Background(), nil)

	want := ordered("person", ordered("name", "Ada", "age", 36))
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestProgram_UnionBranching(t *testing.T) {
	dog := newObjectType("Dog", schema.NewField("barkVolume", "", schema.NamedType("Int")))
	cat := newObjectType("Cat", schema.NewField("lives", "", schema.NamedType("Int")))
	pet := schema.NewType("Pet", schema.TypeKindUnion, "")
	pet.AddPossibleType("Dog")
	pet.AddPossibleType("Cat")

	sch := newSchemaWithQueryType(
		newObjectType("Query", schema.NewField("pets", "", schema.ListType(schema.NamedType("Pet")))),
		dog, cat, pet,
	)
	tbl := resolver.NewTable().
		Register("Query", "pets", valueResolver([]any{
			map[string]any{"__typename": "Dog", "barkVolume": 11},
			map[string]any{"__typename": "Cat", "lives": 9},
		}))

	program := mustCompile(t, sch, `{ pets { __typename ... on Dog { barkVolume } ... on Cat { lives } } }`, tbl)
	got := program.Execute(context.Background(), nil)

	want := &result.ExecutionResult{
		Data: ordered("pets", []any{
			ordered("__typename", "Dog", "barkVolume", 11),
			ordered("__typename", "Cat", "lives", 9),
		}),
		Errors: []result.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestProgram_InterfaceBranching(t *testing.T) {
	node := schema.NewType("Node", schema.TypeKindInterface, "")
	node.AddField(schema.NewField("id", "", schema.NonNullType(schema.NamedType("ID"))))
	node.AddPossibleType("User")

	user := newObjectType("User",
		schema.NewField("id", "", schema.NonNullType(schema.NamedType("ID"))),
		schema.NewField("name", "", schema.NamedType("String")),
	)
	user.AddInterface("Node")

	sch := newSchemaWithQueryType(
		newObjectType("Query", schema.NewField("node", "", schema.NamedType("Node"))),
		node, user,
	)
	tbl := resolver.NewTable().
		Register("Query", "node", valueResolver(map[string]any{"__typename": "User", "id": "u1", "name": "Ada"}))

	program := mustCompile(t, sch, "{ node { id ... on User { name } } }", tbl)
	got := program.Execute(context.Background(), nil)

	want := ordered("node", ordered("id", "u1", "name", "Ada"))
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestProgram_FieldErrorIsIsolated(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		schema.NewField("good", "", schema.NamedType("String")),
		schema.NewField("bad", "", schema.NamedType("String")),
	))
	tbl := resolver.NewTable().
		Register("Query", "good", valueResolver("ok")).
		Register("Query", "bad", func(ctx context.Context, source any, args map[string]any) (any, error) {
			return nil, errors.New("boom")
		})

	program := mustCompile(t, sch, "{ good bad }", tbl)
	got := program.Execute(context.Background(), nil)

	want := &result.ExecutionResult{
		Data: ordered("good", "ok", "bad", nil),
		Errors: []result.GraphQLError{
			{Message: "boom", Path: result.Path{"bad"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestProgram_NonNullViolationPropagates(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query", schema.NewField("person", "", schema.NamedType("Person"))),
		newObjectType("Person",
			schema.NewField("name", "", schema.NonNullType(schema.NamedType("String"))),
		),
	)
	tbl := resolver.NewTable().
		Register("Query", "person", valueResolver(map[string]any{})).
		Register("Person", "name", valueResolver(nil))

	program := mustCompile(t, sch, "{ person { name } }", tbl)
	got := program.Execute(context.Background(), nil)

	want := &result.ExecutionResult{
		Data: ordered("person", nil),
		Errors: []result.GraphQLError{
			{Message: "Cannot return null for non-nullable field person.name", Path: result.Path{"person", "name"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestProgram_NonNullListElementNullsList(t *testing.T) {
	sch := newSchemaWithQueryType(
		newObjectType("Query",
			schema.NewField("users", "", schema.ListType(schema.NonNullType(schema.NamedType("User")))),
		),
		newObjectType("User", schema.NewField("id", "", schema.NamedType("ID"))),
	)
	tbl := resolver.NewTable().
		Register("Query", "users", valueResolver([]any{map[string]any{"id": "1"}, nil}))

	program := mustCompile(t, sch, "{ users { id } }", tbl)
	got := program.Execute(context.Background(), nil)

	want := &result.ExecutionResult{
		Data: ordered("users", nil),
		Errors: []result.GraphQLError{
			{Message: "Cannot return null for non-nullable field users[1]", Path: result.Path{"users", 1}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestProgram_Idempotence(t *testing.T) {
	sch, tbl := usersArticlesSchema(3, 2)
	program := mustCompile(t, sch, "{ users { id name } articles { id title } }", tbl)

	first := program.Execute(context.Background(), nil)
	second := program.Execute(context.Background(), nil)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated execution diverged (-first +second):\n%s", diff)
	}
}

func TestProgram_ConcurrentExecutionAcrossRootValues(t *testing.T) {
	sch := newSchemaWithQueryType(newObjectType("Query",
		schema.NewField("name", "", schema.NamedType("String")),
		schema.NewField("shout", "", schema.NamedType("String")),
	))
	tbl := resolver.NewTable().
		RegisterAsync("Query", "shout", resolver.GoAsync(func(ctx context.Context, source any, args map[string]any) (any, error) {
			return strings.ToUpper(source.(map[string]any)["name"].(string)), nil
		}))

	program := mustCompile(t, sch, "{ name shout }", tbl)

	const workers = 16
	results := make([]*result.ExecutionResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			root := map[string]any{"name": fmt.Sprintf("root %d", i)}
			results[i] = program.Execute(context.Background(), root)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		name := fmt.Sprintf("root %d", i)
		want := &result.ExecutionResult{
			Data:   ordered("name", name, "shout", strings.ToUpper(name)),
			Errors: []result.GraphQLError{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("worker %d ExecutionResult mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestProgram_AttributeFallbackOnStructSource(t *testing.T) {
	type profile struct {
		Name string
		Age  int
	}
	sch := newSchemaWithQueryType(
		newObjectType("Query", schema.NewField("profile", "", schema.NamedType("Profile"))),
		newObjectType("Profile",
			schema.NewField("name", "", schema.NamedType("String")),
			schema.NewField("age", "", schema.NamedType("Int")),
		),
	)
	tbl := resolver.NewTable().
		Register("Query", "profile", valueResolver(&profile{Name: "Ada", Age: 36}))

	program := mustCompile(t, sch, "{ profile { name age } }", tbl)
	got := program.Execute(context.Background(), nil)

	require.Empty(t, got.Errors)
	want := ordered("profile", ordered("name", "Ada", "age", 36))
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}
