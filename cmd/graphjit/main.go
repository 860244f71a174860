// Command graphjit runs a query against the built-in demo schema, printing
// the execution result as JSON. It exists to try the engine end to end:
// compilation, plan caching, logging and tracing are all wired the way an
// embedding application would wire them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jensneuse/abstractlogger"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.uber.org/zap"

	graphjit "github.com/graphjit/graphjit"
	eventbus "github.com/graphjit/graphjit/internal/eventbus"
	otelbridge "github.com/graphjit/graphjit/internal/otel"
)

const usage = `graphjit — run a query against the built-in demo schema

USAGE:
  graphjit -query <query> [flags]

The demo schema serves:
  users: [User]            User { id: ID, name: String }
  person(id: ID!): Person  Person { name: String }

FLAGS:
  -query <string>     Query to execute (required)
  -operation <name>   Operation name for multi-operation documents
  -pretty             Pretty-print the JSON result
  -v                  Debug logging
  -trace              Print OpenTelemetry spans to stdout
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	var (
		query     string
		operation string
		pretty    bool
		verbose   bool
		traced    bool
	)
	fs := flag.NewFlagSet("graphjit", flag.ContinueOnError)
	fs.StringVar(&query, "query", "", "Query to execute")
	fs.StringVar(&operation, "operation", "", "Operation name")
	fs.BoolVar(&pretty, "pretty", false, "Pretty-print the JSON result")
	fs.BoolVar(&verbose, "v", false, "Debug logging")
	fs.BoolVar(&traced, "trace", false, "Print spans to stdout")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, usage)
		return err
	}
	if query == "" {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("-query is required")
	}

	var logger abstractlogger.Logger = abstractlogger.NoopLogger
	if verbose {
		zapLog, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = abstractlogger.NewZapLogger(zapLog, abstractlogger.DebugLevel)
	}

	if traced {
		eventbus.Use(eventbus.New())
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return err
		}
		shutdown, err := otelbridge.Setup("graphjit", exporter)
		if err != nil {
			return err
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	sch, table := demoSchema()
	engine, err := graphjit.NewEngine(sch, table, graphjit.WithLogger(logger))
	if err != nil {
		return err
	}

	res, err := engine.ExecuteQuery(context.Background(), query, operation, nil, nil)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}

func demoSchema() (*graphjit.Schema, *graphjit.ResolverTable) {
	personField := graphjit.NewField("person", "Look up a person by id.", graphjit.NamedType("Person"))
	personField.AddArgument(graphjit.NewInputValue("id", "", graphjit.NonNullType(graphjit.NamedType("ID"))))

	sch := graphjit.NewSchema("graphjit demo schema")
	sch.SetQueryType("Query")
	sch.AddType(graphjit.NewType("Query", graphjit.TypeKindObject, "").
		AddField(graphjit.NewField("users", "All known users.", graphjit.ListType(graphjit.NamedType("User")))).
		AddField(personField))
	sch.AddType(graphjit.NewType("User", graphjit.TypeKindObject, "").
		AddField(graphjit.NewField("id", "", graphjit.NamedType("ID"))).
		AddField(graphjit.NewField("name", "", graphjit.NamedType("String"))))
	sch.AddType(graphjit.NewType("Person", graphjit.TypeKindObject, "").
		AddField(graphjit.NewField("name", "", graphjit.NamedType("String"))))

	table := graphjit.NewResolverTable().
		Register("Query", "users", func(ctx context.Context, source any, args map[string]any) (any, error) {
			users := make([]any, 3)
			for i := range users {
				users[i] = map[string]any{"id": fmt.Sprintf("%d", i), "name": fmt.Sprintf("User %d", i)}
			}
			return users, nil
		}).
		Register("Query", "person", func(ctx context.Context, source any, args map[string]any) (any, error) {
			return map[string]any{"name": fmt.Sprintf("Person %v", args["id"])}, nil
		})
	return sch, table
}
