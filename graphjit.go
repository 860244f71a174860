// Package graphjit executes GraphQL query operations through ahead-of-time
// compiled plans.
//
// An Engine pairs a schema with a resolver table. Engine.Compile turns a
// query into a CompiledQuery whose plan resolves every field without
// per-field dispatch decisions; plans are cached per (query, operation name).
// Engine.ExecuteQuery prefers the compiled path and falls back to the
// reference tree-walking engine for requests the compiler rejects, such as
// operations using variables or directives. Both paths produce structurally
// identical results.
package graphjit

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/jensneuse/abstractlogger"

	eventbus "github.com/graphjit/graphjit/internal/eventbus"
	events "github.com/graphjit/graphjit/internal/events"
	executor "github.com/graphjit/graphjit/internal/executor"
	jit "github.com/graphjit/graphjit/internal/jit"
	language "github.com/graphjit/graphjit/internal/language"
	reqid "github.com/graphjit/graphjit/internal/reqid"
	resolver "github.com/graphjit/graphjit/internal/resolver"
	result "github.com/graphjit/graphjit/internal/result"
	schema "github.com/graphjit/graphjit/internal/schema"
)

const defaultPlanCacheSize = 256

// Engine compiles and executes query operations against one schema and
// resolver table. It is safe for concurrent use.
type Engine struct {
	schema    *schema.Schema
	table     *resolver.Table
	log       abstractlogger.Logger
	cacheSize int
	plans     *lru.Cache
	reference *executor.Executor
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. The default discards everything.
func WithLogger(log abstractlogger.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithPlanCacheSize sets the number of compiled plans kept in the LRU cache.
func WithPlanCacheSize(n int) Option {
	return func(e *Engine) { e.cacheSize = n }
}

// NewEngine builds an Engine for the given schema and resolver table. The
// table must be fully populated: compiled plans freeze resolver dispatch at
// compile time.
func NewEngine(sch *schema.Schema, table *resolver.Table, opts ...Option) (*Engine, error) {
	if sch == nil {
		return nil, errors.New("graphjit: schema is required")
	}
	e := &Engine{
		schema:    sch,
		table:     table,
		log:       abstractlogger.NoopLogger,
		cacheSize: defaultPlanCacheSize,
		reference: executor.New(sch, table),
	}
	for _, opt := range opts {
		opt(e)
	}
	plans, err := lru.New(e.cacheSize)
	if err != nil {
		return nil, err
	}
	e.plans = plans
	return e, nil
}

// CompiledQuery is a cached, immutable plan for one query operation. It may
// be executed concurrently across independent root values.
type CompiledQuery struct {
	program *jit.Program
}

// Name returns the compiled operation's name ("" for anonymous operations).
func (q *CompiledQuery) Name() string { return q.program.Name() }

// Async reports whether any field of the operation resolves asynchronously.
func (q *CompiledQuery) Async() bool { return q.program.Async() }

// Execute runs the compiled plan against rootValue.
func (q *CompiledQuery) Execute(ctx context.Context, rootValue any) *result.ExecutionResult {
	ctx = reqid.Ensure(ctx)
	start := time.Now()
	eventbus.Publish(ctx, events.ExecuteStart{OperationName: q.Name(), Compiled: true})

	res := q.program.Execute(ctx, rootValue)

	eventbus.Publish(ctx, events.ExecuteFinish{
		OperationName: q.Name(),
		Compiled:      true,
		ErrorCount:    len(res.Errors),
		Duration:      time.Since(start),
	})
	return res
}

func planKey(query, operationName string) string {
	return operationName + "\x00" + query
}

// Compile parses query and compiles the operation named operationName (or
// the document's single operation when empty). Plans are cached; a second
// call with the same query and operation name returns the cached plan.
func (e *Engine) Compile(ctx context.Context, query, operationName string) (*CompiledQuery, error) {
	ctx = reqid.Ensure(ctx)
	key := planKey(query, operationName)
	if cached, ok := e.plans.Get(key); ok {
		eventbus.Publish(ctx, events.CompileStart{Query: query, OperationName: operationName})
		compiled := cached.(*CompiledQuery)
		eventbus.Publish(ctx, events.CompileFinish{
			Query:         query,
			OperationName: operationName,
			Cached:        true,
			Async:         compiled.Async(),
		})
		return compiled, nil
	}

	start := time.Now()
	eventbus.Publish(ctx, events.CompileStart{Query: query, OperationName: operationName})

	compiled, err := e.compile(query, operationName)

	finish := events.CompileFinish{
		Query:         query,
		OperationName: operationName,
		Err:           err,
		Duration:      time.Since(start),
	}
	if err != nil {
		eventbus.Publish(ctx, finish)
		e.log.Debug("graphjit: compilation failed",
			abstractlogger.String("operationName", operationName),
			abstractlogger.Error(err),
		)
		return nil, err
	}
	finish.Async = compiled.Async()
	eventbus.Publish(ctx, finish)

	e.plans.Add(key, compiled)
	e.log.Debug("graphjit: operation compiled",
		abstractlogger.String("operationName", compiled.Name()),
		abstractlogger.Bool("async", compiled.Async()),
	)
	return compiled, nil
}

func (e *Engine) compile(query, operationName string) (*CompiledQuery, error) {
	document, err := language.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	program, err := jit.Compile(e.schema, document, operationName, e.table)
	if err != nil {
		return nil, err
	}
	return &CompiledQuery{program: program}, nil
}

// ExecuteQuery runs query against rootValue, preferring the compiled path.
//
// Requests the compiler rejects as unsupported (variables, directives,
// non-query operations, unsupported argument literals) fall back to the
// reference engine, which handles them in full; requests with variable
// values skip compilation entirely. Compilation failures that indicate a
// broken query (unknown fields) surface from the fallback path as execution
// errors or from parsing as an error return.
func (e *Engine) ExecuteQuery(ctx context.Context, query, operationName string, variableValues map[string]any, rootValue any) (*result.ExecutionResult, error) {
	ctx = reqid.Ensure(ctx)

	if len(variableValues) == 0 {
		compiled, err := e.Compile(ctx, query, operationName)
		if err == nil {
			return compiled.Execute(ctx, rootValue), nil
		}
		var ce *jit.CompileError
		if !errors.As(err, &ce) {
			return nil, err
		}
		e.log.Debug("graphjit: falling back to reference engine",
			abstractlogger.String("operationName", operationName),
			abstractlogger.Error(err),
		)
	}

	document, err := language.ParseQuery(query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	eventbus.Publish(ctx, events.ExecuteStart{OperationName: operationName, Compiled: false})
	res := e.reference.ExecuteRequest(ctx, document, operationName, variableValues, rootValue)
	eventbus.Publish(ctx, events.ExecuteFinish{
		OperationName: operationName,
		Compiled:      false,
		ErrorCount:    len(res.Errors),
		Duration:      time.Since(start),
	})
	return res, nil
}
