// Package otel bridges engine lifecycle events to OpenTelemetry spans. It
// subscribes to the eventbus; the engine itself never imports a tracer.
package otel

import (
	"context"
	"sync"

	eventbus "github.com/graphjit/graphjit/internal/eventbus"
	events "github.com/graphjit/graphjit/internal/events"
	reqid "github.com/graphjit/graphjit/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// Setup installs a tracer provider backed by exporter and attaches the
// event subscribers. A nil exporter configures nothing. The returned
// function detaches the subscribers and shuts the provider down.
func Setup(service string, exporter sdktrace.SpanExporter) (func(context.Context) error, error) {
	if exporter == nil {
		return func(context.Context) error { return nil }, nil
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	detach := Attach(tp.Tracer("graphjit"))
	return func(ctx context.Context) error {
		detach()
		return tp.Shutdown(ctx)
	}, nil
}

// Attach registers event subscribers that record compile and execute spans
// with the given tracer. The returned function removes them.
func Attach(tracer trace.Tracer) (detach func()) {
	s := &subscriber{tracer: tracer}
	return s.register()
}

type subscriber struct {
	tracer       trace.Tracer
	compileSpans sync.Map // rid -> trace.Span
	executeSpans sync.Map // rid -> trace.Span
}

func (s *subscriber) register() (detach func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.CompileStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "graphql.compile")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
			)
			s.compileSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.CompileFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.compileSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(
				attribute.Bool("graphql.compile.cached", e.Cached),
				attribute.Bool("graphql.compile.async", e.Async),
			)
			if e.Err != nil {
				span.RecordError(e.Err)
			}
			span.End()
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.ExecuteStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "graphql.execute")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.Bool("graphql.execute.compiled", e.Compiled),
			)
			s.executeSpans.Store(rid, span)
		}),

		eventbus.Subscribe(func(ctx context.Context, e events.ExecuteFinish) {
			rid, _ := reqid.FromContext(ctx)
			v, ok := s.executeSpans.LoadAndDelete(rid)
			if !ok {
				return
			}
			span := v.(trace.Span)
			span.SetAttributes(attribute.Int("graphql.error_count", e.ErrorCount))
			span.End()
		}),
	}
	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}
