// Package reqid tags a context with a per-request identifier so telemetry
// subscribers can correlate start/finish event pairs of the same request.
package reqid

import (
	"context"
	"math/rand/v2"
)

type key struct{}

// NewContext returns a copy of parent carrying a fresh request ID, and the ID.
func NewContext(parent context.Context) (context.Context, int64) {
	id := rand.Int64()
	return context.WithValue(parent, key{}, id), id
}

// Ensure returns ctx unchanged when it already carries a request ID,
// otherwise a copy with a fresh one.
func Ensure(ctx context.Context) context.Context {
	if _, ok := FromContext(ctx); ok {
		return ctx
	}
	ctx, _ = NewContext(ctx)
	return ctx
}

// FromContext extracts the request ID from ctx.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(key{}).(int64)
	return id, ok
}
