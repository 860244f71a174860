// Package eventbus is a minimal in-process publish/subscribe dispatcher.
// Publishing with no bus installed is a no-op, so instrumented code paths
// cost one atomic load when telemetry is disabled.
package eventbus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
)

// Handler processes events of type T.
type Handler[T any] func(context.Context, T)

type subscription struct {
	id int64
	fn func(context.Context, any)
}

// Bus dispatches events to handlers registered for their dynamic type.
type Bus struct {
	mu       sync.RWMutex
	nextID   int64
	handlers map[reflect.Type][]subscription
}

// New creates an empty Bus.
func New() *Bus { return &Bus{handlers: make(map[reflect.Type][]subscription)} }

func (b *Bus) subscribe(t reflect.Type, fn func(context.Context, any)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, fn: fn})
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[t]
		for i, sub := range subs {
			if sub.id == id {
				b.handlers[t] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.handlers[t]) == 0 {
			delete(b.handlers, t)
		}
	}
}

func (b *Bus) emit(ctx context.Context, e any) {
	b.mu.RLock()
	subs := append([]subscription(nil), b.handlers[reflect.TypeOf(e)]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		sub.fn(ctx, e)
	}
}

var global atomic.Pointer[Bus]

// Use installs b as the process-wide bus. Passing nil disables publishing.
func Use(b *Bus) { global.Store(b) }

// Subscribe registers h with the process-wide bus. The returned function
// removes the registration; it is a no-op when no bus is installed.
func Subscribe[T any](h Handler[T]) (unsubscribe func()) {
	b := global.Load()
	if b == nil {
		return func() {}
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	return b.subscribe(t, func(ctx context.Context, v any) { h(ctx, v.(T)) })
}

// Publish sends e through the process-wide bus, if one is installed.
func Publish[T any](ctx context.Context, e T) {
	if b := global.Load(); b != nil {
		b.emit(ctx, e)
	}
}
