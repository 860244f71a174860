package jit

import resolver "github.com/graphjit/graphjit/internal/resolver"

// Strategy is a field's resolution access pattern, decided once at compile
// time from the resolver table. Compiled plans never consult the table for
// dispatch again; the classified strategy and the bound callable are baked
// into the plan.
type Strategy int

const (
	// StrategyAttribute reads the field straight off the source value. Only
	// available to fields with no registered resolver; the reference engine
	// reaches the same value through its uniform resolver protocol.
	StrategyAttribute Strategy = iota
	// StrategySyncResolver calls a registered synchronous resolver.
	StrategySyncResolver
	// StrategyAsyncResolver starts an asynchronous resolver and awaits its
	// thunk at the call site.
	StrategyAsyncResolver
	// StrategyAsyncResolverArgs is StrategyAsyncResolver with bound
	// argument values.
	StrategyAsyncResolverArgs
)

func (s Strategy) String() string {
	switch s {
	case StrategyAttribute:
		return "attribute"
	case StrategySyncResolver:
		return "sync-resolver"
	case StrategyAsyncResolver:
		return "async-resolver"
	case StrategyAsyncResolverArgs:
		return "async-resolver-args"
	default:
		return "invalid"
	}
}

// IsAsync reports whether the strategy suspends at the call site.
func (s Strategy) IsAsync() bool {
	return s == StrategyAsyncResolver || s == StrategyAsyncResolverArgs
}

// classify decides the strategy for objectType.fieldName and returns the
// bound callable for resolver-backed strategies. Asynchronous registrations
// win over synchronous ones, matching the reference engine's dispatch order.
func classify(table *resolver.Table, objectType, fieldName string, hasArgs bool) (Strategy, resolver.Func, resolver.AsyncFunc) {
	if fn, ok := table.Async(objectType, fieldName); ok {
		if hasArgs {
			return StrategyAsyncResolverArgs, nil, fn
		}
		return StrategyAsyncResolver, nil, fn
	}
	if fn, ok := table.Sync(objectType, fieldName); ok {
		return StrategySyncResolver, fn, nil
	}
	return StrategyAttribute, nil, nil
}
