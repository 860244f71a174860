// Package events defines the engine's lifecycle events. They are published
// through the eventbus so telemetry can observe compilation and execution
// without the engine depending on any exporter.
package events

import "time"

// CompileStart is emitted before an operation is compiled into a plan.
type CompileStart struct {
	Query         string
	OperationName string
}

// CompileFinish is emitted after compilation, successful or not.
type CompileFinish struct {
	Query         string
	OperationName string
	Cached        bool
	Async         bool
	Err           error
	Duration      time.Duration
}

// ExecuteStart is emitted before a compiled plan runs against a root value.
type ExecuteStart struct {
	OperationName string
	Compiled      bool
}

// ExecuteFinish is emitted after a plan run completes.
type ExecuteFinish struct {
	OperationName string
	Compiled      bool
	ErrorCount    int
	Duration      time.Duration
}
