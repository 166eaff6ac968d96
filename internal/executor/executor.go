// Package executor defines the interface for running user code.
//
// Execution itself happens outside this codebase — the concrete
// implementation (executor/piston) forwards code to a remote sandboxed
// execution service. The interface keeps the service layer ignorant of
// which backend runs the code.
package executor

import (
	"context"
	"time"
)

// ExecutionRequest is a request to execute code in a given language.
type ExecutionRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// ExecutionResult represents the output and status of the code execution.
// A non-zero ExitCode with populated Stderr is a normal outcome (the
// user's code failed), not a Go error.
type ExecutionResult struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
}

// Executor represents the core interface for running code in an isolated
// environment.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}
