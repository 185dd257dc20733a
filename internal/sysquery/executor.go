// Package sysquery runs short-lived desktop-introspection commands with a
// bounded timeout.
package sysquery

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type OSRunner struct{}

func (OSRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

type Executor struct {
	timeout time.Duration
	runner  Runner
}

func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{
		timeout: timeout,
		runner:  OSRunner{},
	}
}

func NewExecutorWithRunner(timeout time.Duration, runner Runner) *Executor {
	e := NewExecutor(timeout)
	e.runner = runner
	return e
}

// Run executes the command and returns its trimmed stdout.
func (e *Executor) Run(ctx context.Context, name string, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	out, err := e.runner.Run(runCtx, name, args...)
	if err != nil {
		return "", fmt.Errorf("run %s: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Available reports whether the named command can be found on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
