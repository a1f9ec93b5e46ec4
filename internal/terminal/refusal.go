package terminal

import "context"

// DemoWarning is the only output the terminal produces in demo mode.
const DemoWarning = "Demo mode: command execution is disabled on this deployment."

// DemoHome is the prompt directory shown while commands are refused.
const DemoHome = "/home/demo"

// Refusal is the demo-mode Executor. It never touches the OS.
type Refusal struct{}

// Home implements Executor.
func (Refusal) Home() string { return DemoHome }

// Execute implements Executor.
func (Refusal) Execute(_ context.Context, command, cwd string) Result {
	return Result{Command: command, Output: DemoWarning, Cwd: cwd, NewCwd: cwd}
}
