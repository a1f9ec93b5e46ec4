package terminal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Runner is the OS boundary the emulator forwards commands to.
type Runner interface {
	// Run executes command through the shell inside dir. A non-zero exit
	// status is not an error; err is set only when the command could not run.
	Run(ctx context.Context, command, dir string) (stdout, stderr []byte, err error)
	IsDir(ctx context.Context, path string) bool
	Home() string
}

// Emulator intercepts directory changes and forwards everything else to a Runner.
type Emulator struct {
	runner  Runner
	timeout time.Duration
}

// NewEmulator wraps r. A zero timeout lets forwarded commands run until they exit.
func NewEmulator(r Runner, timeout time.Duration) *Emulator {
	return &Emulator{runner: r, timeout: timeout}
}

// Home implements Executor.
func (e *Emulator) Home() string { return e.runner.Home() }

// Execute implements Executor.
func (e *Emulator) Execute(ctx context.Context, command, cwd string) Result {
	res := Result{Command: command, Cwd: cwd, NewCwd: cwd}

	if target, ok := cdTarget(command); ok {
		dir, valid := e.resolve(cwd, target)
		if valid && e.runner.IsDir(ctx, dir) {
			res.NewCwd = dir
			return res
		}
		res.Output = fmt.Sprintf("cd: the directory '%s' does not exist", target)
		return res
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	stdout, stderr, err := e.runner.Run(ctx, command, cwd)
	out := string(stdout) + string(stderr)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		out += fmt.Sprintf("command timed out after %s\n", e.timeout)
	case err != nil:
		out += err.Error()
	}
	res.Output = out
	return res
}

// cdTarget reports whether command is a directory change and returns its argument.
// A bare "cd" targets the home directory.
func cdTarget(command string) (string, bool) {
	if command == "cd" {
		return "~", true
	}
	if !strings.HasPrefix(command, "cd ") {
		return "", false
	}
	target := strings.TrimSpace(command[3:])
	if target == "" {
		target = "~"
	}
	return target, true
}

// resolve applies target to cwd lexically. It fails when target climbs above
// the filesystem root, which has no parent to move to.
func (e *Emulator) resolve(cwd, target string) (string, bool) {
	if target == "~" || strings.HasPrefix(target, "~/") {
		target = filepath.Join(e.runner.Home(), target[1:])
	}
	target = filepath.FromSlash(target)

	cur := cwd
	rest := target
	if filepath.IsAbs(target) {
		vol := filepath.VolumeName(target)
		cur = vol + string(filepath.Separator)
		rest = target[len(vol):]
	}
	cur = filepath.Clean(cur)

	for _, part := range strings.Split(rest, string(filepath.Separator)) {
		switch part {
		case "", ".":
		case "..":
			parent := filepath.Dir(cur)
			if parent == cur {
				return "", false
			}
			cur = parent
		default:
			cur = filepath.Join(cur, part)
		}
	}
	return cur, true
}
