package terminal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// LocalRunner runs commands on this machine through the user's shell.
type LocalRunner struct {
	// Shell overrides the interpreter; empty means $SHELL, then /bin/sh
	// (cmd.exe on Windows).
	Shell string
}

// Run implements Runner.
func (r LocalRunner) Run(ctx context.Context, command, dir string) ([]byte, []byte, error) {
	name, args := r.interpreter(command)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	// A killed shell can leave children holding the output pipes open.
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return stdout.Bytes(), stderr.Bytes(), ctx.Err()
		}
		// Command ran but returned non-zero; its stderr already says why.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), stderr.Bytes(), nil
		}
		return stdout.Bytes(), stderr.Bytes(), err
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

// IsDir implements Runner.
func (LocalRunner) IsDir(_ context.Context, path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// Home implements Runner.
func (LocalRunner) Home() string {
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return h
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return string(os.PathSeparator)
}

func (r LocalRunner) interpreter(command string) (string, []string) {
	if r.Shell != "" {
		return r.Shell, []string{"-c", command}
	}
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C", command}
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return shell, []string{"-c", command}
}
