// Package terminal implements the session-scoped shell emulator behind the
// web terminal. Each request runs one foreground command; the only state kept
// between requests is the session's working directory.
//
// There is no sandbox and no resource limit: a granted caller can run anything
// the server's OS user can. The Grant type is the single gate in front of it.
package terminal

import (
	"context"
	"errors"
	"strings"
)

// ErrNotPrivileged is returned when a caller without superuser rights reaches the terminal.
var ErrNotPrivileged = errors.New("terminal: superuser required")

// Grant proves the caller passed the privilege check. The zero value is not a
// valid grant, so only Authorize can produce a usable one.
type Grant struct {
	user  string
	valid bool
}

// Authorize mints a Grant for a superuser and refuses everybody else.
func Authorize(user string, superuser bool) (Grant, error) {
	if !superuser {
		return Grant{}, ErrNotPrivileged
	}
	return Grant{user: user, valid: true}, nil
}

// User is the account the grant was issued to.
func (g Grant) User() string { return g.user }

// Result is the rendered outcome of one command. Cwd is where the command ran,
// NewCwd is the directory for the next prompt.
type Result struct {
	Command string `json:"command"`
	Output  string `json:"output"`
	Cwd     string `json:"cwd"`
	NewCwd  string `json:"new_cwd"`
}

// Executor runs a single command against an explicit working directory.
// It never fails: every error is reported inside Result.Output.
type Executor interface {
	Execute(ctx context.Context, command, cwd string) Result
	// Home is the starting directory of a fresh session.
	Home() string
}

// Terminal binds executors to per-session working directories.
type Terminal struct {
	sessions *Sessions
}

// New creates a Terminal over the given session store.
func New(sessions *Sessions) *Terminal {
	return &Terminal{sessions: sessions}
}

// Cwd returns the session's working directory. A session that never changed
// directory is at ex.Home(); nothing is stored until a cd succeeds, so a
// session opened under one executor does not pin another executor's home.
func (t *Terminal) Cwd(grant Grant, sessionID string, ex Executor) (string, error) {
	if !grant.valid {
		return "", ErrNotPrivileged
	}
	return t.cwd(sessionID, ex), nil
}

func (t *Terminal) cwd(sessionID string, ex Executor) string {
	if cwd, ok := t.sessions.Get(sessionID); ok {
		return cwd
	}
	return ex.Home()
}

// Execute runs raw for the session. The grant is checked before anything
// else; a refused call spawns nothing and leaves the session untouched.
func (t *Terminal) Execute(ctx context.Context, grant Grant, sessionID, raw string, ex Executor) (Result, error) {
	if !grant.valid {
		return Result{}, ErrNotPrivileged
	}

	command := strings.TrimSpace(raw)
	cwd := t.cwd(sessionID, ex)
	if command == "" {
		return Result{Cwd: cwd, NewCwd: cwd}, nil
	}

	res := ex.Execute(ctx, command, cwd)
	if res.NewCwd == "" {
		res.NewCwd = cwd
	}
	// Only a directory change is written back. Writing every result would let
	// a slow command finish after a concurrent cd and restore the old directory.
	if res.NewCwd != cwd {
		t.sessions.Set(sessionID, res.NewCwd)
	}
	return res, nil
}
