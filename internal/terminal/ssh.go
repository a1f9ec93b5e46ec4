package terminal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// SSHRunner forwards terminal commands to a remote host over one shared
// SSH connection. Each command gets its own session.
type SSHRunner struct {
	client *ssh.Client
	host   string
	home   string
}

// DialSSH connects to host with password or key authentication.
func DialSSH(host, user, password, keyPEM string) (*SSHRunner, error) {
	var authMethods []ssh.AuthMethod

	if keyPEM != "" {
		signer, err := ssh.ParsePrivateKey([]byte(keyPEM))
		if err != nil {
			return nil, fmt.Errorf("parsing SSH key: %w", err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}
	if password != "" {
		authMethods = append(authMethods, ssh.Password(password))
	}
	if len(authMethods) == 0 {
		return nil, errors.New("ssh: no password or key configured")
	}

	cfg := &ssh.ClientConfig{
		User:            user,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: verify against known_hosts once hosts carry a fingerprint column
		Timeout:         15 * time.Second,
	}

	addr := host
	if !strings.Contains(addr, ":") {
		addr += ":22"
	}
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("SSH dial %s: %w", addr, err)
	}

	r := &SSHRunner{client: client, host: host, home: "/"}
	out, _, err := r.exec(context.Background(), `printf %s "$HOME"`)
	if err == nil && len(out) > 0 {
		r.home = string(out)
	}
	log.Printf("[terminal] remote shell %s@%s (home %s)", user, addr, r.home)
	return r, nil
}

// Close cleanly shuts down the SSH connection.
func (s *SSHRunner) Close() error { return s.client.Close() }

// Run implements Runner.
func (s *SSHRunner) Run(ctx context.Context, command, dir string) ([]byte, []byte, error) {
	stdout, stderr, err := s.exec(ctx, remoteCommand(command, dir))
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return stdout, stderr, nil
	}
	return stdout, stderr, err
}

// IsDir implements Runner.
func (s *SSHRunner) IsDir(ctx context.Context, path string) bool {
	_, _, err := s.exec(ctx, "test -d "+ShellQuote(path))
	return err == nil
}

// Home implements Runner.
func (s *SSHRunner) Home() string { return s.home }

func (s *SSHRunner) exec(ctx context.Context, cmd string) ([]byte, []byte, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, nil, fmt.Errorf("new session on %s: %w", s.host, err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()

	select {
	case err := <-done:
		return stdout.Bytes(), stderr.Bytes(), err
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		_ = sess.Close()
		<-done
		return stdout.Bytes(), stderr.Bytes(), ctx.Err()
	}
}

// remoteCommand runs command from dir on the remote shell.
func remoteCommand(command, dir string) string {
	if dir == "" {
		return command
	}
	return "cd " + ShellQuote(dir) + " && " + command
}

// ShellQuote wraps s in single quotes, escaping any embedded single quotes.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
