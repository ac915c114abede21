// Package proc wraps external tool invocation behind a small Runner
// interface so that every flow delegating to pip, git, make or jupyter can
// be exercised in tests without spawning real processes.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Command describes one external tool invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory; empty means the caller's.
	Dir string
	// Env is the full child environment; nil means inherit.
	Env []string
	// Stdout/Stderr receive the child's output when set. When nil the
	// child inherits the parent's streams.
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the invocation for log and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// ExitError reports a delegated tool that ran but exited non-zero.
type ExitError struct {
	Cmd  string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Cmd, e.Code)
}

// Runner executes external commands. Implementations must be safe for use
// from a single goroutine; the flows in this repository are sequential.
type Runner interface {
	// Run executes the command and waits for it to exit. A non-zero exit
	// status is returned as *ExitError.
	Run(ctx context.Context, cmd Command) error

	// Output executes the command and returns its trimmed stdout.
	Output(ctx context.Context, cmd Command) (string, error)

	// StartDetached launches the command in a new session, decoupled from
	// this process's lifetime, with stdout and stderr appended to logPath.
	// It returns the child PID without waiting.
	StartDetached(cmd Command, logPath string) (int, error)

	// LookPath reports the resolved path of an executable, or an error if
	// it is not installed.
	LookPath(name string) (string, error)
}

// ExecRunner is the os/exec backed Runner used outside of tests.
type ExecRunner struct{}

var _ Runner = ExecRunner{}

func (ExecRunner) Run(ctx context.Context, cmd Command) error {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if err := c.Run(); err != nil {
		return wrapRunError(cmd, err)
	}
	return nil
}

func (ExecRunner) Output(ctx context.Context, cmd Command) (string, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	var out, errBuf bytes.Buffer
	c.Stdout = &out
	c.Stderr = &errBuf
	if err := c.Run(); err != nil {
		return "", wrapRunError(cmd, err)
	}
	return strings.TrimSpace(out.String()), nil
}

// StartDetached starts cmd in its own session so it survives the CLI
// exiting, the same way an interactive shell daemonizes a background
// server. Output goes to logPath.
func (ExecRunner) StartDetached(cmd Command, logPath string) (int, error) {
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	c := exec.Command(cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = cmd.Env
	c.Stdout = logFile
	c.Stderr = logFile
	c.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := c.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", cmd.Name, err)
	}
	pid := c.Process.Pid
	// Reap the child if it ever does get re-parented to us.
	go func() { _ = c.Wait() }()
	return pid, nil
}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func wrapRunError(cmd Command, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Cmd: cmd.String(), Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("failed to run %s: %w", cmd.String(), err)
}

// Alive reports whether a process with the given PID exists. On Linux
// signal 0 probes existence without delivering anything.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
