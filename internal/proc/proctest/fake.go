// Package proctest provides a scripted proc.Runner for tests.
package proctest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lisa-linux/lisa/internal/proc"
)

// Call records one invocation seen by the fake.
type Call struct {
	Kind string // "run", "output", "detach", "lookpath"
	Cmd  string
}

// Rule matches invocations by substring and scripts their outcome.
type Rule struct {
	// Contains is matched against the rendered command line.
	Contains string
	// Output is returned for Output calls.
	Output string
	// Err is returned for Run/Output calls.
	Err error
	// Do runs on match, letting tests create filesystem side effects the
	// real tool would have produced.
	Do func(cmd proc.Command) error
}

// Fake is a proc.Runner that never spawns processes. Invocations are
// matched against Rules in order; an unmatched invocation succeeds with
// empty output so tests only script what they care about.
type Fake struct {
	mu    sync.Mutex
	Rules []Rule
	// MissingBinaries fail LookPath.
	MissingBinaries []string
	// DetachPID is returned by StartDetached; defaults to 4242.
	DetachPID int

	calls []Call
}

var _ proc.Runner = (*Fake)(nil)

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CommandLines returns just the rendered command lines, in order.
func (f *Fake) CommandLines() []string {
	var lines []string
	for _, c := range f.Calls() {
		lines = append(lines, c.Cmd)
	}
	return lines
}

// SawCommand reports whether any recorded command line contains s.
func (f *Fake) SawCommand(s string) bool {
	for _, c := range f.Calls() {
		if strings.Contains(c.Cmd, s) {
			return true
		}
	}
	return false
}

func (f *Fake) record(kind string, cmd proc.Command) Rule {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := cmd.String()
	f.calls = append(f.calls, Call{Kind: kind, Cmd: line})
	for _, r := range f.Rules {
		if strings.Contains(line, r.Contains) {
			return r
		}
	}
	return Rule{}
}

func (f *Fake) Run(_ context.Context, cmd proc.Command) error {
	r := f.record("run", cmd)
	if r.Do != nil {
		if err := r.Do(cmd); err != nil {
			return err
		}
	}
	return r.Err
}

func (f *Fake) Output(_ context.Context, cmd proc.Command) (string, error) {
	r := f.record("output", cmd)
	if r.Do != nil {
		if err := r.Do(cmd); err != nil {
			return "", err
		}
	}
	return r.Output, r.Err
}

func (f *Fake) StartDetached(cmd proc.Command, _ string) (int, error) {
	r := f.record("detach", cmd)
	if r.Err != nil {
		return 0, r.Err
	}
	if f.DetachPID != 0 {
		return f.DetachPID, nil
	}
	return 4242, nil
}

func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Kind: "lookpath", Cmd: name})
	f.mu.Unlock()
	for _, missing := range f.MissingBinaries {
		if missing == name {
			return "", fmt.Errorf("executable %q not found in PATH", name)
		}
	}
	return "/usr/bin/" + name, nil
}
