// Package testrun delegates test execution to the external exekall and
// wltest runners, inside an activated environment, with optional
// expression-based test selection.
package testrun

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lisa-linux/lisa/internal/proc"
	"github.com/lisa-linux/lisa/internal/session"
)

// Activator provides scoped venv activation. Satisfied by venv.Manager.
type Activator interface {
	WithActivated(ctx context.Context, fn func(ctx context.Context) error) error
}

// Runner invokes the external test runners.
type Runner struct {
	sess   *session.Session
	runner proc.Runner
	venv   Activator
}

// NewRunner wires a test runner from its collaborators.
func NewRunner(sess *session.Session, runner proc.Runner, venv Activator) *Runner {
	return &Runner{sess: sess, runner: runner, venv: venv}
}

// Exekall runs the exekall test runner with args passed through verbatim.
// When filter is non-empty the available tests are listed first, the
// expression selects among them and each selection is passed explicitly.
func (r *Runner) Exekall(ctx context.Context, filter string, args []string) error {
	return r.venv.WithActivated(ctx, func(ctx context.Context) error {
		runArgs := append([]string{"run"}, args...)

		if filter != "" {
			f, err := CompileFilter(filter)
			if err != nil {
				return err
			}
			listing, err := r.runner.Output(ctx, r.exekallCmd(append(runArgs, "--list")))
			if err != nil {
				return fmt.Errorf("failed to list tests: %w", err)
			}
			tests, err := f.Select(ParseListing(listing))
			if err != nil {
				return err
			}
			if len(tests) == 0 {
				return fmt.Errorf("filter %q selected no tests", filter)
			}
			slog.Info("filter selected tests", "count", len(tests))
			for _, t := range tests {
				runArgs = append(runArgs, "--select", t.ID)
			}
		}

		return r.runner.Run(ctx, r.exekallCmd(runArgs))
	})
}

// WltestSeries runs the workload test series driver with args passed
// through verbatim.
func (r *Runner) WltestSeries(ctx context.Context, args []string) error {
	return r.venv.WithActivated(ctx, func(ctx context.Context) error {
		cmd := proc.Command{
			Name: filepath.Join(r.sess.Home(), "tools", "wltest", "wltest-series"),
			Args: args,
			Dir:  r.sess.Home(),
			Env:  r.sess.Environ(),
		}
		return r.runner.Run(ctx, cmd)
	})
}

func (r *Runner) exekallCmd(args []string) proc.Command {
	return proc.Command{
		Name: "exekall",
		Args: args,
		Dir:  r.sess.Home(),
		Env:  r.sess.Environ(),
	}
}
