// Package install implements the dependency install flow and the
// freshness tracking that decides when it must run again.
package install

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lisa-linux/lisa/internal/proc"
	"github.com/lisa-linux/lisa/internal/session"
)

// VenvCreator recreates the virtual environment. Satisfied by
// venv.Manager.
type VenvCreator interface {
	Create(ctx context.Context) error
}

// requiredBinaries are the host tools every install needs. The configured
// interpreter is checked separately since its name is configuration.
var requiredBinaries = []string{"git"}

// Flow runs the install sequence: prerequisites, freshness marker, venv
// recreation, installer upgrade, manifest install, custom manifest. Steps
// are strictly sequential and fail-fast; there is no partial-success state
// and no automatic retry.
type Flow struct {
	sess   *session.Session
	runner proc.Runner
	venv   VenvCreator
	fresh  *FreshnessTracker
}

// NewFlow wires an install flow from its collaborators.
func NewFlow(sess *session.Session, runner proc.Runner, venv VenvCreator, fresh *FreshnessTracker) *Flow {
	return &Flow{sess: sess, runner: runner, venv: venv, fresh: fresh}
}

// Install runs the whole flow. extraArgs are passed through to the package
// installer on the manifest install step.
func (f *Flow) Install(ctx context.Context, extraArgs ...string) error {
	if err := f.checkPrerequisites(ctx); err != nil {
		return err
	}

	// Record the marker before installing, not after: an interrupted
	// install must not pin staleness to the old revision on retry. See
	// FreshnessTracker.RecordMarker.
	if rev, err := f.fresh.CurrentRevision(ctx); err != nil {
		slog.Warn("cannot resolve source revision, freshness tracking disabled for this install", "error", err)
	} else if err := f.fresh.RecordMarker(rev); err != nil {
		slog.Warn("failed to record install marker", "error", err)
	}

	if err := f.venv.Create(ctx); err != nil {
		return err
	}

	python, err := f.sess.VenvPython(ctx)
	if err != nil {
		return err
	}

	// A broken installer corrupts every later step, so the upgrade is not
	// best-effort.
	if err := f.pip(ctx, python, "install", "--upgrade", "pip"); err != nil {
		return fmt.Errorf("failed to upgrade pip: %w", err)
	}

	manifest := f.sess.Manifest()
	args := append([]string{"install", "-r", manifest}, extraArgs...)
	if err := f.pip(ctx, python, args...); err != nil {
		return fmt.Errorf("failed to install %s: %w", manifest, err)
	}

	custom := f.sess.CustomManifest()
	if _, statErr := os.Stat(custom); statErr == nil {
		if err := f.pip(ctx, python, "install", "-r", custom); err != nil {
			return fmt.Errorf("failed to install %s: %w", custom, err)
		}
	}

	slog.Info("install complete", "manifest", manifest, "venv", f.sess.Config().UseVenv)
	return nil
}

func (f *Flow) pip(ctx context.Context, python string, args ...string) error {
	cmd := proc.Command{
		Name: python,
		Args: append([]string{"-m", "pip"}, args...),
		Dir:  f.sess.Home(),
		Env:  f.sess.Environ(),
	}
	slog.Debug("running installer", "cmd", cmd.String())
	return f.runner.Run(ctx, cmd)
}

// checkPrerequisites probes every required host tool. Probes are read-only
// and independent, so they fan out; the failure message lists everything
// missing, sorted, rather than just the first.
func (f *Flow) checkPrerequisites(ctx context.Context) error {
	binaries := append([]string{f.sess.Python()}, requiredBinaries...)

	var mu sync.Mutex
	var missing []string
	g, _ := errgroup.WithContext(ctx)
	for _, bin := range binaries {
		g.Go(func() error {
			if _, err := f.runner.LookPath(bin); err != nil {
				mu.Lock()
				missing = append(missing, bin)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing prerequisites: %v (install them with your distribution's package manager)", missing)
	}
	return nil
}
