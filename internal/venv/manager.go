// Package venv owns the lifecycle of the workspace virtual environment:
// destructive creation, activation, deactivation and the scoped
// with-activated pattern that replaces the shell's "source and mutate the
// caller" activation.
package venv

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lisa-linux/lisa/internal/proc"
	"github.com/lisa-linux/lisa/internal/session"
)

// Installer runs the full dependency install flow. Satisfied by
// install.Flow; an interface here keeps the venv/install packages from
// importing each other.
type Installer interface {
	Install(ctx context.Context, extraArgs ...string) error
}

// StalenessChecker reports whether the installed dependencies lag the
// source tree. Activation runs it speculatively; errors and staleness never
// fail activation.
type StalenessChecker interface {
	IsStale(ctx context.Context) bool
}

// Manager creates, activates and deactivates the workspace venv.
type Manager struct {
	sess   *session.Session
	runner proc.Runner

	// Installer handles the venv-missing case on activation. Optional:
	// when nil a missing venv is an error instead.
	Installer Installer
	// Freshness is consulted after activation. Optional.
	Freshness StalenessChecker
}

// NewManager returns a Manager bound to sess.
func NewManager(sess *session.Session, runner proc.Runner) *Manager {
	return &Manager{sess: sess, runner: runner}
}

// Create destructively (re)initializes the venv directory: any existing
// content is wiped first. The caller accepts loss of prior contents. When
// the venv feature is disabled this is a no-op success.
func (m *Manager) Create(ctx context.Context) error {
	if !m.sess.Config().UseVenv {
		slog.Debug("venv disabled, skipping creation")
		return nil
	}
	path, err := m.sess.VenvPath(ctx)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to clear venv directory %s: %w", path, err)
	}
	slog.Info("creating venv", "path", path, "python", m.sess.Python())
	err = m.runner.Run(ctx, proc.Command{
		Name: m.sess.Python(),
		Args: []string{"-m", "venv", path},
	})
	if err != nil {
		return fmt.Errorf("venv creation failed: %w", err)
	}
	return nil
}

// Activate makes the venv the session's active environment. When the venv
// directory does not exist yet the full install flow runs first. Any
// previously active environment is deactivated before the switch, so at
// most one environment is ever active. The trailing freshness check is
// advisory only.
func (m *Manager) Activate(ctx context.Context) error {
	if !m.sess.Config().UseVenv {
		slog.Debug("venv disabled, skipping activation")
		return nil
	}
	path, err := m.sess.VenvPath(ctx)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		if m.Installer == nil {
			return fmt.Errorf("venv %s does not exist and no installer is available", path)
		}
		slog.Info("venv missing, running install first", "path", path)
		if err := m.Installer.Install(ctx); err != nil {
			return fmt.Errorf("install required by activation failed: %w", err)
		}
	}

	m.Deactivate()
	m.sess.SetActiveVenv(path)
	slog.Debug("venv activated", "path", path)

	if m.Freshness != nil && m.Freshness.IsStale(ctx) {
		slog.Warn("installed dependencies are older than the source tree, run 'lisa install'")
	}
	return nil
}

// Deactivate restores the session to its pre-activation state. Calling it
// with nothing active is a no-op.
func (m *Manager) Deactivate() {
	if m.sess.ActiveVenv() == "" {
		return
	}
	m.sess.ClearActiveVenv()
	slog.Debug("venv deactivated")
}

// WithActivated runs fn with the venv active and guarantees deactivation on
// every exit path.
func (m *Manager) WithActivated(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := m.Activate(ctx); err != nil {
		return err
	}
	defer m.Deactivate()
	return fn(ctx)
}
