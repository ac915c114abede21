package install

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lisa-linux/lisa/internal/proc"
)

// dependencyFiles are the files whose changes make an install stale.
var dependencyFiles = []string{
	"setup.py",
	"requirements.txt",
	"devmode_requirements.txt",
	"custom_requirements.txt",
}

// FreshnessTracker persists the source revision of the last install and
// compares it to the current tree. All reads are speculative: any failure
// to consult revision history reports "not stale" rather than blocking the
// user.
type FreshnessTracker struct {
	markerPath string
	repoDir    string
	runner     proc.Runner
}

// NewFreshnessTracker tracks installs of the repository at repoDir using
// the marker file at markerPath.
func NewFreshnessTracker(markerPath, repoDir string, runner proc.Runner) *FreshnessTracker {
	return &FreshnessTracker{markerPath: markerPath, repoDir: repoDir, runner: runner}
}

// Marker returns the recorded revision, or "" if none was ever recorded.
func (t *FreshnessTracker) Marker() string {
	data, err := os.ReadFile(t.markerPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// CurrentRevision resolves the source tree's current revision.
func (t *FreshnessTracker) CurrentRevision(ctx context.Context) (string, error) {
	return t.runner.Output(ctx, proc.Command{
		Name: "git",
		Args: []string{"-C", t.repoDir, "rev-parse", "HEAD"},
	})
}

// IsStale reports whether a reinstall is needed: true when no marker was
// ever recorded, or when the marker differs from the current revision and
// at least one dependency-declaring file changed in between.
func (t *FreshnessTracker) IsStale(ctx context.Context) bool {
	marker := t.Marker()
	if marker == "" {
		return true
	}
	head, err := t.CurrentRevision(ctx)
	if err != nil {
		slog.Debug("cannot resolve current revision, assuming fresh", "error", err)
		return false
	}
	if marker == head {
		return false
	}
	args := []string{"-C", t.repoDir, "diff", "--name-only", marker + ".." + head, "--"}
	args = append(args, dependencyFiles...)
	changed, err := t.runner.Output(ctx, proc.Command{Name: "git", Args: args})
	if err != nil {
		slog.Debug("cannot diff against marker, assuming fresh", "error", err)
		return false
	}
	return strings.TrimSpace(changed) != ""
}

// RecordMarker overwrites the marker with revision. The write is
// temp-then-rename so a crash never leaves a half-written marker.
//
// Callers record the marker before dependency installation starts, not
// after it succeeds. An interrupted install therefore claims freshness it
// never achieved until the next dependency-file change; the tradeoff buys
// forward progress (no permanent "needs install" loop) at the cost of
// perfect accuracy, and is intentional.
func (t *FreshnessTracker) RecordMarker(revision string) error {
	dir := filepath.Dir(t.markerPath)
	tmp, err := os.CreateTemp(dir, ".marker-*")
	if err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.WriteString(revision + "\n"); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("failed to write marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to write marker: %w", err)
	}
	if err := os.Rename(name, t.markerPath); err != nil {
		os.Remove(name)
		return fmt.Errorf("failed to write marker: %w", err)
	}
	return nil
}
