// Package update syncs the workspace source tree and its vendored
// subtrees.
package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lisa-linux/lisa/internal/proc"
)

// ErrDirtyTree is the user-reported refusal for a working tree with
// outstanding uncommitted changes.
var ErrDirtyTree = errors.New("outstanding uncommitted changes, commit or stash them before updating")

// Subtree names one vendored subtree kept in sync with its upstream.
type Subtree struct {
	Prefix string
	URL    string
	Ref    string
}

// DefaultSubtrees are the vendored trees this workspace carries.
var DefaultSubtrees = []Subtree{
	{Prefix: "external/devlib", URL: "https://github.com/ARM-software/devlib.git", Ref: "master"},
	{Prefix: "external/workload-automation", URL: "https://github.com/ARM-software/workload-automation.git", Ref: "master"},
	{Prefix: "tools/exekall", URL: "https://github.com/ARM-software/exekall.git", Ref: "master"},
}

// StalenessChecker is consulted after a pull to tell the user whether a
// reinstall is needed.
type StalenessChecker interface {
	IsStale(ctx context.Context) bool
}

// Syncer updates the repository at RepoDir.
type Syncer struct {
	RepoDir  string
	Subtrees []Subtree

	runner proc.Runner
	// Freshness is optional advisory state.
	Freshness StalenessChecker
}

// NewSyncer returns a Syncer over repoDir with the default subtree set.
func NewSyncer(repoDir string, runner proc.Runner) *Syncer {
	return &Syncer{RepoDir: repoDir, Subtrees: DefaultSubtrees, runner: runner}
}

// All pulls the main tree. A dirty working tree is refused with
// ErrDirtyTree before anything touches the remote; after a successful pull
// the user is told whether the installed dependencies went stale.
func (s *Syncer) All(ctx context.Context) error {
	status, err := s.git(ctx, "status", "--porcelain")
	if err != nil {
		return fmt.Errorf("failed to inspect working tree: %w", err)
	}
	if strings.TrimSpace(status) != "" {
		return ErrDirtyTree
	}

	slog.Info("updating source tree", "dir", s.RepoDir)
	if _, err := s.git(ctx, "pull", "--rebase"); err != nil {
		return fmt.Errorf("failed to pull: %w", err)
	}

	if s.Freshness != nil && s.Freshness.IsStale(ctx) {
		slog.Warn("dependency manifests changed upstream, run 'lisa install'")
	}
	return nil
}

// UpdateSubtrees refreshes every vendored subtree, sequentially and
// fail-fast.
func (s *Syncer) UpdateSubtrees(ctx context.Context) error {
	for _, st := range s.Subtrees {
		slog.Info("updating subtree", "prefix", st.Prefix)
		_, err := s.git(ctx, "subtree", "pull", "--squash",
			"--prefix", st.Prefix, st.URL, st.Ref,
			"-m", "Update "+st.Prefix)
		if err != nil {
			return fmt.Errorf("failed to update subtree %s: %w", st.Prefix, err)
		}
	}
	return nil
}

func (s *Syncer) git(ctx context.Context, args ...string) (string, error) {
	return s.runner.Output(ctx, proc.Command{
		Name: "git",
		Args: append([]string{"-C", s.RepoDir}, args...),
	})
}
