package main

import (
	"os"

	"github.com/spf13/viper"

	"github.com/lisa-linux/lisa/internal/install"
	"github.com/lisa-linux/lisa/internal/proc"
	"github.com/lisa-linux/lisa/internal/session"
	"github.com/lisa-linux/lisa/internal/venv"
)

// stack bundles the wired collaborators every command needs. Building it
// is cheap; nothing probes the system until a flow runs.
type stack struct {
	sess    *session.Session
	runner  proc.Runner
	venv    *venv.Manager
	fresh   *install.FreshnessTracker
	install *install.Flow
}

// newStack wires the session, venv manager and install flow from the
// resolved configuration.
func newStack() (*stack, error) {
	runner := proc.ExecRunner{}
	cfg := session.ConfigFromViper(viper.GetViper())
	sess, err := session.New(cfg, runner, os.Environ())
	if err != nil {
		return nil, err
	}

	vm := venv.NewManager(sess, runner)
	fresh := install.NewFreshnessTracker(sess.MarkerPath(), sess.Home(), runner)
	flow := install.NewFlow(sess, runner, vm, fresh)
	vm.Installer = flow
	vm.Freshness = fresh

	return &stack{sess: sess, runner: runner, venv: vm, fresh: fresh, install: flow}, nil
}
