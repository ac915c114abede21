package install_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisa-linux/lisa/internal/install"
	"github.com/lisa-linux/lisa/internal/proc"
	"github.com/lisa-linux/lisa/internal/proc/proctest"
	"github.com/lisa-linux/lisa/internal/session"
	"github.com/lisa-linux/lisa/internal/venv"
)

func newFlow(t *testing.T, cfg session.Config, fake *proctest.Fake) (*install.Flow, *session.Session) {
	t.Helper()
	if cfg.Home == "" {
		cfg.Home = t.TempDir()
	}
	sess, err := session.New(cfg, fake, []string{"PATH=/usr/bin"})
	require.NoError(t, err)
	vm := venv.NewManager(sess, fake)
	fresh := install.NewFreshnessTracker(sess.MarkerPath(), sess.Home(), fake)
	return install.NewFlow(sess, fake, vm, fresh), sess
}

func TestInstall_VenvDisabled(t *testing.T) {
	fake := &proctest.Fake{Rules: []proctest.Rule{
		{Contains: "rev-parse", Output: "abc123"},
	}}
	home := t.TempDir()
	flow, _ := newFlow(t, session.Config{Home: home, UseVenv: false, DevMode: true, Python: "python3"}, fake)

	require.NoError(t, flow.Install(t.Context()))

	// Manifests still install, against the system interpreter.
	assert.True(t, fake.SawCommand("python3 -m pip install --upgrade pip"))
	assert.True(t, fake.SawCommand("pip install -r "+filepath.Join(home, "devmode_requirements.txt")))

	// No venv directory was created anywhere under the workspace.
	entries, err := os.ReadDir(home)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".lisa-venv-"), "unexpected venv dir %s", e.Name())
	}
}

func TestInstall_PinnedManifestWithoutDevMode(t *testing.T) {
	fake := &proctest.Fake{Rules: []proctest.Rule{
		{Contains: "rev-parse", Output: "abc123"},
	}}
	home := t.TempDir()
	flow, _ := newFlow(t, session.Config{Home: home, UseVenv: false, DevMode: false, Python: "python3"}, fake)

	require.NoError(t, flow.Install(t.Context()))
	assert.True(t, fake.SawCommand("pip install -r "+filepath.Join(home, "requirements.txt")))
	assert.False(t, fake.SawCommand("devmode_requirements.txt"))
}

func TestInstall_CustomManifest(t *testing.T) {
	fake := &proctest.Fake{Rules: []proctest.Rule{
		{Contains: "rev-parse", Output: "abc123"},
	}}
	home := t.TempDir()
	custom := filepath.Join(home, "custom_requirements.txt")
	require.NoError(t, os.WriteFile(custom, []byte("extra-pkg\n"), 0o644))
	flow, _ := newFlow(t, session.Config{Home: home, UseVenv: false, DevMode: true, Python: "python3"}, fake)

	require.NoError(t, flow.Install(t.Context()))
	assert.True(t, fake.SawCommand("pip install -r "+custom))
}

func TestInstall_ExtraArgsPassThrough(t *testing.T) {
	fake := &proctest.Fake{Rules: []proctest.Rule{
		{Contains: "rev-parse", Output: "abc123"},
	}}
	flow, _ := newFlow(t, session.Config{UseVenv: false, DevMode: true, Python: "python3"}, fake)

	require.NoError(t, flow.Install(t.Context(), "--no-cache-dir"))
	assert.True(t, fake.SawCommand("--no-cache-dir"))
}

func TestInstall_MissingPrerequisiteIsFatal(t *testing.T) {
	fake := &proctest.Fake{MissingBinaries: []string{"git"}}
	flow, _ := newFlow(t, session.Config{UseVenv: false, DevMode: true, Python: "python3"}, fake)

	err := flow.Install(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing prerequisites")
	assert.Contains(t, err.Error(), "git")

	// Fail-fast: nothing was installed.
	assert.False(t, fake.SawCommand("pip install"))
}

func TestInstall_MarkerRecordedBeforeInstallerRuns(t *testing.T) {
	home := t.TempDir()
	marker := filepath.Join(home, ".lisa-install-revision")

	var markerAtPipTime string
	fake := &proctest.Fake{}
	fake.Rules = []proctest.Rule{
		{Contains: "rev-parse", Output: "abc123"},
		{Contains: "--upgrade pip", Do: func(proc.Command) error {
			data, _ := os.ReadFile(marker)
			markerAtPipTime = strings.TrimSpace(string(data))
			return nil
		}},
	}
	flow, _ := newFlow(t, session.Config{Home: home, UseVenv: false, DevMode: true, Python: "python3"}, fake)

	require.NoError(t, flow.Install(t.Context()))
	assert.Equal(t, "abc123", markerAtPipTime,
		"marker must be written before dependency installation starts")
}

func TestInstall_InstallerFailureIsFatal(t *testing.T) {
	fake := &proctest.Fake{Rules: []proctest.Rule{
		{Contains: "rev-parse", Output: "abc123"},
		{Contains: "--upgrade pip", Err: &proc.ExitError{Cmd: "pip", Code: 1}},
	}}
	flow, _ := newFlow(t, session.Config{UseVenv: false, DevMode: true, Python: "python3"}, fake)

	err := flow.Install(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upgrade pip")
	// The manifest step never ran.
	assert.False(t, fake.SawCommand("install -r"))
}
