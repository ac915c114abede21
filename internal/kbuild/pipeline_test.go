package kbuild_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lisa-linux/lisa/internal/kbuild"
	"github.com/lisa-linux/lisa/internal/proc"
	"github.com/lisa-linux/lisa/internal/proc/proctest"
)

func newTestPipeline(t *testing.T, fake *proctest.Fake) (*kbuild.Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	p := kbuild.NewPipeline(
		filepath.Join(root, "kernel"),
		filepath.Join(root, "boot"),
		filepath.Join(root, "staging"),
		filepath.Join(root, "push_files"),
		fake,
	)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "kernel"), 0o755))
	return p, root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// successfulBuild scripts a make invocation that produces both images and
// a small module tree, the way the real build tool would.
func successfulBuild(t *testing.T, root string) proctest.Rule {
	return proctest.Rule{
		Contains: "make",
		Do: func(proc.Command) error {
			writeFile(t, filepath.Join(root, "boot", kbuild.KernelImageName), "kernel")
			writeFile(t, filepath.Join(root, "boot", kbuild.DTBOImageName), "dtbo")
			mods := filepath.Join(root, "staging", "lib", "modules", "5.4.0")
			writeFile(t, filepath.Join(mods, "kernel", "drivers", "foo.ko"), "foo")
			writeFile(t, filepath.Join(mods, "kernel", "net", "bar.ko"), "bar")
			writeFile(t, filepath.Join(mods, "modules.dep"),
				"kernel/drivers/foo.ko: kernel/net/bar.ko\nkernel/net/bar.ko:\n")
			writeFile(t, filepath.Join(mods, "modules.order"),
				"kernel/drivers/foo.ko\nkernel/net/bar.ko\n")
			writeFile(t, filepath.Join(mods, "modules.alias"),
				"# Aliases extracted from modules themselves.\nalias net-pf-16 bar\n")
			return nil
		},
	}
}

func TestBuildAndPublish(t *testing.T) {
	fake := &proctest.Fake{}
	p, root := newTestPipeline(t, fake)
	fake.Rules = []proctest.Rule{successfulBuild(t, root)}

	require.NoError(t, p.BuildAndPublish(t.Context()))

	// Images published under canonical names.
	assert.FileExists(t, filepath.Join(root, "push_files", kbuild.KernelImageName))
	assert.FileExists(t, filepath.Join(root, "push_files", kbuild.DTBOImageName))

	// Modules flattened into the fixed subtree.
	modDir := filepath.Join(root, "push_files", kbuild.ModulesSubdir)
	assert.FileExists(t, filepath.Join(modDir, "foo.ko"))
	assert.FileExists(t, filepath.Join(modDir, "bar.ko"))

	dep, err := os.ReadFile(filepath.Join(modDir, "modules.dep"))
	require.NoError(t, err)
	assert.Equal(t, "foo.ko: bar.ko\nbar.ko:\n", string(dep))

	order, err := os.ReadFile(filepath.Join(modDir, "modules.order"))
	require.NoError(t, err)
	assert.Equal(t, "foo.ko\nbar.ko\n", string(order))

	alias, err := os.ReadFile(filepath.Join(modDir, "modules.alias"))
	require.NoError(t, err)
	assert.Equal(t, "# Aliases extracted from modules themselves.\nalias net-pf-16 bar\n", string(alias))
}

func TestBuildAndPublish_ClearsStaleArtifacts(t *testing.T) {
	fake := &proctest.Fake{}
	p, root := newTestPipeline(t, fake)
	fake.Rules = []proctest.Rule{successfulBuild(t, root)}

	stale := filepath.Join(root, "push_files", "leftover.img")
	writeFile(t, stale, "stale")

	require.NoError(t, p.BuildAndPublish(t.Context()))
	assert.NoFileExists(t, stale)
}

func TestBuildAndPublish_MissingKernelImage(t *testing.T) {
	fake := &proctest.Fake{}
	p, root := newTestPipeline(t, fake)
	// Build tool exits 0 but only produces the overlay image. Its exit
	// code alone must not be trusted.
	fake.Rules = []proctest.Rule{{
		Contains: "make",
		Do: func(proc.Command) error {
			writeFile(t, filepath.Join(root, "boot", kbuild.DTBOImageName), "dtbo")
			return nil
		},
	}}

	err := p.BuildAndPublish(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mandatory build artifact missing")
	assert.Contains(t, err.Error(), kbuild.KernelImageName)

	// Publish never ran.
	assert.NoFileExists(t, filepath.Join(root, "push_files", kbuild.DTBOImageName))
}

func TestBuildAndPublish_BuildToolFailure(t *testing.T) {
	fake := &proctest.Fake{}
	p, _ := newTestPipeline(t, fake)
	fake.Rules = []proctest.Rule{{
		Contains: "make",
		Err:      &proc.ExitError{Cmd: "make", Code: 2},
	}}

	err := p.BuildAndPublish(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kernel build failed")
}

func TestBuildAndPublish_ModuleNameCollision(t *testing.T) {
	fake := &proctest.Fake{}
	p, root := newTestPipeline(t, fake)
	fake.Rules = []proctest.Rule{{
		Contains: "make",
		Do: func(proc.Command) error {
			writeFile(t, filepath.Join(root, "boot", kbuild.KernelImageName), "kernel")
			writeFile(t, filepath.Join(root, "boot", kbuild.DTBOImageName), "dtbo")
			mods := filepath.Join(root, "staging", "lib", "modules", "5.4.0")
			writeFile(t, filepath.Join(mods, "a", "dup.ko"), "first")
			writeFile(t, filepath.Join(mods, "b", "dup.ko"), "second")
			return nil
		},
	}}

	// Last writer wins; the pipeline does not fail on collision.
	require.NoError(t, p.BuildAndPublish(t.Context()))
	assert.FileExists(t, filepath.Join(root, "push_files", kbuild.ModulesSubdir, "dup.ko"))
}
