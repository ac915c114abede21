// Package kbuild implements the Android kernel image build pipeline:
// invoke the kernel build, verify the mandatory images, then publish
// images and flattened modules into the artifacts directory.
package kbuild

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lisa-linux/lisa/internal/proc"
)

// Pipeline builds a kernel tree and publishes its artifacts. All stages
// are sequential with fail-fast semantics; a partial run leaves whatever
// the last successful stage produced (rerun to fix).
type Pipeline struct {
	// KernelDir is the kernel source tree where the build tool runs.
	KernelDir string
	// BootDir is where the build tool leaves the image files.
	BootDir string
	// StagingDir receives the module install tree; cleared every run.
	StagingDir string
	// ArtifactsDir is the publish destination; cleared every run. The
	// flattened modules go under ModulesSubdir inside it.
	ArtifactsDir string
	// MakeArgs are extra arguments for the build tool (e.g. O=, ARCH=,
	// CROSS_COMPILE=).
	MakeArgs []string

	runner proc.Runner
}

// ModulesSubdir is the fixed modules subtree inside the artifacts
// directory, matching the layout the flashing tools push to the device.
const ModulesSubdir = "vendor/lib/modules"

// Mandatory image outputs. The build tool's exit code alone is not
// trusted; both must exist after a successful build.
const (
	KernelImageName = "Image.gz-dtb"
	DTBOImageName   = "dtbo.img"
)

// NewPipeline returns a pipeline using runner for the build tool.
func NewPipeline(kernelDir, bootDir, stagingDir, artifactsDir string, runner proc.Runner) *Pipeline {
	return &Pipeline{
		KernelDir:    kernelDir,
		BootDir:      bootDir,
		StagingDir:   stagingDir,
		ArtifactsDir: artifactsDir,
		runner:       runner,
	}
}

// BuildAndPublish runs the whole pipeline.
func (p *Pipeline) BuildAndPublish(ctx context.Context) error {
	if err := p.reset(); err != nil {
		return err
	}
	if err := p.build(ctx); err != nil {
		return err
	}
	if err := p.verifyImages(); err != nil {
		return err
	}
	if err := p.publishImages(); err != nil {
		return err
	}
	if err := p.publishModules(); err != nil {
		return err
	}
	slog.Info("kernel artifacts published", "dir", p.ArtifactsDir)
	return nil
}

// reset clears the artifacts and staging directories so nothing from a
// previous build leaks into this result set. Callers accept the loss.
func (p *Pipeline) reset() error {
	for _, dir := range []string{p.ArtifactsDir, p.StagingDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to clear %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

func (p *Pipeline) build(ctx context.Context) error {
	args := append([]string(nil), p.MakeArgs...)
	args = append(args,
		KernelImageName,
		DTBOImageName,
		"modules",
		"modules_install",
		"INSTALL_MOD_PATH="+p.StagingDir,
	)
	slog.Info("building kernel", "dir", p.KernelDir)
	if err := p.runner.Run(ctx, proc.Command{Name: "make", Args: args, Dir: p.KernelDir}); err != nil {
		return fmt.Errorf("kernel build failed: %w", err)
	}
	return nil
}

// verifyImages checks the mandatory outputs even though the build tool
// reported success.
func (p *Pipeline) verifyImages() error {
	for _, name := range []string{DTBOImageName, KernelImageName} {
		path := filepath.Join(p.BootDir, name)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("mandatory build artifact missing: %s", path)
		}
	}
	return nil
}

func (p *Pipeline) publishImages() error {
	for _, name := range []string{DTBOImageName, KernelImageName} {
		src := filepath.Join(p.BootDir, name)
		dst := filepath.Join(p.ArtifactsDir, name)
		if err := copyFile(src, dst); err != nil {
			return fmt.Errorf("failed to publish %s: %w", name, err)
		}
	}
	return nil
}

// publishModules flattens every compiled module from the staging tree into
// a single directory and rewrites the module descriptors accordingly.
// Name collisions are last-writer-wins: module names are unique within one
// kernel build.
func (p *Pipeline) publishModules() error {
	modulesDir := filepath.Join(p.ArtifactsDir, ModulesSubdir)
	if err := os.MkdirAll(modulesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create modules directory: %w", err)
	}

	descriptors := map[string]string{}
	err := filepath.WalkDir(p.StagingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		switch {
		case strings.HasSuffix(name, ".ko"):
			return copyFile(path, filepath.Join(modulesDir, name))
		case isDescriptor(name):
			descriptors[name] = path
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish modules: %w", err)
	}

	for _, name := range descriptorFiles {
		src, ok := descriptors[name]
		if !ok {
			slog.Debug("descriptor not produced by build", "name", name)
			continue
		}
		if err := flattenDescriptorFile(src, filepath.Join(modulesDir, name)); err != nil {
			return err
		}
	}
	return nil
}

func isDescriptor(name string) bool {
	for _, d := range descriptorFiles {
		if name == d {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
