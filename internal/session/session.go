// Package session holds the explicit state that the interactive shell
// incarnation of this tool kept in exported variables: the workspace root,
// configuration flags, the interpreter identity and the currently active
// virtual environment. Every flow receives a *Session instead of reading
// ambient process state.
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/lisa-linux/lisa/internal/proc"
)

const (
	markerFileName  = ".lisa-install-revision"
	jupyterDirName  = ".lisa-jupyter"
	venvDirPrefix   = ".lisa-venv-"
	customManifest  = "custom_requirements.txt"
	devManifest     = "devmode_requirements.txt"
	pinnedManifest  = "requirements.txt"
	versionProbeSrc = "import sys; print('.'.join(map(str, sys.version_info[:3])))"
)

// versionProbe is the interpreter one-liner used to discover the
// interpreter identity.
var versionProbe = []string{"-c", versionProbeSrc}

// Session is the per-invocation context. It is not safe for concurrent
// use; every flow in this repository is sequential.
type Session struct {
	cfg     Config
	runner  proc.Runner
	baseEnv []string

	pyVersion  *semver.Version
	activeVenv string
}

// New builds a Session rooted at cfg.Home, which is made absolute. environ
// is the base child-process environment, normally os.Environ().
func New(cfg Config, runner proc.Runner, environ []string) (*Session, error) {
	if cfg.Home == "" {
		return nil, fmt.Errorf("workspace root is not set (LISA_HOME)")
	}
	home, err := filepath.Abs(cfg.Home)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	cfg.Home = home
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	return &Session{cfg: cfg, runner: runner, baseEnv: environ}, nil
}

// Config returns the resolved configuration.
func (s *Session) Config() Config { return s.cfg }

// Home returns the workspace root. All other paths are derived from it.
func (s *Session) Home() string { return s.cfg.Home }

// Python returns the interpreter binary used for all venv and package
// operations.
func (s *Session) Python() string { return s.cfg.Python }

// InterpreterVersion probes the interpreter identity once per session.
func (s *Session) InterpreterVersion(ctx context.Context) (*semver.Version, error) {
	if s.pyVersion != nil {
		return s.pyVersion, nil
	}
	out, err := s.runner.Output(ctx, proc.Command{Name: s.cfg.Python, Args: versionProbe})
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s version: %w", s.cfg.Python, err)
	}
	v, err := semver.NewVersion(strings.TrimSpace(out))
	if err != nil {
		return nil, fmt.Errorf("unparseable interpreter version %q: %w", out, err)
	}
	s.pyVersion = v
	return v, nil
}

// VenvPath returns the virtual environment location: the LISA_VENV_PATH
// override when set, otherwise a directory keyed by the interpreter's
// major.minor under the workspace root so that switching interpreters
// never collides with an existing venv.
func (s *Session) VenvPath(ctx context.Context) (string, error) {
	if s.cfg.VenvPath != "" {
		return s.cfg.VenvPath, nil
	}
	v, err := s.InterpreterVersion(ctx)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s%d.%d", venvDirPrefix, v.Major(), v.Minor())
	return filepath.Join(s.cfg.Home, name), nil
}

// VenvPython returns the interpreter to use for package operations: the
// venv's own entry point when the venv feature is enabled, the configured
// system interpreter otherwise.
func (s *Session) VenvPython(ctx context.Context) (string, error) {
	if !s.cfg.UseVenv {
		return s.cfg.Python, nil
	}
	path, err := s.VenvPath(ctx)
	if err != nil {
		return "", err
	}
	return filepath.Join(path, "bin", "python"), nil
}

// MarkerPath is the freshness marker file, outside the venv so that venv
// recreation does not erase it.
func (s *Session) MarkerPath() string {
	return filepath.Join(s.cfg.Home, markerFileName)
}

// JupyterDir is where the notebook server's pid/url/log files live.
func (s *Session) JupyterDir() string {
	return filepath.Join(s.cfg.Home, jupyterDirName)
}

// Manifest returns the dependency manifest selected by the dev-mode flag.
// The choice is a pure function of configuration, decided once per
// invocation.
func (s *Session) Manifest() string {
	if s.cfg.DevMode {
		return filepath.Join(s.cfg.Home, devManifest)
	}
	return filepath.Join(s.cfg.Home, pinnedManifest)
}

// CustomManifest returns the optional user-provided manifest path.
func (s *Session) CustomManifest() string {
	return filepath.Join(s.cfg.Home, customManifest)
}

// ActiveVenv returns the path of the active venv, or "" when none is
// active.
func (s *Session) ActiveVenv() string { return s.activeVenv }

// SetActiveVenv marks path as the active environment. The venv manager is
// the only caller; it guarantees any previous environment was deactivated
// first.
func (s *Session) SetActiveVenv(path string) { s.activeVenv = path }

// ClearActiveVenv removes the active mark.
func (s *Session) ClearActiveVenv() { s.activeVenv = "" }

// Environ returns the child-process environment derived from the base
// environment: workspace variables, the host-ABI tools directory on PATH,
// and the active venv's bin directory plus VIRTUAL_ENV when one is active.
func (s *Session) Environ() []string {
	env := append([]string(nil), s.baseEnv...)
	env = setEnv(env, "LISA_HOME", s.cfg.Home)
	if s.cfg.ResultRoot != "" {
		env = setEnv(env, "LISA_RESULT_ROOT", s.cfg.ResultRoot)
	}
	if s.cfg.ArtifactRoot != "" {
		env = setEnv(env, "EXEKALL_ARTIFACT_ROOT", s.cfg.ArtifactRoot)
	}

	var pathPrepend []string
	if s.cfg.HostABI != "" {
		pathPrepend = append(pathPrepend, filepath.Join(s.cfg.Home, "tools", s.cfg.HostABI))
	}
	if s.activeVenv != "" {
		pathPrepend = append([]string{filepath.Join(s.activeVenv, "bin")}, pathPrepend...)
		env = setEnv(env, "VIRTUAL_ENV", s.activeVenv)
		env = setEnv(env, "VIRTUAL_ENV_PROMPT", "("+filepath.Base(s.activeVenv)+") ")
	}
	if len(pathPrepend) > 0 {
		env = setEnv(env, "PATH", strings.Join(pathPrepend, ":")+":"+getEnv(env, "PATH"))
	}
	return env
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

func getEnv(env []string, key string) string {
	prefix := key + "="
	for i := len(env) - 1; i >= 0; i-- {
		if strings.HasPrefix(env[i], prefix) {
			return env[i][len(prefix):]
		}
	}
	return ""
}
