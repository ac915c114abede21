// Package jupyter manages the detached notebook server: starting it in its
// own session, tracking it through pid/url marker files and stopping it.
package jupyter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/lisa-linux/lisa/internal/proc"
)

// Defaults for the start command.
const (
	DefaultIface = "lo"
	DefaultPort  = 8888
)

const (
	pidFileName = "server.pid"
	urlFileName = "server.url"
	logFileName = "server.log"
)

// User-reported conflicts, distinct from tool failures.
var (
	// ErrServerRunning means a live server is already recorded; its URL
	// accompanies the refusal.
	ErrServerRunning = errors.New("notebook server already running")
	// ErrPortBound means the requested port is taken by something that is
	// not our recorded server.
	ErrPortBound = errors.New("port already in use")
	// ErrNoAddress means the interface yielded no usable address.
	ErrNoAddress = errors.New("no address found for interface")
)

// State of the notebook server as derived from the pid marker file.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Server supervises one notebook server through marker files in RunDir.
// The server process itself is an external collaborator; the launcher never
// waits for it and communicates only through the filesystem.
type Server struct {
	// RunDir holds server.pid, server.url and server.log.
	RunDir string
	// NotebookDir is served as the notebook root.
	NotebookDir string

	runner proc.Runner
	env    []string

	// Overridable probes, for tests.
	ifaceAddr  func(name string) (string, error)
	lookupHost func(name string) ([]string, error)
	listen     func(network, addr string) (net.Listener, error)
	alive      func(pid int) bool
}

// New returns a Server persisting its state under runDir. env is the child
// environment for the launched process.
func New(runDir, notebookDir string, runner proc.Runner, env []string) *Server {
	return &Server{
		RunDir:      runDir,
		NotebookDir: notebookDir,
		runner:      runner,
		env:         env,
		ifaceAddr:   interfaceAddr,
		lookupHost:  net.LookupHost,
		listen:      net.Listen,
		alive:       proc.Alive,
	}
}

func (s *Server) pidFile() string { return filepath.Join(s.RunDir, pidFileName) }
func (s *Server) urlFile() string { return filepath.Join(s.RunDir, urlFileName) }

// LogFile is where the detached server's output goes.
func (s *Server) LogFile() string { return filepath.Join(s.RunDir, logFileName) }

// Status derives the current state from the pid file. A pid file naming a
// dead process counts as stopped.
func (s *Server) Status() (State, int, string) {
	pid := s.recordedPID()
	if pid == 0 || !s.alive(pid) {
		return Stopped, 0, ""
	}
	url, _ := os.ReadFile(s.urlFile())
	return Running, pid, strings.TrimSpace(string(url))
}

// Start launches a detached notebook server on iface:port and records its
// pid and access URL. A live recorded server or a bound port is a refusal
// (ErrServerRunning / ErrPortBound), not a tool failure.
func (s *Server) Start(ctx context.Context, iface string, port int) (string, error) {
	addr, err := s.resolveAddr(iface)
	if err != nil {
		return "", err
	}

	if state, pid, url := s.Status(); state == Running {
		return url, fmt.Errorf("%w (pid %d, url %s)", ErrServerRunning, pid, url)
	}

	// The recorded server is gone; anything else on the port is a
	// conflict we will not fight.
	probe, err := s.listen("tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return "", fmt.Errorf("%w: %s:%d", ErrPortBound, addr, port)
	}
	probe.Close()

	if err := os.MkdirAll(s.RunDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	url := fmt.Sprintf("http://%s:%d/?token=%s", addr, port, token)

	pid, err := s.runner.StartDetached(proc.Command{
		Name: "jupyter",
		Args: []string{
			"notebook",
			"--ip=" + addr,
			"--port=" + strconv.Itoa(port),
			"--no-browser",
			"--NotebookApp.token=" + token,
			"--notebook-dir=" + s.NotebookDir,
		},
		Dir: s.NotebookDir,
		Env: s.env,
	}, s.LogFile())
	if err != nil {
		return "", fmt.Errorf("failed to launch notebook server: %w", err)
	}

	if err := os.WriteFile(s.pidFile(), []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to record server pid: %w", err)
	}
	if err := os.WriteFile(s.urlFile(), []byte(url+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to record server url: %w", err)
	}
	slog.Info("notebook server started", "pid", pid, "url", url)
	return url, nil
}

// Stop signals the recorded server if it is alive and clears the marker
// files. Stopping an already stopped server is a no-op.
func (s *Server) Stop() error {
	pid := s.recordedPID()
	if pid == 0 {
		slog.Debug("no notebook server recorded")
		return nil
	}
	if s.alive(pid) {
		if p, err := os.FindProcess(pid); err == nil {
			if err := p.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to signal server pid %d: %w", pid, err)
			}
		}
		slog.Info("notebook server stopped", "pid", pid)
	}
	os.Remove(s.pidFile())
	os.Remove(s.urlFile())
	return nil
}

func (s *Server) recordedPID() int {
	data, err := os.ReadFile(s.pidFile())
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// resolveAddr tries the interface's own addresses first, then a host
// lookup of the name; the first non-empty result wins.
func (s *Server) resolveAddr(iface string) (string, error) {
	if addr, err := s.ifaceAddr(iface); err == nil && addr != "" {
		return addr, nil
	}
	if addrs, err := s.lookupHost(iface); err == nil && len(addrs) > 0 {
		return addrs[0], nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoAddress, iface)
}

// interfaceAddr returns the first usable unicast IPv4 address of the named
// interface.
func interfaceAddr(name string) (string, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return "", err
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}
	return "", fmt.Errorf("no IPv4 address on %s", name)
}
