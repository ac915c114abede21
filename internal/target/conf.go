// Package target loads and validates the target-device configuration
// file: what kind of device the tests drive (android/linux/host), how to
// reach it and how tracing is set up. The external test harness consumes
// this document; we only make sure what we hand over is well-formed.
package target

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// Connection kinds.
const (
	KindAndroid = "android"
	KindLinux   = "linux"
	KindHost    = "host"
)

// Conf is the top-level target configuration document.
type Conf struct {
	Target TargetConf `yaml:"target-conf"`
}

// TargetConf declares one device connection.
type TargetConf struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name,omitempty"`

	// SSH credentials, linux kind only.
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Keyfile  string `yaml:"keyfile,omitempty"`

	// Device is the adb serial, android kind only.
	Device string `yaml:"device,omitempty"`

	Ftrace *FtraceConf `yaml:"ftrace,omitempty"`

	// PlatformInfo includes a platform-info document by path.
	PlatformInfo string `yaml:"platform-info,omitempty"`
}

// FtraceConf tunes the tracing session the harness sets up on the target.
type FtraceConf struct {
	Events     []string `yaml:"events,omitempty"`
	Functions  []string `yaml:"functions,omitempty"`
	BufferSize int      `yaml:"buffer-size,omitempty"`
}

// Load reads and validates a target configuration file.
func Load(path string) (*Conf, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open target config: %w", err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader parses a target configuration document. Unknown fields
// are rejected so typos surface immediately rather than as silently
// ignored settings.
func LoadFromReader(r io.Reader) (*Conf, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read target config: %w", err)
	}

	var conf Conf
	if err := yaml.UnmarshalWithOptions(data, &conf, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("failed to parse target config: %w", err)
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Write marshals conf to path as YAML.
func (c *Conf) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal target config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write target config: %w", err)
	}
	return nil
}
