package session

import (
	"os"

	"github.com/spf13/viper"
)

// Config is the resolved workspace configuration. Values come from the
// LISA_* environment, an optional config file and command-line flags, in
// the usual viper precedence order.
type Config struct {
	// Home is the workspace root; all derived paths concatenate onto it.
	Home string
	// UseVenv enables the virtual environment feature (LISA_USE_VENV,
	// default on). When off, creation and activation are no-ops.
	UseVenv bool
	// DevMode selects the editable dependency manifest (LISA_DEVMODE,
	// default on) instead of the pinned one.
	DevMode bool
	// Python is the interpreter binary for all venv and package
	// operations (LISA_PYTHON).
	Python string
	// VenvPath overrides the derived venv location (LISA_VENV_PATH).
	VenvPath string
	// HostABI extends PATH with the matching prebuilt tools directory
	// (LISA_HOST_ABI).
	HostABI string
	// ResultRoot and ArtifactRoot are handed to the external test runner.
	ResultRoot   string
	ArtifactRoot string
}

// BindEnvironment wires the recognized LISA_* variables and defaults into
// v. Called once from the root command before any flow runs.
func BindEnvironment(v *viper.Viper) {
	v.SetDefault("home", defaultHome())
	v.SetDefault("use_venv", true)
	v.SetDefault("devmode", true)
	v.SetDefault("python", "python3")

	// Explicit bindings: the variable names predate this tool and do not
	// follow a single prefix scheme viper could infer.
	_ = v.BindEnv("home", "LISA_HOME")
	_ = v.BindEnv("use_venv", "LISA_USE_VENV")
	_ = v.BindEnv("devmode", "LISA_DEVMODE")
	_ = v.BindEnv("python", "LISA_PYTHON")
	_ = v.BindEnv("venv_path", "LISA_VENV_PATH")
	_ = v.BindEnv("host_abi", "LISA_HOST_ABI")
	_ = v.BindEnv("result_root", "LISA_RESULT_ROOT")
	_ = v.BindEnv("artifact_root", "EXEKALL_ARTIFACT_ROOT")
}

// ConfigFromViper materializes a Config from the bound settings.
func ConfigFromViper(v *viper.Viper) Config {
	return Config{
		Home:         v.GetString("home"),
		UseVenv:      v.GetBool("use_venv"),
		DevMode:      v.GetBool("devmode"),
		Python:       v.GetString("python"),
		VenvPath:     v.GetString("venv_path"),
		HostABI:      v.GetString("host_abi"),
		ResultRoot:   v.GetString("result_root"),
		ArtifactRoot: v.GetString("artifact_root"),
	}
}

func defaultHome() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
