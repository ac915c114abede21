package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lisa-linux/lisa/internal/session"
)

var verbose bool

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "lisa",
	Short: "Linux kernel performance-analysis workspace manager",
	Long: `lisa manages a kernel performance-analysis workspace: an isolated
Python environment for the analysis toolkit, a Jupyter notebook server,
source-tree updates, target-device configuration and the Android kernel
image build pipeline.

The workspace root comes from LISA_HOME (or --home); every other path is
derived from it.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().String("home", "", "workspace root (default $LISA_HOME, then the current directory)")
	_ = viper.BindPFlag("home", rootCmd.PersistentFlags().Lookup("home"))
}

// initConfig binds the LISA_* environment and the optional workspace
// config file.
func initConfig() {
	session.BindEnvironment(viper.GetViper())

	home := viper.GetString("home")
	if home != "" {
		viper.SetConfigFile(filepath.Join(home, ".lisa.yaml"))
		if err := viper.ReadInConfig(); err == nil {
			slog.Debug("using config file", "file", viper.ConfigFileUsed())
		}
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// TextHandler for CLI friendliness
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
