package main

import (
	"github.com/spf13/cobra"
)

// installCmd implements 'lisa install'. Arguments after -- go to the
// package installer verbatim.
var installCmd = &cobra.Command{
	Use:   "install [-- extra installer args...]",
	Short: "Install the workspace dependencies into the venv",
	Long: `Recreate the virtual environment and install the dependency manifest.

The manifest is chosen by LISA_DEVMODE: the editable developer manifest
when enabled (the default), the pinned one otherwise. A
custom_requirements.txt in the workspace root is installed on top when
present. With LISA_USE_VENV=0 no venv is touched and packages install
against the configured interpreter directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := newStack()
		if err != nil {
			return err
		}
		return st.install.Install(cmd.Context(), args...)
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
