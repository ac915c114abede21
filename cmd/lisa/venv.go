package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var venvCmd = &cobra.Command{
	Use:   "venv",
	Short: "Manage the workspace virtual environment",
}

// venvActivateCmd implements 'lisa venv activate'. Activation is scoped to
// a session: commands that need the venv activate it themselves, so this
// mainly guarantees the venv exists (installing if missing) and reports
// where it lives.
var venvActivateCmd = &cobra.Command{
	Use:   "activate",
	Short: "Ensure the venv exists and mark it active for this session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := newStack()
		if err != nil {
			return err
		}
		if err := st.venv.Activate(cmd.Context()); err != nil {
			return err
		}
		if !st.sess.Config().UseVenv {
			fmt.Println("venv disabled (LISA_USE_VENV=0), nothing to activate")
			return nil
		}
		path, err := st.sess.VenvPath(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("venv active at %s\n", path)
		return nil
	},
}

// venvDeactivateCmd implements 'lisa venv deactivate'. Deactivating with
// nothing active is a no-op success.
var venvDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Deactivate the venv for this session",
	RunE: func(_ *cobra.Command, _ []string) error {
		st, err := newStack()
		if err != nil {
			return err
		}
		st.venv.Deactivate()
		return nil
	},
}

func init() {
	venvCmd.AddCommand(venvActivateCmd)
	venvCmd.AddCommand(venvDeactivateCmd)
	rootCmd.AddCommand(venvCmd)
}
