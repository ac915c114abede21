package main

import (
	"github.com/spf13/cobra"

	"github.com/lisa-linux/lisa/internal/testrun"
)

var testFilter string

// testCmd implements 'lisa test'. Everything after -- goes to the test
// runner verbatim.
var testCmd = &cobra.Command{
	Use:   "test [-- runner args...]",
	Short: "Run the test suite through the exekall runner",
	Long: `Delegate to the exekall test runner inside the activated venv,
with LISA_RESULT_ROOT and EXEKALL_ARTIFACT_ROOT wired into its
environment.

--filter pre-selects tests with an expression over each test's
attributes, e.g.:

  lisa test --filter "id contains 'hotplug'"
  lisa test --filter "'sched' in tags and not ('slow' in tags)"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := newStack()
		if err != nil {
			return err
		}
		runner := testrun.NewRunner(st.sess, st.runner, st.venv)
		return runner.Exekall(cmd.Context(), testFilter, args)
	},
}

func init() {
	testCmd.Flags().StringVar(&testFilter, "filter", "", "test selection expression")
	rootCmd.AddCommand(testCmd)
}
