package main

import (
	"github.com/spf13/cobra"

	"github.com/lisa-linux/lisa/internal/testrun"
)

// wltestSeriesCmd implements 'lisa wltest-series', delegating to the
// workload test series driver inside the activated venv.
var wltestSeriesCmd = &cobra.Command{
	Use:   "wltest-series [-- driver args...]",
	Short: "Run a workload test series on the target",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := newStack()
		if err != nil {
			return err
		}
		runner := testrun.NewRunner(st.sess, st.runner, st.venv)
		return runner.WltestSeries(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(wltestSeriesCmd)
}
