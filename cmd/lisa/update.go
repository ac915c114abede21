package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lisa-linux/lisa/internal/update"
)

// updateCmd implements 'lisa update [all|subtrees]'. The verb defaults to
// "all"; anything unrecognized gets the usage message.
var updateCmd = &cobra.Command{
	Use:       "update [all|subtrees]",
	Short:     "Update the workspace source tree",
	ValidArgs: []string{"all", "subtrees"},
	Args:      cobra.MaximumNArgs(1),
	Long: `Pull the main source tree, or refresh the vendored subtrees.

'update all' refuses to run with outstanding uncommitted changes; commit
or stash them first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		verb := "all"
		if len(args) > 0 {
			verb = args[0]
		}

		st, err := newStack()
		if err != nil {
			return err
		}
		syncer := update.NewSyncer(st.sess.Home(), st.runner)
		syncer.Freshness = st.fresh

		switch verb {
		case "all":
			return syncer.All(cmd.Context())
		case "subtrees":
			return syncer.UpdateSubtrees(cmd.Context())
		default:
			_ = cmd.Usage()
			return fmt.Errorf("unknown update target: %s", verb)
		}
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
