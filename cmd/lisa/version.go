package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lisa-linux/lisa/internal/build"
)

// versionCmd implements the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of lisa",
	Run: func(_ *cobra.Command, _ []string) {
		info := build.Get()
		fmt.Printf("lisa version %s\n", info.Full())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
