package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lisa-linux/lisa/internal/kbuild"
)

var (
	kernelDir    string
	kernelOut    string
	makeArgs     []string
	artifactsDir string
)

// buildImagesCmd implements 'lisa build-images': the Android kernel image
// build pipeline.
var buildImagesCmd = &cobra.Command{
	Use:   "build-images",
	Short: "Build kernel images and publish them to the artifacts directory",
	Long: `Build the kernel image, device-tree overlay and modules, then publish
them into the push_files artifacts tree. Modules are flattened into a
single directory and their descriptor files rewritten to match.

The artifacts directory is cleared first: nothing from a previous build
survives into the new result set.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := newStack()
		if err != nil {
			return err
		}

		kdir := kernelDir
		if kdir == "" {
			kdir = st.sess.Home()
		}
		out := kernelOut
		if out == "" {
			out = kdir
		}
		artifacts := artifactsDir
		if artifacts == "" {
			artifacts = filepath.Join(st.sess.Home(), "push_files")
		}

		pipeline := kbuild.NewPipeline(
			kdir,
			filepath.Join(out, "arch", "arm64", "boot"),
			filepath.Join(out, "staging"),
			artifacts,
			st.runner,
		)
		pipeline.MakeArgs = makeArgs
		return pipeline.BuildAndPublish(cmd.Context())
	},
}

func init() {
	buildImagesCmd.Flags().StringVar(&kernelDir, "kernel-dir", "", "kernel source tree (default: workspace root)")
	buildImagesCmd.Flags().StringVar(&kernelOut, "out", "", "build output directory (default: kernel dir)")
	buildImagesCmd.Flags().StringVar(&artifactsDir, "artifacts", "", "artifacts directory (default: <workspace>/push_files)")
	buildImagesCmd.Flags().StringArrayVar(&makeArgs, "make-arg", nil, "extra argument for the build tool (repeatable)")
	rootCmd.AddCommand(buildImagesCmd)
}
