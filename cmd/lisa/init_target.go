package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/lisa-linux/lisa/internal/target"
)

var initTargetOut string

// initTargetCmd implements 'lisa init-target': interactively scaffold a
// target configuration file.
var initTargetCmd = &cobra.Command{
	Use:   "init-target",
	Short: "Interactively create a target configuration file",
	Long: `Walk through the connection settings for a test target and write a
validated target configuration file.`,
	RunE: runInitTarget,
}

func init() {
	initTargetCmd.Flags().StringVar(&initTargetOut, "output", "target_conf.yml", "output file path")
	rootCmd.AddCommand(initTargetCmd)
}

func runInitTarget(_ *cobra.Command, _ []string) error {
	conf := target.Conf{}
	tc := &conf.Target

	err := huh.NewSelect[string]().
		Title("Target kind").
		Options(
			huh.NewOption("Android device (adb)", target.KindAndroid),
			huh.NewOption("Linux device (ssh)", target.KindLinux),
			huh.NewOption("Local host", target.KindHost),
		).
		Value(&tc.Kind).
		Run()
	if err != nil {
		return err
	}

	switch tc.Kind {
	case target.KindAndroid:
		err = huh.NewInput().
			Title("Device serial (empty for the only connected device)").
			Value(&tc.Device).
			Run()
		if err != nil {
			return err
		}
	case target.KindLinux:
		var port string
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Host").Value(&tc.Host),
				huh.NewInput().Title("Port (empty for 22)").Value(&port),
				huh.NewInput().Title("Username").Value(&tc.Username),
				huh.NewInput().Title("Password (empty when using a keyfile)").Value(&tc.Password),
				huh.NewInput().Title("Keyfile (empty when using a password)").Value(&tc.Keyfile),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
		if port != "" {
			p, err := strconv.Atoi(port)
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", port, err)
			}
			tc.Port = p
		}
	}

	if err := conf.Write(initTargetOut); err != nil {
		return err
	}

	// Round-trip through the loader so the user finds out now, not at
	// test time, if the document does not validate.
	if _, err := target.Load(initTargetOut); err != nil {
		return err
	}

	fmt.Printf("target configuration written to %s\n", initTargetOut)
	return nil
}
