package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lisa-linux/lisa/internal/jupyter"
)

var (
	jupyterIface string
	jupyterPort  int
)

// jupyterCmd implements 'lisa jupyter [start|stop]'. The verb defaults to
// start; an unrecognized verb gets the usage message.
var jupyterCmd = &cobra.Command{
	Use:   "jupyter [start|stop]",
	Short: "Manage the detached notebook server",
	Long: `Start or stop the Jupyter notebook server.

The server runs detached from this process and is tracked through pid and
url files under the workspace root. Starting twice refuses with the
existing server's URL rather than spawning a duplicate.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		verb := "start"
		if len(args) > 0 {
			verb = args[0]
		}
		switch verb {
		case "start":
			return jupyterStart(cmd)
		case "stop":
			return jupyterStop(cmd)
		default:
			_ = cmd.Usage()
			return fmt.Errorf("unknown jupyter action: %s", verb)
		}
	},
}

func init() {
	jupyterCmd.Flags().StringVar(&jupyterIface, "iface", jupyter.DefaultIface, "network interface to serve on")
	jupyterCmd.Flags().IntVar(&jupyterPort, "port", jupyter.DefaultPort, "port to serve on")
	rootCmd.AddCommand(jupyterCmd)
}

func jupyterStart(cmd *cobra.Command) error {
	st, err := newStack()
	if err != nil {
		return err
	}
	return st.venv.WithActivated(cmd.Context(), func(ctx context.Context) error {
		srv := jupyter.New(st.sess.JupyterDir(), st.sess.Home(), st.runner, st.sess.Environ())
		url, err := srv.Start(ctx, jupyterIface, jupyterPort)
		if errors.Is(err, jupyter.ErrServerRunning) {
			// A live server is a refusal with guidance, not a failure.
			fmt.Printf("notebook server already running at %s\n", url)
			fmt.Println("stop it first with 'lisa jupyter stop'")
			return err
		}
		if err != nil {
			return err
		}
		fmt.Printf("notebook server started at %s\n", url)
		fmt.Printf("logs: %s\n", srv.LogFile())
		return nil
	})
}

func jupyterStop(_ *cobra.Command) error {
	st, err := newStack()
	if err != nil {
		return err
	}
	srv := jupyter.New(st.sess.JupyterDir(), st.sess.Home(), st.runner, st.sess.Environ())
	return srv.Stop()
}
