package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jadevit/touchctl/internal/control"
)

func newRootCmd() *cobra.Command {
	var daemonMode bool

	root := &cobra.Command{
		Use:           "touchctl",
		Short:         "touchctl — Linux multitouch gesture daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if daemonMode {
				return runDaemon()
			}
			return cmd.Help()
		},
	}
	// Hidden flag used by `start` to spawn the real daemon process; never
	// invoked directly by a user.
	root.Flags().BoolVar(&daemonMode, "daemon", false, "")
	_ = root.Flags().MarkHidden("daemon")

	root.AddCommand(
		newStartCmd(),
		newStopCmd(),
		newStatusCmd(),
		newReloadCmd(),
		newUseCmd(),
		newListCmd(),
		newDoctorCmd(),
		newEmitCmd(),
	)
	return root
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return err
			}
			proc, err := os.StartProcess(exe, []string{exe, "--daemon"}, &os.ProcAttr{
				Files: []*os.File{nil, os.Stdout, os.Stderr},
			})
			if err != nil {
				return fmt.Errorf("spawn daemon: %w", err)
			}
			fmt.Printf("touchctl: started daemon (pid=%d)\n", proc.Pid)
			return nil
		},
	}
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return requestAndPrint(control.Request{Op: control.OpShutdown})
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return requestAndPrint(control.Request{Op: control.OpStatus})
		},
	}
}

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the active profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return requestAndPrint(control.Request{Op: control.OpReload})
		},
	}
}

func newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Switch the active profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return requestAndPrint(control.Request{Op: control.OpUse, Name: args[0]})
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return requestAndPrint(control.Request{Op: control.OpList})
		},
	}
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose permissions and detected devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return requestAndPrint(control.Request{Op: control.OpDoctor})
		},
	}
}

func requestAndPrint(req control.Request) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	resp, err := control.SendRequest(control.SocketPath(home), req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
