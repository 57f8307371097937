package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyresolve/internal/daemon"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		daemonPath, _ := cmd.Flags().GetString("daemon")
		socketPath, _ := cmd.Flags().GetString("socket")
		configPath, _ := cmd.Flags().GetString("config")
		verbose, _ := cmd.Flags().GetBool("verbose")
		background, _ := cmd.Flags().GetBool("d")

		result, err := daemon.Start(&daemon.StartOptions{
			DaemonPath:   daemonPath,
			SocketPath:   socketPath,
			ConfigPath:   configPath,
			Verbose:      verbose,
			WaitForReady: true,
			ReadyTimeout: daemon.ReadyTimeout,
			Background:   background,
		})
		if err != nil {
			return err
		}
		if !result.Success {
			if result.Error != "" {
				fmt.Printf("Failed to start daemon: %s\n", result.Error)
			}
			if result.PID > 0 {
				fmt.Printf("Daemon already running with PID %d\n", result.PID)
			}
			return nil
		}
		fmt.Printf("Daemon started with PID %d\n", result.PID)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon and remove its workspace caches",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := daemon.Stop()
		if err != nil {
			return err
		}
		if !result.Success {
			if result.Error != "" {
				fmt.Printf("Failed to stop daemon: %s\n", result.Error)
			}
			return nil
		}
		fmt.Printf("Daemon stopped (PID: %d)\n", result.PID)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		result := daemon.GetStatus()
		if jsonOutput {
			return printJSON(result)
		}

		fmt.Printf("Status: %s\n", result.Status)
		if result.Error != "" {
			fmt.Printf("Error: %s\n", result.Error)
			return nil
		}
		if result.PID > 0 {
			fmt.Printf("PID: %d\n", result.PID)
		}
		if result.Version != "" {
			fmt.Printf("Version: %s\n", result.Version)
		}
		if !result.StartedAt.IsZero() {
			fmt.Printf("Started: %s\n", result.StartedAt.Format(time.RFC3339))
		}
		if result.Running {
			fmt.Printf("Workspaces: %d\n", result.Workspaces)
		}
		return nil
	},
}

func init() {
	startCmd.Flags().String("daemon", "", "Path to daemon binary")
	startCmd.Flags().String("socket", "", "Unix socket path")
	startCmd.Flags().BoolP("d", "d", false, "Run in background")
	statusCmd.Flags().BoolP("json", "j", false, "Output as JSON")

	RootCmd.AddCommand(startCmd)
	RootCmd.AddCommand(stopCmd)
	RootCmd.AddCommand(statusCmd)
}
