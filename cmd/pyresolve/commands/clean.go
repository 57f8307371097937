package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/pyresolve/internal/daemon"
	"github.com/l3aro/pyresolve/pkg/client"
	"github.com/l3aro/pyresolve/pkg/workspace"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove a workspace's dependency cache",
	Long: `Removes the dependencies downloaded for a workspace. When the daemon has
the workspace open it is shut down there. With --all the whole cache root is
removed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		all, _ := cmd.Flags().GetBool("all")
		yes, _ := cmd.Flags().GetBool("yes")

		target := cfg.CacheRoot
		var key string
		if !all {
			root, err := filepath.Abs(pathArg(args))
			if err != nil {
				return fmt.Errorf("getting absolute path: %w", err)
			}
			key = workspace.DeriveIdentity(root).Key
			target = filepath.Join(cfg.CacheRoot, key)
		}

		if !yes {
			confirmed := false
			err := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Remove %s?", target)).
						Affirmative("Remove").
						Negative("Cancel").
						Value(&confirmed),
				),
			).Run()
			if err != nil {
				return fmt.Errorf("interactive prompt failed: %w", err)
			}
			if !confirmed {
				fmt.Println("Nothing removed")
				return nil
			}
		}

		if noDaemon, _ := cmd.Flags().GetBool("no-daemon"); !noDaemon && key != "" && daemon.IsRunning() {
			r := client.NewRouter(client.WithDaemon())
			if err := r.Shutdown(cmd.Context(), daemon.WorkspaceParams{Workspace: key}); err != nil {
				return fmt.Errorf("shutting down workspace: %w", err)
			}
		}
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("removing %s: %w", target, err)
		}
		fmt.Printf("Removed %s\n", target)
		return nil
	},
}

func init() {
	cleanCmd.Flags().Bool("all", false, "Remove every workspace cache under the cache root")
	cleanCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	RootCmd.AddCommand(cleanCmd)
}
