package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyresolve/internal/scanner"
	"github.com/l3aro/pyresolve/pkg/vfs"
	"github.com/l3aro/pyresolve/pkg/workspace"
)

var depsCmd = &cobra.Command{
	Use:   "deps [path]",
	Short: "List a workspace's external dependencies",
	Long: `Lists the top-level packages the project imports that it does not
provide itself. Standard library usage is reported as a single cpython entry.

With --graph, prints the project's module import graph instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if graph, _ := cmd.Flags().GetBool("graph"); graph {
			return runGraph(cmd, pathArg(args))
		}

		s, err := openSession(cmd, pathArg(args))
		if err != nil {
			return err
		}
		defer s.Close()

		result, err := s.router.Dependencies(cmd.Context(), s.params())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(result)
		}

		for _, d := range result.Dependencies {
			if d.RepoURL != "" {
				fmt.Printf("%s (%s)\n", d.Name, d.RepoURL)
				continue
			}
			fmt.Println(d.Name)
		}
		return nil
	},
}

// runGraph builds the workspace in-process; the import graph is not part of
// the daemon protocol.
func runGraph(cmd *cobra.Command, path string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("getting absolute path: %w", err)
	}

	fs := vfs.NewLocal(scanner.DefaultOptions())
	ws, err := workspace.New(cmd.Context(), cfg, fs, root, root,
		workspace.WithLogger(newLogger(cfg)),
		workspace.WithStdlibSnapshot(stdlibSnapshotPath(cfg)))
	if err != nil {
		return err
	}
	defer ws.Cleanup()

	graph, err := ws.ImportGraph(cmd.Context())
	if err != nil {
		return fmt.Errorf("building import graph: %w", err)
	}
	return graph.Render(os.Stdout)
}

func init() {
	depsCmd.Flags().Bool("graph", false, "Print the module import graph")
	depsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(depsCmd)
}
