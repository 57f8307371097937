package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyresolve/internal/daemon"
	"github.com/l3aro/pyresolve/internal/log"
	"github.com/l3aro/pyresolve/pkg/workspace"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <qualified-name> [path]",
	Short: "Resolve an import from a workspace",
	Long: `Resolves an absolute import the way the workspace sees it: project
sources first, then the standard library, then namespace packages, and
finally dependencies downloaded on demand into the workspace cache.`,
	Example: `  pyresolve resolve requests.adapters
  pyresolve resolve views --dir app ./myproject`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qualifiedName := args[0]
		path := pathArg(args[1:])
		name, _ := cmd.Flags().GetString("name")
		dirs, _ := cmd.Flags().GetStringSlice("dir")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		s, err := openSession(cmd, path)
		if err != nil {
			return err
		}
		defer s.Close()

		for i, dir := range dirs {
			if !filepath.IsAbs(dir) {
				dirs[i] = filepath.Join(s.root, dir)
			}
		}

		spinner := log.NewProgressSpinner(cmd.ErrOrStderr(), fmt.Sprintf("Resolving %s...", qualifiedName))
		if !jsonOutput {
			spinner.Start()
		}
		result, err := s.router.Resolve(cmd.Context(), daemon.ResolveParams{
			Workspace:     s.workspace,
			Name:          name,
			QualifiedName: qualifiedName,
			Dirs:          dirs,
		})
		spinner.Stop()
		switch {
		case errors.Is(err, workspace.ErrUnanalyzable):
			return fmt.Errorf("%s has no analyzable source: %w", qualifiedName, err)
		case err != nil:
			return err
		}

		if jsonOutput {
			return printJSON(result)
		}
		m := result.Module
		fmt.Printf("Module: %s\n", m.QualifiedName)
		fmt.Printf("Kind: %s\n", result.Kind)
		if m.Path != "" {
			fmt.Printf("Path: %s\n", m.Path)
		}
		if m.IsPackage {
			fmt.Println("Package: yes")
		}
		if m.Namespace != nil {
			fmt.Println("Namespace directories:")
			for _, dir := range m.Namespace.Directories {
				fmt.Printf("  %s\n", dir)
			}
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().String("name", "", "Local name of the import (defaults to the last component)")
	resolveCmd.Flags().StringSlice("dir", nil, "Directory of the importing file, searched before the index (repeatable)")
	resolveCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(resolveCmd)
}
