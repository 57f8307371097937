package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyresolve/internal/log"
)

// IndexOutput represents the output of the index command
type IndexOutput struct {
	Workspace string   `json:"workspace"`
	Root      string   `json:"root"`
	Packages  []string `json:"packages"`
	Project   int      `json:"project_modules"`
	Stdlib    int      `json:"stdlib_modules"`
	CacheDir  string   `json:"cache_dir"`
}

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a workspace and show what it contains",
	Long: `Walks the project tree and the standard library and reports the
top-level packages the project exports.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		spinner := log.NewProgressSpinner(cmd.ErrOrStderr(), "Indexing workspace...")
		if !jsonOutput {
			spinner.Start()
		}
		s, err := openSession(cmd, pathArg(args))
		spinner.Stop()
		if err != nil {
			return err
		}
		defer s.Close()

		deps, err := s.router.Dependencies(cmd.Context(), s.params())
		if err != nil {
			return err
		}
		opened := s.info

		out := IndexOutput{
			Workspace: s.workspace,
			Root:      s.root,
			Packages:  opened.Packages,
			Project:   opened.Stats.Project,
			Stdlib:    opened.Stats.Stdlib,
			CacheDir:  opened.Stats.CacheDir,
		}
		if out.Packages == nil {
			out.Packages = []string{}
		}
		if jsonOutput {
			return printJSON(out)
		}

		fmt.Printf("Workspace: %s\n", out.Workspace)
		fmt.Printf("Root: %s\n", out.Root)
		fmt.Printf("Project modules: %d\n", out.Project)
		fmt.Printf("Stdlib modules: %d\n", out.Stdlib)
		fmt.Printf("Dependency cache: %s\n", out.CacheDir)
		if len(out.Packages) > 0 {
			fmt.Println("Packages:")
			for _, p := range out.Packages {
				fmt.Printf("  %s\n", p)
			}
		}
		if len(deps.Dependencies) > 0 {
			fmt.Println("Imports from:")
			for _, d := range deps.Dependencies {
				fmt.Printf("  %s\n", d.Name)
			}
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(indexCmd)
}
