package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyresolve/internal/config"
	"github.com/l3aro/pyresolve/internal/daemon"
	"github.com/l3aro/pyresolve/internal/log"
	"github.com/l3aro/pyresolve/pkg/client"
	"github.com/l3aro/pyresolve/pkg/workspace"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "pyresolve",
	Short: "pyresolve - Python workspace module index and import resolver",
	Long: `pyresolve indexes a Python workspace and resolves its imports against
the project, the standard library and on-demand downloaded dependencies.

Commands:
  index       Index a workspace and show what it contains
  resolve     Resolve an import from a workspace
  deps        List a workspace's external dependencies
  clean       Remove a workspace's dependency cache
  init        Write a configuration file interactively
  doctor      Check the configuration
  start       Start the daemon
  stop        Stop the daemon
  status      Show daemon status

Use "pyresolve [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().String("config", "", "Config file path")
	RootCmd.PersistentFlags().Bool("no-daemon", false, "Resolve in-process even when the daemon is running")
	RootCmd.PersistentFlags().BoolP("verbose", "V", false, "Verbose logging")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) log.Logger {
	level := log.WarnLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}
	return log.New(log.LoggerConfig{Level: level, JSONOutput: cfg.JSONLogs, Output: os.Stderr, Prefix: "pyresolve"})
}

// session is one CLI invocation's view of a workspace, served by the daemon
// when it runs and by an in-process executor otherwise.
type session struct {
	router    *client.Router
	executor  *client.Executor
	workspace string
	root      string
	info      *daemon.InitializeResult
}

func openSession(cmd *cobra.Command, path string) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	executor := client.NewExecutor(cfg,
		daemon.WithServerLogger(newLogger(cfg)),
		daemon.WithWorkspaceOptions(workspace.WithStdlibSnapshot(stdlibSnapshotPath(cfg))))
	opts := []client.RouterOption{client.WithFallback(executor)}
	if noDaemon, _ := cmd.Flags().GetBool("no-daemon"); noDaemon {
		opts = append(opts, client.WithoutDaemon())
	}

	s := &session{router: client.NewRouter(opts...), executor: executor, root: root}
	opened, err := s.router.Initialize(cmd.Context(), daemon.InitializeParams{Root: root})
	if err != nil {
		executor.Close()
		return nil, fmt.Errorf("initializing workspace: %w", err)
	}
	s.workspace = opened.Workspace
	s.info = opened
	return s, nil
}

func (s *session) params() daemon.WorkspaceParams {
	return daemon.WorkspaceParams{Workspace: s.workspace}
}

func (s *session) Close() {
	s.executor.Close()
}

func stdlibSnapshotPath(cfg *config.Config) string {
	return filepath.Join(cfg.CacheRoot, "stdlib.idx")
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func pathArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
