package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/l3aro/pyresolve/internal/config"
	"github.com/l3aro/pyresolve/internal/healthcheck"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a pyresolve configuration interactively",
	Long: `Guides you through the standard library location, the dependency
cache and how dependencies are downloaded, then saves a config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit(cmd.Context())
	},
}

func runInit(ctx context.Context) error {
	cfg := config.DefaultConfig()

	// === SECTION 1: Standard library ===
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Standard library directory").
				Description("Root of the Python installation whose stdlib is indexed").
				Placeholder(cfg.PythonPath).
				Validate(dirExists).
				Value(&cfg.PythonPath),
			huh.NewInput().
				Title("Standard library repository").
				Description("Workspaces opened from this repository are the stdlib itself").
				Placeholder(cfg.StdlibRepoURL).
				Value(&cfg.StdlibRepoURL),
		),
	).Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 2: Dependencies ===
	timeout := cfg.FetchTimeout.String()
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Dependency cache root").
				Description("Each workspace gets its own directory below this one").
				Placeholder(cfg.CacheRoot).
				Value(&cfg.CacheRoot),
			huh.NewSelect[string]().
				Title("Download tool").
				Options(
					huh.NewOption("pip3", "pip3"),
					huh.NewOption("pip", "pip"),
				).
				Value(&cfg.FetchTool),
			huh.NewInput().
				Title("Package index URL (optional, press Enter for the default)").
				Placeholder("https://pypi.org/simple").
				Value(&cfg.IndexURL),
			huh.NewInput().
				Title("Download timeout").
				Placeholder(timeout).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}).
				Value(&timeout),
		),
	).Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return fmt.Errorf("parsing timeout: %w", err)
	}
	cfg.FetchTimeout = d
	cfg.IndexURL = strings.TrimSpace(cfg.IndexURL)

	// === SECTION 3: Scope ===
	var scope string
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Watch project files").
				Description("Drop cached sources when they change on disk").
				Value(&cfg.Watch),
			huh.NewSelect[string]().
				Title("Where should the configuration be saved?").
				Options(
					huh.NewOption("Global (~/.pyresolve/config.yaml)", "global"),
					huh.NewOption("Project (./.pyresolve/config.yaml)", "project"),
				).
				Value(&scope),
		),
	).Run(); err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	configPath := config.GlobalConfigFilePath()
	if scope == "project" {
		configPath = config.ProjectConfigFilePath()
	}

	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		if err := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		).Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Python path: %s\n", cfg.PythonPath)
	fmt.Printf("Stdlib repository: %s\n", cfg.StdlibRepoURL)
	fmt.Printf("Cache root: %s\n", cfg.CacheRoot)
	fmt.Printf("Download tool: %s\n", cfg.FetchTool)
	if cfg.IndexURL != "" {
		fmt.Printf("Index URL: %s\n", cfg.IndexURL)
	}
	fmt.Printf("Download timeout: %s\n", cfg.FetchTimeout)
	fmt.Printf("Watch: %t\n", cfg.Watch)
	fmt.Println("================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", configPath)

	// === SECTION 4: Health Check ===
	fmt.Println("\n=== Running Health Check ===")
	result, err := healthcheck.Check(ctx, cfg, configPath)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	fmt.Printf("Config Scope: %s\n", result.SavedScope)
	printHealth(result)

	fmt.Println("\n=== Initialization Complete ===")
	return nil
}

func dirExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

func init() {
	RootCmd.AddCommand(initCmd)
}
