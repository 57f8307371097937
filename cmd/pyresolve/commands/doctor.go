package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/pyresolve/internal/healthcheck"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the configuration can index and download",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		configPath, _ := cmd.Flags().GetString("config")
		result, err := healthcheck.Check(cmd.Context(), cfg, configPath)
		if err != nil {
			return err
		}
		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			return printJSON(result)
		}
		printHealth(result)
		if !result.OK() {
			return fmt.Errorf("health check failed")
		}
		return nil
	},
}

func printHealth(result *healthcheck.HealthCheckResult) {
	for _, c := range result.Components() {
		fmt.Printf("%-14s %-8s %s\n", c.Name, c.Status, c.Detail)
		if c.Error != "" {
			fmt.Printf("%-14s %s\n", "", c.Error)
		}
	}
}

func init() {
	doctorCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(doctorCmd)
}
