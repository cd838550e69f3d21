// Package cli provides the iidpd command-line interface: serve, migrate,
// and quiz subcommands built on cobra.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/tutu-network/jeevibe-iidp/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "iidpd",
	Short: "Individualized item-delivery daemon",
	Long: `iidpd serves adaptive assessment quizzes for JEE-style learners:
placement assessment intake, per-response ability tracking, and
IRT-driven quiz generation with circuit-breaker recovery.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a TOML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(quizCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}
