package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutu-network/jeevibe-iidp/internal/infra/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations to the SQLite store",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Store.SQLitePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "migrations applied to %s\n", cfg.Store.SQLitePath)
	return nil
}
