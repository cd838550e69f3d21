package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutu-network/jeevibe-iidp/internal/api"
	"github.com/tutu-network/jeevibe-iidp/internal/engine"
	"github.com/tutu-network/jeevibe-iidp/internal/infra/clock"
	"github.com/tutu-network/jeevibe-iidp/internal/infra/rng"
	"github.com/tutu-network/jeevibe-iidp/internal/infra/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the IIDP HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := store.Open(cfg.Store.SQLitePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	repo := store.NewSQLiteRepository(db)
	e := engine.New(repo, clock.System{}, rng.NewSystem(cfg.Engine.RandomSeed), logger)

	srv := api.NewServer(e, repo)
	if cfg.Metrics.Enabled {
		srv.EnableMetrics()
	}

	addr := cfg.Server.Host + ":" + strconv.Itoa(cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logger.Info("starting iidpd", "addr", addr, "store", cfg.Store.SQLitePath)
	return httpServer.ListenAndServe()
}
