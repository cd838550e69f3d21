package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutu-network/jeevibe-iidp/internal/engine"
	"github.com/tutu-network/jeevibe-iidp/internal/infra/clock"
	"github.com/tutu-network/jeevibe-iidp/internal/infra/rng"
	"github.com/tutu-network/jeevibe-iidp/internal/infra/store"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Inspect and generate quizzes against the store",
}

var quizGenerateCmd = &cobra.Command{
	Use:   "generate LEARNER_ID",
	Short: "Generate the next quiz for a learner and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuizGenerate,
}

func init() {
	quizCmd.AddCommand(quizGenerateCmd)
}

func runQuizGenerate(cmd *cobra.Command, args []string) error {
	learnerID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Store.SQLitePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	repo := store.NewSQLiteRepository(db)
	e := engine.New(repo, clock.System{}, rng.NewSystem(cfg.Engine.RandomSeed), nil)

	quiz, err := e.GenerateQuiz(cmd.Context(), learnerID)
	if err != nil {
		return fmt.Errorf("generate quiz: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(quiz)
}
