package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"scripture-quiz-service/internal/bank"
	"scripture-quiz-service/internal/config"
	"scripture-quiz-service/internal/domain"
	"scripture-quiz-service/internal/infra/postgres"
	redisinfra "scripture-quiz-service/internal/infra/redis"
	"scripture-quiz-service/internal/infra/sqlite"
)

// NewSeedCmd loads a YAML question bank into the configured database.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML question bank into Postgres or SQLite",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.Questions.BankFile
			}
			if file == "" {
				return fmt.Errorf("no question bank file: pass --file or set questions.bank_file")
			}
			return runSeed(cmd.Context(), cfg, file, newLogger())
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML question bank (defaults to questions.bank_file)")
	return cmd
}

func runSeed(ctx context.Context, cfg config.Config, file string, logger *slog.Logger) error {
	questions, err := bank.LoadFile(file)
	if err != nil {
		return err
	}

	var n int
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
		db := postgres.OpenBun(cfg.Postgres.URL)
		defer db.Close()
		n, err = postgres.NewSeeder(db).Seed(ctx, questions)
	case cfg.SQLite.Path != "":
		n, err = seedSQLite(ctx, cfg.SQLite.Path, questions)
	default:
		return fmt.Errorf("seed needs postgres.url or sqlite.path")
	}
	if err != nil {
		return err
	}
	logger.Info("questions seeded", "file", file, "count", n)

	// cached listings would otherwise hide the new rows until they expire
	if client := newRedisClient(cfg); client != nil {
		defer client.Close()
		repo := redisinfra.NewQuestionRepository(client, nil, config.TTLDuration(cfg.Questions.TTL, 10*time.Minute))
		if err := repo.Invalidate(ctx); err != nil {
			logger.Warn("could not invalidate question cache", "error", err)
		}
	}
	return nil
}

func seedSQLite(ctx context.Context, path string, questions []domain.Question) (int, error) {
	db, err := sqlite.Open(ctx, path)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	return sqlite.NewStore(db).Seed(ctx, questions)
}
