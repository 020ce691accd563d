package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"scripture-quiz-service/internal/bank"
	"scripture-quiz-service/internal/config"
	"scripture-quiz-service/internal/infra/memory"
	"scripture-quiz-service/internal/infra/postgres"
	"scripture-quiz-service/internal/infra/sqlite"
)

var errNoQuestionStore = errors.New("no question store configured: set postgres.url, sqlite.path or questions.bank_file")

// openQuestionLoader picks the question store: Postgres, then SQLite, then the
// YAML bank file served from memory. The returned func releases it.
func openQuestionLoader(ctx context.Context, cfg config.Config, logger *slog.Logger) (memory.QuestionLoader, func(), error) {
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("question store", "kind", "postgres")
		return postgres.NewQuestionLoader(pool), pool.Close, nil

	case cfg.SQLite.Path != "":
		db, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("question store", "kind", "sqlite", "path", cfg.SQLite.Path)
		return sqlite.NewStore(db), func() { db.Close() }, nil

	case cfg.Questions.BankFile != "":
		questions, err := bank.LoadFile(cfg.Questions.BankFile)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("question store", "kind", "file", "path", cfg.Questions.BankFile, "questions", len(questions))
		return memory.NewStaticQuestionLoader(questions), func() {}, nil
	}
	return nil, nil, errNoQuestionStore
}

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
