package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"scripture-quiz-service/internal/domain"
)

// OpenBun opens a bun handle over the pg driver; callers close it.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID           int64    `bun:"id,pk"`
	Text         string   `bun:"text,notnull"`
	Options      []string `bun:"options,type:jsonb,nullzero"`
	Reference    string   `bun:"reference,notnull"`
	URL          string   `bun:"url,notnull"`
	CorrectIndex *int     `bun:"correct_index"`
	Type         string   `bun:"type,nullzero"`
}

// Seeder upserts question rows.
type Seeder struct {
	db *bun.DB
}

func NewSeeder(db *bun.DB) *Seeder {
	return &Seeder{db: db}
}

// Seed inserts or updates the given questions by id.
func (s *Seeder) Seed(ctx context.Context, questions []domain.Question) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	rows := make([]questionRow, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, questionRow{
			ID:           q.ID,
			Text:         q.Text,
			Options:      q.Options,
			Reference:    q.Reference,
			URL:          q.URL,
			CorrectIndex: q.CorrectIndex,
			Type:         string(q.Kind),
		})
	}

	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("text = EXCLUDED.text").
		Set("options = EXCLUDED.options").
		Set("reference = EXCLUDED.reference").
		Set("url = EXCLUDED.url").
		Set("correct_index = EXCLUDED.correct_index").
		Set("type = EXCLUDED.type").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed questions: %w", err)
	}
	return len(rows), nil
}
