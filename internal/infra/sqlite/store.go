package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // driver: sqlite

	"scripture-quiz-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS questions (
  id            INTEGER PRIMARY KEY,
  text          TEXT NOT NULL,
  options       TEXT,
  reference     TEXT NOT NULL DEFAULT '',
  url           TEXT NOT NULL DEFAULT '',
  correct_index INTEGER,
  type          TEXT
);
`

// Open opens (or creates) the database file and ensures the schema exists.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	dsn := "file:" + path + "?mode=rwc&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// Store reads and seeds the questions table of a SQLite database.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) LoadQuestions(ctx context.Context) ([]domain.PublicQuestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, options, reference, url, type
		FROM questions
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var out []domain.PublicQuestion
	for rows.Next() {
		var (
			q       domain.PublicQuestion
			options sql.NullString
			kind    sql.NullString
		)
		if err := rows.Scan(&q.ID, &q.Text, &options, &q.Reference, &q.URL, &kind); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if q.Options, err = decodeOptions(options); err != nil {
			return nil, fmt.Errorf("question %d: %w", q.ID, err)
		}
		q.Kind = domain.KindOf(kind.String, q.Options)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) LoadQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var (
		q       domain.Question
		options sql.NullString
		kind    sql.NullString
		key     sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, text, options, reference, url, correct_index, type
		FROM questions
		WHERE id = ?`, id).
		Scan(&q.ID, &q.Text, &options, &q.Reference, &q.URL, &key, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, fmt.Errorf("question %d: %w", id, domain.ErrQuestionNotFound)
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question %d: %w", id, err)
	}

	if q.Options, err = decodeOptions(options); err != nil {
		return domain.Question{}, fmt.Errorf("question %d: %w", id, err)
	}
	q.Kind = domain.KindOf(kind.String, q.Options)
	if key.Valid {
		idx := int(key.Int64)
		q.CorrectIndex = &idx
	}
	return q, nil
}

// Seed upserts the questions in a single transaction.
func (s *Store) Seed(ctx context.Context, questions []domain.Question) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (id, text, options, reference, url, correct_index, type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  text = excluded.text,
		  options = excluded.options,
		  reference = excluded.reference,
		  url = excluded.url,
		  correct_index = excluded.correct_index,
		  type = excluded.type`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, q := range questions {
		var options sql.NullString
		if len(q.Options) > 0 {
			b, err := json.Marshal(q.Options)
			if err != nil {
				return 0, err
			}
			options = sql.NullString{String: string(b), Valid: true}
		}
		var key sql.NullInt64
		if q.CorrectIndex != nil {
			key = sql.NullInt64{Int64: int64(*q.CorrectIndex), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, q.ID, q.Text, options, q.Reference, q.URL, key, string(q.Kind)); err != nil {
			return 0, fmt.Errorf("insert question %d: %w", q.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(questions), nil
}

func decodeOptions(raw sql.NullString) ([]string, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var options []string
	if err := json.Unmarshal([]byte(raw.String), &options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	return options, nil
}
