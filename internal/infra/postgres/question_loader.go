package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"scripture-quiz-service/internal/domain"
)

// QuestionLoader reads the questions table. The listing query never selects
// the answer key column.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context) ([]domain.PublicQuestion, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, text, options, reference, url, type FROM questions ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	questions := []domain.PublicQuestion{}
	for rows.Next() {
		var (
			q       domain.PublicQuestion
			options []byte
			rawType *string
		)
		if err := rows.Scan(&q.ID, &q.Text, &options, &q.Reference, &q.URL, &rawType); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := decodeOptions(options, &q); err != nil {
			return nil, err
		}
		q.Kind = domain.KindOf(deref(rawType), q.Options)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return questions, nil
}

func (l *QuestionLoader) LoadQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var (
		q            domain.Question
		options      []byte
		rawType      *string
		correctIndex *int32
	)
	err := l.pool.QueryRow(ctx,
		`SELECT id, text, options, reference, url, correct_index, type FROM questions WHERE id=$1`, id,
	).Scan(&q.ID, &q.Text, &options, &q.Reference, &q.URL, &correctIndex, &rawType)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, fmt.Errorf("load question %d: %w", id, domain.ErrQuestionNotFound)
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question %d: %w", id, err)
	}
	if err := decodeOptions(options, &q.PublicQuestion); err != nil {
		return domain.Question{}, err
	}
	q.Kind = domain.KindOf(deref(rawType), q.Options)
	if correctIndex != nil {
		idx := int(*correctIndex)
		q.CorrectIndex = &idx
	}
	return q, nil
}

func decodeOptions(raw []byte, q *domain.PublicQuestion) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &q.Options); err != nil {
		return fmt.Errorf("unmarshal options of question %d: %w", q.ID, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
