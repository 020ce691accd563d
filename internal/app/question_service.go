package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"scripture-quiz-service/internal/domain"
)

// DefaultMaxAnswerLength is the open-answer ceiling in characters.
const DefaultMaxAnswerLength = 700

// QuestionRepository is the read-only question store (cached or direct).
type QuestionRepository interface {
	// ListQuestions returns public fields only, ordered by id ascending.
	ListQuestions(ctx context.Context) ([]domain.PublicQuestion, error)
	// GetQuestion returns a question with its answer key.
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
}

// Grader judges free-text answers.
type Grader interface {
	Grade(ctx context.Context, req domain.GradeRequest) (domain.Judgement, error)
}

// QuestionService contains the listing and grading use cases.
type QuestionService struct {
	questions       QuestionRepository
	grader          Grader
	logger          *slog.Logger
	maxAnswerLength int
}

// Option configures a QuestionService.
type Option func(*QuestionService)

// WithMaxAnswerLength overrides DefaultMaxAnswerLength.
func WithMaxAnswerLength(n int) Option {
	return func(s *QuestionService) {
		if n > 0 {
			s.maxAnswerLength = n
		}
	}
}

func NewQuestionService(questions QuestionRepository, grader Grader, logger *slog.Logger, opts ...Option) *QuestionService {
	s := &QuestionService{
		questions:       questions,
		grader:          grader,
		logger:          logger,
		maxAnswerLength: DefaultMaxAnswerLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxAnswerLength reports the configured open-answer ceiling.
func (s *QuestionService) MaxAnswerLength() int {
	return s.maxAnswerLength
}

// ListQuestions returns the public question bank.
func (s *QuestionService) ListQuestions(ctx context.Context) ([]domain.PublicQuestion, error) {
	return s.questions.ListQuestions(ctx)
}

// VerifyChoice compares the selected option index with the stored answer key.
func (s *QuestionService) VerifyChoice(ctx context.Context, questionID int64, selected int) (domain.ChoiceVerdict, error) {
	q, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.ChoiceVerdict{}, err
	}
	if q.CorrectIndex == nil {
		return domain.ChoiceVerdict{}, domain.ErrNoAnswerKey
	}
	return domain.ChoiceVerdict{
		QuestionID:    questionID,
		SelectedIndex: selected,
		Correct:       selected == *q.CorrectIndex,
		CorrectIndex:  *q.CorrectIndex,
	}, nil
}

// VerifyOpenAnswer validates the answer, loads the question and delegates the
// judgement to the grader. Validation happens before any I/O.
func (s *QuestionService) VerifyOpenAnswer(ctx context.Context, sub domain.OpenAnswerSubmission) (domain.OpenAnswerVerdict, error) {
	if strings.TrimSpace(sub.UserAnswer) == "" {
		return domain.OpenAnswerVerdict{}, domain.ErrEmptyAnswer
	}
	if utf8.RuneCountInString(sub.UserAnswer) > s.maxAnswerLength {
		return domain.OpenAnswerVerdict{}, domain.ErrAnswerTooLong
	}

	q, err := s.questions.GetQuestion(ctx, sub.QuestionID)
	if err != nil {
		return domain.OpenAnswerVerdict{}, err
	}
	reference := sub.Reference
	if reference == "" {
		reference = q.Reference
	}

	judgement, err := s.grader.Grade(ctx, domain.GradeRequest{
		QuestionText: q.Text,
		Reference:    reference,
		UserAnswer:   sub.UserAnswer,
	})
	if err != nil {
		s.logger.Error("open answer grading failed", "question_id", sub.QuestionID, "error", err)
		return domain.OpenAnswerVerdict{}, fmt.Errorf("%w: %w", domain.ErrGradingFailed, err)
	}

	s.logger.Info("open answer graded",
		"question_id", sub.QuestionID,
		"model", judgement.Model,
		"correct", judgement.IsCorrect,
	)
	return domain.OpenAnswerVerdict{
		Model:        judgement.Model,
		QuestionID:   sub.QuestionID,
		QuestionText: q.Text,
		Reference:    reference,
		IsCorrect:    judgement.IsCorrect,
		Explanation:  judgement.Explanation,
		UserAnswer:   sub.UserAnswer,
	}, nil
}
