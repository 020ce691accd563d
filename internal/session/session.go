// Package session holds the quiz session state machine: configuration,
// sequential navigation with skip-and-requeue, grading triggers and the
// results log a session aggregates into chapter mastery.
package session

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scripture-quiz-service/internal/domain"
)

// Phase names the variant the session is in.
type Phase string

const (
	PhaseConfiguring Phase = "configuring"
	PhaseInProgress  Phase = "in_progress"
	PhaseComplete    Phase = "complete"
	PhaseNoQuestions Phase = "no_questions"
)

// TypeFilter selects which question variants enter the working set.
type TypeFilter string

const (
	FilterMultipleChoice TypeFilter = "multiple"
	FilterOpenAnswer     TypeFilter = "open"
	FilterBoth           TypeFilter = "both"
)

// Valid reports whether f is one of the known filters.
func (f TypeFilter) Valid() bool {
	switch f {
	case FilterMultipleChoice, FilterOpenAnswer, FilterBoth:
		return true
	}
	return false
}

func (f TypeFilter) admits(k domain.Kind) bool {
	switch f {
	case FilterMultipleChoice:
		return k == domain.KindMultipleChoice
	case FilterOpenAnswer:
		return k == domain.KindOpenAnswer
	}
	return true
}

// CountAll takes every question that passes the filter.
const CountAll = 0

// CountOptions are the fixed session sizes offered besides CountAll.
var CountOptions = []int{5, 10, 15, 20}

func validCount(n int) bool {
	if n == CountAll {
		return true
	}
	for _, c := range CountOptions {
		if c == n {
			return true
		}
	}
	return false
}

// Config is the finalized quiz configuration.
type Config struct {
	Filter TypeFilter `json:"filter"`
	Count  int        `json:"count"`
}

// Verifier grades answers on behalf of a session.
type Verifier interface {
	VerifyChoice(ctx context.Context, questionID int64, selected int) (domain.ChoiceVerdict, error)
	VerifyOpenAnswer(ctx context.Context, sub domain.OpenAnswerSubmission) (domain.OpenAnswerVerdict, error)
}

// Verdict is the graded outcome of the question on screen.
type Verdict struct {
	Correct      bool   `json:"correct"`
	CorrectIndex *int   `json:"correctIndex,omitempty"`
	Explanation  string `json:"explanation,omitempty"`
}

// Attempt is the transient per-question state; it is cleared on Next and Skip.
type Attempt struct {
	Selected  *int     `json:"selected,omitempty"`
	Draft     string   `json:"draft,omitempty"`
	Verifying bool     `json:"verifying"`
	Verdict   *Verdict `json:"verdict,omitempty"`
}

// ResultEntry is one graded answer in the results log.
type ResultEntry struct {
	QuestionID int64  `json:"questionId"`
	Reference  string `json:"reference"`
	Correct    bool   `json:"correct"`
}

type state interface {
	phase() Phase
}

type configuring struct {
	filter TypeFilter // empty until chosen
}

type inProgress struct {
	config    Config
	questions []domain.PublicQuestion
	index     int
	attempt   Attempt
}

type complete struct {
	config Config
	total  int
}

type noQuestions struct {
	config Config
}

func (*configuring) phase() Phase { return PhaseConfiguring }
func (*inProgress) phase() Phase  { return PhaseInProgress }
func (*complete) phase() Phase    { return PhaseComplete }
func (*noQuestions) phase() Phase { return PhaseNoQuestions }

func (s *inProgress) current() domain.PublicQuestion {
	return s.questions[s.index]
}

// Session is a single user's quiz run.
type Session struct {
	id  string
	rnd *rand.Rand

	mu        sync.Mutex
	bank      []domain.PublicQuestion
	state     state
	results   []ResultEntry
	updatedAt time.Time
}

// Option customizes a Session.
type Option func(*Session)

// WithID sets the session id instead of generating one.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithRand sets the random source used for shuffling; tests pass a seeded one.
func WithRand(rnd *rand.Rand) Option {
	return func(s *Session) { s.rnd = rnd }
}

// New creates a session in the configuring phase over the full question bank.
func New(bank []domain.PublicQuestion, opts ...Option) *Session {
	s := &Session{
		bank:      append([]domain.PublicQuestion(nil), bank...),
		state:     &configuring{},
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.phase()
}

// ChooseFilter records the question type filter.
func (s *Session) ChooseFilter(f TypeFilter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state.(*configuring)
	if !ok {
		return domain.ErrInvalidTransition
	}
	if !f.Valid() {
		return domain.ErrInvalidFilter
	}
	st.filter = f
	s.touch()
	return nil
}

// ChooseCount finalizes the configuration: the bank is filtered, shuffled and
// sliced into the working set.
func (s *Session) ChooseCount(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state.(*configuring)
	if !ok {
		return domain.ErrInvalidTransition
	}
	if st.filter == "" {
		return domain.ErrFilterNotChosen
	}
	if !validCount(n) {
		return domain.ErrInvalidCount
	}
	s.start(Config{Filter: st.filter, Count: n})
	return nil
}

// Configure chooses filter and count in one step.
func (s *Session) Configure(cfg Config) error {
	if err := s.ChooseFilter(cfg.Filter); err != nil {
		return err
	}
	return s.ChooseCount(cfg.Count)
}

func (s *Session) start(cfg Config) {
	subset := make([]domain.PublicQuestion, 0, len(s.bank))
	for _, q := range s.bank {
		if cfg.Filter.admits(q.Kind) {
			subset = append(subset, q)
		}
	}
	subset = Shuffle(subset, s.rnd)
	if cfg.Count > 0 && cfg.Count < len(subset) {
		subset = subset[:cfg.Count]
	}

	s.results = nil
	if len(subset) == 0 {
		s.state = &noQuestions{config: cfg}
	} else {
		s.state = &inProgress{config: cfg, questions: subset}
	}
	s.touch()
}

// Current returns the question on screen.
func (s *Session) Current() (domain.PublicQuestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state.(*inProgress)
	if !ok {
		return domain.PublicQuestion{}, false
	}
	return st.current(), true
}

// SelectOption picks an option of the current multiple-choice question and
// grades it immediately.
func (s *Session) SelectOption(ctx context.Context, index int, v Verifier) (Verdict, error) {
	s.mu.Lock()
	st, err := s.gradableLocked(domain.KindMultipleChoice)
	if err != nil {
		s.mu.Unlock()
		return Verdict{}, err
	}
	q := st.current()
	if index < 0 || index >= len(q.Options) {
		s.mu.Unlock()
		return Verdict{}, domain.ErrOptionOutOfRange
	}
	st.attempt.Selected = &index
	st.attempt.Verifying = true
	s.mu.Unlock()

	res, err := v.VerifyChoice(ctx, q.ID, index)

	s.mu.Lock()
	defer s.mu.Unlock()
	st.attempt.Verifying = false
	if err != nil {
		st.attempt.Selected = nil
		return Verdict{}, err
	}
	correctIndex := res.CorrectIndex
	verdict := Verdict{Correct: res.Correct, CorrectIndex: &correctIndex}
	s.recordLocked(st, q, verdict)
	return verdict, nil
}

// SetDraft stores the free-text answer being typed for an open-answer question.
func (s *Session) SetDraft(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.gradableLocked(domain.KindOpenAnswer)
	if err != nil {
		return err
	}
	st.attempt.Draft = text
	s.touch()
	return nil
}

// SubmitOpenAnswer sends the current draft for grading.
func (s *Session) SubmitOpenAnswer(ctx context.Context, v Verifier) (Verdict, error) {
	s.mu.Lock()
	st, err := s.gradableLocked(domain.KindOpenAnswer)
	if err != nil {
		s.mu.Unlock()
		return Verdict{}, err
	}
	if strings.TrimSpace(st.attempt.Draft) == "" {
		s.mu.Unlock()
		return Verdict{}, domain.ErrEmptyAnswer
	}
	q := st.current()
	sub := domain.OpenAnswerSubmission{
		QuestionID: q.ID,
		UserAnswer: st.attempt.Draft,
		Reference:  q.Reference,
	}
	st.attempt.Verifying = true
	s.mu.Unlock()

	res, err := v.VerifyOpenAnswer(ctx, sub)

	s.mu.Lock()
	defer s.mu.Unlock()
	st.attempt.Verifying = false
	if err != nil {
		return Verdict{}, err
	}
	verdict := Verdict{Correct: res.IsCorrect, Explanation: res.Explanation}
	s.recordLocked(st, q, verdict)
	return verdict, nil
}

// gradableLocked returns the in-progress state when the current question is of
// kind k and may still be graded.
func (s *Session) gradableLocked(k domain.Kind) (*inProgress, error) {
	st, ok := s.state.(*inProgress)
	if !ok {
		return nil, domain.ErrInvalidTransition
	}
	if st.current().Kind != k {
		return nil, domain.ErrWrongKind
	}
	if st.attempt.Verifying {
		return nil, domain.ErrVerifying
	}
	if st.attempt.Verdict != nil {
		return nil, domain.ErrAlreadyGraded
	}
	return st, nil
}

func (s *Session) recordLocked(st *inProgress, q domain.PublicQuestion, v Verdict) {
	st.attempt.Verdict = &v
	s.results = append(s.results, ResultEntry{
		QuestionID: q.ID,
		Reference:  q.Reference,
		Correct:    v.Correct,
	})
	s.touch()
}

// Skip moves the current open-answer question to the end of the working set.
// The position does not advance, so the next question slides into view.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.gradableLocked(domain.KindOpenAnswer)
	if err != nil {
		return err
	}
	q := st.current()
	requeued := make([]domain.PublicQuestion, 0, len(st.questions))
	requeued = append(requeued, st.questions[:st.index]...)
	requeued = append(requeued, st.questions[st.index+1:]...)
	requeued = append(requeued, q)
	st.questions = requeued
	st.attempt = Attempt{}
	s.touch()
	return nil
}

// Next advances past a graded question; past the last one the session completes.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state.(*inProgress)
	if !ok {
		return domain.ErrInvalidTransition
	}
	if st.attempt.Verifying {
		return domain.ErrVerifying
	}
	if st.attempt.Verdict == nil {
		return domain.ErrNotGraded
	}
	st.index++
	st.attempt = Attempt{}
	if st.index >= len(st.questions) {
		s.state = &complete{config: st.config, total: len(st.questions)}
	}
	s.touch()
	return nil
}

// Reconfigure discards the working set and results and returns to configuring.
func (s *Session) Reconfigure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.state.(*inProgress); ok && st.attempt.Verifying {
		return domain.ErrVerifying
	}
	s.state = &configuring{}
	s.results = nil
	s.touch()
	return nil
}

// Results returns a copy of the results log.
func (s *Session) Results() []ResultEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ResultEntry(nil), s.results...)
}

// Score returns the correct and incorrect totals.
func (s *Session) Score() (correct, incorrect int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scoreOf(s.results)
}

// Mastery aggregates the results log by chapter.
func (s *Session) Mastery() Mastery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Aggregate(s.results)
}

// UpdatedAt reports when the session last changed.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}

func scoreOf(results []ResultEntry) (correct, incorrect int) {
	for _, r := range results {
		if r.Correct {
			correct++
		} else {
			incorrect++
		}
	}
	return correct, incorrect
}
