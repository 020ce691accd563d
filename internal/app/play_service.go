package app

import (
	"context"
	"fmt"

	"scripture-quiz-service/internal/session"
)

// SessionRepository abstracts where quiz sessions live (in-memory, Redis).
type SessionRepository interface {
	Save(ctx context.Context, s *session.Session) error
	Get(ctx context.Context, id string) (*session.Session, error)
	Delete(ctx context.Context, id string) error
}

// ActionType names a user action on a session.
type ActionType string

const (
	ActionFilter      ActionType = "filter"
	ActionCount       ActionType = "count"
	ActionConfigure   ActionType = "configure"
	ActionSelect      ActionType = "select"
	ActionDraft       ActionType = "draft"
	ActionSubmit      ActionType = "submit"
	ActionSkip        ActionType = "skip"
	ActionNext        ActionType = "next"
	ActionReconfigure ActionType = "reconfigure"
	ActionState       ActionType = "state"
)

// Action is a single user action; only the fields relevant to Type are read.
type Action struct {
	Type   ActionType         `json:"type"`
	Filter session.TypeFilter `json:"filter,omitempty"`
	Count  int                `json:"count,omitempty"`
	Index  int                `json:"index,omitempty"`
	Text   string             `json:"text,omitempty"`
}

// PlayService hosts quiz sessions for server-driven clients.
type PlayService struct {
	sessions  SessionRepository
	questions *QuestionService
}

func NewPlayService(sessions SessionRepository, questions *QuestionService) *PlayService {
	return &PlayService{sessions: sessions, questions: questions}
}

// Start creates a session over the current question bank.
func (p *PlayService) Start(ctx context.Context) (session.View, error) {
	bank, err := p.questions.ListQuestions(ctx)
	if err != nil {
		return session.View{}, err
	}
	s := session.New(bank)
	if err := p.sessions.Save(ctx, s); err != nil {
		return session.View{}, fmt.Errorf("save session: %w", err)
	}
	return s.View(), nil
}

// Resume returns the view of an existing session.
func (p *PlayService) Resume(ctx context.Context, id string) (session.View, error) {
	s, err := p.sessions.Get(ctx, id)
	if err != nil {
		return session.View{}, err
	}
	return s.View(), nil
}

// Apply performs an action and persists the session. The returned view is
// valid even when the action itself was rejected.
func (p *PlayService) Apply(ctx context.Context, id string, a Action) (session.View, error) {
	s, err := p.sessions.Get(ctx, id)
	if err != nil {
		return session.View{}, err
	}

	actionErr := p.apply(ctx, s, a)
	if a.Type != ActionState {
		if err := p.sessions.Save(ctx, s); err != nil {
			return s.View(), fmt.Errorf("save session: %w", err)
		}
	}
	return s.View(), actionErr
}

// End discards a session.
func (p *PlayService) End(ctx context.Context, id string) error {
	return p.sessions.Delete(ctx, id)
}

func (p *PlayService) apply(ctx context.Context, s *session.Session, a Action) error {
	switch a.Type {
	case ActionFilter:
		return s.ChooseFilter(a.Filter)
	case ActionCount:
		return s.ChooseCount(a.Count)
	case ActionConfigure:
		return s.Configure(session.Config{Filter: a.Filter, Count: a.Count})
	case ActionSelect:
		_, err := s.SelectOption(ctx, a.Index, p.questions)
		return err
	case ActionDraft:
		return s.SetDraft(a.Text)
	case ActionSubmit:
		if a.Text != "" {
			if err := s.SetDraft(a.Text); err != nil {
				return err
			}
		}
		_, err := s.SubmitOpenAnswer(ctx, p.questions)
		return err
	case ActionSkip:
		return s.Skip()
	case ActionNext:
		return s.Next()
	case ActionReconfigure:
		return s.Reconfigure()
	case ActionState:
		return nil
	}
	return fmt.Errorf("unsupported action %q", a.Type)
}
