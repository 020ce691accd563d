package session

import (
	"fmt"
	"time"

	"scripture-quiz-service/internal/domain"
)

// Snapshot is the serializable form of a session used by session stores.
type Snapshot struct {
	ID        string                  `json:"id"`
	Bank      []domain.PublicQuestion `json:"bank"`
	Phase     Phase                   `json:"phase"`
	Filter    TypeFilter              `json:"filter,omitempty"`
	Config    Config                  `json:"config"`
	Questions []domain.PublicQuestion `json:"questions,omitempty"`
	Index     int                     `json:"index"`
	Total     int                     `json:"total,omitempty"`
	Attempt   Attempt                 `json:"attempt"`
	Results   []ResultEntry           `json:"results,omitempty"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// Snapshot captures the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:        s.id,
		Bank:      append([]domain.PublicQuestion(nil), s.bank...),
		Phase:     s.state.phase(),
		Results:   append([]ResultEntry(nil), s.results...),
		UpdatedAt: s.updatedAt,
	}
	switch st := s.state.(type) {
	case *configuring:
		snap.Filter = st.filter
	case *inProgress:
		snap.Config = st.config
		snap.Questions = append([]domain.PublicQuestion(nil), st.questions...)
		snap.Index = st.index
		snap.Attempt = st.attempt
	case *complete:
		snap.Config = st.config
		snap.Total = st.total
	case *noQuestions:
		snap.Config = st.config
	}
	return snap
}

// Restore rebuilds a session from a snapshot. An in-flight grading request
// does not survive a restore.
func Restore(snap Snapshot, opts ...Option) (*Session, error) {
	s := New(snap.Bank, append([]Option{WithID(snap.ID)}, opts...)...)
	s.results = append([]ResultEntry(nil), snap.Results...)
	if !snap.UpdatedAt.IsZero() {
		s.updatedAt = snap.UpdatedAt
	}

	switch snap.Phase {
	case PhaseConfiguring:
		s.state = &configuring{filter: snap.Filter}
	case PhaseInProgress:
		if snap.Index < 0 || snap.Index >= len(snap.Questions) {
			return nil, fmt.Errorf("restore session %s: index %d out of range", snap.ID, snap.Index)
		}
		attempt := snap.Attempt
		attempt.Verifying = false
		s.state = &inProgress{
			config:    snap.Config,
			questions: append([]domain.PublicQuestion(nil), snap.Questions...),
			index:     snap.Index,
			attempt:   attempt,
		}
	case PhaseComplete:
		s.state = &complete{config: snap.Config, total: snap.Total}
	case PhaseNoQuestions:
		s.state = &noQuestions{config: snap.Config}
	default:
		return nil, fmt.Errorf("restore session %s: unknown phase %q", snap.ID, snap.Phase)
	}
	return s, nil
}
