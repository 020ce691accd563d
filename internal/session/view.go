package session

import "scripture-quiz-service/internal/domain"

// View is a render-ready picture of a session.
type View struct {
	SessionID      string                 `json:"sessionId"`
	Phase          Phase                  `json:"phase"`
	Filter         TypeFilter             `json:"filter,omitempty"`
	Config         *Config                `json:"config,omitempty"`
	Available      map[TypeFilter]int     `json:"available,omitempty"`
	Question       *domain.PublicQuestion `json:"question,omitempty"`
	Position       int                    `json:"position,omitempty"`
	Total          int                    `json:"total,omitempty"`
	Attempt        *Attempt               `json:"attempt,omitempty"`
	CanSkip        bool                   `json:"canSkip"`
	CanAdvance     bool                   `json:"canAdvance"`
	Results        []ResultEntry          `json:"results"`
	CorrectCount   int                    `json:"correctCount"`
	IncorrectCount int                    `json:"incorrectCount"`
	Mastery        Mastery                `json:"mastery"`
}

// View renders the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID: s.id,
		Phase:     s.state.phase(),
		Results:   append([]ResultEntry{}, s.results...),
		Mastery:   Aggregate(s.results),
	}
	v.CorrectCount, v.IncorrectCount = scoreOf(s.results)

	switch st := s.state.(type) {
	case *configuring:
		v.Filter = st.filter
		v.Available = s.availableLocked()
	case *inProgress:
		cfg := st.config
		q := st.current()
		attempt := st.attempt
		v.Config = &cfg
		v.Question = &q
		v.Position = st.index + 1
		v.Total = len(st.questions)
		v.Attempt = &attempt
		v.CanSkip = q.Kind == domain.KindOpenAnswer && attempt.Verdict == nil && !attempt.Verifying
		v.CanAdvance = attempt.Verdict != nil
	case *complete:
		cfg := st.config
		v.Config = &cfg
		v.Position = st.total
		v.Total = st.total
	case *noQuestions:
		cfg := st.config
		v.Config = &cfg
	}
	return v
}

func (s *Session) availableLocked() map[TypeFilter]int {
	counts := map[TypeFilter]int{
		FilterMultipleChoice: 0,
		FilterOpenAnswer:     0,
		FilterBoth:           len(s.bank),
	}
	for _, q := range s.bank {
		if q.Kind == domain.KindOpenAnswer {
			counts[FilterOpenAnswer]++
		} else {
			counts[FilterMultipleChoice]++
		}
	}
	return counts
}
