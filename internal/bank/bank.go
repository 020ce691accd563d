// Package bank reads question banks from YAML seed files.
package bank

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"scripture-quiz-service/internal/domain"
)

type entry struct {
	ID           int64    `yaml:"id"`
	Text         string   `yaml:"text"`
	Options      []string `yaml:"options"`
	Reference    string   `yaml:"reference"`
	URL          string   `yaml:"url"`
	CorrectIndex *int     `yaml:"correct_index"`
	Type         string   `yaml:"type"`
}

type file struct {
	Questions []entry `yaml:"questions"`
}

// LoadFile reads and validates a YAML question bank.
func LoadFile(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}
	return Parse(data)
}

// Parse decodes a question bank document:
//
//	questions:
//	  - id: 1
//	    text: ...
//	    options: [...]
//	    correct_index: 0
//	    reference: Jueces 3:15
//	    url: https://...
func Parse(data []byte) ([]domain.Question, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}

	seen := make(map[int64]struct{}, len(f.Questions))
	out := make([]domain.Question, 0, len(f.Questions))
	var errs []error
	for i, e := range f.Questions {
		q, err := e.question()
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		if _, dup := seen[q.ID]; dup {
			errs = append(errs, fmt.Errorf("entry %d: duplicate id %d", i, q.ID))
			continue
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (e entry) question() (domain.Question, error) {
	if e.ID <= 0 {
		return domain.Question{}, fmt.Errorf("id must be positive, got %d", e.ID)
	}
	text := strings.TrimSpace(e.Text)
	if text == "" {
		return domain.Question{}, fmt.Errorf("question %d has no text", e.ID)
	}

	kind := domain.KindOf(e.Type, e.Options)
	q := domain.Question{
		PublicQuestion: domain.PublicQuestion{
			ID:        e.ID,
			Kind:      kind,
			Text:      text,
			Reference: strings.TrimSpace(e.Reference),
			URL:       strings.TrimSpace(e.URL),
		},
	}

	switch kind {
	case domain.KindMultipleChoice:
		if len(e.Options) < 2 {
			return domain.Question{}, fmt.Errorf("question %d needs at least two options", e.ID)
		}
		if e.CorrectIndex == nil || *e.CorrectIndex < 0 || *e.CorrectIndex >= len(e.Options) {
			return domain.Question{}, fmt.Errorf("question %d: correct_index out of range", e.ID)
		}
		q.Options = e.Options
		q.CorrectIndex = e.CorrectIndex
	case domain.KindOpenAnswer:
		if len(e.Options) > 0 || e.CorrectIndex != nil {
			return domain.Question{}, fmt.Errorf("open-answer question %d must not have options or a key", e.ID)
		}
	}
	return q, nil
}
