package bank

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scripture-quiz-service/internal/domain"
)

const sample = `
questions:
  - id: 1
    text: "¿Qué juez era zurdo?"
    options: ["Otoniel", "Aod", "Samgar"]
    correct_index: 1
    reference: "Jueces 3:15"
    url: "https://example.org/jueces/3"
  - id: 2
    text: "¿Cómo se llamaba la suegra de Rut?"
    reference: "Rut 1:4"
    url: "https://example.org/rut/1"
`

func TestParse(t *testing.T) {
	questions, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	mc := questions[0]
	if mc.Kind != domain.KindMultipleChoice || mc.CorrectIndex == nil || *mc.CorrectIndex != 1 {
		t.Fatalf("unexpected multiple-choice entry: %+v", mc)
	}
	open := questions[1]
	if open.Kind != domain.KindOpenAnswer || open.CorrectIndex != nil {
		t.Fatalf("unexpected open entry: %+v", open)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"missing key": `
questions:
  - id: 1
    text: q
    options: [a, b]
`,
		"key out of range": `
questions:
  - id: 1
    text: q
    options: [a, b]
    correct_index: 2
`,
		"duplicate id": `
questions:
  - id: 1
    text: q
  - id: 1
    text: r
`,
		"open with key": `
questions:
  - id: 1
    text: q
    type: open
    correct_index: 0
`,
		"no text": `
questions:
  - id: 3
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	questions, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read question bank") {
		t.Fatalf("expected read error, got %v", err)
	}
}
