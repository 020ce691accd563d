package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scripture-quiz-service/internal/app"
	"scripture-quiz-service/internal/client"
	"scripture-quiz-service/internal/domain"
	"scripture-quiz-service/internal/infra/memory"
	transport "scripture-quiz-service/internal/transport/http"
)

type fixedGrader struct{}

func (fixedGrader) Grade(_ context.Context, req domain.GradeRequest) (domain.Judgement, error) {
	return domain.Judgement{IsCorrect: req.UserAnswer == "Noemí", Explanation: "Era Noemí.", Model: "fixed"}, nil
}

func playBank() []domain.Question {
	zero := 0
	var out []domain.Question
	for i := 1; i <= 6; i++ {
		out = append(out, domain.Question{
			PublicQuestion: domain.PublicQuestion{
				ID:        int64(i),
				Kind:      domain.KindMultipleChoice,
				Text:      "¿Pregunta de Jueces?",
				Options:   []string{"correcta", "incorrecta"},
				Reference: "Jueces 6:11",
				URL:       "https://example.org/jueces/6",
			},
			CorrectIndex: &zero,
		})
	}
	out = append(out,
		domain.Question{PublicQuestion: domain.PublicQuestion{ID: 20, Kind: domain.KindOpenAnswer, Text: "¿Suegra de Rut?", Reference: "Rut 1:4"}},
		domain.Question{PublicQuestion: domain.PublicQuestion{ID: 21, Kind: domain.KindOpenAnswer, Text: "¿Esposo de Rut?", Reference: "Rut 4:13"}},
	)
	return out
}

func newTestPlayer(t *testing.T, input string) (*player, *bytes.Buffer) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(playBank()), time.Minute)
	questions := app.NewQuestionService(repo, fixedGrader{}, logger)
	srv := httptest.NewServer(transport.NewRouter(questions, nil, transport.RouterConfig{Logger: logger}))
	t.Cleanup(srv.Close)

	out := &bytes.Buffer{}
	return newPlayer(client.New(srv.URL, 5*time.Second), strings.NewReader(input), out), out
}

func TestPlay_FiveMultipleChoiceCorrect(t *testing.T) {
	// filter 1 (multiple choice), count 5, then answer 1 and continue five times
	input := "1\n5\n" + strings.Repeat("1\n\n", 5) + "n\n"
	p, out := newTestPlayer(t, input)

	if err := p.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "Done! 5 answered: 5 correct, 0 incorrect.") {
		t.Fatalf("missing summary:\n%s", text)
	}
	if !strings.Contains(text, "Mastered chapters:\n  Jueces 6 (5)") {
		t.Fatalf("missing mastery list:\n%s", text)
	}
}

func TestPlay_OpenAnswerSkipAndReconfigure(t *testing.T) {
	// open answers: skip the first, answer both, then play again and quit at the filter prompt
	input := "2\nall\n:skip\nNoemí\n\nBooz\n\ny\n"
	p, out := newTestPlayer(t, input)

	if err := p.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "[1/2]") || strings.Contains(text, "[3/2]") {
		t.Fatalf("skip should keep the position and length:\n%s", text)
	}
	if !strings.Contains(text, "Era Noemí.") {
		t.Fatalf("missing grader explanation:\n%s", text)
	}
	if !strings.Contains(text, "Done! 2 answered: 1 correct, 1 incorrect.") {
		t.Fatalf("missing summary:\n%s", text)
	}
	if strings.Count(text, "Which questions do you want?") != 2 {
		t.Fatalf("expected the configuration prompt again after replay:\n%s", text)
	}
}
