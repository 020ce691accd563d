package grader

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"scripture-quiz-service/internal/domain"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func newTestGrader(t *testing.T, handler http.HandlerFunc) *OpenAIGrader {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := NewOpenAIGrader(Config{BaseURL: srv.URL + "/", APIKey: "test-key", LongAnswerRunes: 20})
	if err != nil {
		t.Fatalf("new grader: %v", err)
	}
	return g
}

func TestModelFor(t *testing.T) {
	g, err := NewOpenAIGrader(Config{LongAnswerRunes: 10})
	if err != nil {
		t.Fatalf("new grader: %v", err)
	}

	cases := []struct {
		answer string
		want   string
	}{
		{"Noemí", DefaultModel},
		{"300 hombres", DefaultReasoningModel},
		{"Gedeón y sus hombres", DefaultReasoningModel},
		{"ñandúñandú", DefaultModel},
	}
	for _, tc := range cases {
		if got := g.ModelFor(tc.answer); got != tc.want {
			t.Fatalf("ModelFor(%q) = %s, want %s", tc.answer, got, tc.want)
		}
	}
}

func TestGrade_SendsStructuredRequest(t *testing.T) {
	var got chatRequest
	g := newTestGrader(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(completion(`{"isCorrect":true,"explanation":"Correcto, era Noemí."}`)))
	})

	j, err := g.Grade(context.Background(), domain.GradeRequest{
		QuestionText: "¿Quién era la suegra de Rut?",
		Reference:    "Rut 1:4",
		UserAnswer:   "Noemí",
	})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if !j.IsCorrect || j.Explanation != "Correcto, era Noemí." {
		t.Fatalf("unexpected judgement: %+v", j)
	}
	if j.Model != DefaultModel {
		t.Fatalf("expected model %s, got %s", DefaultModel, j.Model)
	}

	if got.Model != DefaultModel {
		t.Fatalf("request used model %s", got.Model)
	}
	if got.Temperature == nil || *got.Temperature != 0 {
		t.Fatalf("expected temperature 0 for the standard model")
	}
	if got.ResponseFormat.Type != "json_schema" || !got.ResponseFormat.JSONSchema.Strict {
		t.Fatalf("expected strict json_schema response format, got %+v", got.ResponseFormat)
	}
	if len(got.Messages) != 2 || !strings.Contains(got.Messages[1].Content, "Rut 1:4") {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestGrade_ReasoningModelOmitsTemperature(t *testing.T) {
	var raw map[string]json.RawMessage
	g := newTestGrader(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(completion(`{"isCorrect":false,"explanation":"Eran 300."}`)))
	})

	j, err := g.Grade(context.Background(), domain.GradeRequest{UserAnswer: "32 mil"})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if j.Model != DefaultReasoningModel {
		t.Fatalf("expected reasoning model, got %s", j.Model)
	}
	if _, ok := raw["temperature"]; ok {
		t.Fatalf("temperature must be omitted for the reasoning model")
	}
}

func TestGrade_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(completion("sí, es correcto")))
		},
		"schema mismatch": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(completion(`{"isCorrect":"yes"}`)))
		},
		"no choices": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			g := newTestGrader(t, handler)
			_, err := g.Grade(context.Background(), domain.GradeRequest{UserAnswer: "Booz"})
			var gradeErr *GradeError
			if !errors.As(err, &gradeErr) {
				t.Fatalf("expected GradeError, got %v", err)
			}
		})
	}
}

func TestGrade_NoRetry(t *testing.T) {
	var calls atomic.Int32
	g := newTestGrader(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := g.Grade(context.Background(), domain.GradeRequest{UserAnswer: "Booz"}); err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one provider call, got %d", calls.Load())
	}
}
