package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"scripture-quiz-service/internal/app"
	"scripture-quiz-service/internal/domain"
	"scripture-quiz-service/internal/infra/memory"
	"scripture-quiz-service/internal/session"
)

func newPlayService(grader app.Grader) (*app.PlayService, *memory.SessionStore) {
	store := memory.NewSessionStore(time.Hour)
	return app.NewPlayService(store, newTestService(grader)), store
}

func TestPlayService_OpenAnswerRound(t *testing.T) {
	ctx := context.Background()
	play, store := newPlayService(&recordingGrader{})

	view, err := play.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.Phase != session.PhaseConfiguring || store.Len() != 1 {
		t.Fatalf("expected a stored configuring session, got %+v", view)
	}
	id := view.SessionID

	view, err = play.Apply(ctx, id, app.Action{Type: app.ActionConfigure, Filter: session.FilterOpenAnswer, Count: session.CountAll})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if view.Phase != session.PhaseInProgress || view.Total != 1 || !view.CanSkip {
		t.Fatalf("unexpected view after configure: %+v", view)
	}

	view, err = play.Apply(ctx, id, app.Action{Type: app.ActionSubmit, Text: "Booz"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if view.Attempt.Verdict == nil || !view.Attempt.Verdict.Correct || view.Attempt.Verdict.Explanation == "" {
		t.Fatalf("expected a correct verdict with explanation, got %+v", view.Attempt)
	}

	view, err = play.Apply(ctx, id, app.Action{Type: app.ActionNext})
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if view.Phase != session.PhaseComplete || view.CorrectCount != 1 {
		t.Fatalf("expected complete with one correct answer, got %+v", view)
	}

	resumed, err := play.Resume(ctx, id)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Phase != session.PhaseComplete {
		t.Fatalf("resume should see the stored phase, got %s", resumed.Phase)
	}
}

func TestPlayService_RejectedActionKeepsView(t *testing.T) {
	ctx := context.Background()
	play, _ := newPlayService(&recordingGrader{})

	view, _ := play.Start(ctx)
	got, err := play.Apply(ctx, view.SessionID, app.Action{Type: app.ActionNext})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if got.Phase != session.PhaseConfiguring || got.SessionID != view.SessionID {
		t.Fatalf("rejected action should still return the view, got %+v", got)
	}

	if _, err := play.Apply(ctx, view.SessionID, app.Action{Type: "dance"}); err == nil {
		t.Fatalf("expected unsupported action error")
	}
}

func TestPlayService_GradingFailureKeepsDraft(t *testing.T) {
	ctx := context.Background()
	play, _ := newPlayService(&recordingGrader{err: errors.New("provider down")})

	view, _ := play.Start(ctx)
	id := view.SessionID
	if _, err := play.Apply(ctx, id, app.Action{Type: app.ActionConfigure, Filter: session.FilterOpenAnswer}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	view, err := play.Apply(ctx, id, app.Action{Type: app.ActionSubmit, Text: "Booz"})
	if !errors.Is(err, domain.ErrGradingFailed) {
		t.Fatalf("expected ErrGradingFailed, got %v", err)
	}
	if view.Attempt == nil || view.Attempt.Draft != "Booz" || view.Attempt.Verifying || view.Attempt.Verdict != nil {
		t.Fatalf("failure should restore the pre-submit attempt, got %+v", view.Attempt)
	}
	if len(view.Results) != 0 {
		t.Fatalf("failed grading must not be recorded")
	}
}

func TestPlayService_EndAndUnknownSession(t *testing.T) {
	ctx := context.Background()
	play, store := newPlayService(&recordingGrader{})

	view, _ := play.Start(ctx)
	if err := play.End(ctx, view.SessionID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected no stored sessions")
	}
	if _, err := play.Apply(ctx, view.SessionID, app.Action{Type: app.ActionState}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
