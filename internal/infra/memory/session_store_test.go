package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"scripture-quiz-service/internal/domain"
	"scripture-quiz-service/internal/session"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Minute)

	sess := session.New(sampleQuestionsPublic())
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, sess.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != sess {
		t.Fatalf("expected the same session instance")
	}

	if err := store.Delete(ctx, sess.ID()); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, sess.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session removed, got %v", err)
	}
}

func TestSessionStoreExpiresIdleSessions(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Minute)
	now := time.Now()
	store.clock = func() time.Time { return now }

	sess := session.New(sampleQuestionsPublic())
	_ = store.Save(ctx, sess)

	store.clock = func() time.Time { return now.Add(2 * time.Minute) }
	if _, err := store.Get(ctx, sess.ID()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected expired session, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired session evicted")
	}
}

func TestSessionStoreSweepsAbandonedSessions(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(time.Minute)
	now := time.Now()
	store.clock = func() time.Time { return now }

	bank := sampleQuestionsPublic()
	for i := 0; i < 1000; i++ {
		if err := store.Save(ctx, session.New(bank)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	store.clock = func() time.Time { return now.Add(24 * time.Hour) }
	fresh := session.New(bank)
	if err := store.Save(ctx, fresh); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected only the fresh session after a day idle, got %d", store.Len())
	}
}

func sampleQuestionsPublic() []domain.PublicQuestion {
	var out []domain.PublicQuestion
	for _, q := range sampleQuestions() {
		out = append(out, q.Public())
	}
	return out
}
