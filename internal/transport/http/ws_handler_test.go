package http

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"scripture-quiz-service/internal/session"
)

type wsMessage struct {
	Type    string       `json:"type"`
	Payload session.View `json:"payload"`
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) wsMessage {
	t.Helper()
	var msg wsMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg
}

func send(conn *websocket.Conn, t *testing.T, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func TestWebSocketSessionFlow(t *testing.T) {
	srv, sessions := newTestServerWithSessions(t, &stubGrader{})
	base := "ws" + srv.URL[len("http"):] + "/ws"
	conn := dialWS(t, base)

	first := readNext(conn, t, "state")
	if first.Payload.Phase != session.PhaseConfiguring || first.Payload.SessionID == "" {
		t.Fatalf("unexpected initial state: %+v", first.Payload)
	}
	if first.Payload.Available[session.FilterMultipleChoice] != 5 {
		t.Fatalf("expected 5 multiple-choice questions available, got %v", first.Payload.Available)
	}

	send(conn, t, "configure", map[string]any{"filter": "multiple", "count": 5})
	view := readNext(conn, t, "state").Payload
	if view.Phase != session.PhaseInProgress || view.Total != 5 {
		t.Fatalf("expected in-progress session with 5 questions, got %+v", view)
	}

	for i := 0; i < 5; i++ {
		q := view.Question
		send(conn, t, "select", map[string]any{"index": int(q.ID % 4)})
		view = readNext(conn, t, "state").Payload
		if view.Attempt == nil || view.Attempt.Verdict == nil || !view.Attempt.Verdict.Correct {
			t.Fatalf("question %d: expected a correct verdict, got %+v", q.ID, view.Attempt)
		}
		send(conn, t, "next", nil)
		view = readNext(conn, t, "state").Payload
	}

	if view.Phase != session.PhaseComplete {
		t.Fatalf("expected complete, got %s", view.Phase)
	}
	if len(view.Results) != 5 || view.CorrectCount != 5 || view.IncorrectCount != 0 {
		t.Fatalf("expected 5/5/0, got results=%d correct=%d incorrect=%d", len(view.Results), view.CorrectCount, view.IncorrectCount)
	}
	if len(view.Mastery.Mastered) != 1 || view.Mastery.Mastered[0].Chapter != "Jueces 3" {
		t.Fatalf("expected Jueces 3 mastered, got %+v", view.Mastery)
	}

	conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for sessions.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("completed session still stored after the socket closed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	resumed := dialWS(t, base+"?sessionId="+first.Payload.SessionID)
	readNext(resumed, t, "error")
}

func TestWebSocketRejectedActionAndResume(t *testing.T) {
	srv := newTestServer(t, &stubGrader{})
	base := "ws" + srv.URL[len("http"):] + "/ws"
	conn := dialWS(t, base)
	id := readNext(conn, t, "state").Payload.SessionID

	send(conn, t, "count", map[string]any{"count": 5})
	if msg := readNext(conn, t, "error"); msg.Type != "error" {
		t.Fatalf("expected error for count before filter")
	}
	if view := readNext(conn, t, "state").Payload; view.Phase != session.PhaseConfiguring {
		t.Fatalf("rejected action must leave the session configuring, got %s", view.Phase)
	}

	send(conn, t, "filter", map[string]any{"filter": "open"})
	if view := readNext(conn, t, "state").Payload; view.Filter != session.FilterOpenAnswer {
		t.Fatalf("expected open filter, got %q", view.Filter)
	}
	conn.Close()

	resumed := dialWS(t, base+"?sessionId="+id)
	view := readNext(resumed, t, "state").Payload
	if view.SessionID != id || view.Filter != session.FilterOpenAnswer {
		t.Fatalf("resume lost state: %+v", view)
	}

	unknown := dialWS(t, base+"?sessionId=missing")
	readNext(unknown, t, "error")
}
