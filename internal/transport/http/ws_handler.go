package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"scripture-quiz-service/internal/app"
	"scripture-quiz-service/internal/domain"
	"scripture-quiz-service/internal/session"
)

type WSHandler struct {
	service  *app.PlayService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.PlayService, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    app.ActionType  `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func stateMessage(v any) outboundMessage[any] {
	return outboundMessage[any]{Type: "state", Payload: v}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

// ServeWS hosts one quiz session per connection. Passing sessionId resumes a
// stored session; otherwise a new one is started.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	// clear the server's request deadlines; grading can outlast them
	_ = conn.NetConn().SetDeadline(time.Time{})

	ctx := r.Context()
	var view session.View
	if sessionID == "" {
		v, err := h.service.Start(ctx)
		if err != nil {
			_ = conn.WriteJSON(errorMessage(err))
			return
		}
		sessionID, view = v.SessionID, v
	} else {
		v, err := h.service.Resume(ctx, sessionID)
		if err != nil {
			if !errors.Is(err, domain.ErrSessionNotFound) {
				h.logger.Error("resume session", "session_id", sessionID, "error", err)
			}
			_ = conn.WriteJSON(errorMessage(err))
			return
		}
		view = v
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("ws write error", "session_id", sessionID, "error", err)
				failed = true
			}
		}
	}()

	send <- stateMessage(view)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}

		action := app.Action{Type: inbound.Type}
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &action); err != nil {
				send <- errorMessage(errors.New("invalid payload"))
				continue
			}
			action.Type = inbound.Type
		}

		v, err := h.service.Apply(ctx, sessionID, action)
		if err != nil {
			send <- errorMessage(err)
			if errors.Is(err, domain.ErrSessionNotFound) {
				break
			}
		}
		view = v
		send <- stateMessage(v)
	}

	close(send)
	<-writerDone

	// finished sessions have nothing left to resume
	if view.Phase == session.PhaseComplete || view.Phase == session.PhaseNoQuestions {
		if err := h.service.End(context.WithoutCancel(ctx), sessionID); err != nil {
			h.logger.Warn("end session", "session_id", sessionID, "error", err)
		}
	}
}
