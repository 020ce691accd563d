package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"scripture-quiz-service/internal/app"
	"scripture-quiz-service/internal/domain"
)

// QuestionHandler serves the listing and grading endpoints.
type QuestionHandler struct {
	service *app.QuestionService
	logger  *slog.Logger
}

func NewQuestionHandler(service *app.QuestionService, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{service: service, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

type verifyRequest struct {
	QuestionID    int64 `json:"questionId"`
	SelectedIndex *int  `json:"selectedIndex"`
}

func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.ListQuestions(r.Context())
	if err != nil {
		h.logger.Error("list questions", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	if questions == nil {
		questions = []domain.PublicQuestion{}
	}
	respondJSON(w, http.StatusOK, questions)
}

func (h *QuestionHandler) VerifyChoice(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.SelectedIndex == nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "selectedIndex is required"})
		return
	}

	verdict, err := h.service.VerifyChoice(r.Context(), req.QuestionID, *req.SelectedIndex)
	if err != nil {
		h.logger.Error("verify choice", "question_id", req.QuestionID, "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, verdict)
}

func (h *QuestionHandler) VerifyOpenAnswer(w http.ResponseWriter, r *http.Request) {
	var sub domain.OpenAnswerSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	verdict, err := h.service.VerifyOpenAnswer(r.Context(), sub)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, verdict)
	case errors.Is(err, domain.ErrEmptyAnswer), errors.Is(err, domain.ErrAnswerTooLong):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrQuestionNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: domain.ErrQuestionNotFound.Error()})
	default:
		if !errors.Is(err, domain.ErrGradingFailed) {
			h.logger.Error("verify open answer", "question_id", sub.QuestionID, "error", err)
		}
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: domain.ErrGradingFailed.Error()})
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
