// Package client talks to a running quiz server over its REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"scripture-quiz-service/internal/domain"
)

// Client implements session.Verifier against the server endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// APIError is a non-2xx response that maps to no known domain error.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *Client) ListQuestions(ctx context.Context) ([]domain.PublicQuestion, error) {
	var out []domain.PublicQuestion
	if err := c.do(ctx, http.MethodGet, "/api/questions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) VerifyChoice(ctx context.Context, questionID int64, selected int) (domain.ChoiceVerdict, error) {
	body := map[string]any{"questionId": questionID, "selectedIndex": selected}
	var out domain.ChoiceVerdict
	if err := c.do(ctx, http.MethodPost, "/api/verify", body, &out); err != nil {
		return domain.ChoiceVerdict{}, err
	}
	return out, nil
}

func (c *Client) VerifyOpenAnswer(ctx context.Context, sub domain.OpenAnswerSubmission) (domain.OpenAnswerVerdict, error) {
	var out domain.OpenAnswerVerdict
	if err := c.do(ctx, http.MethodPost, "/api/verify-open-answer", sub, &out); err != nil {
		return domain.OpenAnswerVerdict{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return mapError(resp.StatusCode, e.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

var knownErrors = []error{
	domain.ErrEmptyAnswer,
	domain.ErrAnswerTooLong,
	domain.ErrQuestionNotFound,
	domain.ErrNoAnswerKey,
	domain.ErrGradingFailed,
}

func mapError(status int, message string) error {
	for _, known := range knownErrors {
		if message == known.Error() {
			return known
		}
	}
	if status == http.StatusNotFound {
		return domain.ErrQuestionNotFound
	}
	return &APIError{Status: status, Message: message}
}
