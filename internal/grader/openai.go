// Package grader judges free-text answers with an OpenAI-compatible
// chat-completions endpoint and structured JSON output.
package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"scripture-quiz-service/internal/domain"
)

// judgementSchema is sent as the strict response_format and used again to
// validate what comes back.
const judgementSchema = `{
	"type": "object",
	"properties": {
		"isCorrect": {"type": "boolean"},
		"explanation": {"type": "string"}
	},
	"required": ["isCorrect", "explanation"],
	"additionalProperties": false
}`

const (
	DefaultBaseURL         = "https://api.openai.com/v1"
	DefaultModel           = "gpt-4o-mini-2024-07-18"
	DefaultReasoningModel  = "o3-mini-2025-01-31"
	DefaultTopic           = "the books of Judges and Ruth"
	DefaultLongAnswerRunes = 280
	DefaultTimeout         = 60 * time.Second
)

// Config configures an OpenAI grader; zero fields take the defaults above.
type Config struct {
	BaseURL         string
	APIKey          string
	Model           string
	ReasoningModel  string
	LongAnswerRunes int
	Topic           string
	Timeout         time.Duration
}

// GradeError separates "the model answered badly" from "the model was unreachable".
type GradeError struct {
	Reason  string
	Wrapped error
}

func (e *GradeError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("grading failed: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("grading failed: %s", e.Reason)
}

func (e *GradeError) Unwrap() error {
	return e.Wrapped
}

// OpenAIGrader grades one answer per call. There are no retries.
type OpenAIGrader struct {
	cfg    Config
	client *http.Client
	schema *gojsonschema.Schema
}

func NewOpenAIGrader(cfg Config) (*OpenAIGrader, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.ReasoningModel == "" {
		cfg.ReasoningModel = DefaultReasoningModel
	}
	if cfg.LongAnswerRunes <= 0 {
		cfg.LongAnswerRunes = DefaultLongAnswerRunes
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(judgementSchema))
	if err != nil {
		return nil, fmt.Errorf("compile judgement schema: %w", err)
	}

	return &OpenAIGrader{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		schema: schema,
	}, nil
}

// ModelFor picks the model tier for an answer: anything with a digit, or
// longer than the configured rune threshold, goes to the reasoning model.
func (g *OpenAIGrader) ModelFor(answer string) string {
	if utf8.RuneCountInString(answer) > g.cfg.LongAnswerRunes {
		return g.cfg.ReasoningModel
	}
	for _, r := range answer {
		if unicode.IsDigit(r) {
			return g.cfg.ReasoningModel
		}
	}
	return g.cfg.Model
}

func (g *OpenAIGrader) Grade(ctx context.Context, req domain.GradeRequest) (domain.Judgement, error) {
	model := g.ModelFor(req.UserAnswer)

	content, err := g.callLLM(ctx, model, buildMessages(g.cfg.Topic, req))
	if err != nil {
		return domain.Judgement{}, err
	}

	result, err := g.schema.Validate(gojsonschema.NewStringLoader(content))
	if err != nil {
		return domain.Judgement{}, &GradeError{Reason: "model output is not JSON", Wrapped: err}
	}
	if !result.Valid() {
		return domain.Judgement{}, &GradeError{Reason: "model output does not match schema: " + describe(result.Errors())}
	}

	var j domain.Judgement
	if err := json.Unmarshal([]byte(content), &j); err != nil {
		return domain.Judgement{}, &GradeError{Reason: "decode judgement", Wrapped: err}
	}
	j.Model = model
	return j, nil
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float64       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema jsonSchema `json:"json_schema"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *OpenAIGrader) callLLM(ctx context.Context, model string, messages []chatMessage) (string, error) {
	body := chatRequest{
		Model:    model,
		Messages: messages,
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchema{
				Name:   "answer_judgement",
				Strict: true,
				Schema: json.RawMessage(judgementSchema),
			},
		},
	}
	// reasoning models reject a temperature
	if model != g.cfg.ReasoningModel {
		zero := 0.0
		body.Temperature = &zero
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", &GradeError{Reason: "marshal request", Wrapped: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", &GradeError{Reason: "create request", Wrapped: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", &GradeError{Reason: "request failed", Wrapped: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &GradeError{Reason: fmt.Sprintf("provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &GradeError{Reason: "decode response", Wrapped: err}
	}
	if len(out.Choices) == 0 {
		return "", &GradeError{Reason: "no choices returned"}
	}
	msg := out.Choices[0].Message
	if msg.Refusal != "" {
		return "", &GradeError{Reason: "model refused: " + msg.Refusal}
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", &GradeError{Reason: "empty content"}
	}
	return msg.Content, nil
}

func describe(errs []gojsonschema.ResultError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}
