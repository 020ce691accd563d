package domain

import "strings"

// Kind distinguishes the two question variants.
type Kind string

const (
	KindMultipleChoice Kind = "multiple-choice"
	KindOpenAnswer     Kind = "open-answer"
)

// KindOf resolves the variant of a stored row. An explicit type column wins;
// otherwise rows with options are multiple-choice and rows without are open-answer.
func KindOf(rawType string, options []string) Kind {
	switch strings.ToLower(strings.TrimSpace(rawType)) {
	case "open-answer", "open", "open_answer":
		return KindOpenAnswer
	case "multiple-choice", "multiple", "multiple_choice":
		return KindMultipleChoice
	}
	if len(options) > 0 {
		return KindMultipleChoice
	}
	return KindOpenAnswer
}

// PublicQuestion is everything a client may see about a question.
type PublicQuestion struct {
	ID        int64    `json:"id"`
	Kind      Kind     `json:"type"`
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	Reference string   `json:"reference"`
	URL       string   `json:"url"`
}

// Question carries the answer key and must never be serialized to clients.
type Question struct {
	PublicQuestion
	CorrectIndex *int `json:"-"`
}

// Public strips the answer key.
func (q Question) Public() PublicQuestion {
	return q.PublicQuestion
}

// ChoiceVerdict is the outcome of multiple-choice grading.
type ChoiceVerdict struct {
	QuestionID    int64 `json:"questionId"`
	SelectedIndex int   `json:"selectedIndex"`
	Correct       bool  `json:"correct"`
	CorrectIndex  int   `json:"correctIndex"`
}

// OpenAnswerSubmission is a free-text answer sent for grading.
type OpenAnswerSubmission struct {
	QuestionID int64  `json:"questionId"`
	UserAnswer string `json:"userAnswer"`
	Reference  string `json:"reference,omitempty"`
}

// GradeRequest is what the open-answer grader needs to judge an answer.
type GradeRequest struct {
	QuestionText string
	Reference    string
	UserAnswer   string
}

// Judgement is the structured output of the open-answer grader.
type Judgement struct {
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation"`
	Model       string `json:"-"`
}

// OpenAnswerVerdict is returned to clients after open-answer grading.
type OpenAnswerVerdict struct {
	Model        string `json:"model"`
	QuestionID   int64  `json:"questionId"`
	QuestionText string `json:"questionText"`
	Reference    string `json:"reference"`
	IsCorrect    bool   `json:"isCorrect"`
	Explanation  string `json:"explanation"`
	UserAnswer   string `json:"userAnswer"`
}

// Chapter returns the book-and-chapter part of a scripture reference,
// e.g. "Jueces 3" for "Jueces 3:12-30".
func Chapter(reference string) string {
	ref := strings.TrimSpace(reference)
	if i := strings.Index(ref, ":"); i >= 0 {
		ref = ref[:i]
	}
	return strings.Join(strings.Fields(ref), " ")
}
