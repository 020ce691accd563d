package grader

import (
	"fmt"

	"scripture-quiz-service/internal/domain"
)

const rubric = `You grade answers in a Bible study practice quiz about %s.
The players are young adults (around twenty years old) practicing, so be lenient:
an answer is correct when it captures the essential idea, even with spelling
mistakes, informal wording or partial names.

Rules:
- Answers such as "I don't know", "no sé" or an empty guess are incorrect.
- Never mention or cite a specific Bible translation or version.
- Accept alternate spellings and names of places and people used across translations.
- If the answer is off-topic or a joke, mark it incorrect, keep a friendly tone and give the correct answer.
- When the answer is incorrect, the explanation must state the correct answer.
- Keep the explanation to one or two sentences.
- Write the explanation in the same language as the question.`

func buildMessages(topic string, req domain.GradeRequest) []chatMessage {
	user := fmt.Sprintf("Question: %s\nScripture reference: %s\nPlayer answer: %s",
		req.QuestionText, req.Reference, req.UserAnswer)
	return []chatMessage{
		{Role: "system", Content: fmt.Sprintf(rubric, topic)},
		{Role: "user", Content: user},
	}
}
