package analysis

import (
	"strings"

	"content-analyzer/internal/catalog"
)

const clientQuestion = "What is the client company name mentioned in this document? Reply with only the company name."

// BuildPrompt renders the single-turn prompt for one question.
func BuildPrompt(transcript string, q catalog.Question) string {
	var b strings.Builder
	b.WriteString("Context: ")
	b.WriteString(transcript)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(q.Text)
	if instr := strings.TrimSpace(q.Instruction); instr != "" {
		b.WriteString("\n\nInstructions: ")
		b.WriteString(instr)
	}
	return b.String()
}
