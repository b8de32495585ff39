package report

import (
	"strings"

	"content-analyzer/internal/analysis"
)

// Text renders each category as a name, an "=" underline of the same length,
// then its Q/A pairs. Categories are separated by a blank line.
func Text(r analysis.Result) string {
	blocks := make([]string, 0, len(r.Categories))
	for _, cat := range r.Categories {
		var b strings.Builder
		b.WriteString(cat.Category)
		b.WriteString("\n")
		b.WriteString(strings.Repeat("=", len([]rune(cat.Category))))
		b.WriteString("\n\n")
		pairs := make([]string, 0, len(cat.Answers))
		for _, a := range cat.Answers {
			pairs = append(pairs, "Q: "+a.Question+"\nA: "+a.Answer+"\n")
		}
		b.WriteString(strings.Join(pairs, "\n"))
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}
