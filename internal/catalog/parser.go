package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"content-analyzer/internal/extract"
)

var (
	// "*" counts only when followed by whitespace so **Bold** headers survive.
	bulletPrefix    = regexp.MustCompile(`^(?:[\x{2022}\x{2023}\x{2043}\x{204C}\x{204D}\x{2219}\x{25D8}\x{25E6}\x{2619}\x{2765}\x{2767}\x{29BE}\x{29BF}-]\s*|\*\s+)`)
	instructionNote = regexp.MustCompile(`(?i)\[instruction:\s*([^\]]+)\]`)
)

// Parse rebuilds a catalog from a plain text outline:
//
//	Category Name
//	- Question 1
//	- Question 2 [instruction: be brief]
//
// A line is a category header when it is not a bullet and the line after it
// is. Bullets before any header are dropped, as are categories that end up
// with no questions.
func Parse(text string) Catalog {
	lines := normalizedLines(text)

	var out Catalog
	var current *Category
	closeCurrent := func() {
		if current != nil && len(current.Questions) > 0 {
			out = append(out, *current)
		}
		current = nil
	}

	for i, line := range lines {
		next := ""
		if i+1 < len(lines) {
			next = lines[i+1]
		}
		switch {
		case !isBullet(line) && isBullet(next):
			closeCurrent()
			current = &Category{Name: headerName(line)}
		case isBullet(line):
			if current == nil {
				continue
			}
			if q, ok := parseQuestion(line); ok {
				current.Questions = append(current.Questions, q)
			}
		default:
			// Stray prose ends a category that already has questions.
			if current != nil && len(current.Questions) > 0 {
				closeCurrent()
			}
		}
	}
	closeCurrent()
	return out
}

// ParseDocument extracts text from a TXT, DOCX or PDF upload and parses it.
func ParseDocument(ctx context.Context, fileName, mimeType string, data []byte) (Catalog, error) {
	text, err := extract.Text(ctx, data, mimeType, fileName)
	if err != nil {
		return nil, err
	}
	parsed := Parse(text)
	if len(parsed) == 0 {
		return nil, fmt.Errorf("%w: no categories found in %s", ErrInvalidCatalog, fileName)
	}
	return parsed, nil
}

// Format writes a catalog in the outline form Parse reads.
func Format(c Catalog) string {
	var b strings.Builder
	for i, cat := range c {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(cat.Name)
		b.WriteString("\n")
		for _, q := range cat.Questions {
			b.WriteString("- ")
			b.WriteString(q.Text)
			if q.Instruction != "" {
				b.WriteString(" [instruction: ")
				b.WriteString(q.Instruction)
				b.WriteString("]")
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func normalizedLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, bulletPrefix.ReplaceAllString(line, "-"))
	}
	return lines
}

// headerName drops markdown heading marks and a bold/underline wrapper.
func headerName(line string) string {
	name := strings.TrimSpace(strings.TrimLeft(line, "#"))
	for _, mark := range []string{"**", "__"} {
		if len(name) > 2*len(mark) && strings.HasPrefix(name, mark) && strings.HasSuffix(name, mark) {
			name = strings.TrimSpace(name[len(mark) : len(name)-len(mark)])
		}
	}
	if name == "" {
		return line
	}
	return name
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "-")
}

func parseQuestion(line string) (Question, bool) {
	body := strings.TrimSpace(strings.TrimPrefix(line, "-"))
	var instruction string
	if loc := instructionNote.FindStringSubmatchIndex(body); loc != nil {
		instruction = strings.TrimSpace(body[loc[2]:loc[3]])
		body = body[:loc[0]] + body[loc[1]:]
	}
	text := strings.TrimSpace(body)
	if text == "" {
		return Question{}, false
	}
	return Question{Text: text, Instruction: instruction}, true
}
