package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"content-analyzer/internal/analysis"
	"content-analyzer/internal/shared/util"
)

// Format is an export format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatTXT  Format = "txt"
	FormatDOCX Format = "docx"
)

const Subtitle = "Analysis Results"

var (
	ErrUnsupportedFormat = errors.New("unsupported report format")
	ErrEmptyResult       = errors.New("result has no categories")
)

// Document is what gets rendered.
type Document struct {
	SourceName  string
	Result      analysis.Result
	GeneratedAt time.Time
}

// Title is the client name when one was identified, else the source base name.
func (d Document) Title() string {
	if c := strings.TrimSpace(d.Result.Client); c != "" && c != "Client" {
		return c
	}
	if base := util.BaseName(d.SourceName); base != "" {
		return base
	}
	return "Client"
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatTXT, FormatDOCX:
		return f, nil
	case "":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain; charset=utf-8"
	}
}

// FileName is "<source base> Analysis.<ext>".
func FileName(sourceName string, f Format) string {
	base := util.BaseName(sourceName)
	if base == "" {
		base = "Client"
	}
	return fmt.Sprintf("%s Analysis.%s", base, f)
}

// Render produces the export bytes for doc in the given format.
func Render(f Format, doc Document) ([]byte, error) {
	if len(doc.Result.Categories) == 0 {
		return nil, ErrEmptyResult
	}
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now().UTC()
	}
	switch f {
	case FormatTXT:
		return []byte(Text(doc.Result)), nil
	case FormatPDF:
		return renderPDF(doc)
	case FormatDOCX:
		return renderDOCX(doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}
