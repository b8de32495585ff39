package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeText = "text/plain"
)

// ErrUnsupported is returned for payloads that are neither audio nor a readable document.
var ErrUnsupported = errors.New("unsupported file type")

// Class is the broad media family of an upload.
type Class int

const (
	ClassUnsupported Class = iota
	ClassAudio
	ClassDocument
)

var audioExts = map[string]string{
	".mp3":  "audio/mpeg",
	".mp4":  "audio/mp4",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".webm": "audio/webm",
	".amr":  "audio/amr",
}

var documentExts = map[string]string{
	".txt":  MimeText,
	".md":   "text/markdown",
	".csv":  "text/csv",
	".pdf":  MimePDF,
	".docx": MimeDOCX,
}

// Classify decides whether a file is audio or a text document from its
// declared content type, falling back to the extension.
func Classify(mimeType, fileName string) Class {
	clean := Normalize(mimeType, fileName, nil)
	switch {
	case strings.HasPrefix(clean, "audio/"):
		return ClassAudio
	case strings.HasPrefix(clean, "text/"), clean == MimePDF, clean == MimeDOCX:
		return ClassDocument
	default:
		return ClassUnsupported
	}
}

// Text extracts plain text from a document payload.
func Text(ctx context.Context, data []byte, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	normalized := Normalize(mimeType, fileName, data)
	switch {
	case normalized == MimePDF:
		return extractPDF(data)
	case normalized == MimeDOCX:
		return extractDOCX(data)
	case strings.HasPrefix(normalized, "text/"):
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: %s is not valid utf-8", ErrUnsupported, fileName)
		}
		return strings.TrimPrefix(string(data), "\ufeff"), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, normalized)
	}
}

// Normalize strips parameters from a content type and fills in a type from
// the file extension when the declared one is missing or generic. data, when
// given, lets a zip payload be recognised as DOCX.
func Normalize(mimeType, fileName string, data []byte) string {
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	ext := strings.ToLower(filepath.Ext(fileName))
	switch clean {
	case "", "application/octet-stream":
		if m, ok := audioExts[ext]; ok {
			return m
		}
		if m, ok := documentExts[ext]; ok {
			return m
		}
		return clean
	case "application/zip", "application/x-zip-compressed":
		if isDOCX(data) || ext == ".docx" {
			return MimeDOCX
		}
		return clean
	case "audio/x-wav", "audio/wave":
		return "audio/wav"
	case "video/mp4", "video/webm":
		if _, ok := audioExts[ext]; ok {
			return audioExts[ext]
		}
		return clean
	default:
		return clean
	}
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	doc := findEntry(zr, "word/document.xml")
	if doc == nil {
		return "", errors.New("document.xml file not found")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return paragraphs(rc)
}

// paragraphs flattens WordprocessingML into one line per paragraph. Tabs and
// line breaks inside a paragraph are kept.
func paragraphs(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var out strings.Builder
	var line strings.Builder
	inText := false
	flush := func() {
		out.WriteString(line.String())
		out.WriteString("\n")
		line.Reset()
	}
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse docx xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteString("\t")
			case "br":
				flush()
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	if line.Len() > 0 {
		flush()
	}
	return strings.TrimSpace(out.String()), nil
}

func isDOCX(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	return findEntry(zr, "word/document.xml") != nil
}

func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == name {
			return f
		}
	}
	return nil
}
