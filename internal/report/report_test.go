package report

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-analyzer/internal/analysis"
)

func sampleResult() analysis.Result {
	return analysis.Result{
		Client: "Acme",
		Categories: []analysis.CategoryResult{
			{Category: "Overview", Answers: []analysis.Answer{
				{Question: "What project is discussed?", Answer: "Acme"},
				{Question: "Who attended?", Answer: "Ana & Bo <PM>"},
			}},
			{Category: "Budget", Answers: []analysis.Answer{
				{Question: "What is the budget?", Answer: "About $50k.\nPaid monthly."},
			}},
		},
	}
}

func TestTextLayout(t *testing.T) {
	got := Text(sampleResult())
	want := "Overview\n========\n\n" +
		"Q: What project is discussed?\nA: Acme\n\n" +
		"Q: Who attended?\nA: Ana & Bo <PM>\n" +
		"\n\n" +
		"Budget\n======\n\n" +
		"Q: What is the budget?\nA: About $50k.\nPaid monthly.\n"
	assert.Equal(t, want, got)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"pdf": FormatPDF, "TXT": FormatTXT, " docx ": FormatDOCX, "": FormatPDF} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "meeting Analysis.pdf", FileName("uploads/meeting.mp3", FormatPDF))
	assert.Equal(t, "notes Analysis.docx", FileName("notes.txt", FormatDOCX))
	assert.Equal(t, "Client Analysis.txt", FileName("", FormatTXT))
}

func TestTitlePrefersClient(t *testing.T) {
	doc := Document{SourceName: "call.mp3", Result: sampleResult()}
	assert.Equal(t, "Acme", doc.Title())

	doc.Result.Client = "Client"
	assert.Equal(t, "call", doc.Title())

	doc.SourceName = ""
	assert.Equal(t, "Client", doc.Title())
}

func TestRenderRejectsEmptyResult(t *testing.T) {
	_, err := Render(FormatTXT, Document{})
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, err = Render(Format("rtf"), Document{Result: sampleResult()})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRenderPDF(t *testing.T) {
	out, err := Render(FormatPDF, Document{SourceName: "call.mp3", Result: sampleResult(), GeneratedAt: time.Unix(0, 0)})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "missing pdf header")
	assert.Equal(t, 1, bytes.Count(out, []byte("<</Type /Page\n")))
}

func TestRenderPDFBreaksPages(t *testing.T) {
	long := strings.Repeat("The team walked through every milestone in detail. ", 40)
	var answers []analysis.Answer
	for i := 0; i < 12; i++ {
		answers = append(answers, analysis.Answer{Question: "Describe the timeline?", Answer: long})
	}
	res := analysis.Result{Categories: []analysis.CategoryResult{{Category: "Timeline", Answers: answers}}}

	out, err := Render(FormatPDF, Document{SourceName: "long.txt", Result: res})
	require.NoError(t, err)
	assert.Greater(t, bytes.Count(out, []byte("<</Type /Page\n")), 1)
}

func TestRenderDOCX(t *testing.T) {
	out, err := Render(FormatDOCX, Document{SourceName: "call.mp3", Result: sampleResult(), GeneratedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)

	names := map[string]*zip.File{}
	for _, f := range zr.File {
		names[f.Name] = f
	}
	for _, want := range []string{"[Content_Types].xml", "_rels/.rels", "docProps/core.xml", "word/document.xml"} {
		require.Contains(t, names, want)
	}

	rc, err := names["word/document.xml"].Open()
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)

	// Well-formed XML.
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	doc := string(body)
	assert.Contains(t, doc, ">Acme</w:t>")
	assert.Contains(t, doc, "Analysis Results")
	assert.Contains(t, doc, "Ana &amp; Bo &lt;PM&gt;")
	assert.Contains(t, doc, "About $50k.</w:t><w:br/><w:t xml:space=\"preserve\">Paid monthly.")
	assert.Less(t, strings.Index(doc, "Overview"), strings.Index(doc, "Budget"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.True(t, strings.HasPrefix(FormatTXT.ContentType(), "text/plain"))
	assert.Contains(t, FormatDOCX.ContentType(), "wordprocessingml")
}
