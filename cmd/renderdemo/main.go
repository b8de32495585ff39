package main

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"content-analyzer/internal/analysis"
	"content-analyzer/internal/report"
)

// Renders a sample result in every report format and checks each output.
func main() {
	outDir := flag.String("out", "./out", "output directory for generated reports")
	flag.Parse()

	doc := report.Document{SourceName: "acme-discovery-call.mp3", Result: sampleResult()}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	for _, format := range []report.Format{report.FormatPDF, report.FormatTXT, report.FormatDOCX} {
		data, err := report.Render(format, doc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "render %s failed: %v\n", format, err)
			os.Exit(1)
		}
		if err := validate(format, data); err != nil {
			fmt.Fprintf(os.Stderr, "%s validation failed: %v\n", format, err)
			os.Exit(1)
		}
		path := filepath.Join(*outDir, report.FileName(doc.SourceName, format))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("OK: wrote %s\n", path)
	}

	payload, err := json.MarshalIndent(doc.Result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal result: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(filepath.Join(*outDir, "sample_result.json"), payload, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}
}

func validate(format report.Format, data []byte) error {
	switch format {
	case report.FormatPDF:
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			return fmt.Errorf("missing PDF header")
		}
	case report.FormatDOCX:
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return err
		}
		for _, f := range zr.File {
			if f.Name == "word/document.xml" {
				return nil
			}
		}
		return fmt.Errorf("word/document.xml missing")
	case report.FormatTXT:
		if !strings.Contains(string(data), "Q: What does the company do?") {
			return fmt.Errorf("missing question line")
		}
	}
	return nil
}

func sampleResult() analysis.Result {
	return analysis.Result{
		Client: "Acme Logistics",
		Categories: []analysis.CategoryResult{
			{
				Category: "Business Overview",
				Answers: []analysis.Answer{
					{Question: "What does the company do?", Answer: "Acme runs regional freight routing for hardware retailers."},
					{Question: "Who are the key stakeholders?", Answer: "Dana Ortiz (VP Operations) and the dispatch leads."},
				},
			},
			{
				Category: "Project Scope",
				Answers: []analysis.Answer{
					{Question: "What problem are they trying to solve?", Answer: "Manual dispatch planning causes late deliveries.\nThey want automated route suggestions."},
					{Question: "What is the timeline?", Answer: analysis.PlaceholderAnswer, Failed: true},
				},
			},
		},
	}
}
