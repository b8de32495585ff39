package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"content-analyzer/internal/catalog"
	"content-analyzer/internal/pipeline"
	"content-analyzer/internal/report"
)

type runOptions struct {
	questions     string
	questionSetID string
	owner         string
	format        string
	out           string
	jsonOut       bool
}

func newRunCmd(e *env) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Analyze a file and write a report",
		Long: `Analyzes an audio file or a text document (PDF, DOCX, TXT).
Questions come from --questions (a JSON catalog or a question document) or
from a saved question set; the default set is used when neither is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, e, opts, args[0])
		},
	}
	cmd.Flags().StringVarP(&opts.questions, "questions", "q", "", "question catalog file (JSON, PDF, DOCX or TXT)")
	cmd.Flags().StringVar(&opts.questionSetID, "question-set", catalog.DefaultSetID, "saved question set id")
	cmd.Flags().StringVar(&opts.owner, "owner", "cli", "owner id used to resolve saved question sets")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(report.FormatPDF), "report format: pdf, txt or docx")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "report path (default \"<file> Analysis.<format>\")")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the result as JSON instead of writing a report")
	return cmd
}

func runAnalyze(cmd *cobra.Command, e *env, opts *runOptions, path string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	svc, err := e.services(ctx)
	if err != nil {
		return err
	}
	questions, err := loadQuestions(ctx, svc, opts)
	if err != nil {
		return err
	}

	file := pipeline.File{Name: filepath.Base(path), Data: data}
	if err := svc.Runner.Check(file, questions); err != nil {
		return describe(err)
	}

	progress := cmd.ErrOrStderr()
	var last pipeline.Job
	sink := pipeline.SinkFunc(func(job pipeline.Job) {
		if job.Stage == last.Stage && job.Progress == last.Progress {
			return
		}
		last = job
		fmt.Fprintf(progress, "[%-10s %3d%%] %s\n", job.Stage, job.Progress, job.StatusMessage)
	})

	out, err := svc.Runner.Run(ctx, uuid.NewString(), file, questions, sink)
	if err != nil {
		return describe(err)
	}

	if opts.jsonOut {
		payload, err := json.MarshalIndent(out.Result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		return nil
	}

	rendered, err := report.Render(format, report.Document{SourceName: file.Name, Result: out.Result})
	if err != nil {
		return err
	}
	target := opts.out
	if target == "" {
		target = report.FileName(file.Name, format)
	}
	if err := os.WriteFile(target, rendered, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s (%d answers)\n", target, out.Result.AnswerCount())
	return nil
}

func loadQuestions(ctx context.Context, svc *Services, opts *runOptions) (catalog.Catalog, error) {
	if opts.questions == "" {
		if svc.Sets == nil {
			return catalog.Default().Questions, nil
		}
		set, err := svc.Sets.Get(ctx, opts.owner, opts.questionSetID)
		if err != nil {
			return nil, fmt.Errorf("question set %q: %w", opts.questionSetID, err)
		}
		return set.Questions, nil
	}
	return readCatalog(ctx, opts.questions)
}

func readCatalog(ctx context.Context, path string) (catalog.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		var c catalog.Catalog
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse questions: %w", err)
		}
		return c, nil
	}
	return catalog.ParseDocument(ctx, filepath.Base(path), "", data)
}

// describe prefers the short message of a pipeline failure.
func describe(err error) error {
	var pe *pipeline.Error
	if errors.As(err, &pe) {
		return fmt.Errorf("%s (%s)", pe.UserMessage(), pe.Kind)
	}
	return err
}
