package analysis

import (
	"context"
	"errors"
	"strings"

	"content-analyzer/internal/catalog"
	"content-analyzer/internal/llm"
	"content-analyzer/internal/shared/metrics"
	"content-analyzer/internal/shared/telemetry"
	"content-analyzer/internal/shared/util"
)

const (
	DefaultMaxTokens   = 2048
	DefaultTemperature = 0.7
	defaultClientName  = "Client"
)

// Options tunes inference. A non-positive MaxTokens or a nil Temperature
// falls back to the defaults; a Temperature of 0 is honored.
type Options struct {
	MaxTokens      int
	Temperature    *float64
	IdentifyClient bool
}

// ProgressFunc is told how many questions are answered after each one.
type ProgressFunc func(done, total int)

// Analyzer asks every catalog question about a transcript, one request per
// question, strictly in order.
type Analyzer struct {
	llm         llm.Completer
	opts        Options
	temperature float64
}

func NewAnalyzer(c llm.Completer, opts Options) *Analyzer {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	temperature := DefaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	return &Analyzer{llm: WithRetry(c), opts: opts, temperature: temperature}
}

// Analyze produces a result whose categories and answers mirror the catalog
// order. A failed question gets PlaceholderAnswer; if all of them fail the
// whole analysis fails.
func (a *Analyzer) Analyze(ctx context.Context, transcript string, questions catalog.Catalog, progress ProgressFunc) (Result, error) {
	if a == nil || a.llm == nil {
		return Result{}, ErrNoClient
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Result{}, ErrEmptyTranscript
	}
	if err := questions.Validate(); err != nil {
		return Result{}, err
	}

	var result Result
	if a.opts.IdentifyClient {
		name, err := a.identifyClient(ctx, transcript)
		if err != nil {
			return Result{}, err
		}
		result.Client = name
	}

	total := questions.QuestionCount()
	done, failed := 0, 0
	var lastErr error
	result.Categories = make([]CategoryResult, 0, len(questions))
	for _, cat := range questions {
		cr := CategoryResult{Category: cat.Name, Answers: make([]Answer, 0, len(cat.Questions))}
		for _, q := range cat.Questions {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			answer, err := a.ask(ctx, llm.Request{
				Prompt:      BuildPrompt(transcript, q),
				MaxTokens:   a.opts.MaxTokens,
				Temperature: a.temperature,
			})
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return Result{}, ctxErr
				}
				failed++
				lastErr = err
				metrics.IncPlaceholderAnswer()
				telemetry.Warn("analysis.question_failed", map[string]any{
					"category": cat.Name,
					"question": q.Text,
					"error":    util.SanitizeError(err),
				})
				cr.Answers = append(cr.Answers, Answer{Question: q.Text, Answer: PlaceholderAnswer, Failed: true})
			} else {
				cr.Answers = append(cr.Answers, Answer{Question: q.Text, Answer: answer})
			}
			done++
			if progress != nil {
				progress(done, total)
			}
		}
		result.Categories = append(result.Categories, cr)
	}

	if failed == total {
		return Result{}, errors.Join(ErrAnalysisFailed, lastErr)
	}
	return result, nil
}

func (a *Analyzer) ask(ctx context.Context, req llm.Request) (string, error) {
	metrics.IncInferenceCall()
	answer, err := a.llm.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", llm.ErrEmptyAnswer
	}
	return answer, nil
}

// identifyClient asks for the client company name. Any failure other than
// cancellation falls back to a generic name.
func (a *Analyzer) identifyClient(ctx context.Context, transcript string) (string, error) {
	name, err := a.ask(ctx, llm.Request{
		Prompt:      BuildPrompt(transcript, catalog.Question{Text: clientQuestion}),
		MaxTokens:   100,
		Temperature: 0.1,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		telemetry.Warn("analysis.client_unidentified", map[string]any{"error": util.SanitizeError(err)})
		return defaultClientName, nil
	}
	if name = strings.Trim(name, ` ."'`); name == "" {
		return defaultClientName, nil
	}
	return name, nil
}
