package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Request is a single-turn completion request.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Completer abstracts the hosted model. Implementations return the answer
// text already extracted from the provider envelope.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	// ErrMalformedResponse means the provider replied but the answer could not be located.
	ErrMalformedResponse = errors.New("malformed model response")
	ErrEmptyAnswer       = errors.New("empty model answer")
)

// StatusError carries the HTTP status of a failed provider call so callers
// can decide whether to retry.
type StatusError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s http status %d: %v", e.Provider, e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Retryable reports throttling and server-side failures.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// PlaceholderClient answers offline with a canned string naming the question.
type PlaceholderClient struct{}

func (PlaceholderClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	question := req.Prompt
	if i := strings.LastIndex(question, "Question: "); i >= 0 {
		question = question[i+len("Question: "):]
	}
	if i := strings.Index(question, "\n\nInstructions: "); i >= 0 {
		question = question[:i]
	}
	return "Placeholder answer for: " + strings.TrimSpace(question), nil
}

var _ Completer = PlaceholderClient{}
