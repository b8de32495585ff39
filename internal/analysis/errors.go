package analysis

import (
	"errors"
	"fmt"
)

var (
	ErrAnalysisFailed  = errors.New("analysis failed")
	ErrEmptyTranscript = fmt.Errorf("%w: transcript is empty", ErrAnalysisFailed)
	ErrNoClient        = errors.New("inference client not configured")
)

// PlaceholderAnswer replaces the answer of a question whose inference failed.
const PlaceholderAnswer = "Error: Unable to analyze this question."
