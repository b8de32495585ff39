package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"content-analyzer/internal/transcribe"
)

// Kind classifies why a run failed.
type Kind string

const (
	KindInvalidCatalog            Kind = "invalid_catalog"
	KindFileTooLarge              Kind = "file_too_large"
	KindUnsupportedFileType       Kind = "unsupported_file_type"
	KindUploadFailed              Kind = "upload_failed"
	KindPreprocessingInsufficient Kind = "preprocessing_insufficient"
	KindTranscriptionFailed       Kind = "transcription_failed"
	KindAnalysisFailed            Kind = "analysis_failed"
	KindConfigurationMissing      Kind = "configuration_missing"
)

// Error is the failure of a run at a given stage.
type Error struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s during %s", e.Kind, e.Stage)
	}
	return fmt.Sprintf("%s during %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Canceled reports whether the run stopped because its context ended.
func (e *Error) Canceled() bool {
	return errors.Is(e.Err, context.Canceled) || errors.Is(e.Err, context.DeadlineExceeded)
}

// UserMessage is a short explanation fit for display.
func (e *Error) UserMessage() string {
	if e.Canceled() {
		return "Processing was cancelled."
	}
	switch e.Kind {
	case KindInvalidCatalog:
		return "The question set is empty. Add at least one category with one question."
	case KindFileTooLarge:
		var se *transcribe.SizeError
		if errors.As(e.Err, &se) && se.Limit > 0 {
			return "The file is too large. The maximum size is " + FormatSize(se.Limit) + "."
		}
		return "The file is too large."
	case KindUnsupportedFileType:
		return "Unsupported file type. Upload an audio file or a text document."
	case KindUploadFailed:
		return "Failed to upload the file. Please try again."
	case KindPreprocessingInsufficient:
		return "The audio is too large to transcribe even after compression. Try a shorter recording."
	case KindTranscriptionFailed:
		return "Transcription failed. Please try again."
	case KindAnalysisFailed:
		return "Analysis failed. Please try again."
	case KindConfigurationMissing:
		return "The service is not configured for this file type."
	default:
		return "Processing failed."
	}
}

// FormatSize renders a byte count the way limits are shown to users.
func FormatSize(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		if n%mb == 0 {
			return fmt.Sprintf("%dMB", n/mb)
		}
		return strconv.FormatFloat(float64(n)/mb, 'f', 1, 64) + "MB"
	}
	if n >= 1<<10 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}

// KindOf returns the kind of a pipeline error, or "" for other errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func fail(kind Kind, stage Stage, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}
