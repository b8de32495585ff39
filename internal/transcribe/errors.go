package transcribe

import (
	"errors"
	"fmt"
)

var (
	ErrFileTooLarge              = errors.New("file exceeds maximum upload size")
	ErrPreprocessingInsufficient = errors.New("audio still exceeds provider limit after normalization")
	ErrTranscriptionFailed       = errors.New("transcription failed")
	ErrUnsupportedAudio          = errors.New("audio format not supported by normalizer")
)

// SizeError reports a file over the configured maximum. It matches
// ErrFileTooLarge with errors.Is.
type SizeError struct {
	Size  int64
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("%v: %d bytes, limit %d", ErrFileTooLarge, e.Size, e.Limit)
}

func (e *SizeError) Is(target error) bool { return target == ErrFileTooLarge }
