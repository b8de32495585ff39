package transcribe

import (
	"context"
	"path/filepath"
	"strings"
)

// State is the provider-reported state of a transcription job.
type State string

const (
	StateInProgress State = "IN_PROGRESS"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// Submission describes the audio to transcribe. Providers that read from
// object storage use SourceKey; those that take an upload use Audio.
type Submission struct {
	JobName      string
	SourceKey    string
	FileName     string
	MediaFormat  string
	LanguageCode string
	Audio        []byte
}

// Job is a handle returned by Submit. Synchronous providers fill Transcript
// and mark the job completed straight away.
type Job struct {
	Name       string
	State      State
	Transcript string
}

type JobStatus struct {
	State      State
	Transcript string
	Failure    string
}

// Provider is a hosted speech-to-text service.
type Provider interface {
	Submit(ctx context.Context, sub Submission) (Job, error)
	Poll(ctx context.Context, job Job) (JobStatus, error)
	// MaxUploadBytes is the per-request payload limit, 0 when the provider
	// reads the staged object itself.
	MaxUploadBytes() int64
}

// MediaFormat maps a file extension to a provider media format name.
func MediaFormat(fileName string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	switch ext {
	case "mp3", "mp4", "wav", "flac", "ogg", "amr", "webm", "m4a":
		return ext
	case "oga", "opus":
		return "ogg"
	case "":
		return "mp3"
	default:
		return ext
	}
}
