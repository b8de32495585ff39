package transcribe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"content-analyzer/internal/shared/metrics"
	"content-analyzer/internal/shared/telemetry"
	"content-analyzer/internal/shared/util"
)

const (
	DefaultMaxFileBytes = 100 << 20
	DefaultPollInterval = 5 * time.Second
	DefaultMaxPolls     = 360
	DefaultLanguage     = "en-US"

	pollProgressStep = 5
	pollProgressCap  = 90
)

// Input is one audio file to transcribe.
type Input struct {
	JobName   string
	FileName  string
	SourceKey string
	Data      []byte
}

// ProgressFunc receives an estimated percentage while the job runs.
type ProgressFunc func(percent int)

// Adapter turns audio into text through a Provider, shrinking the payload
// first when it is over the provider's per-request limit.
type Adapter struct {
	Provider     Provider
	Normalizer   Normalizer
	MaxFileBytes int64
	PollInterval time.Duration
	MaxPolls     int
	Language     string

	// wait blocks for d or until ctx ends. Tests replace it.
	wait func(ctx context.Context, d time.Duration) error
}

// Precheck rejects files over the configured maximum before anything is uploaded.
func (a *Adapter) Precheck(size int64) error {
	limit := a.MaxFileBytes
	if limit <= 0 {
		limit = DefaultMaxFileBytes
	}
	if size > limit {
		return &SizeError{Size: size, Limit: limit}
	}
	return nil
}

// Transcribe submits the audio, polls until the provider finishes and returns
// the trimmed transcript.
func (a *Adapter) Transcribe(ctx context.Context, in Input, progress ProgressFunc) (string, error) {
	if progress == nil {
		progress = func(int) {}
	}
	if err := a.Precheck(int64(len(in.Data))); err != nil {
		return "", err
	}

	audio, fileName, err := a.fitToProvider(ctx, in.Data, in.FileName)
	if err != nil {
		return "", err
	}

	language := a.Language
	if language == "" {
		language = DefaultLanguage
	}
	job, err := a.Provider.Submit(ctx, Submission{
		JobName:      in.JobName,
		SourceKey:    in.SourceKey,
		FileName:     fileName,
		MediaFormat:  MediaFormat(fileName),
		LanguageCode: language,
		Audio:        audio,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: submit: %v", ErrTranscriptionFailed, util.SanitizeError(err))
	}
	if job.State == StateCompleted {
		progress(100)
		return strings.TrimSpace(job.Transcript), nil
	}
	return a.poll(ctx, job, progress)
}

func (a *Adapter) poll(ctx context.Context, job Job, progress ProgressFunc) (string, error) {
	interval := a.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxPolls := a.MaxPolls
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}
	wait := a.wait
	if wait == nil {
		wait = sleep
	}

	for polls := 1; ; polls++ {
		if polls > maxPolls {
			return "", fmt.Errorf("%w: job %s still running after %d polls", ErrTranscriptionFailed, job.Name, maxPolls)
		}
		if err := wait(ctx, interval); err != nil {
			return "", err
		}

		metrics.IncTranscriptionPoll()
		status, err := a.Provider.Poll(ctx, job)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			// Transient; the next tick tries again.
			telemetry.Warn("transcription.poll_error", map[string]any{
				"job":   job.Name,
				"poll":  polls,
				"error": util.SanitizeError(err),
			})
			progress(pollProgress(polls))
			continue
		}

		switch status.State {
		case StateCompleted:
			progress(100)
			return strings.TrimSpace(status.Transcript), nil
		case StateFailed:
			reason := status.Failure
			if reason == "" {
				reason = "provider reported failure"
			}
			return "", fmt.Errorf("%w: %s", ErrTranscriptionFailed, reason)
		default:
			progress(pollProgress(polls))
		}
	}
}

// fitToProvider normalizes audio only when it exceeds the provider limit.
func (a *Adapter) fitToProvider(ctx context.Context, data []byte, fileName string) ([]byte, string, error) {
	limit := a.Provider.MaxUploadBytes()
	if limit <= 0 || int64(len(data)) <= limit {
		return data, fileName, nil
	}
	if a.Normalizer == nil {
		return nil, "", fmt.Errorf("%w: %d bytes over %d and no normalizer", ErrPreprocessingInsufficient, len(data), limit)
	}

	out, outName, err := a.Normalizer.Normalize(ctx, data, fileName)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", fmt.Errorf("%w: %v", ErrPreprocessingInsufficient, err)
	}
	metrics.IncNormalizedUpload()
	telemetry.Info("transcription.normalized", map[string]any{
		"file_name":    fileName,
		"input_bytes":  len(data),
		"output_bytes": len(out),
		"limit_bytes":  limit,
	})
	if int64(len(out)) > limit {
		return nil, "", fmt.Errorf("%w: %d bytes, limit %d", ErrPreprocessingInsufficient, len(out), limit)
	}
	return out, outName, nil
}

func pollProgress(polls int) int {
	p := polls * pollProgressStep
	if p > pollProgressCap {
		return pollProgressCap
	}
	return p
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
