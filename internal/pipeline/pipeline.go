package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"content-analyzer/internal/analysis"
	"content-analyzer/internal/catalog"
	"content-analyzer/internal/extract"
	"content-analyzer/internal/shared/metrics"
	"content-analyzer/internal/shared/storage/object"
	"content-analyzer/internal/shared/telemetry"
	"content-analyzer/internal/shared/util"
	"content-analyzer/internal/transcribe"
)

const cleanupTimeout = 30 * time.Second

// Transcriber turns audio into text.
type Transcriber interface {
	Precheck(size int64) error
	Transcribe(ctx context.Context, in transcribe.Input, progress transcribe.ProgressFunc) (string, error)
}

// Analyzer answers every catalog question about a transcript.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string, questions catalog.Catalog, progress analysis.ProgressFunc) (analysis.Result, error)
}

// File is the input of a run. When Key is set the object is already staged
// and the upload step only records it.
type File struct {
	Name        string
	ContentType string
	Data        []byte
	Key         string
}

// Outcome is what a successful run produced.
type Outcome struct {
	Job        Job
	Result     analysis.Result
	Transcript string
	SourceKey  string
}

// Pipeline drives a file through upload, transcription (audio only),
// analysis and result generation.
type Pipeline struct {
	Store       object.Store
	Transcriber Transcriber
	Analyzer    Analyzer
	Now         func() time.Time
}

type run struct {
	p      *Pipeline
	job    Job
	sink   Sink
	key    string
	// staged is set when this run uploaded key itself. Keys handed in
	// through File.Key belong to the caller and are never deleted here.
	staged bool
	start  time.Time
}

// Run executes one job. Every change to the job is published to sink. On any
// outcome other than Done an object the run uploaded is deleted; a pre-staged
// File.Key is left for the caller.
func (p *Pipeline) Run(ctx context.Context, jobID string, file File, questions catalog.Catalog, sink Sink) (out Outcome, err error) {
	if sink == nil {
		sink = discardSink{}
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}
	r := &run{p: p, sink: sink, start: p.now()}
	r.job = Job{ID: jobID, FileName: file.Name, Stage: StageIdle, StartedAt: r.start, UpdatedAt: r.start}

	metrics.IncRunStarted()
	telemetry.Info("run.started", map[string]any{
		"run_id":    jobID,
		"file_name": file.Name,
		"bytes":     len(file.Data),
		"questions": questions.QuestionCount(),
	})

	defer func() {
		if err != nil {
			r.cleanup()
			r.failed(err)
			return
		}
		metrics.IncRunCompleted()
		metrics.ObserveRunDurationMs(metrics.SinceMillis(r.start))
		telemetry.Info("run.completed", map[string]any{
			"run_id":      jobID,
			"source_key":  r.key,
			"answers":     out.Result.AnswerCount(),
			"duration_ms": metrics.SinceMillis(r.start),
		})
	}()

	result, transcript, err := r.execute(ctx, file, questions)
	if err != nil {
		return Outcome{}, err
	}
	r.update(func(j *Job) {
		j.Stage = StageDone
		j.StatusMessage = MessageDone
		j.Progress = 100
		j.Completed = true
	})
	return Outcome{Job: r.job, Result: result, Transcript: transcript, SourceKey: r.key}, nil
}

// Check runs the validation a run would do before uploading anything: the
// catalog shape, the file type and, for audio, the size limit.
func (p *Pipeline) Check(file File, questions catalog.Catalog) error {
	_, _, err := p.check(file, questions)
	return err
}

func (p *Pipeline) check(file File, questions catalog.Catalog) (string, extract.Class, error) {
	if err := questions.Validate(); err != nil {
		return "", 0, fail(KindInvalidCatalog, StageUpload, err)
	}
	if p.Store == nil {
		return "", 0, fail(KindConfigurationMissing, StageUpload, errors.New("object store not configured"))
	}
	if p.Analyzer == nil {
		return "", 0, fail(KindConfigurationMissing, StageAnalyze, analysis.ErrNoClient)
	}

	contentType := extract.Normalize(file.ContentType, file.Name, file.Data)
	class := extract.Classify(contentType, file.Name)
	switch class {
	case extract.ClassAudio:
		if p.Transcriber == nil {
			return "", 0, fail(KindConfigurationMissing, StageTranscribe, errors.New("transcription provider not configured"))
		}
		if err := p.Transcriber.Precheck(int64(len(file.Data))); err != nil {
			return "", 0, fail(KindFileTooLarge, StageUpload, err)
		}
	case extract.ClassDocument:
	default:
		return "", 0, fail(KindUnsupportedFileType, StageUpload, fmt.Errorf("%w: %s", extract.ErrUnsupported, contentType))
	}
	return contentType, class, nil
}

func (r *run) execute(ctx context.Context, file File, questions catalog.Catalog) (analysis.Result, string, error) {
	contentType, class, err := r.p.check(file, questions)
	if err != nil {
		return analysis.Result{}, "", err
	}

	var text string
	if class == extract.ClassDocument {
		extracted, err := extract.Text(ctx, file.Data, contentType, file.Name)
		if err != nil {
			if ctx.Err() != nil {
				return analysis.Result{}, "", fail(KindUploadFailed, StageUpload, ctx.Err())
			}
			return analysis.Result{}, "", fail(KindUnsupportedFileType, StageUpload, err)
		}
		text = extracted
	}

	if err := r.upload(ctx, file, contentType); err != nil {
		return analysis.Result{}, "", err
	}

	if class == extract.ClassAudio {
		transcript, err := r.transcribe(ctx, file)
		if err != nil {
			return analysis.Result{}, "", err
		}
		text = transcript
	}

	result, err := r.analyze(ctx, text, questions)
	if err != nil {
		return analysis.Result{}, "", err
	}

	r.enter(StageGenerate, MessageGenerate)
	if len(result.Categories) == 0 {
		return analysis.Result{}, "", fail(KindAnalysisFailed, StageGenerate, errors.New("analysis produced no results"))
	}
	r.progress(100)
	return result, text, nil
}

func (r *run) upload(ctx context.Context, file File, contentType string) error {
	r.enter(StageUpload, MessageUpload)
	if file.Key != "" {
		r.key = file.Key
		r.progress(100)
		return nil
	}

	key := StagedKey(r.p.now(), file.Name)
	if err := r.p.Store.Put(ctx, key, bytes.NewReader(file.Data), int64(len(file.Data)), contentType); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return fail(KindUploadFailed, StageUpload, err)
	}
	r.key = key
	r.staged = true
	r.progress(100)
	return nil
}

func (r *run) transcribe(ctx context.Context, file File) (string, error) {
	r.enter(StageTranscribe, MessageTranscribe)
	text, err := r.p.Transcriber.Transcribe(ctx, transcribe.Input{
		JobName:   fmt.Sprintf("job_%d", r.p.now().UnixMilli()),
		FileName:  file.Name,
		SourceKey: r.key,
		Data:      file.Data,
	}, r.progress)
	if err != nil {
		switch {
		case errors.Is(err, transcribe.ErrFileTooLarge):
			return "", fail(KindFileTooLarge, StageTranscribe, err)
		case errors.Is(err, transcribe.ErrPreprocessingInsufficient):
			return "", fail(KindPreprocessingInsufficient, StageTranscribe, err)
		default:
			return "", fail(KindTranscriptionFailed, StageTranscribe, err)
		}
	}
	r.progress(100)
	return text, nil
}

func (r *run) analyze(ctx context.Context, text string, questions catalog.Catalog) (analysis.Result, error) {
	r.enter(StageAnalyze, MessageAnalyze)
	result, err := r.p.Analyzer.Analyze(ctx, text, questions, func(done, total int) {
		if total > 0 {
			r.progress(done * 100 / total)
		}
	})
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidCatalog) {
			return analysis.Result{}, fail(KindInvalidCatalog, StageAnalyze, err)
		}
		return analysis.Result{}, fail(KindAnalysisFailed, StageAnalyze, err)
	}
	r.progress(100)
	return result, nil
}

// enter moves to a new stage with progress reset to zero.
func (r *run) enter(stage Stage, message string) {
	telemetry.Info("run.stage", map[string]any{
		"run_id": r.job.ID,
		"from":   string(r.job.Stage),
		"to":     string(stage),
	})
	r.update(func(j *Job) {
		j.Stage = stage
		j.StatusMessage = message
		j.Progress = 0
	})
}

// progress never moves backwards within a stage.
func (r *run) progress(pct int) {
	if pct > 100 {
		pct = 100
	}
	if pct <= r.job.Progress {
		return
	}
	r.update(func(j *Job) { j.Progress = pct })
}

func (r *run) update(mutate func(j *Job)) {
	mutate(&r.job)
	r.job.UpdatedAt = r.p.now()
	r.sink.Publish(r.job)
}

func (r *run) failed(err error) {
	var pe *Error
	if !errors.As(err, &pe) {
		pe = fail(KindAnalysisFailed, r.job.Stage, err)
	}
	if pe.Canceled() {
		metrics.IncRunCanceled()
	} else {
		metrics.IncRunFailed(string(pe.Kind))
	}
	metrics.ObserveRunDurationMs(metrics.SinceMillis(r.start))
	telemetry.Error("run.failed", map[string]any{
		"run_id":     r.job.ID,
		"stage":      string(pe.Stage),
		"kind":       string(pe.Kind),
		"error":      util.SanitizeError(pe.Err),
		"source_key": r.key,
	})
	r.update(func(j *Job) {
		j.Stage = StageFailed
		j.StatusMessage = pe.UserMessage()
		j.Completed = false
		j.Error = util.SanitizeError(pe.Err)
		j.ErrorKind = pe.Kind
	})
}

// cleanup deletes the staged object. Failures are logged and counted only.
func (r *run) cleanup() {
	if r.key == "" || !r.staged {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := r.p.Store.Delete(ctx, r.key); err != nil {
		metrics.IncStagedDeleteFailure()
		telemetry.Warn("run.cleanup_failed", map[string]any{
			"run_id":     r.job.ID,
			"source_key": r.key,
			"error":      util.SanitizeError(err),
		})
		return
	}
	telemetry.Info("run.cleanup", map[string]any{"run_id": r.job.ID, "source_key": r.key})
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now().UTC()
}

// StagedKey builds the object key for an upload: upload_<unix millis>_<name>.
func StagedKey(now time.Time, fileName string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	name, err := util.SanitizeFileName(base)
	if err != nil || name == "." || name == "/" {
		name = "file"
	}
	return fmt.Sprintf("upload_%d_%s", now.UnixMilli(), name)
}
