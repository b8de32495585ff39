package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"content-analyzer/internal/analysis"
	"content-analyzer/internal/catalog"
	"content-analyzer/internal/pipeline"
	"content-analyzer/internal/queue"
	"content-analyzer/internal/results"
	"content-analyzer/internal/shared/storage/object"
	"content-analyzer/internal/shared/telemetry"
	"content-analyzer/internal/shared/util"
)

const discardTimeout = 30 * time.Second

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure or a message missing required fields.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	SourceKey string
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process message"
	}
	return "process message: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if err := msg.Validate(); err != nil {
		return msg, meta, ErrDecode{Meta: meta, Err: err}
	}
	return msg, meta, nil
}

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, jobID string, file pipeline.File, questions catalog.Catalog, sink pipeline.Sink) (pipeline.Outcome, error)
}

type QuestionSets interface {
	Get(ctx context.Context, ownerID, id string) (catalog.QuestionSet, error)
}

type ResultSaver interface {
	Save(ctx context.Context, ownerID, fileName, questionSetID string, result analysis.Result) (results.Record, error)
}

// Processor analyzes objects named by queue messages.
type Processor struct {
	Store   object.Store
	Runner  Runner
	Sets    QuestionSets
	Results ResultSaver
	NewID   func() string
}

// Process runs the pipeline over the staged object and saves the result.
// The source object is kept when the failure may succeed on redelivery and
// deleted once the failure is permanent.
func (p *Processor) Process(ctx context.Context, msg queue.Message) (rec results.Record, err error) {
	if p == nil || p.Store == nil || p.Runner == nil || p.Sets == nil {
		return results.Record{}, errors.New("worker processor not configured")
	}
	wrap := func(err error) error {
		return ErrProcess{SourceKey: msg.SourceKey, RequestID: msg.RequestID, Err: err}
	}
	defer func() {
		if err != nil && Permanent(err) {
			p.discard(ctx, msg)
		}
	}()

	set, err := p.Sets.Get(ctx, msg.OwnerID, msg.QuestionSetID)
	if err != nil {
		return results.Record{}, wrap(fmt.Errorf("question set: %w", err))
	}

	rc, err := p.Store.Open(ctx, msg.SourceKey)
	if err != nil {
		return results.Record{}, wrap(fmt.Errorf("open staged object: %w", err))
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return results.Record{}, wrap(fmt.Errorf("read staged object: %w", err))
	}

	fileName := msg.FileName
	if strings.TrimSpace(fileName) == "" {
		fileName = msg.SourceKey
	}
	newID := p.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	out, err := p.Runner.Run(ctx, newID(), pipeline.File{
		Name:        fileName,
		ContentType: msg.ContentType,
		Data:        data,
		Key:         msg.SourceKey,
	}, set.Questions, nil)
	if err != nil {
		return results.Record{}, wrap(err)
	}

	if p.Results == nil {
		return results.Record{FileName: fileName, QuestionSetID: set.ID, Client: out.Result.Client, Result: out.Result}, nil
	}
	rec, err = p.Results.Save(ctx, msg.OwnerID, fileName, set.ID, out.Result)
	if err != nil {
		return results.Record{}, wrap(fmt.Errorf("save result: %w", err))
	}
	return rec, nil
}

func (p *Processor) discard(ctx context.Context, msg queue.Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	err := p.Store.Delete(ctx, msg.SourceKey)
	if err != nil && !errors.Is(err, object.ErrNotFound) {
		telemetry.Warn("worker.discard_failed", map[string]any{
			"source_key": msg.SourceKey,
			"request_id": msg.RequestID,
			"error":      util.SanitizeError(err),
		})
		return
	}
	telemetry.Info("worker.discarded", map[string]any{"source_key": msg.SourceKey, "request_id": msg.RequestID})
}

// Permanent reports whether redelivering the message cannot succeed.
func Permanent(err error) bool {
	var decodeErr ErrDecode
	var emptyErr ErrEmptyBody
	if errors.As(err, &decodeErr) || errors.As(err, &emptyErr) {
		return true
	}
	if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, object.ErrNotFound) {
		return true
	}
	var pe *pipeline.Error
	if errors.As(err, &pe) && !pe.Canceled() {
		switch pe.Kind {
		case pipeline.KindInvalidCatalog, pipeline.KindFileTooLarge, pipeline.KindUnsupportedFileType,
			pipeline.KindPreprocessingInsufficient, pipeline.KindConfigurationMissing:
			return true
		}
	}
	return false
}
