package workerproc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"content-analyzer/internal/analysis"
	"content-analyzer/internal/catalog"
	"content-analyzer/internal/llm"
	"content-analyzer/internal/pipeline"
	"content-analyzer/internal/queue"
	"content-analyzer/internal/results"
	"content-analyzer/internal/shared/storage/object"
	"content-analyzer/internal/shared/storage/object/local"
	"content-analyzer/internal/shared/telemetry"
)

type mapStore map[string][]byte

func (s mapStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s[key] = data
	return nil
}

func (s mapStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := s[key]
	if !ok {
		return nil, object.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s mapStore) Delete(ctx context.Context, key string) error {
	delete(s, key)
	return nil
}

type captureRunner struct {
	file pipeline.File
	err  error
}

func (r *captureRunner) Run(ctx context.Context, jobID string, file pipeline.File, questions catalog.Catalog, sink pipeline.Sink) (pipeline.Outcome, error) {
	r.file = file
	if r.err != nil {
		return pipeline.Outcome{}, r.err
	}
	return pipeline.Outcome{Result: analysis.Result{Client: "Acme", Categories: []analysis.CategoryResult{{Category: "A"}}}}, nil
}

type defaultSets struct{}

func (defaultSets) Get(ctx context.Context, ownerID, id string) (catalog.QuestionSet, error) {
	if id == "" || id == catalog.DefaultSetID {
		return catalog.Default(), nil
	}
	return catalog.QuestionSet{}, catalog.ErrNotFound
}

type saverFunc func(ownerID, fileName, questionSetID string, result analysis.Result) (results.Record, error)

func (f saverFunc) Save(ctx context.Context, ownerID, fileName, questionSetID string, result analysis.Result) (results.Record, error) {
	return f(ownerID, fileName, questionSetID, result)
}

func TestParseMessage(t *testing.T) {
	if _, _, err := ParseMessage("  "); !errors.As(err, &ErrEmptyBody{}) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if _, meta, err := ParseMessage("{bad"); !Permanent(err) || meta.BodyLen != 4 || meta.BodySHA == "" {
		t.Fatalf("expected permanent decode error with meta, got %v %+v", err, meta)
	}
	if _, _, err := ParseMessage(`{"fileName":"a.txt"}`); !errors.Is(err, queue.ErrMissingSourceKey) {
		t.Fatalf("expected ErrMissingSourceKey, got %v", err)
	}
	msg, _, err := ParseMessage(`{"sourceKey":"upload_1_a.txt","fileName":"a.txt","ownerId":"u"}`)
	if err != nil || msg.SourceKey != "upload_1_a.txt" {
		t.Fatalf("unexpected parse result %+v %v", msg, err)
	}
}

func TestProcessRunsStagedObjectAndSaves(t *testing.T) {
	store := mapStore{"upload_1_call.txt": []byte("transcript text")}
	runner := &captureRunner{}
	var savedOwner, savedSet string
	p := &Processor{
		Store:  store,
		Runner: runner,
		Sets:   defaultSets{},
		Results: saverFunc(func(ownerID, fileName, questionSetID string, result analysis.Result) (results.Record, error) {
			savedOwner, savedSet = ownerID, questionSetID
			return results.Record{ID: "r-1", FileName: fileName}, nil
		}),
	}

	rec, err := p.Process(context.Background(), queue.Message{SourceKey: "upload_1_call.txt", FileName: "call.txt", OwnerID: "user-1"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rec.ID != "r-1" || savedOwner != "user-1" || savedSet != catalog.DefaultSetID {
		t.Fatalf("unexpected save %+v owner=%q set=%q", rec, savedOwner, savedSet)
	}
	if runner.file.Key != "upload_1_call.txt" || string(runner.file.Data) != "transcript text" || runner.file.Name != "call.txt" {
		t.Fatalf("unexpected pipeline input %+v", runner.file)
	}
}

func TestProcessMissingObjectIsPermanent(t *testing.T) {
	p := &Processor{Store: mapStore{}, Runner: &captureRunner{}, Sets: defaultSets{}}

	_, err := p.Process(context.Background(), queue.Message{SourceKey: "gone"})
	var procErr ErrProcess
	if !errors.As(err, &procErr) || procErr.SourceKey != "gone" {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if !Permanent(err) {
		t.Fatalf("missing object should be permanent")
	}
}

func TestProcessPipelineErrors(t *testing.T) {
	store := mapStore{"k": []byte("x")}
	transient := &Processor{Store: store, Runner: &captureRunner{err: &pipeline.Error{Kind: pipeline.KindTranscriptionFailed, Stage: pipeline.StageTranscribe}}, Sets: defaultSets{}}
	if _, err := transient.Process(context.Background(), queue.Message{SourceKey: "k"}); err == nil || Permanent(err) {
		t.Fatalf("transcription failure should be retryable, got %v", err)
	}

	store["k"] = []byte("x")
	permanent := &Processor{Store: store, Runner: &captureRunner{err: &pipeline.Error{Kind: pipeline.KindUnsupportedFileType, Stage: pipeline.StageUpload}}, Sets: defaultSets{}}
	if _, err := permanent.Process(context.Background(), queue.Message{SourceKey: "k"}); !Permanent(err) {
		t.Fatalf("unsupported file should be permanent, got %v", err)
	}
}

func TestProcessUnknownQuestionSet(t *testing.T) {
	p := &Processor{Store: mapStore{"k": []byte("x")}, Runner: &captureRunner{}, Sets: defaultSets{}}

	_, err := p.Process(context.Background(), queue.Message{SourceKey: "k", QuestionSetID: "missing"})
	if !errors.Is(err, catalog.ErrNotFound) || !Permanent(err) {
		t.Fatalf("expected permanent not found, got %v", err)
	}
}

type unavailableLLM struct{ calls int }

func (u *unavailableLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	u.calls++
	return "", errors.New("provider unavailable")
}

type oneSet struct{}

func (oneSet) Get(ctx context.Context, ownerID, id string) (catalog.QuestionSet, error) {
	return catalog.QuestionSet{ID: "s-1", Questions: catalog.Catalog{
		{Name: "Scope", Questions: []catalog.Question{{Text: "What is in scope?"}}},
	}}, nil
}

func TestProcessRetryableFailureKeepsSourceObject(t *testing.T) {
	prev := telemetry.SetOutput(io.Discard)
	t.Cleanup(func() { telemetry.SetOutput(prev) })

	dir := t.TempDir()
	store := local.New(dir)
	if err := store.Put(context.Background(), "incoming/doc.txt", bytes.NewReader([]byte("meeting notes")), 13, "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}
	completer := &unavailableLLM{}
	p := &Processor{
		Store:  store,
		Runner: &pipeline.Pipeline{Store: store, Analyzer: analysis.NewAnalyzer(completer, analysis.Options{})},
		Sets:   oneSet{},
	}
	msg := queue.Message{SourceKey: "incoming/doc.txt", FileName: "doc.txt", ContentType: "text/plain"}

	for delivery := 1; delivery <= 2; delivery++ {
		_, err := p.Process(context.Background(), msg)
		if pipeline.KindOf(err) != pipeline.KindAnalysisFailed {
			t.Fatalf("delivery %d: expected analysis failure, got %v", delivery, err)
		}
		if Permanent(err) {
			t.Fatalf("delivery %d: analysis failure should be retryable", delivery)
		}
		if _, err := os.Stat(filepath.Join(dir, "incoming", "doc.txt")); err != nil {
			t.Fatalf("delivery %d: source object removed: %v", delivery, err)
		}
	}
	if completer.calls != 2 {
		t.Fatalf("expected one inference call per delivery, got %d", completer.calls)
	}
}

func TestProcessPermanentFailureDiscardsSourceObject(t *testing.T) {
	prev := telemetry.SetOutput(io.Discard)
	t.Cleanup(func() { telemetry.SetOutput(prev) })

	store := mapStore{"incoming/blob.bin": {0x00, 0x01, 0x02, 0x03}}
	p := &Processor{
		Store:  store,
		Runner: &pipeline.Pipeline{Store: store, Analyzer: analysis.NewAnalyzer(&unavailableLLM{}, analysis.Options{})},
		Sets:   oneSet{},
	}

	_, err := p.Process(context.Background(), queue.Message{SourceKey: "incoming/blob.bin", FileName: "blob.bin", ContentType: "application/octet-stream"})
	if pipeline.KindOf(err) != pipeline.KindUnsupportedFileType || !Permanent(err) {
		t.Fatalf("expected permanent unsupported file, got %v", err)
	}
	if _, ok := store["incoming/blob.bin"]; ok {
		t.Fatalf("expected source object to be discarded")
	}
}
