package runs

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"content-analyzer/internal/analysis"
	"content-analyzer/internal/catalog"
	"content-analyzer/internal/pipeline"
	"content-analyzer/internal/report"
	"content-analyzer/internal/results"
	"content-analyzer/internal/shared/telemetry"
)

func quiet(t *testing.T) {
	t.Helper()
	prev := telemetry.SetOutput(io.Discard)
	t.Cleanup(func() { telemetry.SetOutput(prev) })
}

// gatedRunner publishes an analyze snapshot and then blocks until released or
// canceled.
type gatedRunner struct {
	release  chan struct{}
	checkErr error
	runErr   error
	result   analysis.Result
}

func newGatedRunner() *gatedRunner {
	return &gatedRunner{
		release: make(chan struct{}),
		result: analysis.Result{
			Client: "Acme",
			Categories: []analysis.CategoryResult{{
				Category: "Business",
				Answers:  []analysis.Answer{{Question: "What does the company do?", Answer: "Sells widgets."}},
			}},
		},
	}
}

func (r *gatedRunner) Check(file pipeline.File, questions catalog.Catalog) error {
	return r.checkErr
}

func (r *gatedRunner) Run(ctx context.Context, jobID string, file pipeline.File, questions catalog.Catalog, sink pipeline.Sink) (pipeline.Outcome, error) {
	job := pipeline.Job{ID: jobID, FileName: file.Name, Stage: pipeline.StageAnalyze, Progress: 50}
	sink.Publish(job)
	select {
	case <-r.release:
	case <-ctx.Done():
		err := &pipeline.Error{Kind: pipeline.KindAnalysisFailed, Stage: pipeline.StageAnalyze, Err: ctx.Err()}
		job.Stage = pipeline.StageFailed
		job.Error = err.UserMessage()
		job.ErrorKind = err.Kind
		sink.Publish(job)
		return pipeline.Outcome{}, err
	}
	if r.runErr != nil {
		job.Stage = pipeline.StageFailed
		sink.Publish(job)
		return pipeline.Outcome{}, r.runErr
	}
	job.Stage = pipeline.StageDone
	job.Progress = 100
	job.Completed = true
	sink.Publish(job)
	return pipeline.Outcome{Job: job, Result: r.result}, nil
}

type recordingSaver struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (s *recordingSaver) Save(ctx context.Context, ownerID, fileName, questionSetID string, result analysis.Result) (results.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return results.Record{}, s.err
	}
	s.saved = append(s.saved, ownerID+"/"+fileName+"/"+questionSetID)
	return results.Record{ID: "result-1"}, nil
}

func testSet() catalog.QuestionSet {
	return catalog.Default()
}

func waitFor(t *testing.T, m *Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Wait(ctx); err != nil {
		t.Fatalf("run did not finish: %v", err)
	}
}

func TestStartRunsToCompletionAndSavesResult(t *testing.T) {
	quiet(t)
	runner := newGatedRunner()
	saver := &recordingSaver{}
	m := NewManager(runner, saver, 0)
	m.NewID = func() string { return "run-1" }

	snap, err := m.Start(context.Background(), "user-1", pipeline.File{Name: "notes.txt"}, testSet())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !snap.Active || snap.Job.ID != "run-1" || snap.Job.Stage != pipeline.StageIdle {
		t.Fatalf("unexpected initial snapshot: %+v", snap)
	}

	close(runner.release)
	waitFor(t, m)

	cur, err := m.Current("user-1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur.Active || cur.Job.Stage != pipeline.StageDone || !cur.Job.Completed {
		t.Fatalf("expected finished run, got %+v", cur)
	}
	if cur.Result == nil || cur.Result.Client != "Acme" {
		t.Fatalf("expected result, got %+v", cur.Result)
	}
	if cur.ResultID != "result-1" {
		t.Fatalf("expected saved result id, got %q", cur.ResultID)
	}
	if len(saver.saved) != 1 || saver.saved[0] != "user-1/notes.txt/"+catalog.DefaultSetID {
		t.Fatalf("unexpected saves: %v", saver.saved)
	}
}

func TestStartRejectsSecondActiveRun(t *testing.T) {
	quiet(t)
	runner := newGatedRunner()
	m := NewManager(runner, nil, 0)

	if _, err := m.Start(context.Background(), "user-1", pipeline.File{Name: "a.txt"}, testSet()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.Start(context.Background(), "user-2", pipeline.File{Name: "b.txt"}, testSet()); !errors.Is(err, ErrRunActive) {
		t.Fatalf("expected ErrRunActive, got %v", err)
	}
	close(runner.release)
	waitFor(t, m)

	if _, err := m.Start(context.Background(), "user-2", pipeline.File{Name: "b.txt"}, testSet()); err != nil {
		t.Fatalf("start after finish: %v", err)
	}
	waitFor(t, m)
}

func TestStartReturnsCheckError(t *testing.T) {
	quiet(t)
	runner := newGatedRunner()
	runner.checkErr = &pipeline.Error{Kind: pipeline.KindUnsupportedFileType, Stage: pipeline.StageUpload}
	m := NewManager(runner, nil, 0)

	_, err := m.Start(context.Background(), "user-1", pipeline.File{Name: "a.exe"}, testSet())
	if pipeline.KindOf(err) != pipeline.KindUnsupportedFileType {
		t.Fatalf("expected unsupported file type, got %v", err)
	}
	if _, err := m.Current("user-1"); !errors.Is(err, ErrNoRun) {
		t.Fatalf("expected no run after rejected start, got %v", err)
	}
}

func TestCancelStopsActiveRun(t *testing.T) {
	quiet(t)
	runner := newGatedRunner()
	saver := &recordingSaver{}
	m := NewManager(runner, saver, 0)

	if _, err := m.Start(context.Background(), "user-1", pipeline.File{Name: "a.txt"}, testSet()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Cancel("user-2"); !errors.Is(err, ErrNoRun) {
		t.Fatalf("other owner should not see the run, got %v", err)
	}
	if err := m.Cancel("user-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	waitFor(t, m)

	cur, err := m.Current("user-1")
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cur.Active || cur.Job.Stage != pipeline.StageFailed {
		t.Fatalf("expected failed run, got %+v", cur)
	}
	if cur.Job.Error != "Processing was cancelled." {
		t.Fatalf("unexpected error message %q", cur.Job.Error)
	}
	if cur.Result != nil || len(saver.saved) != 0 {
		t.Fatalf("canceled run must not produce a result")
	}
	if err := m.Cancel("user-1"); !errors.Is(err, ErrNoRun) {
		t.Fatalf("cancel of finished run should fail, got %v", err)
	}
}

func TestTimeoutCancelsRun(t *testing.T) {
	quiet(t)
	runner := newGatedRunner()
	m := NewManager(runner, nil, 20*time.Millisecond)

	if _, err := m.Start(context.Background(), "user-1", pipeline.File{Name: "a.txt"}, testSet()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, m)
	cur, _ := m.Current("user-1")
	if cur.Job.Stage != pipeline.StageFailed {
		t.Fatalf("expected timeout to fail the run, got %+v", cur.Job)
	}
}

func TestResetRequiresFinishedRun(t *testing.T) {
	quiet(t)
	runner := newGatedRunner()
	m := NewManager(runner, nil, 0)

	if _, err := m.Start(context.Background(), "user-1", pipeline.File{Name: "a.txt"}, testSet()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Reset("user-1"); !errors.Is(err, ErrRunActive) {
		t.Fatalf("expected ErrRunActive, got %v", err)
	}
	close(runner.release)
	waitFor(t, m)

	if err := m.Reset("user-1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := m.Current("user-1"); !errors.Is(err, ErrNoRun) {
		t.Fatalf("expected ErrNoRun after reset, got %v", err)
	}
}

func TestSaveFailureKeepsResult(t *testing.T) {
	quiet(t)
	runner := newGatedRunner()
	m := NewManager(runner, &recordingSaver{err: errors.New("db down")}, 0)

	if _, err := m.Start(context.Background(), "user-1", pipeline.File{Name: "a.txt"}, testSet()); err != nil {
		t.Fatalf("start: %v", err)
	}
	close(runner.release)
	waitFor(t, m)

	cur, _ := m.Current("user-1")
	if cur.Result == nil || cur.ResultID != "" {
		t.Fatalf("expected unsaved result to stay current, got %+v", cur)
	}
}

func TestReportRendersFinishedResult(t *testing.T) {
	quiet(t)
	runner := newGatedRunner()
	m := NewManager(runner, nil, 0)

	if _, err := m.Start(context.Background(), "user-1", pipeline.File{Name: "call.txt"}, testSet()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := m.Report("user-1", report.FormatTXT); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("expected ErrNotFinished, got %v", err)
	}
	close(runner.release)
	waitFor(t, m)

	data, name, err := m.Report("user-1", report.FormatTXT)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if name != "call Analysis.txt" {
		t.Fatalf("unexpected file name %q", name)
	}
	if len(data) == 0 {
		t.Fatalf("expected report bytes")
	}
}

func TestSubscribeReceivesSnapshotsUntilDone(t *testing.T) {
	quiet(t)
	runner := newGatedRunner()
	m := NewManager(runner, nil, 0)

	if _, err := m.Start(context.Background(), "user-1", pipeline.File{Name: "a.txt"}, testSet()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := m.Subscribe("user-2"); !errors.Is(err, ErrNoRun) {
		t.Fatalf("expected ErrNoRun for other owner, got %v", err)
	}
	updates, unsubscribe, err := m.Subscribe("user-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()

	close(runner.release)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case snap := <-updates:
			if !snap.Active {
				if snap.Result == nil || snap.Job.Stage != pipeline.StageDone {
					t.Fatalf("final snapshot incomplete: %+v", snap)
				}
				return
			}
		case <-timeout:
			t.Fatalf("no final snapshot")
		}
	}
}
