package transcribe

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

type fakeProvider struct {
	limit     int64
	submitted []Submission
	submitErr error
	job       Job
	statuses  []JobStatus
	pollErrs  []error
	polls     int
}

func (f *fakeProvider) Submit(_ context.Context, sub Submission) (Job, error) {
	f.submitted = append(f.submitted, sub)
	if f.submitErr != nil {
		return Job{}, f.submitErr
	}
	if f.job.Name == "" {
		f.job.Name = sub.JobName
	}
	return f.job, nil
}

func (f *fakeProvider) Poll(_ context.Context, _ Job) (JobStatus, error) {
	i := f.polls
	f.polls++
	if i < len(f.pollErrs) && f.pollErrs[i] != nil {
		return JobStatus{}, f.pollErrs[i]
	}
	if i < len(f.statuses) {
		return f.statuses[i], nil
	}
	return JobStatus{State: StateInProgress}, nil
}

func (f *fakeProvider) MaxUploadBytes() int64 { return f.limit }

type recordingNormalizer struct {
	calls int
	out   []byte
	err   error
}

func (r *recordingNormalizer) Normalize(_ context.Context, data []byte, fileName string) ([]byte, string, error) {
	r.calls++
	if r.err != nil {
		return nil, "", r.err
	}
	return r.out, renameExt(fileName, ".mp3"), nil
}

func noWait(context.Context, time.Duration) error { return nil }

func TestTranscribePollsUntilCompleted(t *testing.T) {
	p := &fakeProvider{statuses: []JobStatus{
		{State: StateInProgress},
		{State: StateInProgress},
		{State: StateCompleted, Transcript: "  hello world \n"},
	}}
	a := &Adapter{Provider: p, wait: noWait}

	var seen []int
	text, err := a.Transcribe(context.Background(), Input{JobName: "job-1", FileName: "call.mp3", SourceKey: "upload_1_call.mp3", Data: []byte("abc")}, func(p int) {
		seen = append(seen, p)
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("expected trimmed transcript, got %q", text)
	}
	want := []int{5, 10, 100}
	if len(seen) != len(want) {
		t.Fatalf("progress = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("progress = %v, want %v", seen, want)
		}
	}
	sub := p.submitted[0]
	if sub.MediaFormat != "mp3" || sub.LanguageCode != DefaultLanguage || sub.SourceKey != "upload_1_call.mp3" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
}

func TestTranscribeProgressCapsAtNinety(t *testing.T) {
	statuses := make([]JobStatus, 25)
	for i := range statuses {
		statuses[i] = JobStatus{State: StateInProgress}
	}
	statuses = append(statuses, JobStatus{State: StateCompleted, Transcript: "done"})
	a := &Adapter{Provider: &fakeProvider{statuses: statuses}, wait: noWait}

	last := -1
	peak := 0
	_, err := a.Transcribe(context.Background(), Input{FileName: "a.wav", Data: []byte("x")}, func(p int) {
		if p < last {
			t.Fatalf("progress went backwards: %d after %d", p, last)
		}
		last = p
		if p != 100 && p > peak {
			peak = p
		}
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if peak != 90 {
		t.Fatalf("expected in-flight progress capped at 90, got %d", peak)
	}
	if last != 100 {
		t.Fatalf("expected final progress 100, got %d", last)
	}
}

func TestTranscribeFailsAfterMaxPolls(t *testing.T) {
	p := &fakeProvider{}
	waits := 0
	a := &Adapter{Provider: p, MaxPolls: 3, wait: func(context.Context, time.Duration) error {
		waits++
		return nil
	}}

	_, err := a.Transcribe(context.Background(), Input{FileName: "a.mp3", Data: []byte("x")}, nil)
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
	if p.polls != 3 {
		t.Fatalf("expected 3 polls, got %d", p.polls)
	}
	// no extra interval after the last poll
	if waits != 3 {
		t.Fatalf("expected 3 waits, got %d", waits)
	}
}

func TestTranscribePollErrorsCountTowardCeiling(t *testing.T) {
	boom := errors.New("throttled")
	p := &fakeProvider{pollErrs: []error{boom, boom, boom, boom}}
	a := &Adapter{Provider: p, MaxPolls: 4, wait: noWait}

	_, err := a.Transcribe(context.Background(), Input{FileName: "a.mp3", Data: []byte("x")}, nil)
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
	if p.polls != 4 {
		t.Fatalf("expected 4 polls, got %d", p.polls)
	}
}

func TestTranscribeRecoversFromTransientPollError(t *testing.T) {
	p := &fakeProvider{
		pollErrs: []error{errors.New("timeout")},
		statuses: []JobStatus{{}, {State: StateCompleted, Transcript: "ok"}},
	}
	a := &Adapter{Provider: p, wait: noWait}

	text, err := a.Transcribe(context.Background(), Input{FileName: "a.mp3", Data: []byte("x")}, nil)
	if err != nil || text != "ok" {
		t.Fatalf("expected recovery, got %q %v", text, err)
	}
}

func TestTranscribeProviderFailure(t *testing.T) {
	p := &fakeProvider{statuses: []JobStatus{{State: StateFailed, Failure: "unsupported codec"}}}
	a := &Adapter{Provider: p, wait: noWait}

	_, err := a.Transcribe(context.Background(), Input{FileName: "a.mp3", Data: []byte("x")}, nil)
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
}

func TestTranscribeSubmitError(t *testing.T) {
	a := &Adapter{Provider: &fakeProvider{submitErr: errors.New("denied")}, wait: noWait}
	_, err := a.Transcribe(context.Background(), Input{FileName: "a.mp3", Data: []byte("x")}, nil)
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
}

func TestTranscribeSynchronousProviderSkipsPolling(t *testing.T) {
	p := &fakeProvider{limit: 1 << 20, job: Job{Name: "sync", State: StateCompleted, Transcript: " text "}}
	a := &Adapter{Provider: p, wait: func(context.Context, time.Duration) error {
		t.Fatal("wait should not be called")
		return nil
	}}

	text, err := a.Transcribe(context.Background(), Input{FileName: "a.mp3", Data: []byte("x")}, nil)
	if err != nil || text != "text" {
		t.Fatalf("got %q %v", text, err)
	}
	if p.polls != 0 {
		t.Fatalf("expected no polls, got %d", p.polls)
	}
}

func TestTranscribeCancelDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := &Adapter{Provider: &fakeProvider{}}

	_, err := a.Transcribe(ctx, Input{FileName: "a.mp3", Data: []byte("x")}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPrecheckRejectsOversizedFile(t *testing.T) {
	a := &Adapter{MaxFileBytes: 10}
	if err := a.Precheck(10); err != nil {
		t.Fatalf("expected size at limit to pass, got %v", err)
	}
	if err := a.Precheck(11); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if err := (&Adapter{}).Precheck(DefaultMaxFileBytes + 1); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected default limit to apply, got %v", err)
	}
}

func TestSmallFileIsNeverNormalized(t *testing.T) {
	p := &fakeProvider{limit: 25 << 20, job: Job{State: StateCompleted, Transcript: "t"}}
	n := &recordingNormalizer{}
	a := &Adapter{Provider: p, Normalizer: n, wait: noWait}

	data := bytes.Repeat([]byte{1}, 1<<20)
	if _, err := a.Transcribe(context.Background(), Input{FileName: "a.mp3", Data: data}, nil); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if n.calls != 0 {
		t.Fatalf("normalizer called %d times for a file under the limit", n.calls)
	}
	if len(p.submitted[0].Audio) != len(data) {
		t.Fatalf("expected original bytes to be submitted")
	}
}

func TestOversizedFileIsNormalized(t *testing.T) {
	p := &fakeProvider{limit: 100, job: Job{State: StateCompleted, Transcript: "t"}}
	n := &recordingNormalizer{out: make([]byte, 50)}
	a := &Adapter{Provider: p, Normalizer: n, wait: noWait}

	if _, err := a.Transcribe(context.Background(), Input{FileName: "long.m4a", Data: make([]byte, 200)}, nil); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if n.calls != 1 {
		t.Fatalf("expected one normalize call, got %d", n.calls)
	}
	sub := p.submitted[0]
	if sub.FileName != "long.mp3" || sub.MediaFormat != "mp3" || len(sub.Audio) != 50 {
		t.Fatalf("unexpected submission: name=%s format=%s len=%d", sub.FileName, sub.MediaFormat, len(sub.Audio))
	}
}

func TestNormalizedOutputStillTooLarge(t *testing.T) {
	p := &fakeProvider{limit: 100}
	a := &Adapter{Provider: p, Normalizer: &recordingNormalizer{out: make([]byte, 150)}, wait: noWait}

	_, err := a.Transcribe(context.Background(), Input{FileName: "a.wav", Data: make([]byte, 200)}, nil)
	if !errors.Is(err, ErrPreprocessingInsufficient) {
		t.Fatalf("expected ErrPreprocessingInsufficient, got %v", err)
	}
	if len(p.submitted) != 0 {
		t.Fatalf("nothing should be submitted")
	}
}

func TestNormalizerErrorIsPreprocessingFailure(t *testing.T) {
	a := &Adapter{Provider: &fakeProvider{limit: 100}, Normalizer: &recordingNormalizer{err: errors.New("ffmpeg exited 1")}, wait: noWait}
	_, err := a.Transcribe(context.Background(), Input{FileName: "a.wav", Data: make([]byte, 200)}, nil)
	if !errors.Is(err, ErrPreprocessingInsufficient) {
		t.Fatalf("expected ErrPreprocessingInsufficient, got %v", err)
	}
}

func TestMediaFormat(t *testing.T) {
	cases := map[string]string{
		"a.MP3":  "mp3",
		"b.m4a":  "m4a",
		"c.wav":  "wav",
		"d.opus": "ogg",
		"noext":  "mp3",
		"e.webm": "webm",
		"f.flac": "flac",
	}
	for name, want := range cases {
		if got := MediaFormat(name); got != want {
			t.Fatalf("MediaFormat(%q) = %q, want %q", name, got, want)
		}
	}
}
