package pipeline

import "time"

// Stage is one phase of a run. Stages only move forward.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageUpload     Stage = "upload"
	StageTranscribe Stage = "transcribe"
	StageAnalyze    Stage = "analyze"
	StageGenerate   Stage = "generate"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

const (
	MessageUpload     = "Uploading file..."
	MessageTranscribe = "Transcribing audio... This may take several minutes."
	MessageAnalyze    = "Analyzing content..."
	MessageGenerate   = "Generating results..."
	MessageDone       = "Analysis complete."
)

// Terminal reports whether no further transitions will happen.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Job is the observable state of one run. The orchestrator owns it; everyone
// else receives copies.
type Job struct {
	ID            string    `json:"id"`
	FileName      string    `json:"fileName"`
	Stage         Stage     `json:"stage"`
	StatusMessage string    `json:"statusMessage"`
	Progress      int       `json:"progress"`
	Completed     bool      `json:"completed"`
	Error         string    `json:"error,omitempty"`
	ErrorKind     Kind      `json:"errorKind,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Sink receives a snapshot after every change to the job.
type Sink interface {
	Publish(job Job)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(job Job)

func (f SinkFunc) Publish(job Job) { f(job) }

type discardSink struct{}

func (discardSink) Publish(Job) {}
