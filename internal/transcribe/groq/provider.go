package groq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	tr "content-analyzer/internal/transcribe"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "whisper-large-v3-turbo"

	// MaxUploadBytes is Groq's per-request audio limit.
	MaxUploadBytes = 25 << 20
)

// Provider sends audio to Groq's OpenAI-compatible whisper endpoint. Jobs
// complete within the Submit call.
type Provider struct {
	api   *goopenai.Client
	model string
}

func New(apiKey, baseURL, model string) (*Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("GROQ_API_KEY is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	cfg := goopenai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimRight(baseURL, "/")
	return &Provider{api: goopenai.NewClientWithConfig(cfg), model: model}, nil
}

func (p *Provider) MaxUploadBytes() int64 { return MaxUploadBytes }

func (p *Provider) Submit(ctx context.Context, sub tr.Submission) (tr.Job, error) {
	if len(sub.Audio) == 0 {
		return tr.Job{}, errors.New("audio payload is empty")
	}
	if len(sub.Audio) > MaxUploadBytes {
		return tr.Job{}, fmt.Errorf("audio payload %d bytes exceeds %d", len(sub.Audio), MaxUploadBytes)
	}
	fileName := sub.FileName
	if fileName == "" {
		fileName = "audio." + sub.MediaFormat
	}

	resp, err := p.api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    p.model,
		FilePath: fileName,
		Reader:   bytes.NewReader(sub.Audio),
		Language: whisperLanguage(sub.LanguageCode),
		Format:   goopenai.AudioResponseFormatJSON,
	})
	if err != nil {
		return tr.Job{}, fmt.Errorf("groq transcription: %w", err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return tr.Job{}, errors.New("empty transcription result")
	}
	return tr.Job{Name: sub.JobName, State: tr.StateCompleted, Transcript: text}, nil
}

// Poll is never needed for completed jobs; it reports the job as failed
// so a misuse cannot spin until the poll ceiling.
func (p *Provider) Poll(_ context.Context, job tr.Job) (tr.JobStatus, error) {
	if job.State == tr.StateCompleted {
		return tr.JobStatus{State: tr.StateCompleted, Transcript: job.Transcript}, nil
	}
	return tr.JobStatus{State: tr.StateFailed, Failure: "groq jobs are synchronous"}, nil
}

// whisperLanguage converts a BCP-47 tag (en-US) to ISO-639-1 (en).
func whisperLanguage(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return strings.ToLower(code)
}
