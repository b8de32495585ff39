package awstranscribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"

	"content-analyzer/internal/shared/storage/object"
	tr "content-analyzer/internal/transcribe"
)

// API is the subset of the Transcribe client used here.
type API interface {
	StartTranscriptionJob(ctx context.Context, params *transcribe.StartTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error)
	GetTranscriptionJob(ctx context.Context, params *transcribe.GetTranscriptionJobInput, optFns ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error)
}

// Provider runs batch jobs on Amazon Transcribe against objects already
// staged in S3.
type Provider struct {
	api     API
	locator object.Locator
	http    *http.Client
}

func New(ctx context.Context, region string, locator object.Locator) (*Provider, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if strings.TrimSpace(region) != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(transcribe.NewFromConfig(cfg), locator, nil), nil
}

func NewWithClient(api API, locator object.Locator, httpClient *http.Client) *Provider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Provider{api: api, locator: locator, http: httpClient}
}

// MaxUploadBytes is zero: Transcribe reads the staged object directly.
func (p *Provider) MaxUploadBytes() int64 { return 0 }

func (p *Provider) Submit(ctx context.Context, sub tr.Submission) (tr.Job, error) {
	if p.locator == nil {
		return tr.Job{}, errors.New("aws transcribe requires an s3-backed object store")
	}
	if sub.SourceKey == "" {
		return tr.Job{}, errors.New("source key is required")
	}
	name := sub.JobName
	if name == "" {
		name = fmt.Sprintf("transcribe_%d", time.Now().UnixMilli())
	}

	_, err := p.api.StartTranscriptionJob(ctx, &transcribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(name),
		LanguageCode:         types.LanguageCode(sub.LanguageCode),
		MediaFormat:          types.MediaFormat(sub.MediaFormat),
		Media:                &types.Media{MediaFileUri: aws.String(p.locator.URI(sub.SourceKey))},
	})
	if err != nil {
		return tr.Job{}, fmt.Errorf("start transcription job: %w", err)
	}
	return tr.Job{Name: name, State: tr.StateInProgress}, nil
}

func (p *Provider) Poll(ctx context.Context, job tr.Job) (tr.JobStatus, error) {
	out, err := p.api.GetTranscriptionJob(ctx, &transcribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(job.Name),
	})
	if err != nil {
		return tr.JobStatus{}, fmt.Errorf("get transcription job: %w", err)
	}
	if out == nil || out.TranscriptionJob == nil {
		return tr.JobStatus{State: tr.StateInProgress}, nil
	}

	tj := out.TranscriptionJob
	switch tj.TranscriptionJobStatus {
	case types.TranscriptionJobStatusCompleted:
		if tj.Transcript == nil || aws.ToString(tj.Transcript.TranscriptFileUri) == "" {
			return tr.JobStatus{State: tr.StateFailed, Failure: "completed job has no transcript uri"}, nil
		}
		text, err := p.fetchTranscript(ctx, aws.ToString(tj.Transcript.TranscriptFileUri))
		if err != nil {
			return tr.JobStatus{}, err
		}
		return tr.JobStatus{State: tr.StateCompleted, Transcript: text}, nil
	case types.TranscriptionJobStatusFailed:
		return tr.JobStatus{State: tr.StateFailed, Failure: aws.ToString(tj.FailureReason)}, nil
	default:
		return tr.JobStatus{State: tr.StateInProgress}, nil
	}
}

type transcriptFile struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

func (p *Provider) fetchTranscript(ctx context.Context, uri string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fetch transcript: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var file transcriptFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return "", fmt.Errorf("decode transcript: %w", err)
	}
	if len(file.Results.Transcripts) == 0 {
		return "", nil
	}
	return file.Results.Transcripts[0].Transcript, nil
}
