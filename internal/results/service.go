package results

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"content-analyzer/internal/analysis"
	"content-analyzer/internal/report"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type Service struct {
	Repo  Repo
	Now   func() time.Time
	NewID func() string
}

func NewService(repo Repo) *Service {
	return &Service{
		Repo:  repo,
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: uuid.NewString,
	}
}

// Save stores a finished result for owner.
func (s *Service) Save(ctx context.Context, ownerID, fileName, questionSetID string, result analysis.Result) (Record, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Record{}, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	if len(result.Categories) == 0 {
		return Record{}, fmt.Errorf("%w: result is empty", ErrInvalidInput)
	}
	rec := Record{
		ID:            s.NewID(),
		OwnerID:       ownerID,
		FileName:      fileName,
		QuestionSetID: questionSetID,
		Client:        result.Client,
		Result:        result,
		CreatedAt:     s.Now(),
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (Record, error) {
	rec, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.OwnerID != ownerID {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, ownerID string, limit, offset int) ([]Summary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	recs, err := s.Repo.List(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Summary())
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return s.Repo.Delete(ctx, id)
}

// Report renders a stored record. It returns the bytes and download name.
func (s *Service) Report(ctx context.Context, ownerID, id string, format report.Format) ([]byte, string, error) {
	rec, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, "", err
	}
	data, err := report.Render(format, report.Document{SourceName: rec.FileName, Result: rec.Result, GeneratedAt: rec.CreatedAt})
	if err != nil {
		return nil, "", err
	}
	return data, report.FileName(rec.FileName, format), nil
}
