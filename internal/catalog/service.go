package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"content-analyzer/internal/shared/telemetry"
)

// Input carries the editable fields of a question set.
type Input struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Questions   Catalog `json:"questions"`
}

// Service exposes question-set operations scoped to an owner. The default set
// is visible to everyone and can be neither changed nor deleted.
type Service struct {
	Repo  Repo
	Now   func() time.Time
	NewID func() string
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// List returns the default set followed by the owner's sets, oldest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]QuestionSet, error) {
	owned, err := s.Repo.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list question sets: %w", err)
	}
	out := make([]QuestionSet, 0, len(owned)+1)
	out = append(out, Default())
	return append(out, owned...), nil
}

// Get returns a set the owner can see.
func (s *Service) Get(ctx context.Context, ownerID, id string) (QuestionSet, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == DefaultSetID {
		return Default(), nil
	}
	set, err := s.Repo.Get(ctx, id)
	if err != nil {
		return QuestionSet{}, err
	}
	if set.OwnerID != ownerID {
		return QuestionSet{}, ErrNotFound
	}
	return set, nil
}

func (s *Service) Create(ctx context.Context, ownerID string, in Input) (QuestionSet, error) {
	in, err := validateInput(in)
	if err != nil {
		return QuestionSet{}, err
	}
	now := s.now()
	set := QuestionSet{
		ID:          s.newID(),
		OwnerID:     ownerID,
		Name:        in.Name,
		Description: in.Description,
		Questions:   in.Questions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, set); err != nil {
		return QuestionSet{}, fmt.Errorf("create question set: %w", err)
	}
	telemetry.Info("question_set.created", map[string]any{
		"question_set_id": set.ID,
		"user_id":         ownerID,
		"categories":      len(set.Questions),
		"questions":       set.Questions.QuestionCount(),
	})
	return set, nil
}

func (s *Service) Update(ctx context.Context, ownerID, id string, in Input) (QuestionSet, error) {
	if id == DefaultSetID {
		return QuestionSet{}, ErrDefaultImmutable
	}
	in, err := validateInput(in)
	if err != nil {
		return QuestionSet{}, err
	}
	set, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return QuestionSet{}, err
	}
	if set.IsDefault {
		return QuestionSet{}, ErrDefaultImmutable
	}
	set.Name = in.Name
	set.Description = in.Description
	set.Questions = in.Questions
	set.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, set); err != nil {
		return QuestionSet{}, fmt.Errorf("update question set: %w", err)
	}
	return set, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if id == DefaultSetID {
		return ErrDefaultImmutable
	}
	set, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if set.IsDefault {
		return ErrDefaultImmutable
	}
	return s.Repo.Delete(ctx, id)
}

// Import parses an uploaded outline document. When name is non-empty the
// parsed catalog is also saved as a new set.
func (s *Service) Import(ctx context.Context, ownerID, name, fileName, mimeType string, data []byte) (QuestionSet, error) {
	parsed, err := ParseDocument(ctx, fileName, mimeType, data)
	if err != nil {
		return QuestionSet{}, err
	}
	if strings.TrimSpace(name) == "" {
		return QuestionSet{Questions: parsed}, nil
	}
	return s.Create(ctx, ownerID, Input{Name: name, Description: "Imported from " + fileName, Questions: parsed})
}

func validateInput(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return Input{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := in.Questions.Validate(); err != nil {
		return Input{}, err
	}
	in.Questions = in.Questions.Clone()
	return in, nil
}
