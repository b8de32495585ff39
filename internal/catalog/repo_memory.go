package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo keeps question sets in process memory.
type MemoryRepo struct {
	mu   sync.RWMutex
	sets map[string]QuestionSet
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{sets: make(map[string]QuestionSet)}
}

func (r *MemoryRepo) List(ctx context.Context, ownerID string) ([]QuestionSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]QuestionSet, 0, len(r.sets))
	for _, s := range r.sets {
		if s.OwnerID == ownerID {
			out = append(out, copySet(s))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (QuestionSet, error) {
	if err := ctx.Err(); err != nil {
		return QuestionSet{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sets[id]
	if !ok {
		return QuestionSet{}, ErrNotFound
	}
	return copySet(s), nil
}

func (r *MemoryRepo) Create(ctx context.Context, set QuestionSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sets[set.ID]; exists {
		return ErrInvalidInput
	}
	r.sets[set.ID] = copySet(set)
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, set QuestionSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sets[set.ID]; !ok {
		return ErrNotFound
	}
	r.sets[set.ID] = copySet(set)
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sets[id]; !ok {
		return ErrNotFound
	}
	delete(r.sets, id)
	return nil
}

func copySet(s QuestionSet) QuestionSet {
	s.Questions = s.Questions.Clone()
	return s
}

var _ Repo = (*MemoryRepo)(nil)
