package catalog

import "context"

// Repo persists user question sets. The built-in default set is never stored.
type Repo interface {
	List(ctx context.Context, ownerID string) ([]QuestionSet, error)
	Get(ctx context.Context, id string) (QuestionSet, error)
	Create(ctx context.Context, set QuestionSet) error
	Update(ctx context.Context, set QuestionSet) error
	Delete(ctx context.Context, id string) error
}
