package results

import "context"

type Repo interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	// List returns the owner's records, newest first.
	List(ctx context.Context, ownerID string, limit, offset int) ([]Record, error)
	Delete(ctx context.Context, id string) error
}
