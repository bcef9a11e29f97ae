package documents

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Document) error
	// List orders by createdAt descending.
	List(ctx context.Context, f Filter) ([]*Document, error)
	Delete(ctx context.Context, id uuid.UUID) (*Document, error)
}
