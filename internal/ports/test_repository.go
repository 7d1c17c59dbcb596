package ports

import (
	"context"

	"github.com/pm33/abtest/internal/domain"
)

type TestRepository interface {
	Create(ctx context.Context, test *domain.Test) error
	// GetByID and GetByName return (nil, nil) when no such test exists.
	GetByID(ctx context.Context, id string) (*domain.Test, error)
	GetByName(ctx context.Context, name string) (*domain.Test, error)
	List(ctx context.Context) ([]*domain.Test, error)
	ListActive(ctx context.Context) ([]*domain.Test, error)
	Update(ctx context.Context, test *domain.Test) error
	Delete(ctx context.Context, id string) error
	Activate(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
}
