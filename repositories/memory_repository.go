package repositories

import (
	"context"
	"errors"

	"github.com/Dosada05/arena-hub/models"
)

var ErrMemoryNotFound = errors.New("memory not found")

type ListMemoriesFilter struct {
	AuthorID string
	Limit    int
	Offset   int
}

type MemoryRepository interface {
	Create(ctx context.Context, memory *models.Memory) error
	GetByID(ctx context.Context, id string) (*models.Memory, error)
	// List returns newest first.
	List(ctx context.Context, filter ListMemoriesFilter) ([]models.Memory, error)
	Delete(ctx context.Context, id string) error
	// SetLike atomically adds or removes userID from the like set and returns the updated memory.
	SetLike(ctx context.Context, id, userID string, liked bool) (*models.Memory, error)
	// IncrementShares atomically adds one share and returns the new counter.
	IncrementShares(ctx context.Context, id string) (int64, error)
}
