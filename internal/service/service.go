package service

import (
	"context"

	"github.com/filegpt/filegpt/internal/model"
)

// FileRepository is the persistence surface the services depend on.
// *repo.FileRepo is the production implementation.
type FileRepository interface {
	Create(ctx context.Context, f *model.File) error
	GetByID(ctx context.Context, id string) (*model.File, error)
	ListByIDs(ctx context.Context, ids []string) ([]*model.File, error)
	List(ctx context.Context) ([]*model.File, error)
	ListUnprocessed(ctx context.Context, limit int) ([]*model.File, error)
	UpdateName(ctx context.Context, id, newName string, mtime int64) error
	MarkProcessed(ctx context.Context, id string, mtime int64) error
	Delete(ctx context.Context, id string) error
}
