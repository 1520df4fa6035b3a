package repository

import (
	"context"

	"github.com/oksasatya/student-store/internal/domain/entity"
)

// BlobStore stores image bytes and returns a retrieval URL.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
}

// ProductIndex is the search index kept alongside the record store.
// Search returns matching listing ids, best match first.
type ProductIndex interface {
	Index(ctx context.Context, p *entity.Product) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, q string, size int) ([]string, error)
}

// ProductCache is a read-through cache of single listings. Get reports a miss
// with ok=false and no error.
type ProductCache interface {
	Get(ctx context.Context, id string) (p *entity.Product, ok bool, err error)
	Set(ctx context.Context, p *entity.Product) error
	Invalidate(ctx context.Context, id string) error
}
