package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/student-store/internal/domain/entity"
)

// ErrEmailTaken is returned by UserRepository.Create on a duplicate email.
var ErrEmailTaken = errors.New("email already registered")

// ProductRepository is by-identifier CRUD over listings.
type ProductRepository interface {
	Insert(ctx context.Context, p *entity.Product) error
	Get(ctx context.Context, id string) (*entity.Product, error)
	FindAll(ctx context.Context) ([]entity.Product, error)
	Save(ctx context.Context, p *entity.Product) error
	Delete(ctx context.Context, id string) error
	// Search is the fallback text search used when no search index is configured.
	Search(ctx context.Context, q string, limit int) ([]entity.Product, error)
}
