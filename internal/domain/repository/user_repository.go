package repository

import (
	"context"

	"github.com/oksasatya/student-store/internal/domain/entity"
)

// UserRepository defines the record store operations on identities.
// Lookups return errs.ErrNotFound on a miss; Create returns ErrEmailTaken when
// the unique email constraint rejects the insert.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
}
