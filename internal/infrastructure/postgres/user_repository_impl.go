package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/student-store/internal/domain/entity"
	"github.com/oksasatya/student-store/internal/domain/errs"
	"github.com/oksasatya/student-store/internal/domain/repository"
)

const uniqueViolation = "23505"

const userColumns = `id::text, email, name, profile_picture, oauth_provider, oauth_id,
	is_active, is_verified, gender, residence, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, profile_picture, oauth_provider, oauth_id, is_active, is_verified, gender, residence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text, created_at, updated_at
	`, u.Email, u.Name, u.ProfilePicture, u.OAuthProvider, u.OAuthID, u.IsActive, u.IsVerified, u.Gender, u.Residence)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, key)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*entity.User, error) {
	u := &entity.User{}
	row := r.pool.QueryRow(ctx, query, arg)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.ProfilePicture, &u.OAuthProvider, &u.OAuthID,
		&u.IsActive, &u.IsVerified, &u.Gender, &u.Residence, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// Update persists every mutable column. Email is the natural key and is not updated.
func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	key, err := parseID(u.ID)
	if err != nil {
		return err
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET name = $1, profile_picture = $2, oauth_provider = $3, oauth_id = $4,
		    is_active = $5, is_verified = $6, gender = $7, residence = $8, updated_at = $9
		WHERE id = $10
	`, u.Name, u.ProfilePicture, u.OAuthProvider, u.OAuthID, u.IsActive, u.IsVerified,
		u.Gender, u.Residence, u.UpdatedAt, key)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if res.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
