package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/student-store/internal/domain/entity"
	"github.com/oksasatya/student-store/internal/domain/errs"
	"github.com/oksasatya/student-store/internal/domain/repository"
)

const productColumns = `id::text, name, description, price, seller_id, image_urls,
	location, category, tags, is_sold, date_added`

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) Insert(ctx context.Context, p *entity.Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (id, name, description, price, seller_id, image_urls, location, category, tags, is_sold, date_added)
		VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, p.ID, p.Name, p.Description, p.Price, p.SellerID, nonNil(p.ImageURLs), p.Location, p.Category,
		nonNil(p.Tags), p.IsSold, p.DateAdded)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*entity.Product, error) {
	key, err := parseID(id)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, key)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) FindAll(ctx context.Context) ([]entity.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products ORDER BY date_added DESC`)
}

// Search matches q case-insensitively as a literal substring of name,
// description, category, location and tags.
func (r *ProductRepository) Search(ctx context.Context, q string, limit int) ([]entity.Product, error) {
	return r.list(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE name ILIKE $1 ESCAPE '\'
		   OR COALESCE(description, '') ILIKE $1 ESCAPE '\'
		   OR category ILIKE $1 ESCAPE '\'
		   OR location ILIKE $1 ESCAPE '\'
		   OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE $1 ESCAPE '\')
		ORDER BY date_added DESC
		LIMIT $2
	`, containsPattern(q), limit)
}

func (r *ProductRepository) list(ctx context.Context, query string, args ...any) ([]entity.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	out := make([]entity.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *ProductRepository) Save(ctx context.Context, p *entity.Product) error {
	key, err := parseID(p.ID)
	if err != nil {
		return err
	}
	res, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $1, description = $2, price = $3, seller_id = $4, image_urls = $5,
		    location = $6, category = $7, tags = $8, is_sold = $9
		WHERE id = $10
	`, p.Name, p.Description, p.Price, p.SellerID, nonNil(p.ImageURLs), p.Location, p.Category,
		nonNil(p.Tags), p.IsSold, key)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if res.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	key, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, key)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	p := &entity.Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.SellerID, &p.ImageURLs,
		&p.Location, &p.Category, &p.Tags, &p.IsSold, &p.DateAdded); err != nil {
		return nil, err
	}
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ repository.ProductRepository = (*ProductRepository)(nil)
