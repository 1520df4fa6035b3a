package main

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/oksasatya/student-store/config"
	"github.com/oksasatya/student-store/internal/domain/entity"
	"github.com/oksasatya/student-store/internal/domain/errs"
	pginfra "github.com/oksasatya/student-store/internal/infrastructure/postgres"
	"github.com/oksasatya/student-store/pkg/helpers"
)

// seed inserts a demo seller and one listing for local development.
// Run after the API has applied migrations.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	users := pginfra.NewUserRepository(pool)
	products := pginfra.NewProductRepository(pool)

	email := "demo.seller@example.com"
	seller, err := users.GetByEmail(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		seller = &entity.User{
			Email:         email,
			Name:          "Demo Seller",
			OAuthProvider: entity.ProviderGoogle,
			IsActive:      true,
			IsVerified:    true,
		}
		err = users.Create(ctx, seller)
	}
	if err != nil {
		logger.Fatalf("failed to seed user: %v", err)
	}
	logger.Infof("seeded user: id=%s email=%s", seller.ID, seller.Email)

	desc := "Lightly used, all chapters intact."
	p := &entity.Product{
		ID:          uuid.NewString(),
		Name:        "Calculus textbook",
		Description: &desc,
		Price:       25,
		SellerID:    seller.ID,
		ImageURLs:   []string{},
		Location:    "North Campus",
		Category:    "Books",
		Tags:        []string{"textbook", "math"},
		DateAdded:   time.Now().UTC(),
	}
	if err := products.Insert(ctx, p); err != nil {
		logger.Fatalf("failed to seed product: %v", err)
	}
	logger.Infof("seeded product: id=%s name=%q", p.ID, p.Name)
}
