package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/student-store/internal/domain/entity"
	"github.com/oksasatya/student-store/internal/domain/errs"
	repo "github.com/oksasatya/student-store/internal/domain/repository"
	"github.com/oksasatya/student-store/internal/metrics"
	"github.com/oksasatya/student-store/pkg/helpers"
	"github.com/oksasatya/student-store/pkg/imaging"
	"github.com/oksasatya/student-store/pkg/mailer"
	tpl "github.com/oksasatya/student-store/pkg/mailer/templates"
	"github.com/oksasatya/student-store/pkg/validation"
)

const (
	DefaultSearchSize = 10
	MaxSearchSize     = 50
)

// RawImage is one uploaded file as received; it is never persisted.
type RawImage struct {
	Data        []byte
	Size        int64
	Filename    string
	ContentType string
}

type CreateProductInput struct {
	Name        string   `json:"name" validate:"required"`
	Description *string  `json:"description"`
	Price       float64  `json:"price" validate:"gt=0,finite"`
	Location    string   `json:"location" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Tags        []string `json:"tags"`
	SellerID    string   `json:"seller_id"`
}

// UpdateProductInput is a partial update; nil fields are left unchanged.
type UpdateProductInput struct {
	Name        *string   `json:"name" validate:"omitnil,min=1"`
	Description *string   `json:"description"`
	Price       *float64  `json:"price" validate:"omitnil,gt=0,finite"`
	Location    *string   `json:"location" validate:"omitnil,min=1"`
	Category    *string   `json:"category" validate:"omitnil,min=1"`
	Tags        *[]string `json:"tags"`
	IsSold      *bool     `json:"is_sold"`
}

func (in UpdateProductInput) patch() entity.ProductPatch {
	return entity.ProductPatch{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Location:    in.Location,
		Category:    in.Category,
		Tags:        in.Tags,
		IsSold:      in.IsSold,
	}
}

// ValidationError carries per-field messages and matches errs.ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for k, v := range e.Fields {
		parts = append(parts, k+" "+v)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return errs.ErrValidation }

func validate(s any) error {
	if err := validation.Struct(s); err != nil {
		return &ValidationError{Fields: validation.ToDetails(err)}
	}
	return nil
}

type ProductService struct {
	Products repo.ProductRepository
	Users    repo.UserRepository
	Blobs    repo.BlobStore
	Cache    repo.ProductCache // optional
	Index    repo.ProductIndex // optional
	Pub      helpers.JSONPublisher
	Metrics  metrics.Recorder
	Logger   *logrus.Logger

	Compression   imaging.Options
	UploadTimeout time.Duration
	AppName       string
	MailEnabled   bool

	now func() time.Time
}

func NewProductService(products repo.ProductRepository, users repo.UserRepository, blobs repo.BlobStore, logger *logrus.Logger) *ProductService {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return &ProductService{
		Products:      products,
		Users:         users,
		Blobs:         blobs,
		Metrics:       metrics.Nop{},
		Logger:        logger,
		Compression:   imaging.DefaultOptions,
		UploadTimeout: 30 * time.Second,
		now:           time.Now,
	}
}

func (s *ProductService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// Create compresses and uploads every image in order, then persists the
// listing. Uploads that already succeeded are not rolled back on a later failure.
func (s *ProductService) Create(ctx context.Context, in CreateProductInput, images []RawImage) (*entity.Product, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"images": "at least one image is required"}}
	}

	urls := make([]string, 0, len(images))
	for i, img := range images {
		url, err := s.storeImage(ctx, img)
		if err != nil {
			s.Logger.WithError(err).WithFields(logrus.Fields{"index": i, "filename": img.Filename}).Warn("image rejected")
			return nil, err
		}
		urls = append(urls, url)
	}

	seller := in.SellerID
	if seller == "" {
		seller = entity.PlaceholderSellerID
	}
	p := &entity.Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		SellerID:    seller,
		ImageURLs:   urls,
		Location:    in.Location,
		Category:    in.Category,
		Tags:        in.Tags,
		DateAdded:   s.clock().UTC(),
	}
	if err := s.Products.Insert(ctx, p); err != nil {
		return nil, err
	}
	s.Logger.WithFields(logrus.Fields{"product_id": p.ID, "images": len(urls), "seller_id": seller}).Info("listing created")
	s.index(ctx, p)
	return p, nil
}

func (s *ProductService) storeImage(ctx context.Context, img RawImage) (string, error) {
	start := time.Now()
	res, err := imaging.Compress(img.Data, s.Compression)
	if err != nil {
		return "", err
	}
	s.Metrics.RecordCompression(res.Attempts, len(res.Data), res.WithinTarget, time.Since(start))
	if !res.WithinTarget {
		s.Logger.WithFields(logrus.Fields{
			"filename": img.Filename,
			"bytes":    len(res.Data),
			"quality":  res.Quality,
			"attempts": res.Attempts,
		}).Warn("image above size target after compression")
	}

	uctx, cancel := context.WithTimeout(ctx, s.UploadTimeout)
	defer cancel()
	url, err := s.Blobs.Upload(uctx, res.Data, res.ContentType())
	if err != nil {
		s.Metrics.RecordUploadFailure()
		return "", fmt.Errorf("%w: %v", errs.ErrUpload, err)
	}
	return url, nil
}

// Get reads through the cache.
func (s *ProductService) Get(ctx context.Context, id string) (*entity.Product, error) {
	if s.Cache != nil {
		p, ok, err := s.Cache.Get(ctx, id)
		if err != nil {
			s.Logger.WithError(err).WithField("product_id", id).Warn("cache read failed")
		}
		if ok {
			return p, nil
		}
	}
	p, err := s.Products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, p); err != nil {
			s.Logger.WithError(err).WithField("product_id", id).Warn("cache write failed")
		}
	}
	return p, nil
}

// List returns every listing, newest first.
func (s *ProductService) List(ctx context.Context) ([]entity.Product, error) {
	return s.Products.FindAll(ctx)
}

func (s *ProductService) Update(ctx context.Context, id string, in UpdateProductInput) (*entity.Product, error) {
	if err := validate(in); err != nil {
		return nil, err
	}
	p, err := s.Products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := p.Apply(in.patch())
	return s.save(ctx, &next)
}

// MarkSold flips is_sold to true. Repeating it is harmless and does not
// notify the seller again.
func (s *ProductService) MarkSold(ctx context.Context, id string) (*entity.Product, error) {
	p, err := s.Products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsSold {
		return p, nil
	}
	sold := true
	next := p.Apply(entity.ProductPatch{IsSold: &sold})
	out, err := s.save(ctx, &next)
	if err != nil {
		return nil, err
	}
	s.notifySeller(ctx, out)
	return out, nil
}

func (s *ProductService) save(ctx context.Context, p *entity.Product) (*entity.Product, error) {
	if err := s.Products.Save(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx, p.ID)
	s.index(ctx, p)
	return p, nil
}

// Delete removes the record. Stored images are left in the blob store.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.Products.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	if s.Index != nil {
		if err := s.Index.Remove(ctx, id); err != nil {
			s.Logger.WithError(err).WithField("product_id", id).Warn("search index remove failed")
		}
	}
	return nil
}

// Search queries the search index when one is configured and loads the hits
// from the record store; otherwise it falls back to the store's text search.
func (s *ProductService) Search(ctx context.Context, q string, size int) ([]entity.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, &ValidationError{Fields: map[string]string{"q": "is required"}}
	}
	if size <= 0 || size > MaxSearchSize {
		size = DefaultSearchSize
	}
	if s.Index == nil {
		return s.Products.Search(ctx, q, size)
	}

	ids, err := s.Index.Search(ctx, q, size)
	if err != nil {
		s.Logger.WithError(err).Warn("search index query failed, using record store")
		return s.Products.Search(ctx, q, size)
	}
	out := make([]entity.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.Products.Get(ctx, id)
		if errors.Is(err, errs.ErrNotFound) {
			// index lags behind a delete
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *ProductService) invalidate(ctx context.Context, id string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, id); err != nil {
		s.Logger.WithError(err).WithField("product_id", id).Warn("cache invalidate failed")
	}
}

func (s *ProductService) index(ctx context.Context, p *entity.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, p); err != nil {
		s.Logger.WithError(err).WithField("product_id", p.ID).Warn("search index update failed")
	}
}

// notifySeller resolves the weak seller reference and enqueues a
// listing_sold email when it names a known identity.
func (s *ProductService) notifySeller(ctx context.Context, p *entity.Product) {
	if !s.MailEnabled || s.Pub == nil || s.Users == nil || p.SellerID == entity.PlaceholderSellerID {
		return
	}
	seller, err := s.Users.GetByID(ctx, p.SellerID)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			s.Logger.WithError(err).WithField("seller_id", p.SellerID).Warn("seller lookup failed")
		}
		return
	}
	job := mailer.EmailJob{
		To:       seller.Email,
		Template: tpl.ListingSold,
		Data:     tpl.NewListingSoldData(s.AppName, seller.Name, seller.Email, p.Name, p.Price, s.clock()),
	}
	if err := s.Pub.PublishJSON(ctx, job); err != nil {
		s.Logger.WithError(err).WithField("product_id", p.ID).Warn("enqueue listing_sold email failed")
	}
}
