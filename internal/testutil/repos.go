// Package testutil provides in-memory implementations of the repository
// interfaces and testify mocks for the outbound adapters.
package testutil

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/student-store/internal/domain/entity"
	"github.com/oksasatya/student-store/internal/domain/errs"
	"github.com/oksasatya/student-store/internal/domain/repository"
)

// Users is a map-backed UserRepository.
type Users struct {
	mu    sync.Mutex
	byID  map[string]entity.User
	Saves int

	// BeforeCreate runs inside Create before the uniqueness check; tests use it
	// to slip in a competing insert.
	BeforeCreate func()
}

func NewUsers(seed ...entity.User) *Users {
	r := &Users{byID: map[string]entity.User{}}
	for _, u := range seed {
		r.byID[u.ID] = u
	}
	return r
}

func (r *Users) Put(u entity.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[u.ID] = u
}

func (r *Users) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *Users) Create(_ context.Context, u *entity.User) error {
	if hook := r.BeforeCreate; hook != nil {
		r.BeforeCreate = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return repository.ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = *u
	return nil
}

func (r *Users) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *Users) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byID[u.ID]
	if !ok {
		return errs.ErrNotFound
	}
	cp := *u
	cp.Email = old.Email
	r.byID[u.ID] = cp
	r.Saves++
	return nil
}

// Products is a map-backed ProductRepository.
type Products struct {
	mu   sync.Mutex
	byID map[string]entity.Product
}

func NewProducts(seed ...entity.Product) *Products {
	r := &Products{byID: map[string]entity.Product{}}
	for _, p := range seed {
		r.byID[p.ID] = p
	}
	return r
}

func (r *Products) Insert(_ context.Context, p *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = clone(*p)
	return nil
}

func (r *Products) Get(_ context.Context, id string) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	p = clone(p)
	return &p, nil
}

func (r *Products) FindAll(_ context.Context) ([]entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Product, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, clone(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateAdded.After(out[j].DateAdded) })
	return out, nil
}

func (r *Products) Save(_ context.Context, p *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return errs.ErrNotFound
	}
	r.byID[p.ID] = clone(*p)
	return nil
}

func (r *Products) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Products) Search(ctx context.Context, q string, limit int) ([]entity.Product, error) {
	all, _ := r.FindAll(ctx)
	q = strings.ToLower(q)
	out := make([]entity.Product, 0)
	for _, p := range all {
		if matches(p, q) {
			out = append(out, p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func matches(p entity.Product, q string) bool {
	fields := append([]string{p.Name, p.Category, p.Location}, p.Tags...)
	if p.Description != nil {
		fields = append(fields, *p.Description)
	}
	return slices.ContainsFunc(fields, func(f string) bool {
		return strings.Contains(strings.ToLower(f), q)
	})
}

func clone(p entity.Product) entity.Product {
	p.ImageURLs = slices.Clone(p.ImageURLs)
	p.Tags = slices.Clone(p.Tags)
	return p
}

// Cache is a map-backed ProductCache that counts hits.
type Cache struct {
	mu   sync.Mutex
	m    map[string]entity.Product
	Hits int
}

func NewCache() *Cache { return &Cache{m: map[string]entity.Product{}} }

func (c *Cache) Get(_ context.Context, id string) (*entity.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.m[id]
	if !ok {
		return nil, false, nil
	}
	c.Hits++
	p = clone(p)
	return &p, true, nil
}

func (c *Cache) Set(_ context.Context, p *entity.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[p.ID] = clone(*p)
	return nil
}

func (c *Cache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, id)
	return nil
}

func (c *Cache) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.m[id]
	return ok
}

// Index is an in-memory ProductIndex matching on lowercase name substrings.
type Index struct {
	mu   sync.Mutex
	docs map[string]entity.Product
}

func NewIndex() *Index { return &Index{docs: map[string]entity.Product{}} }

func (x *Index) Index(_ context.Context, p *entity.Product) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.docs[p.ID] = clone(*p)
	return nil
}

func (x *Index) Remove(_ context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	delete(x.docs, id)
	return nil
}

func (x *Index) Search(_ context.Context, q string, size int) ([]string, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	q = strings.ToLower(q)
	ids := make([]string, 0)
	for id, p := range x.docs {
		if strings.Contains(strings.ToLower(p.Name), q) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > size {
		ids = ids[:size]
	}
	return ids, nil
}

func (x *Index) Has(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.docs[id]
	return ok
}

var (
	_ repository.UserRepository    = (*Users)(nil)
	_ repository.ProductRepository = (*Products)(nil)
	_ repository.ProductCache      = (*Cache)(nil)
	_ repository.ProductIndex      = (*Index)(nil)
)
