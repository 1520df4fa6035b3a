// Package search keeps listings in an Elasticsearch index for text search.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/student-store/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

// Fields matched by Search, name boosted.
var searchFields = []string{"name^2", "description", "category", "tags", "location"}

type ProductIndex struct {
	ES        *elasticsearch.Client
	IndexName string
}

func NewProductIndex(es *elasticsearch.Client, index string) *ProductIndex {
	return &ProductIndex{ES: es, IndexName: index}
}

type productDoc struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       float64  `json:"price"`
	SellerID    string   `json:"seller_id"`
	Location    string   `json:"location"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags,omitempty"`
	IsSold      bool     `json:"is_sold"`
	DateAdded   string   `json:"date_added"`
}

func toDoc(p *entity.Product) productDoc {
	d := productDoc{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		SellerID:  p.SellerID,
		Location:  p.Location,
		Category:  p.Category,
		Tags:      p.Tags,
		IsSold:    p.IsSold,
		DateAdded: p.DateAdded.UTC().Format(time.RFC3339Nano),
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	return d
}

func (s *ProductIndex) Index(ctx context.Context, p *entity.Product) error {
	b, err := json.Marshal(toDoc(p))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: s.IndexName, DocumentID: p.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		return fmt.Errorf("es index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

func (s *ProductIndex) Remove(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: s.IndexName, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		return fmt.Errorf("es delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	// a missing document is already removed
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es delete: %s", res.Status())
	}
	return nil
}

// Search runs a multi_match query and returns listing ids, best match first.
func (s *ProductIndex) Search(ctx context.Context, q string, size int) ([]string, error) {
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": searchFields,
			},
		},
		"size":    size,
		"_source": false,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := s.ES.Search(
		s.ES.Search.WithContext(c),
		s.ES.Search.WithIndex(s.IndexName),
		s.ES.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, fmt.Errorf("es search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// productMapping keeps keyword fields exact and text fields analysed.
var productMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"id":          map[string]any{"type": "keyword"},
			"name":        map[string]any{"type": "text"},
			"description": map[string]any{"type": "text"},
			"price":       map[string]any{"type": "double"},
			"seller_id":   map[string]any{"type": "keyword"},
			"location":    map[string]any{"type": "text"},
			"category":    map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
			"tags":        map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
			"is_sold":     map[string]any{"type": "boolean"},
			"date_added":  map[string]any{"type": "date"},
		},
	},
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (s *ProductIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	exists, err := esapi.IndicesExistsRequest{Index: []string{s.IndexName}}.Do(c, s.ES)
	if err != nil {
		return fmt.Errorf("es exists: %w", err)
	}
	_ = exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}
	if exists.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es exists: %s", exists.Status())
	}

	b, _ := json.Marshal(productMapping)
	res, err := esapi.IndicesCreateRequest{Index: s.IndexName, Body: bytes.NewReader(b)}.Do(c, s.ES)
	if err != nil {
		return fmt.Errorf("es create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	// lost a race with another instance
	if res.StatusCode == http.StatusBadRequest && strings.Contains(readAll(res.Body), "resource_already_exists_exception") {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("es create index: %s", res.Status())
	}
	return nil
}

func readAll(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	return string(b)
}
