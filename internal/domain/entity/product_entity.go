package entity

import "time"

// PlaceholderSellerID marks listings created without a session.
const PlaceholderSellerID = "00000000-0000-0000-0000-000000000000"

// Product is a single listing.
// SellerID is a weak reference to a User: no foreign key, no cascade.
type Product struct {
	ID          string
	Name        string
	Description *string
	Price       float64
	SellerID    string
	ImageURLs   []string
	Location    string
	Category    string
	Tags        []string
	IsSold      bool
	DateAdded   time.Time
}

// ProductPatch carries a partial update. Nil fields are left untouched.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	Location    *string
	Category    *string
	Tags        *[]string
	IsSold      *bool
}

// Apply returns a copy of p with the present fields of patch applied.
func (p Product) Apply(patch ProductPatch) Product {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		v := *patch.Description
		p.Description = &v
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Location != nil {
		p.Location = *patch.Location
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Tags != nil {
		p.Tags = append([]string(nil), (*patch.Tags)...)
	}
	if patch.IsSold != nil {
		p.IsSold = *patch.IsSold
	}
	return p
}
