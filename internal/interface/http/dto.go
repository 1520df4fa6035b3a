package handlers

import (
	"time"

	"github.com/oksasatya/student-store/internal/domain/entity"
)

type ProductResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Price       float64   `json:"price"`
	SellerID    string    `json:"seller_id"`
	ImageURLs   []string  `json:"image_urls"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	Tags        []string  `json:"tags"`
	IsSold      bool      `json:"is_sold"`
	DateAdded   time.Time `json:"date_added"`
}

func toProductResponse(p *entity.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		SellerID:    p.SellerID,
		ImageURLs:   orEmpty(p.ImageURLs),
		Location:    p.Location,
		Category:    p.Category,
		Tags:        orEmpty(p.Tags),
		IsSold:      p.IsSold,
		DateAdded:   p.DateAdded,
	}
}

func toProductList(ps []entity.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(ps))
	for i := range ps {
		out = append(out, toProductResponse(&ps[i]))
	}
	return out
}

type UserResponse struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	Gender         *string   `json:"gender"`
	Residence      *string   `json:"residence"`
	IsVerified     bool      `json:"is_verified"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		ProfilePicture: u.ProfilePicture,
		Gender:         u.Gender,
		Residence:      u.Residence,
		IsVerified:     u.IsVerified,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
