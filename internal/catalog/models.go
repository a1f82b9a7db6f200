package catalog

import (
	"errors"
	"time"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrBrandNotFound   = errors.New("brand not found")
)

type Brand struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	BrandID       string    `json:"-"`
	BrandName     string    `json:"brand"`
	Price         int       `json:"price"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	IsAvailable   bool      `json:"isAvailable"`
	StockQuantity int       `json:"stockQuantity"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Status is the storefront availability label.
func (p Product) Status() string {
	if !p.IsAvailable || p.StockQuantity <= 0 {
		return "outOfStock"
	}
	return "available"
}

// Filter narrows a product listing.
type Filter struct {
	Brand     string
	MaxPrice  *int
	Available *bool
}
