package domain

import "github.com/utafrali/storefront/pkg/pagination"

// NamedRef is an id and display name pair.
type NamedRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Product is a catalog item. Read-only.
type Product struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	ImageCover         string   `json:"imageCover"`
	Price              float64  `json:"price"`
	PriceAfterDiscount float64  `json:"priceAfterDiscount,omitempty"`
	Category           NamedRef `json:"category"`
	Brand              NamedRef `json:"brand"`
	Images             []string `json:"images,omitempty"`
	RatingsAverage     float64  `json:"ratingsAverage"`
	RatingsQuantity    int      `json:"ratingsQuantity,omitempty"`
	Description        string   `json:"description,omitempty"`
}

// ProductPage is one page of a product listing as returned upstream.
type ProductPage struct {
	Products []Product
	Metadata *pagination.Metadata
}

// Category is a top-level catalog category.
type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug,omitempty"`
	Image string `json:"image,omitempty"`
}

// Brand is a product brand.
type Brand struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug,omitempty"`
	Image string `json:"image,omitempty"`
}

// Subcategory belongs to exactly one category.
type Subcategory struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Slug       string `json:"slug,omitempty"`
	CategoryID string `json:"categoryId"`
}
