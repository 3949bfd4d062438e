package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PageSize is the fixed number of products on a catalog page.
const PageSize = 12

type Availability string

const (
	Available  Availability = "available"
	OutOfStock Availability = "out_of_stock"
	PreOrder   Availability = "pre_order"
)

func (a Availability) Valid() bool {
	switch a {
	case Available, OutOfStock, PreOrder:
		return true
	}
	return false
}

type Category struct {
	ID          int64
	Name        string
	Slug        string
	Description string
	Image       string
	CreatedAt   time.Time
}

type Product struct {
	ID             int64
	CategoryID     int64
	CategorySlug   string
	Name           string
	Slug           string
	Description    string
	Price          decimal.Decimal
	Image          string
	Availability   Availability
	Featured       bool
	Specifications map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ProductSort string

const (
	SortName      ProductSort = "name"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortNewest    ProductSort = "newest"
)

// ParseProductSort falls back to SortName for empty or unknown values.
func ParseProductSort(s string) ProductSort {
	switch ProductSort(s) {
	case SortPriceAsc, SortPriceDesc, SortNewest:
		return ProductSort(s)
	}
	return SortName
}

type ProductFilter struct {
	CategorySlug string
	Search       string
	Availability Availability
}

// ProductQuery is the storage-level form of a catalog listing.
type ProductQuery struct {
	CategoryID   int64
	Search       string
	Availability Availability
	Sort         ProductSort
	Limit        int
	Offset       int
}

type ProductPage struct {
	Products []Product
	Number   int
	NumPages int
	Total    int
}

func (p *ProductPage) HasNext() bool {
	return p.Number < p.NumPages
}

func (p *ProductPage) HasPrevious() bool {
	return p.Number > 1
}

// ClampPage resolves a requested page number against a total count the way
// a forgiving paginator does: anything below 1 becomes 1, anything past the
// end becomes the last page. An empty result still has one (empty) page.
func ClampPage(requested, total, size int) (number, numPages int) {
	numPages = (total + size - 1) / size
	if numPages < 1 {
		numPages = 1
	}
	number = requested
	if number < 1 {
		number = 1
	}
	if number > numPages {
		number = numPages
	}
	return number, numPages
}
