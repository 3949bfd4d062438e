package http

import (
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type CategoryDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

type ProductDTO struct {
	ID             int64             `json:"id"`
	Category       string            `json:"category"`
	Name           string            `json:"name"`
	Slug           string            `json:"slug"`
	Description    string            `json:"description,omitempty"`
	Price          string            `json:"price"`
	Image          string            `json:"image,omitempty"`
	Availability   string            `json:"availability"`
	Featured       bool              `json:"featured"`
	Specifications map[string]string `json:"specifications,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

type ProductPageDTO struct {
	Products    []ProductDTO `json:"products"`
	Page        int          `json:"page"`
	NumPages    int          `json:"num_pages"`
	Total       int          `json:"total"`
	HasNext     bool         `json:"has_next"`
	HasPrevious bool         `json:"has_previous"`
}

type CartItemDTO struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	ProductSlug string `json:"product_slug"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

type CartDTO struct {
	Items      []CartItemDTO `json:"items"`
	TotalItems int           `json:"total_items"`
	TotalPrice string        `json:"total_price"`
	Messages   []Flash       `json:"messages,omitempty"`
}

type OrderItemDTO struct {
	ProductID   int64  `json:"product_id,omitempty"`
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

type OrderDTO struct {
	ID          int64            `json:"id"`
	Status      string           `json:"status"`
	Buyer       domain.BuyerInfo `json:"buyer"`
	TotalAmount string           `json:"total_amount"`
	Items       []OrderItemDTO   `json:"items"`
	CreatedAt   time.Time        `json:"created_at"`
	Messages    []Flash          `json:"messages,omitempty"`
}

func toCategoryDTO(c domain.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Image:       c.Image,
	}
}

func toCategoryDTOs(categories []domain.Category) []CategoryDTO {
	out := make([]CategoryDTO, 0, len(categories))
	for _, c := range categories {
		out = append(out, toCategoryDTO(c))
	}
	return out
}

func toProductDTO(p domain.Product) ProductDTO {
	return ProductDTO{
		ID:             p.ID,
		Category:       p.CategorySlug,
		Name:           p.Name,
		Slug:           p.Slug,
		Description:    p.Description,
		Price:          p.Price.StringFixed(2),
		Image:          p.Image,
		Availability:   string(p.Availability),
		Featured:       p.Featured,
		Specifications: p.Specifications,
		CreatedAt:      p.CreatedAt,
	}
}

func toProductDTOs(products []domain.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	return out
}

func toProductPageDTO(page *domain.ProductPage) ProductPageDTO {
	return ProductPageDTO{
		Products:    toProductDTOs(page.Products),
		Page:        page.Number,
		NumPages:    page.NumPages,
		Total:       page.Total,
		HasNext:     page.HasNext(),
		HasPrevious: page.HasPrevious(),
	}
}

func toCartDTO(view *domain.CartView) CartDTO {
	items := make([]CartItemDTO, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, CartItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSlug: item.ProductSlug,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal().StringFixed(2),
		})
	}
	return CartDTO{
		Items:      items,
		TotalItems: view.Totals.Items,
		TotalPrice: view.Totals.Price.StringFixed(2),
	}
}

func toOrderDTO(o *domain.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.Price.StringFixed(2),
			Quantity:    item.Quantity,
			LineTotal:   item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))).StringFixed(2),
		})
	}
	return OrderDTO{
		ID:          o.ID,
		Status:      o.Status.String(),
		Buyer:       o.Buyer,
		TotalAmount: o.TotalAmount.StringFixed(2),
		Items:       items,
		CreatedAt:   o.CreatedAt,
	}
}
