package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

type CatalogService interface {
	Home(ctx context.Context) (*service.HomeView, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter, sort domain.ProductSort, page int) (*domain.ProductPage, error)
	GetProduct(ctx context.Context, slug string) (*domain.Product, error)
	ListRelated(ctx context.Context, product *domain.Product, limit int) ([]domain.Product, error)
	ListCategories(ctx context.Context, limit int) ([]domain.Category, error)
	CategoryPage(ctx context.Context, slug string, page int) (*domain.Category, *domain.ProductPage, error)
}

type ProductHandler struct {
	catalog CatalogService
	timeout time.Duration
}

func NewProductHandler(catalog CatalogService, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
	}
}

type HomeResponse struct {
	Featured   []ProductDTO  `json:"featured"`
	Categories []CategoryDTO `json:"categories"`
}

type ProductDetailResponse struct {
	Product ProductDTO   `json:"product"`
	Related []ProductDTO `json:"related"`
}

type CategoriesResponse struct {
	Categories []CategoryDTO `json:"categories"`
}

type CategoryPageResponse struct {
	Category CategoryDTO `json:"category"`
	ProductPageDTO
}

// GET /api/home
func (h *ProductHandler) Home(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	home, err := h.catalog.Home(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, HomeResponse{
		Featured:   toProductDTOs(home.Featured),
		Categories: toCategoryDTOs(home.Categories),
	})
}

// GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q := r.URL.Query()
	filter := domain.ProductFilter{
		CategorySlug: q.Get("category"),
		Search:       q.Get("search"),
		Availability: domain.Availability(q.Get("availability")),
	}

	page, err := h.catalog.ListProducts(ctx, filter, domain.ParseProductSort(q.Get("sort")), pageParam(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toProductPageDTO(page))
}

// GET /api/products/{slug}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	related, err := h.catalog.ListRelated(ctx, product, service.RelatedLimit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, ProductDetailResponse{
		Product: toProductDTO(*product),
		Related: toProductDTOs(related),
	})
}

// GET /api/categories
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.catalog.ListCategories(ctx, 0)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, CategoriesResponse{Categories: toCategoryDTOs(categories)})
}

// GET /api/categories/{slug}
func (h *ProductHandler) Category(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	category, page, err := h.catalog.CategoryPage(ctx, chi.URLParam(r, "slug"), pageParam(r))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, CategoryPageResponse{
		Category:       toCategoryDTO(*category),
		ProductPageDTO: toProductPageDTO(page),
	})
}

// pageParam reads ?page=; garbage means the first page and out-of-range
// numbers are clamped by the service.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		return 1
	}
	return page
}
