package service

import (
	"context"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
)

const (
	HomeFeaturedLimit   = 8
	HomeCategoriesLimit = 6
	RelatedLimit        = 4
)

type CatalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// HomeView is the content of the landing page.
type HomeView struct {
	Featured   []domain.Product
	Categories []domain.Category
}

func (s *CatalogService) Home(ctx context.Context) (*HomeView, error) {
	featured, err := s.repo.ListFeaturedProducts(ctx, HomeFeaturedLimit)
	if err != nil {
		return nil, err
	}
	categories, err := s.repo.ListCategories(ctx, HomeCategoriesLimit)
	if err != nil {
		return nil, err
	}
	return &HomeView{Featured: featured, Categories: categories}, nil
}

// ListProducts returns one page of the filtered catalog. An unknown category
// slug is NotFound, while a filter that matches nothing yields an empty page.
func (s *CatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter, sort domain.ProductSort, page int) (*domain.ProductPage, error) {
	if filter.Availability != "" && !filter.Availability.Valid() {
		return nil, domain.NewValidationError(domain.FieldError{
			Field:  "availability",
			Reason: fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", filter.Availability),
		})
	}

	q := domain.ProductQuery{
		Search:       filter.Search,
		Availability: filter.Availability,
		Sort:         sort,
	}
	if filter.CategorySlug != "" {
		category, err := s.repo.GetCategoryBySlug(ctx, filter.CategorySlug)
		if err != nil {
			return nil, err
		}
		q.CategoryID = category.ID
	}

	return s.page(ctx, q, page)
}

func (s *CatalogService) page(ctx context.Context, q domain.ProductQuery, page int) (*domain.ProductPage, error) {
	total, err := s.repo.CountProducts(ctx, q)
	if err != nil {
		return nil, err
	}

	number, numPages := domain.ClampPage(page, total, domain.PageSize)
	result := &domain.ProductPage{
		Products: []domain.Product{},
		Number:   number,
		NumPages: numPages,
		Total:    total,
	}
	if total == 0 {
		return result, nil
	}

	q.Limit = domain.PageSize
	q.Offset = (number - 1) * domain.PageSize
	result.Products, err = s.repo.ListProducts(ctx, q)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *CatalogService) ListFeatured(ctx context.Context, limit int) ([]domain.Product, error) {
	return s.repo.ListFeaturedProducts(ctx, limit)
}

func (s *CatalogService) GetProduct(ctx context.Context, slug string) (*domain.Product, error) {
	return s.repo.GetProductBySlug(ctx, slug)
}

// ListRelated returns other products of the same category.
func (s *CatalogService) ListRelated(ctx context.Context, product *domain.Product, limit int) ([]domain.Product, error) {
	return s.repo.ListRelatedProducts(ctx, product.CategoryID, product.ID, limit)
}

func (s *CatalogService) ListCategories(ctx context.Context, limit int) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx, limit)
}

func (s *CatalogService) GetCategory(ctx context.Context, slug string) (*domain.Category, error) {
	return s.repo.GetCategoryBySlug(ctx, slug)
}

// CategoryPage lists a category's products newest first.
func (s *CatalogService) CategoryPage(ctx context.Context, slug string, page int) (*domain.Category, *domain.ProductPage, error) {
	category, err := s.repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}

	products, err := s.page(ctx, domain.ProductQuery{CategoryID: category.ID, Sort: domain.SortNewest}, page)
	if err != nil {
		return nil, nil, err
	}
	return category, products, nil
}
