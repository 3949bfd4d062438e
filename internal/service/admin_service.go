package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/media"
	"github.com/fjod/storefront/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ImageStore persists an uploaded product image and returns its media path.
type ImageStore interface {
	SaveProductImage(src io.Reader, filename string) (string, error)
	RemoveProductImage(path string) error
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"required,max=100,slug"`
	Description string `json:"description"`
}

type ProductInput struct {
	CategorySlug   string              `json:"category" validate:"required"`
	Name           string              `json:"name" validate:"required,max=200"`
	Slug           string              `json:"slug" validate:"required,max=200,slug"`
	Description    string              `json:"description"`
	Price          decimal.Decimal     `json:"price"`
	Availability   domain.Availability `json:"availability" validate:"omitempty,oneof=available out_of_stock pre_order"`
	Featured       bool                `json:"featured"`
	Specifications map[string]string   `json:"specifications"`
}

// ProductPatch carries the editable product fields; nil means unchanged.
type ProductPatch struct {
	Name           *string              `json:"name" validate:"omitempty,max=200"`
	Description    *string              `json:"description"`
	Price          *decimal.Decimal     `json:"price"`
	Availability   *domain.Availability `json:"availability" validate:"omitempty,oneof=available out_of_stock pre_order"`
	Featured       *bool                `json:"featured"`
	Specifications map[string]string    `json:"specifications"`
}

type AdminService struct {
	catalog  repository.CatalogRepository
	images   ImageStore
	validate *validator.Validate
}

func NewAdminService(catalog repository.CatalogRepository, images ImageStore) *AdminService {
	return &AdminService{catalog: catalog, images: images, validate: newValidator()}
}

func (s *AdminService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}

	category := &domain.Category{Name: in.Name, Slug: in.Slug, Description: in.Description}
	if err := s.catalog.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	zap.L().Info("category created", zap.String("slug", category.Slug))
	return category, nil
}

func (s *AdminService) DeleteCategory(ctx context.Context, slug string) error {
	if err := s.catalog.DeleteCategory(ctx, slug); err != nil {
		return err
	}
	zap.L().Info("category deleted", zap.String("slug", slug))
	return nil
}

func (s *AdminService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Slug = strings.TrimSpace(in.Slug)
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}
	if fe := checkPrice(in.Price); fe != nil {
		return nil, domain.NewValidationError(*fe)
	}

	category, err := s.catalog.GetCategoryBySlug(ctx, in.CategorySlug)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{
		CategoryID:     category.ID,
		CategorySlug:   category.Slug,
		Name:           in.Name,
		Slug:           in.Slug,
		Description:    in.Description,
		Price:          in.Price,
		Availability:   in.Availability,
		Featured:       in.Featured,
		Specifications: in.Specifications,
	}
	if product.Availability == "" {
		product.Availability = domain.Available
	}
	if err := s.catalog.CreateProduct(ctx, product); err != nil {
		return nil, err
	}
	zap.L().Info("product created", zap.String("slug", product.Slug))
	return product, nil
}

func (s *AdminService) UpdateProduct(ctx context.Context, slug string, patch ProductPatch) (*domain.Product, error) {
	if err := validateStruct(s.validate, patch); err != nil {
		return nil, err
	}

	product, err := s.catalog.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, domain.NewValidationError(domain.FieldError{Field: "name", Reason: "This field is required."})
		}
		product.Name = name
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		if fe := checkPrice(*patch.Price); fe != nil {
			return nil, domain.NewValidationError(*fe)
		}
		product.Price = *patch.Price
	}
	if patch.Availability != nil {
		product.Availability = *patch.Availability
	}
	if patch.Featured != nil {
		product.Featured = *patch.Featured
	}
	if patch.Specifications != nil {
		product.Specifications = patch.Specifications
	}

	if err := s.catalog.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// SetProductImage stores the thumbnailed upload and points the product at it.
func (s *AdminService) SetProductImage(ctx context.Context, slug string, src io.Reader, filename string) (*domain.Product, error) {
	product, err := s.catalog.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	path, err := s.images.SaveProductImage(src, filename)
	if errors.Is(err, media.ErrInvalidImage) {
		return nil, domain.NewValidationError(domain.FieldError{
			Field:  "image",
			Reason: "Upload a valid image. The file you uploaded was either not an image or a corrupted image.",
		})
	}
	if err != nil {
		return nil, fmt.Errorf("save product image: %w", err)
	}

	product.Image = path
	if err := s.catalog.UpdateProduct(ctx, product); err != nil {
		if errRemove := s.images.RemoveProductImage(path); errRemove != nil {
			zap.L().Warn("failed to remove orphaned image", zap.String("path", path), zap.Error(errRemove))
		}
		return nil, err
	}
	zap.L().Info("product image updated", zap.String("slug", slug), zap.String("path", path))
	return product, nil
}

func checkPrice(price decimal.Decimal) *domain.FieldError {
	switch {
	case price.IsNegative():
		return &domain.FieldError{Field: "price", Reason: "Ensure this value is greater than or equal to 0."}
	case price.Exponent() < -2 && !price.Equal(price.Round(2)):
		return &domain.FieldError{Field: "price", Reason: "Ensure that there are no more than 2 decimal places."}
	case price.GreaterThanOrEqual(decimal.New(1, 8)):
		return &domain.FieldError{Field: "price", Reason: "Ensure that there are no more than 10 digits in total."}
	}
	return nil
}
