package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

const productColumns = `p.id, p.category_id, c.slug, p.name, p.slug, p.description, p.price, p.image,
	p.availability, p.featured, p.specifications, p.created_at, p.updated_at`

const productFrom = `FROM products p JOIN categories c ON c.id = p.category_id`

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var specs []byte
	var availability string
	err := row.Scan(
		&p.ID,
		&p.CategoryID,
		&p.CategorySlug,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.Image,
		&availability,
		&p.Featured,
		&specs,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Availability = domain.Availability(availability)
	p.Specifications = map[string]string{}
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &p.Specifications); err != nil {
			return nil, fmt.Errorf("unmarshal specifications: %w", err)
		}
	}
	return p, nil
}

func (r *Repository) queryProducts(ctx context.Context, query string, params ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func (r *Repository) ListCategories(ctx context.Context, limit int) ([]domain.Category, error) {
	query := `SELECT id, name, slug, description, image, created_at FROM categories ORDER BY name, id`
	var params []any
	if limit > 0 {
		query += ` LIMIT $1`
		params = append(params, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Image, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return categories, nil
}

func (r *Repository) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	query := `SELECT id, name, slug, description, image, created_at FROM categories WHERE slug = $1`

	var c domain.Category
	err := r.db.QueryRowContext(ctx, query, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Image, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", slug, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query category by slug: %w", err)
	}
	return &c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, category *domain.Category) error {
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO categories (name, slug, description, image, created_at)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		category.Name,
		category.Slug,
		category.Description,
		category.Image,
		category.CreatedAt,
	).Scan(&category.ID)
	if err != nil {
		if mapped := constraintError(err); mapped != nil {
			return fmt.Errorf("category %q: %w", category.Slug, mapped)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// DeleteCategory removes the category and, through the foreign key, all of
// its products.
func (r *Repository) DeleteCategory(ctx context.Context, slug string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE slug = $1`, slug)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("category %q: %w", slug, domain.ErrNotFound)
	}
	return nil
}

func (r *Repository) productWhere(q domain.ProductQuery, a *args) string {
	var conds []string
	if q.CategoryID > 0 {
		conds = append(conds, "p.category_id = "+a.add(q.CategoryID))
	}
	if q.Search != "" {
		ph := a.add(likePattern(q.Search))
		op := r.likeOperator()
		conds = append(conds, fmt.Sprintf(`(p.name %[1]s %[2]s ESCAPE '\' OR p.description %[1]s %[2]s ESCAPE '\')`, op, ph))
	}
	if q.Availability != "" {
		conds = append(conds, "p.availability = "+a.add(string(q.Availability)))
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func orderByClause(sort domain.ProductSort) string {
	switch sort {
	case domain.SortPriceAsc:
		return " ORDER BY p.price ASC, p.id ASC"
	case domain.SortPriceDesc:
		return " ORDER BY p.price DESC, p.id DESC"
	case domain.SortNewest:
		return " ORDER BY p.created_at DESC, p.id DESC"
	default:
		return " ORDER BY p.name ASC, p.id ASC"
	}
}

func (r *Repository) ListProducts(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	a := &args{}
	query := "SELECT " + productColumns + " " + productFrom + r.productWhere(q, a) + orderByClause(q.Sort)
	if q.Limit > 0 {
		query += " LIMIT " + a.add(q.Limit) + " OFFSET " + a.add(q.Offset)
	}
	return r.queryProducts(ctx, query, a.values...)
}

func (r *Repository) CountProducts(ctx context.Context, q domain.ProductQuery) (int, error) {
	a := &args{}
	query := "SELECT COUNT(*) " + productFrom + r.productWhere(q, a)

	var total int
	if err := r.db.QueryRowContext(ctx, query, a.values...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return total, nil
}

func (r *Repository) ListFeaturedProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	query := "SELECT " + productColumns + " " + productFrom +
		` WHERE p.featured = $1 ORDER BY p.created_at DESC, p.id DESC LIMIT $2`
	return r.queryProducts(ctx, query, true, limit)
}

func (r *Repository) ListRelatedProducts(ctx context.Context, categoryID, excludeID int64, limit int) ([]domain.Product, error) {
	query := "SELECT " + productColumns + " " + productFrom +
		` WHERE p.category_id = $1 AND p.id <> $2 ORDER BY p.created_at DESC, p.id DESC LIMIT $3`
	return r.queryProducts(ctx, query, categoryID, excludeID, limit)
}

func (r *Repository) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := "SELECT " + productColumns + " " + productFrom + ` WHERE p.slug = $1`
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %q: %w", slug, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query product by slug: %w", err)
	}
	return p, nil
}

func (r *Repository) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := "SELECT " + productColumns + " " + productFrom + ` WHERE p.id = $1`
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query product by id: %w", err)
	}
	return p, nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *domain.Product) error {
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = product.CreatedAt
	if product.Availability == "" {
		product.Availability = domain.Available
	}

	specs, err := marshalSpecifications(product.Specifications)
	if err != nil {
		return err
	}

	query := `INSERT INTO products (category_id, name, slug, description, price, image, availability,
	              featured, specifications, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`

	err = r.db.QueryRowContext(ctx, query,
		product.CategoryID,
		product.Name,
		product.Slug,
		product.Description,
		product.Price.StringFixed(2),
		product.Image,
		string(product.Availability),
		product.Featured,
		specs,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(&product.ID)
	if err != nil {
		if mapped := constraintError(err); mapped != nil {
			return fmt.Errorf("product %q: %w", product.Slug, mapped)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// UpdateProduct writes every editable column of an existing product.
func (r *Repository) UpdateProduct(ctx context.Context, product *domain.Product) error {
	product.UpdatedAt = time.Now().UTC()

	specs, err := marshalSpecifications(product.Specifications)
	if err != nil {
		return err
	}

	query := `UPDATE products SET name = $1, description = $2, price = $3, image = $4,
	              availability = $5, featured = $6, specifications = $7, updated_at = $8
	          WHERE id = $9`

	result, err := r.db.ExecContext(ctx, query,
		product.Name,
		product.Description,
		product.Price.StringFixed(2),
		product.Image,
		string(product.Availability),
		product.Featured,
		specs,
		product.UpdatedAt,
		product.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("product %d: %w", product.ID, domain.ErrNotFound)
	}
	return nil
}

func marshalSpecifications(specs map[string]string) (string, error) {
	if specs == nil {
		specs = map[string]string{}
	}
	b, err := json.Marshal(specs)
	if err != nil {
		return "", fmt.Errorf("marshal specifications: %w", err)
	}
	return string(b), nil
}
