package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/domain"
)

// mockCatalog implements repository.CatalogRepository in memory.
type mockCatalog struct {
	m          sync.RWMutex
	categories map[string]*domain.Category
	products   map[int64]*domain.Product
	err        error

	lastQuery   domain.ProductQuery
	listCalls   int
	updateCalls int
	updateErr   error
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		categories: map[string]*domain.Category{},
		products:   map[int64]*domain.Product{},
	}
}

func (m *mockCatalog) addCategory(c domain.Category) *domain.Category {
	m.m.Lock()
	defer m.m.Unlock()
	if c.ID == 0 {
		c.ID = int64(len(m.categories) + 1)
	}
	m.categories[c.Slug] = &c
	return &c
}

func (m *mockCatalog) addProduct(p domain.Product) *domain.Product {
	m.m.Lock()
	defer m.m.Unlock()
	if p.ID == 0 {
		p.ID = int64(len(m.products) + 1)
	}
	m.products[p.ID] = &p
	return &p
}

func (m *mockCatalog) ListCategories(_ context.Context, limit int) ([]domain.Category, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockCatalog) GetCategoryBySlug(_ context.Context, slug string) (*domain.Category, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.categories[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCatalog) CreateCategory(_ context.Context, c *domain.Category) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.categories[c.Slug]; ok {
		return domain.ErrConflict
	}
	c.ID = int64(len(m.categories) + 1)
	cp := *c
	m.categories[c.Slug] = &cp
	return nil
}

func (m *mockCatalog) DeleteCategory(_ context.Context, slug string) error {
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.categories[slug]; !ok {
		return domain.ErrNotFound
	}
	delete(m.categories, slug)
	return nil
}

func (m *mockCatalog) matching(q domain.ProductQuery) []domain.Product {
	out := make([]domain.Product, 0)
	for _, p := range m.products {
		if q.CategoryID > 0 && p.CategoryID != q.CategoryID {
			continue
		}
		if q.Availability != "" && p.Availability != q.Availability {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockCatalog) ListProducts(_ context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.lastQuery = q
	m.listCalls++
	all := m.matching(q)
	if q.Offset >= len(all) {
		return []domain.Product{}, nil
	}
	end := len(all)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return all[q.Offset:end], nil
}

func (m *mockCatalog) CountProducts(_ context.Context, q domain.ProductQuery) (int, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	return len(m.matching(q)), nil
}

func (m *mockCatalog) ListFeaturedProducts(_ context.Context, limit int) ([]domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	out := make([]domain.Product, 0)
	for _, p := range m.matching(domain.ProductQuery{}) {
		if p.Featured && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) ListRelatedProducts(_ context.Context, categoryID, excludeID int64, limit int) ([]domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	out := make([]domain.Product, 0)
	for _, p := range m.matching(domain.ProductQuery{CategoryID: categoryID}) {
		if p.ID != excludeID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockCatalog) GetProductBySlug(_ context.Context, slug string) (*domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	for _, p := range m.products {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCatalog) GetProductByID(_ context.Context, id int64) (*domain.Product, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockCatalog) CreateProduct(_ context.Context, p *domain.Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	for _, existing := range m.products {
		if existing.Slug == p.Slug {
			return domain.ErrConflict
		}
	}
	p.ID = int64(len(m.products) + 1)
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

func (m *mockCatalog) UpdateProduct(_ context.Context, p *domain.Product) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.products[p.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

// mockCartRepository implements repository.CartRepository in memory; line
// prices are read live from the catalog mock.
type mockCartRepository struct {
	m       sync.Mutex
	catalog *mockCatalog
	carts   map[string]*domain.Cart
	byID    map[int64]*domain.Cart
	items   []domain.CartItem
	nextID  int64
	err     error

	getOrCreateCalls int
	lastCtxErr       error
}

func newMockCartRepository(catalog *mockCatalog) *mockCartRepository {
	return &mockCartRepository{
		catalog: catalog,
		carts:   map[string]*domain.Cart{},
		byID:    map[int64]*domain.Cart{},
	}
}

func (m *mockCartRepository) GetOrCreateCart(ctx context.Context, owner domain.Identity) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.getOrCreateCalls++
	m.lastCtxErr = ctx.Err()
	if m.err != nil {
		return nil, m.err
	}
	if c, ok := m.carts[owner.Key()]; ok {
		return c, nil
	}
	m.nextID++
	c := &domain.Cart{ID: m.nextID, Owner: owner}
	m.carts[owner.Key()] = c
	m.byID[c.ID] = c
	return c, nil
}

func (m *mockCartRepository) GetCart(_ context.Context, id int64) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (m *mockCartRepository) AddItem(_ context.Context, cartID, productID int64, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	for i := range m.items {
		if m.items[i].CartID == cartID && m.items[i].ProductID == productID {
			m.items[i].Quantity += quantity
			return nil
		}
	}
	m.nextID++
	m.items = append(m.items, domain.CartItem{ID: m.nextID, CartID: cartID, ProductID: productID, Quantity: quantity})
	return nil
}

func (m *mockCartRepository) SetItemQuantity(_ context.Context, cartID, itemID int64, quantity int) error {
	m.m.Lock()
	defer m.m.Unlock()
	for i := range m.items {
		if m.items[i].ID == itemID && m.items[i].CartID == cartID {
			m.items[i].Quantity = quantity
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockCartRepository) DeleteItem(_ context.Context, cartID, itemID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	for i, item := range m.items {
		if item.ID == itemID && item.CartID == cartID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockCartRepository) withProduct(item domain.CartItem) domain.CartItem {
	m.catalog.m.RLock()
	defer m.catalog.m.RUnlock()
	if p, ok := m.catalog.products[item.ProductID]; ok {
		item.ProductName = p.Name
		item.ProductSlug = p.Slug
		item.UnitPrice = p.Price
	}
	return item
}

func (m *mockCartRepository) GetItem(_ context.Context, cartID, itemID int64) (*domain.CartItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	for _, item := range m.items {
		if item.ID == itemID && item.CartID == cartID {
			it := m.withProduct(item)
			return &it, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCartRepository) ListItems(_ context.Context, cartID int64) ([]domain.CartItem, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.CartItem, 0)
	for _, item := range m.items {
		if item.CartID == cartID {
			out = append(out, m.withProduct(item))
		}
	}
	return out, nil
}

type mockCache struct {
	m      sync.RWMutex
	ids    map[string]int64
	err    error
	sets   int
	delete int
}

func newMockCache() *mockCache {
	return &mockCache{ids: map[string]int64{}}
}

func (m *mockCache) GetCartID(_ context.Context, owner domain.Identity) (int64, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	id, ok := m.ids[owner.Key()]
	if !ok {
		return 0, cache.ErrCacheMiss
	}
	return id, nil
}

func (m *mockCache) SetCartID(_ context.Context, owner domain.Identity, cartID int64) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.sets++
	if m.err != nil {
		return m.err
	}
	m.ids[owner.Key()] = cartID
	return nil
}

func (m *mockCache) Delete(_ context.Context, owner domain.Identity) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.delete++
	delete(m.ids, owner.Key())
	return m.err
}

// mockOrderRepository implements repository.OrderRepository.
type mockOrderRepository struct {
	m           sync.Mutex
	orders      map[int64]*domain.Order
	checkoutErr error
	updateErr   error

	checkoutCalls int
	lastBuyer     domain.BuyerInfo
	lastOwner     domain.Identity
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: map[int64]*domain.Order{}}
}

func (m *mockOrderRepository) Checkout(_ context.Context, _ int64, owner domain.Identity, buyer domain.BuyerInfo) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.checkoutCalls++
	m.lastBuyer = buyer
	m.lastOwner = owner
	if m.checkoutErr != nil {
		return nil, m.checkoutErr
	}
	o := &domain.Order{ID: int64(len(m.orders) + 1), Owner: owner, Buyer: buyer, Status: domain.OrderStatusPending}
	m.orders[o.ID] = o
	return o, nil
}

func (m *mockOrderRepository) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) ListOrdersByUserID(_ context.Context, userID int64) ([]domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	out := make([]domain.Order, 0)
	for _, o := range m.orders {
		if o.Owner.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) UpdateOrderStatus(_ context.Context, id int64, from, to domain.OrderStatus) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != from {
		return domain.ErrConflict
	}
	o.Status = to
	return nil
}

type mockImageStore struct {
	path    string
	err     error
	name    string
	removed []string
}

func (m *mockImageStore) SaveProductImage(src io.Reader, filename string) (string, error) {
	m.name = filename
	if m.err != nil {
		return "", m.err
	}
	if _, err := io.ReadAll(src); err != nil {
		return "", err
	}
	return m.path, nil
}

func (m *mockImageStore) RemoveProductImage(path string) error {
	m.removed = append(m.removed, path)
	return nil
}

var errBoom = errors.New("boom")
