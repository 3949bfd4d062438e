package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

const testTimeout = 5 * time.Second

var errBoom = errors.New("connection refused")

var testStore = NewSessionStore("test-session-secret-0123456789ab")

// serve runs handler behind the session middleware with chi URL params set.
func serve(handler http.HandlerFunc, req *http.Request, params map[string]string) *httptest.ResponseRecorder {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	recorder := httptest.NewRecorder()
	SessionMiddleware(testStore)(handler).ServeHTTP(recorder, req)
	return recorder
}

// addSessionCookie copies the last session cookie a response set, the way a
// browser keeps only the newest value per name.
func addSessionCookie(req *http.Request, recorder *httptest.ResponseRecorder) {
	var last *http.Cookie
	for _, c := range recorder.Result().Cookies() {
		if c.Name == sessionName {
			last = c
		}
	}
	if last != nil {
		req.AddCookie(last)
	}
}

func withUser(req *http.Request, userID int64) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), userIDKey, userID))
}

type CatalogServiceMock struct {
	home       *service.HomeView
	page       *domain.ProductPage
	product    *domain.Product
	related    []domain.Product
	categories []domain.Category
	category   *domain.Category
	err        error

	lastFilter domain.ProductFilter
	lastSort   domain.ProductSort
	lastPage   int
}

func (m *CatalogServiceMock) Home(context.Context) (*service.HomeView, error) {
	return m.home, m.err
}

func (m *CatalogServiceMock) ListProducts(_ context.Context, filter domain.ProductFilter, sort domain.ProductSort, page int) (*domain.ProductPage, error) {
	m.lastFilter, m.lastSort, m.lastPage = filter, sort, page
	return m.page, m.err
}

func (m *CatalogServiceMock) GetProduct(context.Context, string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.product, nil
}

func (m *CatalogServiceMock) ListRelated(context.Context, *domain.Product, int) ([]domain.Product, error) {
	return m.related, nil
}

func (m *CatalogServiceMock) ListCategories(context.Context, int) ([]domain.Category, error) {
	return m.categories, m.err
}

func (m *CatalogServiceMock) CategoryPage(_ context.Context, _ string, page int) (*domain.Category, *domain.ProductPage, error) {
	m.lastPage = page
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.category, m.page, nil
}

type CartServiceMock struct {
	cart       *domain.Cart
	resolveErr error
	product    *domain.Product
	totals     domain.CartTotals
	update     *service.ItemUpdate
	view       *domain.CartView
	removed    string
	err        error

	lastOwner    domain.Identity
	lastQuantity int
	lastItemID   int64
}

func (m *CartServiceMock) ResolveCart(_ context.Context, owner domain.Identity) (*domain.Cart, error) {
	m.lastOwner = owner
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	return m.cart, nil
}

func (m *CartServiceMock) AddItem(_ context.Context, _, _ int64, quantity int) (*domain.Product, domain.CartTotals, error) {
	m.lastQuantity = quantity
	if m.err != nil {
		return nil, domain.CartTotals{}, m.err
	}
	return m.product, m.totals, nil
}

func (m *CartServiceMock) UpdateItem(_ context.Context, _, itemID int64, quantity int) (*service.ItemUpdate, error) {
	m.lastItemID, m.lastQuantity = itemID, quantity
	if m.err != nil {
		return nil, m.err
	}
	return m.update, nil
}

func (m *CartServiceMock) RemoveItem(_ context.Context, _, itemID int64) (string, error) {
	m.lastItemID = itemID
	return m.removed, m.err
}

func (m *CartServiceMock) GetCart(_ context.Context, cart *domain.Cart) (*domain.CartView, error) {
	if m.view != nil {
		return m.view, nil
	}
	return &domain.CartView{Cart: *cart}, nil
}

type CheckoutServiceMock struct {
	order     *domain.Order
	err       error
	lastBuyer domain.BuyerInfo
}

func (m *CheckoutServiceMock) Checkout(_ context.Context, _ *domain.Cart, buyer domain.BuyerInfo) (*domain.Order, error) {
	m.lastBuyer = buyer
	return m.order, m.err
}

type OrderServiceMock struct {
	orders    []domain.Order
	err       error
	lastOwner domain.Identity
	lastID    int64
	lastState domain.OrderStatus
}

func (m *OrderServiceMock) GetOrder(_ context.Context, owner domain.Identity, id int64) (*domain.Order, error) {
	m.lastOwner, m.lastID = owner, id
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.orders {
		if m.orders[i].ID == id {
			return &m.orders[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *OrderServiceMock) ListOrders(context.Context, int64) ([]domain.Order, error) {
	return m.orders, m.err
}

func (m *OrderServiceMock) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	m.lastID, m.lastState = id, status
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Order{ID: id, Status: status}, nil
}

type AdminServiceMock struct {
	err       error
	lastSlug  string
	lastFile  string
	lastBytes []byte
	lastPatch service.ProductPatch
}

func (m *AdminServiceMock) CreateCategory(_ context.Context, in service.CategoryInput) (*domain.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Category{ID: 1, Name: in.Name, Slug: in.Slug}, nil
}

func (m *AdminServiceMock) DeleteCategory(_ context.Context, slug string) error {
	m.lastSlug = slug
	return m.err
}

func (m *AdminServiceMock) CreateProduct(_ context.Context, in service.ProductInput) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Product{ID: 1, CategorySlug: in.CategorySlug, Name: in.Name, Slug: in.Slug, Price: in.Price, Availability: domain.Available}, nil
}

func (m *AdminServiceMock) UpdateProduct(_ context.Context, slug string, patch service.ProductPatch) (*domain.Product, error) {
	m.lastSlug, m.lastPatch = slug, patch
	if m.err != nil {
		return nil, m.err
	}
	p := &domain.Product{ID: 1, Slug: slug, Name: "Speaker", Availability: domain.Available}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	return p, nil
}

func (m *AdminServiceMock) SetProductImage(_ context.Context, slug string, src io.Reader, filename string) (*domain.Product, error) {
	m.lastSlug, m.lastFile = slug, filename
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	m.lastBytes = data
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Product{ID: 1, Slug: slug, Image: "products/new.png"}, nil
}
