package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

type AdminService interface {
	CreateCategory(ctx context.Context, in service.CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, slug string) error
	CreateProduct(ctx context.Context, in service.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, slug string, patch service.ProductPatch) (*domain.Product, error)
	SetProductImage(ctx context.Context, slug string, src io.Reader, filename string) (*domain.Product, error)
}

type OrderStatusService interface {
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
}

type AdminHandler struct {
	admin         AdminService
	orders        OrderStatusService
	timeout       time.Duration
	maxUploadSize int64
}

func NewAdminHandler(admin AdminService, orders OrderStatusService, timeout time.Duration, maxUploadSize int64) *AdminHandler {
	return &AdminHandler{
		admin:         admin,
		orders:        orders,
		timeout:       timeout,
		maxUploadSize: maxUploadSize,
	}
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

// POST /admin/categories
func (h *AdminHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req service.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	category, err := h.admin.CreateCategory(ctx, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCategoryDTO(*category))
}

// DELETE /admin/categories/{slug}
func (h *AdminHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.admin.DeleteCategory(ctx, chi.URLParam(r, "slug")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req service.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	product, err := h.admin.CreateProduct(ctx, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toProductDTO(*product))
}

// PATCH /admin/products/{slug}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req service.ProductPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	product, err := h.admin.UpdateProduct(ctx, chi.URLParam(r, "slug"), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductDTO(*product))
}

// POST /admin/products/{slug}/image
func (h *AdminHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "expected a multipart upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Code:    "invalid_argument",
			Details: []domain.FieldError{{Field: "image", Reason: "No file was submitted."}},
		})
		return
	}
	defer file.Close()

	product, err := h.admin.SetProductImage(ctx, chi.URLParam(r, "slug"), file, header.Filename)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductDTO(*product))
}

// PATCH /admin/orders/{orderID}/status
func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, ok := idParam(r, "orderID")
	if !ok {
		respondError(w, http.StatusNotFound, "not_found", "not found")
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.UpdateStatus(ctx, orderID, req.Status)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderDTO(order))
}
