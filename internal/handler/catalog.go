package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/catalog"
)

type ProductRequest struct {
	SKU         string   `json:"sku" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"price_cents" validate:"gte=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Status      string   `json:"status" validate:"omitempty,oneof=active inactive"`
	CategoryID  *int64   `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	Images      []string `json:"images,omitempty" validate:"dive,url"`
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required,min=2"`
}

// CatalogHandler handles product and category requests.
type CatalogHandler struct {
	svc      catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(svc catalog.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc, validate: validator.New()}
}

// ListProducts returns active products, optionally paged and filtered by
// category.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	var filter catalog.ListFilter

	query := r.URL.Query()
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid limit parameter")
			return
		}
		filter.Limit = limit
	}
	if raw := query.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid offset parameter")
			return
		}
		filter.Offset = offset
	}
	if raw := query.Get("category_id"); raw != "" {
		categoryID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || categoryID <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid category_id parameter")
			return
		}
		filter.CategoryID = &categoryID
	}

	products, err := h.svc.ListProducts(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list products")
		respondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string][]catalog.Product{"products": products})
}

// GetProduct returns a single product with all its images.
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	product, err := h.svc.GetProductByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Error().Err(err).Int64("product_id", id).Msg("Failed to get product")
		respondWithError(w, http.StatusInternalServerError, "Failed to get product")
		return
	}

	respondWithJSON(w, http.StatusOK, product)
}

// CreateProduct creates a product owned by the authenticated seller.
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	sellerID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	product := productFromRequest(req)
	product.SellerID = sellerID

	id, err := h.svc.CreateProduct(r.Context(), product)
	if err != nil {
		h.respondProductError(w, err, "Failed to create product")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]int64{"product_id": id})
}

// UpdateProduct updates a product, replacing its images when new ones are
// provided.
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireBuyer(w, r); !ok {
		return
	}

	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	product := productFromRequest(req)
	product.ID = id

	if err := h.svc.UpdateProduct(r.Context(), product); err != nil {
		h.respondProductError(w, err, "Failed to update product")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int64{"product_id": id})
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireBuyer(w, r); !ok {
		return
	}

	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	if err := h.svc.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		log.Error().Err(err).Int64("product_id", id).Msg("Failed to delete product")
		respondWithError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.ListCategories(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list categories")
		respondWithError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string][]catalog.Category{"categories": categories})
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireBuyer(w, r); !ok {
		return
	}

	var req CategoryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondValidationError(w, err)
		return
	}

	id, err := h.svc.CreateCategory(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, catalog.ErrCategoryExists) {
			respondWithError(w, http.StatusConflict, "Category already exists")
			return
		}
		log.Error().Err(err).Str("name", req.Name).Msg("Failed to create category")
		respondWithError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]int64{"category_id": id})
}

func (h *CatalogHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (*ProductRequest, bool) {
	var req ProductRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return nil, false
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondValidationError(w, err)
		return nil, false
	}
	return &req, true
}

func (h *CatalogHandler) respondValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondWithJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error:   "Validation failed",
			Details: formatValidationErrors(validationErrors),
		})
		return
	}
	log.Error().Err(err).Msg("Unexpected error type during validation")
	respondWithError(w, http.StatusInternalServerError, "Internal validation error")
}

func (h *CatalogHandler) respondProductError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		respondWithError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, catalog.ErrSKUExists):
		respondWithError(w, http.StatusConflict, "Product with this SKU already exists")
	case errors.Is(err, catalog.ErrCategoryNotFound):
		respondWithError(w, http.StatusUnprocessableEntity, "Category does not exist")
	case errors.Is(err, catalog.ErrMissingField),
		errors.Is(err, catalog.ErrInvalidPrice),
		errors.Is(err, catalog.ErrInvalidStock):
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Error().Err(err).Msg(fallback)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func productFromRequest(req *ProductRequest) *catalog.Product {
	return &catalog.Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		Status:      catalog.ProductStatus(req.Status),
		CategoryID:  req.CategoryID,
		Images:      req.Images,
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, strconv.ErrSyntax
	}
	return id, nil
}
