package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/catalog"
)

type AddItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Qty       int   `json:"qty" validate:"required,gt=0"`
}

// CartHandler handles HTTP requests for the buyer's cart.
type CartHandler struct {
	svc      cart.Service
	validate *validator.Validate
}

func NewCartHandler(svc cart.Service) *CartHandler {
	return &CartHandler{svc: svc, validate: validator.New()}
}

// AddItem adds a product to the buyer's open cart, creating the cart on the
// first add.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondWithJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return
	}

	cartID, err := h.svc.AddItem(r.Context(), buyerID, req.ProductID, req.Qty)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			respondWithError(w, http.StatusUnprocessableEntity, "Quantity must be a positive integer")
		case errors.Is(err, catalog.ErrProductNotFound):
			respondWithError(w, http.StatusNotFound, "Product not found")
		case errors.Is(err, cart.ErrCartNotOpen):
			respondWithError(w, http.StatusConflict, "Cart is no longer open")
		default:
			log.Error().Err(err).Int64("buyer_id", buyerID).Msg("Failed to add item to cart")
			respondWithError(w, http.StatusInternalServerError, "Failed to add item to cart")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"cart_id": cartID.String()})
}

// GetCart returns the buyer's open cart with lines, or a null cart when no
// cart is open.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	c, err := h.svc.GetOpenCart(r.Context(), buyerID)
	if err != nil {
		if errors.Is(err, cart.ErrNoOpenCart) {
			respondWithJSON(w, http.StatusOK, map[string]*cart.Cart{"cart": nil})
			return
		}
		log.Error().Err(err).Int64("buyer_id", buyerID).Msg("Failed to get cart")
		respondWithError(w, http.StatusInternalServerError, "Failed to get cart")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]*cart.Cart{"cart": c})
}
