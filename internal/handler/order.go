package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/order"
)

type CheckoutRequest struct {
	AddressID *int64 `json:"address_id,omitempty"`
}

// OrderHandler handles checkout and order history requests.
type OrderHandler struct {
	svc order.Service
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Checkout converts the buyer's open cart into an order.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	var req CheckoutRequest
	if r.Body != nil && r.ContentLength != 0 {
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}

	orderID, err := h.svc.Checkout(r.Context(), buyerID, req.AddressID)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrNoOpenCart):
			respondWithError(w, http.StatusUnprocessableEntity, "No open cart")
		case errors.Is(err, order.ErrEmptyCart):
			respondWithError(w, http.StatusUnprocessableEntity, "Cart has no items")
		case errors.Is(err, order.ErrInsufficientStock):
			respondWithJSON(w, http.StatusConflict, map[string]string{
				"error":  "Checkout failed",
				"detail": err.Error(),
			})
		case errors.Is(err, order.ErrCartAlreadyClosed):
			respondWithError(w, http.StatusConflict, "Cart was already checked out")
		default:
			log.Error().Err(err).Int64("buyer_id", buyerID).Msg("Checkout failed")
			respondWithJSON(w, http.StatusConflict, map[string]string{
				"error":  "Checkout failed",
				"detail": err.Error(),
			})
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"order_id": orderID.String()})
}

// ListOrders returns the buyer's order history, newest first.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	orders, err := h.svc.ListOrdersByBuyer(r.Context(), buyerID)
	if err != nil {
		log.Error().Err(err).Int64("buyer_id", buyerID).Msg("Failed to list orders")
		respondWithError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string][]order.Order{"orders": orders})
}

// GetOrder returns a single order with its lines.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	buyerID, ok := requireBuyer(w, r)
	if !ok {
		return
	}

	idParam := chi.URLParam(r, "id")
	orderID, err := uuid.FromString(idParam)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order id")
		return
	}

	o, err := h.svc.GetOrderByID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to get order")
		respondWithError(w, http.StatusInternalServerError, "Failed to get order")
		return
	}

	if o.BuyerID != buyerID {
		respondWithError(w, http.StatusNotFound, "Order not found")
		return
	}

	respondWithJSON(w, http.StatusOK, o)
}
