package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-masala/internal/cart"
	"github.com/noah-isme/backend-masala/internal/common"
)

// Handler exposes checkout and order lookup endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type checkoutRequest struct {
	CartID   string `json:"cartId" validate:"required"`
	Customer struct {
		Name    string `json:"name" validate:"required,min=2"`
		Phone   string `json:"phone" validate:"required,min=6"`
		Address string `json:"address" validate:"required,min=10"`
	} `json:"customer" validate:"required"`
}

// Checkout handles POST /api/v1/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			var fields []string
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					fields = append(fields, fe.Field())
				}
			}
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "request validation failed", map[string]any{"fields": fields})
			return
		}
	}
	o, err := h.Service.Checkout(r.Context(), req.CartID, Customer{
		Name:    req.Customer.Name,
		Phone:   req.Customer.Phone,
		Address: req.Customer.Address,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": o})
}

// Get handles GET /api/v1/orders/{orderID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Service.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": o})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrCartNotFound):
		common.JSONError(w, http.StatusNotFound, "CART_NOT_FOUND", "cart not found or expired", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no lines to check out", nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	default:
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONAppError(w, appErr)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
