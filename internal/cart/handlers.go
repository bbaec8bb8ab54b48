package cart

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-masala/internal/catalog"
	"github.com/noah-isme/backend-masala/internal/common"
	"github.com/noah-isme/backend-masala/internal/pricing"
)

// Handler exposes cart session endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
}

type createCartRequest struct {
	Storefront string `json:"storefront" validate:"omitempty,oneof=retail caterer"`
}

type addItemRequest struct {
	ItemID string  `json:"itemId" validate:"required"`
	Qty    float64 `json:"qty" validate:"gte=0"`
}

type addCustomQuantityRequest struct {
	ItemID string  `json:"itemId" validate:"required"`
	Qty    float64 `json:"qty" validate:"gt=0"`
}

type addCustomBudgetRequest struct {
	ItemID string `json:"itemId" validate:"required"`
	Amount int64  `json:"amount" validate:"gt=0"`
}

type addMixRequest struct {
	Budget  int64    `json:"budget" validate:"gt=0"`
	ItemIDs []string `json:"itemIds" validate:"required,min=1,dive,required"`
}

type setQuantityRequest struct {
	Qty float64 `json:"qty"`
}

// Create handles POST /api/v1/carts.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCartRequest
	if !h.decode(w, r, &req) {
		return
	}
	storefront, err := catalog.ParseStorefront(req.Storefront)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "storefront must be retail or caterer", nil)
		return
	}
	view, err := h.Service.Create(r.Context(), storefront)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": view})
}

// Get handles GET /api/v1/carts/{cartID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.Get(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddItem handles POST /api/v1/carts/{cartID}/lines/standard.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.Service.AddItem(r.Context(), chi.URLParam(r, "cartID"), req.ItemID, toQuantity(req.Qty))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddCustomQuantity handles POST /api/v1/carts/{cartID}/lines/custom-quantity.
func (h *Handler) AddCustomQuantity(w http.ResponseWriter, r *http.Request) {
	var req addCustomQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.Service.AddCustomQuantity(r.Context(), chi.URLParam(r, "cartID"), req.ItemID, toQuantity(req.Qty))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddCustomBudget handles POST /api/v1/carts/{cartID}/lines/custom-budget.
// Amount is in minor units and is billed verbatim.
func (h *Handler) AddCustomBudget(w http.ResponseWriter, r *http.Request) {
	var req addCustomBudgetRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.Service.AddCustomBudget(r.Context(), chi.URLParam(r, "cartID"), req.ItemID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddMix handles POST /api/v1/carts/{cartID}/lines/mix. Budget is in minor units.
func (h *Handler) AddMix(w http.ResponseWriter, r *http.Request) {
	var req addMixRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.Service.AddMix(r.Context(), chi.URLParam(r, "cartID"), req.Budget, req.ItemIDs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// SetQuantity handles PATCH /api/v1/carts/{cartID}/lines/{lineID}. A zero or
// negative quantity removes the line.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.Service.SetQuantity(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "lineID"), toQuantity(req.Qty))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemoveLine handles DELETE /api/v1/carts/{cartID}/lines/{lineID}.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	view, err := h.Service.RemoveLine(r.Context(), chi.URLParam(r, "cartID"), chi.URLParam(r, "lineID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

func toQuantity(qty float64) pricing.Quantity {
	return pricing.Quantity(math.Round(qty * float64(pricing.QuantityScale)))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			var fields []string
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) {
				for _, fe := range verrs {
					fields = append(fields, fe.Field())
				}
			}
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "request validation failed", map[string]any{"fields": fields})
			return false
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCartNotFound):
		common.JSONError(w, http.StatusNotFound, "CART_NOT_FOUND", "cart not found or expired", nil)
	case errors.Is(err, pricing.ErrLineNotFound):
		common.JSONError(w, http.StatusNotFound, "LINE_NOT_FOUND", "cart line not found", nil)
	case errors.Is(err, pricing.ErrMixImmutable):
		common.JSONError(w, http.StatusConflict, "MIX_IMMUTABLE", "mix lines only support removal", nil)
	case errors.Is(err, pricing.ErrInvalidMix):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_MIX", err.Error(), nil)
	case errors.Is(err, ErrItemUnavailable):
		common.JSONError(w, http.StatusConflict, "ITEM_UNAVAILABLE", "item cannot be added on this storefront", nil)
	default:
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			common.JSONAppError(w, appErr)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
