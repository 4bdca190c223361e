package handlers

import (
	"errors"
	"net/http"
	"slices"

	"storefront/checkout"
	"storefront/models"
	"storefront/state"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	store    *state.Store
	flow     *checkout.Flow
	currency string
}

func NewCartHandler(store *state.Store, flow *checkout.Flow, currency string) *CartHandler {
	return &CartHandler{store: store, flow: flow, currency: currency}
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Size      string `json:"size"`
}

type setQuantityRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Size      string `json:"size" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// Get handles GET /cart
func (h *CartHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.view())
}

// Add handles POST /cart/items
func (h *CartHandler) Add(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	if product, ok := h.store.Product(req.ProductID); ok && req.Size != "" && !slices.Contains(product.Sizes, req.Size) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "INVALID_SIZE",
			Message: "Select Product Size",
			Details: "size " + req.Size + " is not offered for " + req.ProductID,
		})
		return
	}
	if err := h.store.AddToCart(req.ProductID, req.Size); err != nil {
		invalidBody(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view())
}

// SetQuantity handles PUT /cart/items. A quantity of zero or less removes the entry.
func (h *CartHandler) SetQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	if err := h.store.SetQuantity(req.ProductID, req.Size, req.Quantity); err != nil {
		if errors.Is(err, state.ErrInvalidItem) {
			invalidBody(c, err)
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "INTERNAL_ERROR", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.view())
}

// DismissError handles DELETE /cart/error
func (h *CartHandler) DismissError(c *gin.Context) {
	h.store.DismissCartError()
	c.JSON(http.StatusOK, h.view())
}

func (h *CartHandler) view() CartView {
	snap := h.store.Snapshot()
	return CartView{
		Items:       h.store.CartLines(),
		Count:       snap.Cart.Count(),
		Subtotal:    h.store.TotalValue(),
		DeliveryFee: h.flow.DeliveryFee(),
		Total:       h.flow.Total(),
		Loading:     snap.CartLoading,
		Error:       snap.CartError,
		Currency:    h.currency,
	}
}
