package handlers

import (
	"errors"
	"net/http"

	"storefront/checkout"
	"storefront/clients"
	"storefront/models"
	"storefront/state"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	store    *state.Store
	flow     *checkout.Flow
	currency string
}

func NewCheckoutHandler(store *state.Store, flow *checkout.Flow, currency string) *CheckoutHandler {
	return &CheckoutHandler{store: store, flow: flow, currency: currency}
}

// Get handles GET /checkout with shipping fields pre-filled from the session.
func (h *CheckoutHandler) Get(c *gin.Context) {
	view := CheckoutView{
		State:       h.flow.State(),
		Subtotal:    h.store.TotalValue(),
		DeliveryFee: h.flow.DeliveryFee(),
		Total:       h.flow.Total(),
		Currency:    h.currency,
	}
	if sess, ok := h.store.Session(); ok {
		view.Shipping = checkout.PrefillShipping(sess)
	}
	c.JSON(http.StatusOK, view)
}

// Submit handles POST /checkout
func (h *CheckoutHandler) Submit(c *gin.Context) {
	var form checkout.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		invalidBody(c, err)
		return
	}

	res, err := h.flow.Submit(c.Request.Context(), form)
	if err != nil {
		c.JSON(checkoutStatus(err), models.ErrorResponse{
			Error:   checkoutCode(err),
			Message: checkout.UserMessage(err),
		})
		return
	}

	c.JSON(http.StatusCreated, CheckoutResult{OrderID: res.Order.OrderID, Redirect: res.Redirect})
}

func checkoutStatus(err error) int {
	var apiErr *clients.APIError
	switch {
	case errors.Is(err, checkout.ErrShippingIncomplete),
		errors.Is(err, checkout.ErrInvalidCardNumber),
		errors.Is(err, checkout.ErrInvalidCVV),
		errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, checkout.ErrInProgress):
		return http.StatusConflict
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	default:
		return http.StatusBadGateway
	}
}

func checkoutCode(err error) string {
	switch checkoutStatus(err) {
	case http.StatusBadRequest:
		return "INVALID_INPUT"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusBadGateway:
		return "BACKEND_ERROR"
	default:
		return "ORDER_REJECTED"
	}
}
