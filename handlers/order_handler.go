package handlers

import (
	"net/http"
	"slices"

	"storefront/clients"
	"storefront/state"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	store    *state.Store
	backend  clients.Backend
	currency string
	logger   *zap.Logger
}

func NewOrderHandler(store *state.Store, backend clients.Backend, currency string, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{store: store, backend: backend, currency: currency, logger: logger}
}

// List handles GET /orders for the signed-in user, newest first.
func (h *OrderHandler) List(c *gin.Context) {
	sess, ok := h.store.Session()
	if !ok {
		unauthorized(c, "Please log in to view your orders.")
		return
	}

	orders, err := h.backend.ListUserOrders(c.Request.Context(), sess.ID)
	if err != nil {
		h.logger.Error("Failed to load orders", zap.String("user_id", sess.ID), zap.Error(err))
		backendError(c, err, "Failed to load orders")
		return
	}

	summaries := make([]OrderSummary, 0, len(orders))
	for _, order := range orders {
		summaries = append(summaries, summarize(order))
	}
	slices.SortStableFunc(summaries, func(a, b OrderSummary) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	c.JSON(http.StatusOK, gin.H{"orders": summaries, "currency": h.currency})
}

// Get handles GET /orders/{orderId} with the tracking timeline.
func (h *OrderHandler) Get(c *gin.Context) {
	sess, ok := h.store.Session()
	if !ok {
		unauthorized(c, "Please log in to view this order.")
		return
	}

	order, err := h.backend.GetOrder(c.Request.Context(), sess.ID, c.Param("orderId"))
	if err != nil {
		h.logger.Error("Failed to load order", zap.String("order_id", c.Param("orderId")), zap.Error(err))
		if clients.IsStatus(err, http.StatusUnauthorized) {
			unauthorized(c, "You do not have access to this order.")
			return
		}
		backendError(c, err, "Order not found")
		return
	}

	steps, progress := order.Tracking()
	c.JSON(http.StatusOK, OrderView{
		Order:            *order,
		ShortID:          order.ShortID(),
		Status:           order.DisplayStatus(),
		Tracking:         steps,
		Progress:         progress,
		EstimatedArrival: order.EstimatedArrival(),
		Currency:         h.currency,
	})
}
