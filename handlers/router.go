// Package handlers is the storefront view layer: gin handlers that read and
// drive the application state.
package handlers

import (
	"net/http"

	"storefront/checkout"
	"storefront/clients"
	"storefront/logging"
	"storefront/models"
	"storefront/state"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	Store    *state.Store
	Backend  clients.Backend
	Checkout *checkout.Flow
	Currency string
	Logger   *zap.Logger
}

// NewRouter wires every view. Each handler uses its request context as the
// cancellation scope of the backend calls it starts.
func NewRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	collection := NewCollectionHandler(opts.Store, opts.Currency, logger)
	products := NewProductHandler(opts.Store, opts.Backend, opts.Currency, logger)
	cart := NewCartHandler(opts.Store, opts.Checkout, opts.Currency)
	session := NewSessionHandler(opts.Store)
	checkoutHandler := NewCheckoutHandler(opts.Store, opts.Checkout, opts.Currency)
	orders := NewOrderHandler(opts.Store, opts.Backend, opts.Currency, logger)

	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(logger))

	router.GET("/collection", collection.Get)
	router.POST("/collection/filter", collection.SetFilter)
	router.POST("/collection/sort", collection.SetSort)
	router.POST("/collection/page", collection.SetPage)
	router.GET("/search", collection.GetSearch)
	router.POST("/search", collection.SetSearch)

	router.GET("/products/:productId", products.Get)

	router.GET("/cart", cart.Get)
	router.POST("/cart/items", cart.Add)
	router.PUT("/cart/items", cart.SetQuantity)
	router.DELETE("/cart/error", cart.DismissError)

	router.GET("/session", session.Get)
	router.POST("/session", session.Login)
	router.DELETE("/session", session.Logout)

	router.GET("/checkout", checkoutHandler.Get)
	router.POST("/checkout", checkoutHandler.Submit)

	router.GET("/orders", orders.List)
	router.GET("/orders/:orderId", orders.Get)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	return router
}

func invalidBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "INVALID_INPUT",
		Message: "Invalid request body",
		Details: err.Error(),
	})
}

func unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "UNAUTHORIZED",
		Message: message,
	})
}

// backendError reports a failed backend call, passing through 404s. The
// backend's own message goes in Details when it sent one.
func backendError(c *gin.Context, err error, message string) {
	details := clients.ErrorMessage(err)
	if clients.IsStatus(err, http.StatusNotFound) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "NOT_FOUND",
			Message: message,
			Details: details,
		})
		return
	}
	if details == "" {
		details = err.Error()
	}
	c.JSON(http.StatusBadGateway, models.ErrorResponse{
		Error:   "BACKEND_ERROR",
		Message: message,
		Details: details,
	})
}
